package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when the requested key or bucket does not exist
var ErrObjectNotFound = errors.New("object not found")

// Reader is the read side of an object store
type Reader interface {
	// Download opens the object stored under key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}

// BatchKey returns the key of the daily CDR export for day, e.g. cdr/2026/10/19.json
func BatchKey(prefix string, day time.Time) string {
	prefix = strings.Trim(prefix, "/")
	name := day.UTC().Format("2006/01/02") + ".json"
	if prefix == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", prefix, name)
}
