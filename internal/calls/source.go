package calls

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Source loads one batch of call records. Implementations fail with an error
// wrapping ErrSourceUnavailable when the batch cannot be obtained and with a
// *DataFormatError when it can be read but is malformed.
type Source interface {
	LoadRecords(ctx context.Context) ([]CallRecord, error)
	Name() string
}

// FileSource reads a JSON array of call records from disk
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name identifies the source in logs and metrics
func (s *FileSource) Name() string {
	return "file"
}

// Path returns the file the source reads
func (s *FileSource) Path() string {
	return s.path
}

// LoadRecords reads and decodes the file. A canceled context or a failed read
// is reported as ErrSourceUnavailable.
func (s *FileSource) LoadRecords(ctx context.Context) ([]CallRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("load "+s.path, err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, unavailable("open "+s.path, err)
		}
		return nil, fmt.Errorf("open call records: %w", err)
	}
	defer f.Close()

	records, err := DecodeRecords(f)
	if err != nil && !IsDataFormatError(err) {
		return nil, unavailable("read "+s.path, err)
	}
	return records, err
}
