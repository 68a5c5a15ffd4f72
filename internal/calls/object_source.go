package calls

import (
	"context"
	"errors"
	"time"

	"github.com/richxcame/cdr-radar/pkg/storage"
)

// ObjectSource reads a JSON batch from an object store such as S3 or MinIO
type ObjectSource struct {
	store storage.Reader
	key   func(now time.Time) string
	now   func() time.Time
}

// NewObjectSource creates a source reading a fixed key from store
func NewObjectSource(store storage.Reader, key string) *ObjectSource {
	return &ObjectSource{
		store: store,
		key:   func(time.Time) string { return key },
		now:   time.Now,
	}
}

// NewDailyObjectSource creates a source reading the current day's export under
// prefix, e.g. cdr/2026/10/19.json
func NewDailyObjectSource(store storage.Reader, prefix string) *ObjectSource {
	return &ObjectSource{
		store: store,
		key:   func(now time.Time) string { return storage.BatchKey(prefix, now) },
		now:   time.Now,
	}
}

// Key returns the object key the next load will read
func (s *ObjectSource) Key() string {
	return s.key(s.now())
}

// Name identifies the source in logs and metrics
func (s *ObjectSource) Name() string {
	return "s3"
}

// LoadRecords downloads and decodes the object. Any failure to fetch or read the
// object, cancellation included, is reported as ErrSourceUnavailable.
func (s *ObjectSource) LoadRecords(ctx context.Context) ([]CallRecord, error) {
	key := s.Key()
	body, err := s.store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, unavailable("object "+key, err)
		}
		return nil, unavailable("download "+key, err)
	}
	defer body.Close()

	records, err := DecodeRecords(body)
	if err != nil {
		if IsDataFormatError(err) {
			return nil, err
		}
		return nil, unavailable("read "+key, err)
	}
	return records, nil
}
