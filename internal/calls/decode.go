package calls

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// wireRecord mirrors CallRecord with pointers so absent and null fields can be told
// apart from zero values
type wireRecord struct {
	Caller    *string  `json:"caller"`
	Called    *string  `json:"called"`
	Timestamp *string  `json:"timestamp"`
	Duration  *int64   `json:"duration"`
	Country   *string  `json:"country"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

func (w wireRecord) missingField() string {
	switch {
	case w.Caller == nil:
		return "caller"
	case w.Called == nil:
		return "called"
	case w.Timestamp == nil:
		return "timestamp"
	case w.Duration == nil:
		return "duration"
	case w.Country == nil:
		return "country"
	case w.Lat == nil:
		return "lat"
	case w.Lon == nil:
		return "lon"
	}
	return ""
}

func (w wireRecord) record() CallRecord {
	return CallRecord{
		Caller:    *w.Caller,
		Called:    *w.Called,
		Timestamp: *w.Timestamp,
		Duration:  *w.Duration,
		Country:   *w.Country,
		Lat:       *w.Lat,
		Lon:       *w.Lon,
	}
}

// DecodeRecords reads a JSON array of call records. Every element must carry all
// seven fields with the right types; the first offending element fails the batch.
// A failure to read r is wrapped as a plain error, not a *DataFormatError, so callers
// can tell a broken transfer from a malformed batch.
func DecodeRecords(r io.Reader) ([]CallRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read call records: %w", err)
	}
	return decodeBatch(data)
}

func decodeBatch(data []byte) ([]CallRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DataFormatError{Index: -1, Reason: "empty document"}
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, &DataFormatError{Index: -1, Reason: fmt.Sprintf("expected a JSON array of call records: %v", err), Err: err}
	}
	if raws == nil {
		return nil, &DataFormatError{Index: -1, Reason: "expected a JSON array of call records, got null"}
	}

	records := make([]CallRecord, 0, len(raws))
	for i, raw := range raws {
		if isNull(raw) {
			return nil, &DataFormatError{Index: i, Reason: "record is null"}
		}

		var w wireRecord
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, &DataFormatError{Index: i, Reason: fmt.Sprintf("malformed record: %v", err), Err: err}
		}
		if field := w.missingField(); field != "" {
			return nil, &DataFormatError{Index: i, Field: field, Reason: "is required"}
		}

		rec := w.record()
		if err := ValidateRecord(rec); err != nil {
			var dfe *DataFormatError
			if errors.As(err, &dfe) {
				dfe.Index = i
			}
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
