package calls

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/richxcame/cdr-radar/pkg/validation"
)

// Accepted timestamp layouts, tried in order
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		v, err := newRecordValidator()
		if err != nil {
			panic(fmt.Sprintf("calls: building call record validator: %v", err))
		}
		validate = v
	})
	return validate
}

// newRecordValidator reports json field names and knows the cdr_timestamp tag
func newRecordValidator() (*validator.Validate, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("cdr_timestamp", func(fl validator.FieldLevel) bool {
		_, err := ParseTimestamp(fl.Field().String())
		return err == nil
	})
	if err != nil {
		return nil, fmt.Errorf("register cdr_timestamp: %w", err)
	}
	return v, nil
}

// ParseTimestamp parses an ISO-8601 date or date-time. Values without a zone are UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ValidateRecord checks a single record. The returned error is a *DataFormatError
// with Index set to -1; batch callers fill in the position.
func ValidateRecord(r CallRecord) error {
	err := recordValidator().Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &DataFormatError{
			Index:  -1,
			Field:  fe.Field(),
			Reason: validation.Message(fe),
			Err:    err,
		}
	}
	return &DataFormatError{Index: -1, Reason: err.Error(), Err: err}
}

func validateBatch(records []CallRecord) error {
	for i := range records {
		if err := ValidateRecord(records[i]); err != nil {
			var dfe *DataFormatError
			if errors.As(err, &dfe) {
				dfe.Index = i
			}
			return err
		}
	}
	return nil
}
