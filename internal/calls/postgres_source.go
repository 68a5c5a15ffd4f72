package calls

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// undefined_table
const pgUndefinedTable = "42P01"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// rowQuerier is the subset of *pgxpool.Pool used by PostgresSource
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource loads the batch from a call records table in insertion order
type PostgresSource struct {
	db    rowQuerier
	query string
}

var _ rowQuerier = (*pgxpool.Pool)(nil)

// NewPostgresSource creates a source over table. The table name is validated
// because it cannot be passed as a query parameter.
func NewPostgresSource(db *pgxpool.Pool, table string) (*PostgresSource, error) {
	return newPostgresSource(db, table)
}

func newPostgresSource(db rowQuerier, table string) (*PostgresSource, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid call records table name %q", table)
	}
	query := fmt.Sprintf(`
		SELECT caller, called, occurred_at, duration_seconds, country, lat, lon
		FROM %s
		ORDER BY id
	`, table)
	return &PostgresSource{db: db, query: query}, nil
}

// Name identifies the source in logs and metrics
func (s *PostgresSource) Name() string {
	return "postgres"
}

// LoadRecords reads every row of the table. Connection failures and a missing
// table are reported as ErrSourceUnavailable; NULL columns as *DataFormatError.
func (s *PostgresSource) LoadRecords(ctx context.Context) ([]CallRecord, error) {
	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, classifyPgError(err)
	}
	defer rows.Close()

	records := make([]CallRecord, 0)
	for rows.Next() {
		var (
			caller, called, country *string
			occurredAt              *time.Time
			duration                *int64
			lat, lon                *float64
		)
		if err := rows.Scan(&caller, &called, &occurredAt, &duration, &country, &lat, &lon); err != nil {
			return nil, &DataFormatError{Index: len(records), Reason: fmt.Sprintf("unreadable row: %v", err), Err: err}
		}

		rec, err := recordFromRow(len(records), caller, called, occurredAt, duration, country, lat, lon)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err)
	}

	if err := validateBatch(records); err != nil {
		return nil, err
	}
	return records, nil
}

func recordFromRow(index int, caller, called *string, occurredAt *time.Time, duration *int64, country *string, lat, lon *float64) (CallRecord, error) {
	missing := ""
	switch {
	case caller == nil:
		missing = "caller"
	case called == nil:
		missing = "called"
	case occurredAt == nil:
		missing = "timestamp"
	case duration == nil:
		missing = "duration"
	case country == nil:
		missing = "country"
	case lat == nil:
		missing = "lat"
	case lon == nil:
		missing = "lon"
	}
	if missing != "" {
		return CallRecord{}, &DataFormatError{Index: index, Field: missing, Reason: "is NULL"}
	}

	return CallRecord{
		Caller:    *caller,
		Called:    *called,
		Timestamp: occurredAt.UTC().Format(time.RFC3339),
		Duration:  *duration,
		Country:   *country,
		Lat:       *lat,
		Lon:       *lon,
	}, nil
}

func classifyPgError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return unavailable("query call records", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUndefinedTable {
			return unavailable("call records table", err)
		}
		return fmt.Errorf("query call records: %w", err)
	}

	// anything that is not a server reported error is a connectivity problem
	return unavailable("query call records", err)
}
