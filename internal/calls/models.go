package calls

import (
	"fmt"
	"time"
)

// CallRecord is one observed call as delivered by the CDR feed
type CallRecord struct {
	Caller    string  `json:"caller" validate:"required"`
	Called    string  `json:"called"`
	Timestamp string  `json:"timestamp" validate:"required,cdr_timestamp"`
	Duration  int64   `json:"duration" validate:"gte=0"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat" validate:"latitude"`
	Lon       float64 `json:"lon" validate:"longitude"`
}

// SuspiciousCaller is the per-caller rollup of a batch. The location and
// call fields come from the record chosen by the detection policy.
type SuspiciousCaller struct {
	Caller    string  `json:"caller"`
	Country   string  `json:"country"`
	Frequency int     `json:"frequency"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp string  `json:"timestamp"`
	Duration  int64   `json:"duration"`
}

// RiskLevel is the tier derived from a caller's frequency
type RiskLevel string

const (
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RankedCaller is a suspicious caller annotated for display
type RankedCaller struct {
	SuspiciousCaller
	RiskLevel       RiskLevel `json:"risk_level"`
	DurationDisplay string    `json:"duration_display"`
}

// Summary holds the dashboard's headline numbers
type Summary struct {
	SuspiciousCallers int `json:"suspicious_callers"`
	CriticalCallers   int `json:"critical_callers"`
	HighCallers       int `json:"high_callers"`
	ModerateCallers   int `json:"moderate_callers"`
	Countries         int `json:"countries"`
	TotalCalls        int `json:"total_calls"`
}

// CountryAggregate is the number of suspicious calls attributed to a country
type CountryAggregate struct {
	Country string `json:"country"`
	Callers int    `json:"callers"`
	Calls   int    `json:"calls"`
}

// CellAggregate groups suspicious callers by H3 cell
type CellAggregate struct {
	Cell    string   `json:"cell"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Callers int      `json:"callers"`
	Calls   int      `json:"calls"`
	Numbers []string `json:"numbers"`
}

// Report is everything computed for one batch
type Report struct {
	ID          string             `json:"id"`
	Digest      string             `json:"digest"`
	Records     int                `json:"records"`
	GeneratedAt time.Time          `json:"generated_at"`
	Suspicious  []SuspiciousCaller `json:"suspicious"`
	Summary     Summary            `json:"summary"`
	Countries   []CountryAggregate `json:"countries"`
}

// FormatDuration renders seconds as m:ss
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
