package calls

import (
	"fmt"
)

// Detection policy defaults. A caller is suspicious when it places more than
// DefaultSuspicionThreshold calls in one batch.
const (
	DefaultSuspicionThreshold = 10
	DefaultHighAbove          = 25
	DefaultCriticalAbove      = 50
)

// SelectionStrategy picks which record of a caller's group supplies the
// location and call fields of the rollup
type SelectionStrategy string

const (
	// SelectLastInOrder takes the last record seen for the caller in input order
	SelectLastInOrder SelectionStrategy = "last_in_order"
	// SelectMaxByTimestamp takes the chronologically latest record; equal
	// timestamps resolve to the later record in input order
	SelectMaxByTimestamp SelectionStrategy = "max_by_timestamp"
)

// Policy holds the tunable detection parameters
type Policy struct {
	SuspicionThreshold int
	HighAbove          int
	CriticalAbove      int
	Selection          SelectionStrategy
}

// DefaultPolicy returns the stock detection policy
func DefaultPolicy() Policy {
	return Policy{
		SuspicionThreshold: DefaultSuspicionThreshold,
		HighAbove:          DefaultHighAbove,
		CriticalAbove:      DefaultCriticalAbove,
		Selection:          SelectLastInOrder,
	}
}

// Validate checks that the tiers are ordered and the strategy is known
func (p Policy) Validate() error {
	if p.SuspicionThreshold < 0 {
		return fmt.Errorf("suspicion threshold must be >= 0, got %d", p.SuspicionThreshold)
	}
	if p.HighAbove < p.SuspicionThreshold {
		return fmt.Errorf("high tier (%d) must not be below the suspicion threshold (%d)", p.HighAbove, p.SuspicionThreshold)
	}
	if p.CriticalAbove <= p.HighAbove {
		return fmt.Errorf("critical tier (%d) must be above the high tier (%d)", p.CriticalAbove, p.HighAbove)
	}
	switch p.Selection {
	case SelectLastInOrder, SelectMaxByTimestamp:
	default:
		return fmt.Errorf("unknown selection strategy %q", p.Selection)
	}
	return nil
}

// Fingerprint identifies the policy in cache keys. Reports computed under
// different thresholds or selection strategies never share a key.
func (p Policy) Fingerprint() string {
	return fmt.Sprintf("t%d-h%d-c%d-%s", p.SuspicionThreshold, p.HighAbove, p.CriticalAbove, p.Selection)
}

// IsSuspicious reports whether a call count crosses the suspicion threshold
func (p Policy) IsSuspicious(frequency int) bool {
	return frequency > p.SuspicionThreshold
}

// Classify maps a frequency to its risk tier
func (p Policy) Classify(frequency int) RiskLevel {
	switch {
	case frequency > p.CriticalAbove:
		return RiskCritical
	case frequency > p.HighAbove:
		return RiskHigh
	default:
		return RiskModerate
	}
}
