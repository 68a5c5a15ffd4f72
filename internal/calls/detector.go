package calls

import (
	"fmt"
	"sort"
	"time"
)

// Engine turns a batch of call records into ranked suspicious callers
type Engine interface {
	DetectSuspiciousCallers(records []CallRecord) ([]SuspiciousCaller, error)
	Policy() Policy
}

// Detector is the rule based Engine. It holds no state besides its policy and
// is safe for concurrent use.
type Detector struct {
	policy Policy
}

// Ensure Detector satisfies Engine.
var _ Engine = (*Detector)(nil)

// NewDetector creates a detector after validating the policy
func NewDetector(policy Policy) (*Detector, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detection policy: %w", err)
	}
	return &Detector{policy: policy}, nil
}

// Policy returns the policy the detector applies
func (d *Detector) Policy() Policy {
	return d.policy
}

type callerGroup struct {
	caller     string
	count      int
	selected   int
	selectedAt time.Time
}

// DetectSuspiciousCallers groups records by caller, keeps callers above the
// suspicion threshold and sorts them by frequency, highest first. Callers with
// equal frequency keep the order in which they first appear in records.
//
// Any malformed record fails the whole batch with a *DataFormatError.
func (d *Detector) DetectSuspiciousCallers(records []CallRecord) (result []SuspiciousCaller, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	if err := validateBatch(records); err != nil {
		return nil, err
	}

	index := make(map[string]int)
	groups := make([]callerGroup, 0)

	for i := range records {
		rec := &records[i]
		gi, ok := index[rec.Caller]
		if !ok {
			gi = len(groups)
			index[rec.Caller] = gi
			groups = append(groups, callerGroup{caller: rec.Caller})
		}

		g := &groups[gi]
		g.count++

		switch d.policy.Selection {
		case SelectMaxByTimestamp:
			// validateBatch already proved the timestamp parses
			at, _ := ParseTimestamp(rec.Timestamp)
			if g.count == 1 || !at.Before(g.selectedAt) {
				g.selected = i
				g.selectedAt = at
			}
		default:
			g.selected = i
		}
	}

	result = make([]SuspiciousCaller, 0)
	for _, g := range groups {
		if !d.policy.IsSuspicious(g.count) {
			continue
		}
		src := records[g.selected]
		result = append(result, SuspiciousCaller{
			Caller:    g.caller,
			Country:   src.Country,
			Frequency: g.count,
			Lat:       src.Lat,
			Lon:       src.Lon,
			Timestamp: src.Timestamp,
			Duration:  src.Duration,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Frequency > result[j].Frequency
	})

	return result, nil
}

// DetectSuspiciousCallers runs detection with DefaultPolicy
func DetectSuspiciousCallers(records []CallRecord) ([]SuspiciousCaller, error) {
	d := &Detector{policy: DefaultPolicy()}
	return d.DetectSuspiciousCallers(records)
}
