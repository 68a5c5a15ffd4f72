package calls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Boundaries(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		frequency int
		want      RiskLevel
	}{
		{11, RiskModerate},
		{25, RiskModerate},
		{26, RiskHigh},
		{50, RiskHigh},
		{51, RiskCritical},
		{500, RiskCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.Classify(tt.frequency), "frequency %d", tt.frequency)
	}
}

func TestIsSuspicious(t *testing.T) {
	policy := DefaultPolicy()

	assert.False(t, policy.IsSuspicious(10))
	assert.True(t, policy.IsSuspicious(11))
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"default", DefaultPolicy(), false},
		{"negative threshold", Policy{SuspicionThreshold: -1, HighAbove: 25, CriticalAbove: 50, Selection: SelectLastInOrder}, true},
		{"high below threshold", Policy{SuspicionThreshold: 30, HighAbove: 25, CriticalAbove: 50, Selection: SelectLastInOrder}, true},
		{"critical not above high", Policy{SuspicionThreshold: 10, HighAbove: 25, CriticalAbove: 25, Selection: SelectLastInOrder}, true},
		{"unknown strategy", Policy{SuspicionThreshold: 10, HighAbove: 25, CriticalAbove: 50, Selection: "first"}, true},
		{"max by timestamp", Policy{SuspicionThreshold: 10, HighAbove: 25, CriticalAbove: 50, Selection: SelectMaxByTimestamp}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	valid := []string{
		"2026-10-19T08:15:00Z",
		"2026-10-19T08:15:00.123456789+03:00",
		"2026-10-19T08:15:00",
		"2026-10-19T08:15",
		"2026-10-19 08:15:00",
		"2026-10-19",
	}
	for _, v := range valid {
		_, err := ParseTimestamp(v)
		assert.NoError(t, err, v)
	}

	for _, v := range []string{"", "19/10/2026", "yesterday", "2026-13-01"} {
		_, err := ParseTimestamp(v)
		assert.Error(t, err, v)
	}
}

func TestNewRecordValidator_RegistersTimestampTag(t *testing.T) {
	v, err := newRecordValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Var("2026-10-19T08:15:00Z", "cdr_timestamp"))
	assert.NoError(t, v.Var("2026-10-19", "cdr_timestamp"))
	assert.Error(t, v.Var("soon", "cdr_timestamp"))

	assert.Same(t, recordValidator(), recordValidator())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", FormatDuration(0))
	assert.Equal(t, "0:09", FormatDuration(9))
	assert.Equal(t, "2:05", FormatDuration(125))
	assert.Equal(t, "61:01", FormatDuration(3661))
	assert.Equal(t, "0:00", FormatDuration(-5))
}
