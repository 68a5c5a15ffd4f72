package calls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSuspicious() []SuspiciousCaller {
	return []SuspiciousCaller{
		{Caller: "+25377000001", Country: "DJ", Frequency: 60, Lat: 11.58, Lon: 43.14, Timestamp: "2026-10-19T09:00:00Z", Duration: 125},
		{Caller: "+25177000002", Country: "ET", Frequency: 30, Lat: 9.03, Lon: 38.74, Timestamp: "2026-10-19T09:05:00Z", Duration: 9},
		{Caller: "+25377000003", Country: "DJ", Frequency: 12, Lat: 11.59, Lon: 43.15, Timestamp: "2026-10-19T09:10:00Z", Duration: 61},
		{Caller: "+25277000004", Country: "SO", Frequency: 12, Lat: 2.04, Lon: 45.34, Timestamp: "2026-10-19T09:15:00Z", Duration: 0},
	}
}

func TestRank(t *testing.T) {
	ranked := Rank(sampleSuspicious(), DefaultPolicy())

	require.Len(t, ranked, 4)
	assert.Equal(t, RiskCritical, ranked[0].RiskLevel)
	assert.Equal(t, "2:05", ranked[0].DurationDisplay)
	assert.Equal(t, RiskHigh, ranked[1].RiskLevel)
	assert.Equal(t, "0:09", ranked[1].DurationDisplay)
	assert.Equal(t, RiskModerate, ranked[2].RiskLevel)
	assert.Equal(t, "+25377000003", ranked[2].Caller)
	assert.Equal(t, RiskModerate, ranked[3].RiskLevel)
}

func TestRank_Empty(t *testing.T) {
	ranked := Rank(nil, DefaultPolicy())
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestCriticalAlerts(t *testing.T) {
	alerts := CriticalAlerts(sampleSuspicious(), DefaultPolicy())

	require.Len(t, alerts, 1)
	assert.Equal(t, "+25377000001", alerts[0].Caller)

	none := CriticalAlerts(sampleSuspicious()[1:], DefaultPolicy())
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sampleSuspicious(), DefaultPolicy())

	assert.Equal(t, Summary{
		SuspiciousCallers: 4,
		CriticalCallers:   1,
		HighCallers:       1,
		ModerateCallers:   2,
		Countries:         3,
		TotalCalls:        114,
	}, summary)

	assert.Equal(t, Summary{}, Summarize(nil, DefaultPolicy()))
}

func TestAggregateByCountry(t *testing.T) {
	countries := AggregateByCountry(sampleSuspicious())

	assert.Equal(t, []CountryAggregate{
		{Country: "DJ", Callers: 2, Calls: 72},
		{Country: "ET", Callers: 1, Calls: 30},
		{Country: "SO", Callers: 1, Calls: 12},
	}, countries)
}

func TestAggregateByCountry_TiesByName(t *testing.T) {
	countries := AggregateByCountry([]SuspiciousCaller{
		{Caller: "a", Country: "SO", Frequency: 20},
		{Caller: "b", Country: "DJ", Frequency: 20},
	})

	require.Len(t, countries, 2)
	assert.Equal(t, "DJ", countries[0].Country)
	assert.Equal(t, "SO", countries[1].Country)
}

func TestAggregateByCell(t *testing.T) {
	suspicious := []SuspiciousCaller{
		{Caller: "a", Country: "DJ", Frequency: 15, Lat: 11.5880, Lon: 43.1450},
		{Caller: "b", Country: "DJ", Frequency: 20, Lat: 11.5880, Lon: 43.1450},
		{Caller: "c", Country: "ET", Frequency: 40, Lat: 9.0300, Lon: 38.7400},
	}

	cells, err := AggregateByCell(suspicious, 4)
	require.NoError(t, err)
	require.Len(t, cells, 2)

	assert.Equal(t, 40, cells[0].Calls)
	assert.Equal(t, []string{"c"}, cells[0].Numbers)

	assert.Equal(t, 2, cells[1].Callers)
	assert.Equal(t, 35, cells[1].Calls)
	assert.Equal(t, []string{"a", "b"}, cells[1].Numbers)
	assert.NotEmpty(t, cells[1].Cell)
	assert.InDelta(t, 11.588, cells[1].Lat, 0.5)
	assert.InDelta(t, 43.145, cells[1].Lon, 0.5)
}

func TestAggregateByCell_InvalidResolution(t *testing.T) {
	for _, res := range []int{-1, 16} {
		cells, err := AggregateByCell(sampleSuspicious(), res)
		assert.Error(t, err)
		assert.Nil(t, cells)
	}
}

func TestAggregateByCell_Empty(t *testing.T) {
	cells, err := AggregateByCell(nil, 7)
	require.NoError(t, err)
	assert.NotNil(t, cells)
	assert.Empty(t, cells)
}
