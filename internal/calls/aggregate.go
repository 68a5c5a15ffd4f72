package calls

import (
	"fmt"
	"sort"

	"github.com/uber/h3-go/v4"
)

// Rank annotates suspicious callers with their risk tier, keeping their order
func Rank(suspicious []SuspiciousCaller, policy Policy) []RankedCaller {
	ranked := make([]RankedCaller, 0, len(suspicious))
	for _, s := range suspicious {
		ranked = append(ranked, RankedCaller{
			SuspiciousCaller: s,
			RiskLevel:        policy.Classify(s.Frequency),
			DurationDisplay:  FormatDuration(s.Duration),
		})
	}
	return ranked
}

// CriticalAlerts returns the callers in the CRITICAL tier
func CriticalAlerts(suspicious []SuspiciousCaller, policy Policy) []RankedCaller {
	alerts := make([]RankedCaller, 0)
	for _, r := range Rank(suspicious, policy) {
		if r.RiskLevel == RiskCritical {
			alerts = append(alerts, r)
		}
	}
	return alerts
}

// Summarize computes the headline counts shown above the caller table
func Summarize(suspicious []SuspiciousCaller, policy Policy) Summary {
	countries := make(map[string]struct{})
	s := Summary{SuspiciousCallers: len(suspicious)}

	for _, c := range suspicious {
		countries[c.Country] = struct{}{}
		s.TotalCalls += c.Frequency

		switch policy.Classify(c.Frequency) {
		case RiskCritical:
			s.CriticalCallers++
		case RiskHigh:
			s.HighCallers++
		default:
			s.ModerateCallers++
		}
	}

	s.Countries = len(countries)
	return s
}

// AggregateByCountry sums suspicious call frequencies per country. The result is
// ordered by calls descending, then country name.
func AggregateByCountry(suspicious []SuspiciousCaller) []CountryAggregate {
	byCountry := make(map[string]*CountryAggregate)
	for _, c := range suspicious {
		agg, ok := byCountry[c.Country]
		if !ok {
			agg = &CountryAggregate{Country: c.Country}
			byCountry[c.Country] = agg
		}
		agg.Callers++
		agg.Calls += c.Frequency
	}

	out := make([]CountryAggregate, 0, len(byCountry))
	for _, agg := range byCountry {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// AggregateByCell buckets suspicious callers into H3 cells at the given resolution.
// Cells are ordered by calls descending, then cell id.
func AggregateByCell(suspicious []SuspiciousCaller, resolution int) ([]CellAggregate, error) {
	if resolution < 0 || resolution > h3.MaxResolution {
		return nil, fmt.Errorf("h3 resolution must be between 0 and %d, got %d", h3.MaxResolution, resolution)
	}

	byCell := make(map[h3.Cell]*CellAggregate)
	order := make([]h3.Cell, 0)

	for _, c := range suspicious {
		cell, err := h3.LatLngToCell(h3.NewLatLng(c.Lat, c.Lon), resolution)
		if err != nil {
			return nil, fmt.Errorf("index caller %s: %w", c.Caller, err)
		}

		agg, ok := byCell[cell]
		if !ok {
			center, err := h3.CellToLatLng(cell)
			if err != nil {
				return nil, fmt.Errorf("cell center %s: %w", cell.String(), err)
			}
			agg = &CellAggregate{
				Cell:    cell.String(),
				Lat:     center.Lat,
				Lon:     center.Lng,
				Numbers: make([]string, 0, 1),
			}
			byCell[cell] = agg
			order = append(order, cell)
		}
		agg.Callers++
		agg.Calls += c.Frequency
		agg.Numbers = append(agg.Numbers, c.Caller)
	}

	out := make([]CellAggregate, 0, len(order))
	for _, cell := range order {
		out = append(out, *byCell[cell])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Cell < out[j].Cell
	})
	return out, nil
}
