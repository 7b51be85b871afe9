package domain

import (
	"fmt"
	"slices"
	"strings"
)

// MonotonicityPolicy decides what happens when a cumulative counter drops.
type MonotonicityPolicy int

const (
	// PassThrough keeps the drop as a negative increment.
	PassThrough MonotonicityPolicy = iota
	// ClampDecreases holds the running maximum, so the drop becomes a zero
	// increment and later days are differenced against the maximum.
	ClampDecreases
)

func (p MonotonicityPolicy) String() string {
	if p == ClampDecreases {
		return "clamp"
	}
	return "passthrough"
}

// ParseMonotonicityPolicy accepts "passthrough" or "clamp".
func ParseMonotonicityPolicy(s string) (MonotonicityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "passthrough":
		return PassThrough, nil
	case "clamp":
		return ClampDecreases, nil
	default:
		return PassThrough, fmt.Errorf("%w: unknown monotonicity policy %q", ErrInvalidParams, s)
	}
}

func (p MonotonicityPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *MonotonicityPolicy) UnmarshalText(b []byte) error {
	v, err := ParseMonotonicityPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Differentiate turns a cumulative series into daily increments. The first
// increment is the first cumulative value. Every day-over-day decrease is
// returned as an Anomaly regardless of policy.
func Differentiate(s RegionSeries, policy MonotonicityPolicy) (Increments, []Anomaly) {
	out := Increments{
		Region: s.Region,
		Dates:  slices.Clone(s.Dates),
		Daily:  make([]int64, len(s.Cumulative)),
	}
	var anomalies []Anomaly
	var prev int64
	for i, c := range s.Cumulative {
		if i > 0 && c < s.Cumulative[i-1] {
			anomalies = append(anomalies, Anomaly{
				Region:   s.Region,
				Date:     s.Dates[i],
				Previous: s.Cumulative[i-1],
				Current:  c,
			})
		}
		if policy == ClampDecreases && c < prev {
			c = prev
		}
		out.Daily[i] = c - prev
		prev = c
	}
	return out, anomalies
}

// SumNational adds region increments per day. All inputs must share one date
// axis.
func SumNational(increments []Increments) (NationalDailySeries, error) {
	if len(increments) == 0 {
		return NationalDailySeries{}, nil
	}
	axis := increments[0].Dates
	points := make([]DailyDeaths, len(axis))
	for i, d := range axis {
		points[i].Date = d
	}
	for _, inc := range increments {
		if len(inc.Dates) != len(axis) || len(inc.Daily) != len(axis) {
			return NationalDailySeries{}, fmt.Errorf("%w: region %s has %d days, axis has %d", ErrMisalignedSeries, inc.Region, len(inc.Daily), len(axis))
		}
		for i, v := range inc.Daily {
			if !inc.Dates[i].Equal(axis[i]) {
				return NationalDailySeries{}, fmt.Errorf("%w: region %s day %d is %s, axis has %s",
					ErrMisalignedSeries, inc.Region, i, inc.Dates[i].Format(dateLayout), axis[i].Format(dateLayout))
			}
			points[i].Deaths += v
		}
	}
	return NationalDailySeries{Points: points}, nil
}

// Accumulate is the inverse of Differentiate under PassThrough.
func Accumulate(inc Increments) RegionSeries {
	out := RegionSeries{
		Region:     inc.Region,
		Dates:      slices.Clone(inc.Dates),
		Cumulative: make([]int64, len(inc.Daily)),
	}
	var sum int64
	for i, v := range inc.Daily {
		sum += v
		out.Cumulative[i] = sum
	}
	return out
}

const dateLayout = "2006-01-02"
