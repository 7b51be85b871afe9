package domain

import (
	"fmt"
	"strings"
	"time"
)

// ZeroPolicy decides how a reported value of exactly 0 is read.
type ZeroPolicy int

const (
	// ZeroAsMissing forward fills a reported 0 like an absent report.
	ZeroAsMissing ZeroPolicy = iota
	// TrustZero keeps a reported 0 as a true count.
	TrustZero
)

func (p ZeroPolicy) String() string {
	if p == TrustZero {
		return "trust"
	}
	return "missing"
}

// ParseZeroPolicy accepts "missing" or "trust".
func ParseZeroPolicy(s string) (ZeroPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "missing":
		return ZeroAsMissing, nil
	case "trust":
		return TrustZero, nil
	default:
		return ZeroAsMissing, fmt.Errorf("%w: unknown zero policy %q", ErrInvalidParams, s)
	}
}

func (p ZeroPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *ZeroPolicy) UnmarshalText(b []byte) error {
	v, err := ParseZeroPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// CompleteSeries builds a gap-free cumulative series over dates from a
// region's sparse reports. Days without a usable report take the most recent
// known value, or 0 before any report.
func CompleteSeries(region string, dates []time.Time, reports map[time.Time]int64, policy ZeroPolicy) RegionSeries {
	out := RegionSeries{
		Region:     region,
		Dates:      append([]time.Time(nil), dates...),
		Cumulative: make([]int64, len(dates)),
	}
	var last int64
	for i, d := range dates {
		if v, ok := reports[Day(d)]; ok && usable(v, policy) {
			last = v
		}
		out.Cumulative[i] = last
	}
	return out
}

// Complete is CompleteSeries reading straight from the grid's table.
func (g *Grid) Complete(region string, m Measure, policy ZeroPolicy) RegionSeries {
	out := RegionSeries{
		Region:     region,
		Dates:      g.Dates(),
		Cumulative: make([]int64, len(g.dates)),
	}
	r, ok := g.index[region]
	if !ok {
		return out
	}
	var last int64
	base := g.offset(r, 0)
	for i := range g.dates {
		if c := g.cells[m][base+i]; c.reported && usable(c.value, policy) {
			last = c.value
		}
		out.Cumulative[i] = last
	}
	return out
}

// FilledCells counts days of a region and measure that were not backed by a
// usable report.
func (g *Grid) FilledCells(region string, m Measure, policy ZeroPolicy) int {
	r, ok := g.index[region]
	if !ok {
		return 0
	}
	var n int
	base := g.offset(r, 0)
	for i := range g.dates {
		if c := g.cells[m][base+i]; !c.reported || !usable(c.value, policy) {
			n++
		}
	}
	return n
}

func usable(v int64, policy ZeroPolicy) bool {
	return v != 0 || policy == TrustZero
}
