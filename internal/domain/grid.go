package domain

import (
	"slices"
	"sort"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysSinceEpoch is the numeric predictor used for fitting.
func DaysSinceEpoch(t time.Time) float64 {
	return float64(Day(t).Unix() / int64(day/time.Second))
}

// DateRange returns every calendar day from first to last inclusive.
func DateRange(first, last time.Time) []time.Time {
	first, last = Day(first), Day(last)
	if last.Before(first) {
		return nil
	}
	n := int(last.Sub(first)/day) + 1
	out := make([]time.Time, n)
	for i := range out {
		out[i] = first.AddDate(0, 0, i)
	}
	return out
}

type cell struct {
	value    int64
	reported bool
}

// Grid is the full (date × region) key space of a dataset, built once. Each
// measure is a preallocated table addressed by region index and date ordinal.
type Grid struct {
	dates   []time.Time
	regions []string
	index   map[string]int
	cells   [measureCount][]cell
}

// NewGrid places observations on a complete daily axis. Rows with an empty
// region are ignored. When a (date, region) pair is reported more than once,
// the last non-missing value of each measure wins.
func NewGrid(observations []Observation) *Grid {
	g := &Grid{index: make(map[string]int)}

	var first, last time.Time
	for _, o := range observations {
		region := strings.TrimSpace(o.Region)
		if region == "" {
			continue
		}
		d := Day(o.Date)
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
		if _, ok := g.index[region]; !ok {
			g.index[region] = 0
			g.regions = append(g.regions, region)
		}
	}
	if len(g.regions) == 0 {
		return g
	}

	sort.Strings(g.regions)
	for i, r := range g.regions {
		g.index[r] = i
	}
	g.dates = DateRange(first, last)

	size := len(g.regions) * len(g.dates)
	for m := range g.cells {
		g.cells[m] = make([]cell, size)
	}

	for _, o := range observations {
		region := strings.TrimSpace(o.Region)
		if region == "" {
			continue
		}
		at := g.offset(g.index[region], g.ordinal(o.Date))
		for m := Measure(0); m < measureCount; m++ {
			if v := o.value(m); v != nil {
				g.cells[m][at] = cell{value: *v, reported: true}
			}
		}
	}
	return g
}

// Dates returns a copy of the date axis.
func (g *Grid) Dates() []time.Time { return slices.Clone(g.dates) }

// Days is the length of the date axis.
func (g *Grid) Days() int { return len(g.dates) }

// Regions returns a copy of the region identifiers in sorted order.
func (g *Grid) Regions() []string { return slices.Clone(g.regions) }

// Reports returns the sparse reports of one region and measure, keyed by
// date. Unknown regions yield an empty map.
func (g *Grid) Reports(region string, m Measure) map[time.Time]int64 {
	out := make(map[time.Time]int64)
	r, ok := g.index[region]
	if !ok {
		return out
	}
	for i, d := range g.dates {
		if c := g.cells[m][g.offset(r, i)]; c.reported {
			out[d] = c.value
		}
	}
	return out
}

// MaxReported returns the largest reported value of a measure for a region,
// and whether the region reported that measure at all.
func (g *Grid) MaxReported(region string, m Measure) (int64, bool) {
	r, ok := g.index[region]
	if !ok {
		return 0, false
	}
	var maxV int64
	var seen bool
	for i := range g.dates {
		c := g.cells[m][g.offset(r, i)]
		if !c.reported {
			continue
		}
		if !seen || c.value > maxV {
			maxV = c.value
		}
		seen = true
	}
	return maxV, seen
}

func (g *Grid) ordinal(t time.Time) int {
	return int(Day(t).Sub(g.dates[0]) / day)
}

func (g *Grid) offset(region, ordinal int) int {
	return region*len(g.dates) + ordinal
}
