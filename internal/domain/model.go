package domain

import (
	"time"
)

// Observation is one raw input row. Nil counts are missing values.
type Observation struct {
	Date             time.Time `json:"date"`
	Region           string    `json:"region"`
	Cases            *int64    `json:"cases,omitempty"`
	Hospitalizations *int64    `json:"hospitalizations,omitempty"`
	Deaths           *int64    `json:"deaths,omitempty"`
}

// Measure selects one cumulative counter of an observation.
type Measure int

const (
	MeasureCases Measure = iota
	MeasureHospitalizations
	MeasureDeaths

	measureCount
)

func (m Measure) String() string {
	switch m {
	case MeasureCases:
		return "cases"
	case MeasureHospitalizations:
		return "hospitalizations"
	case MeasureDeaths:
		return "deaths"
	default:
		return "unknown"
	}
}

// value returns the observation's count for m.
func (o Observation) value(m Measure) *int64 {
	switch m {
	case MeasureCases:
		return o.Cases
	case MeasureHospitalizations:
		return o.Hospitalizations
	case MeasureDeaths:
		return o.Deaths
	default:
		return nil
	}
}

// RegionSeries is a gap-free daily cumulative series for one region.
type RegionSeries struct {
	Region     string      `json:"region"`
	Dates      []time.Time `json:"dates"`
	Cumulative []int64     `json:"cumulative"`
}

// Increments holds one region's daily increments on the same axis as the
// series it was derived from.
type Increments struct {
	Region string      `json:"region"`
	Dates  []time.Time `json:"dates"`
	Daily  []int64     `json:"daily"`
}

// Anomaly records a day on which a cumulative counter went down.
type Anomaly struct {
	Region   string    `json:"region"`
	Date     time.Time `json:"date"`
	Previous int64     `json:"previous"`
	Current  int64     `json:"current"`
}

// DailyDeaths is one day of the national series.
type DailyDeaths struct {
	Date   time.Time `json:"date"`
	Deaths int64     `json:"deaths"`
}

// NationalDailySeries is the sum of region increments, one point per day.
type NationalDailySeries struct {
	Points []DailyDeaths `json:"points"`
}

// Last returns the final date of the series, or the zero time when empty.
func (s NationalDailySeries) Last() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Date
}

// ProjectedDeaths is one model evaluation past the observed range.
type ProjectedDeaths struct {
	Date   time.Time `json:"date"`
	Deaths float64   `json:"deaths"`
}

// ProjectionSet is a contiguous run of projected days.
type ProjectionSet struct {
	Points []ProjectedDeaths `json:"points"`
}

// Timeline sources.
const (
	SourceObserved  = "observed"
	SourceProjected = "projected"
)

// TimelinePoint is one labelled day of the observed-plus-projected curve.
type TimelinePoint struct {
	Date   time.Time `json:"date"`
	Deaths float64   `json:"deaths"`
	Source string    `json:"source"`
}

// NationalTotals is the per-day national sum of completed cumulative counts.
type NationalTotals struct {
	Date             time.Time `json:"date"`
	Cases            int64     `json:"cases"`
	Hospitalizations int64     `json:"hospitalizations"`
	Deaths           int64     `json:"deaths"`
}

// RegionCFR is the crude case fatality rate of one region.
type RegionCFR struct {
	Region    string  `json:"region"`
	MaxDeaths int64   `json:"max_deaths"`
	MaxCases  int64   `json:"max_cases"`
	CFR       float64 `json:"cfr"`
}

// CFRResult splits regions into those with a defined CFR and those without
// any reported cases.
type CFRResult struct {
	Defined   []RegionCFR `json:"defined"`
	Undefined []string    `json:"undefined,omitempty"`
}

// Boundary is a region outline suitable for choropleth rendering.
// Coordinates are (lon, lat).
type Boundary struct {
	Region  string       `json:"region"`
	Polygon [][2]float64 `json:"polygon"`
	Center  [2]float64   `json:"center"`
}

// ChoroplethEntry joins a region's CFR to its boundary. Boundary is nil when
// no resolver is configured or the lookup failed.
type ChoroplethEntry struct {
	Region   string    `json:"region"`
	CFR      float64   `json:"cfr"`
	Boundary *Boundary `json:"boundary,omitempty"`
}

// Report is the output of one analysis run.
type Report struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Params      Params              `json:"params"`
	Stats       RunStats            `json:"stats"`
	Regions     []string            `json:"regions"`
	Cumulative  []RegionSeries      `json:"cumulative"`
	Anomalies   []Anomaly           `json:"anomalies,omitempty"`
	National    NationalDailySeries `json:"national"`
	Totals      []NationalTotals    `json:"totals"`
	CFR         CFRResult           `json:"cfr"`
	Choropleth  []ChoroplethEntry   `json:"choropleth"`
	Projection  *ProjectionSet      `json:"projection,omitempty"`
	FitError    string              `json:"fit_error,omitempty"`
}

// Timeline merges the observed national series with the projection, if any,
// labelling each point with its source.
func (r Report) Timeline() []TimelinePoint {
	n := len(r.National.Points)
	if r.Projection != nil {
		n += len(r.Projection.Points)
	}
	out := make([]TimelinePoint, 0, n)
	for _, p := range r.National.Points {
		out = append(out, TimelinePoint{Date: p.Date, Deaths: float64(p.Deaths), Source: SourceObserved})
	}
	if r.Projection != nil {
		for _, p := range r.Projection.Points {
			out = append(out, TimelinePoint{Date: p.Date, Deaths: p.Deaths, Source: SourceProjected})
		}
	}
	return out
}
