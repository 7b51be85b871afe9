// Package tables flattens a report into the named tables consumed by the
// file sinks.
package tables

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
)

// Table names, also used as file and sheet names.
const (
	NationalDaily    = "national_daily"
	NationalTotals   = "national_totals"
	CFR              = "cfr"
	Choropleth       = "choropleth"
	Anomalies        = "anomalies"
	RegionCumulative = "region_cumulative"
)

// Table is a header plus rows of cell values. Cells are string, int64,
// float64 or nil.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Build returns every table for r in a stable order.
func Build(r domain.Report) []Table {
	return []Table{
		nationalDaily(r),
		nationalTotals(r),
		cfr(r),
		choropleth(r),
		anomalies(r),
		regionCumulative(r),
	}
}

func date(t time.Time) string {
	return t.Format(time.DateOnly)
}

func nationalDaily(r domain.Report) Table {
	timeline := r.Timeline()
	t := Table{Name: NationalDaily, Header: []string{"date", "deaths", "source"}, Rows: make([][]any, 0, len(timeline))}
	for _, p := range timeline {
		var deaths any = p.Deaths
		if p.Source == domain.SourceObserved {
			deaths = int64(p.Deaths)
		}
		t.Rows = append(t.Rows, []any{date(p.Date), deaths, p.Source})
	}
	return t
}

func nationalTotals(r domain.Report) Table {
	t := Table{Name: NationalTotals, Header: []string{"date", "cases", "hospitalizations", "deaths"}, Rows: make([][]any, 0, len(r.Totals))}
	for _, n := range r.Totals {
		t.Rows = append(t.Rows, []any{date(n.Date), n.Cases, n.Hospitalizations, n.Deaths})
	}
	return t
}

// cfr lists every region: defined ratios first, then undefined regions with
// empty measures.
func cfr(r domain.Report) Table {
	t := Table{
		Name:   CFR,
		Header: []string{"region", "max_deaths", "max_cases", "cfr"},
		Rows:   make([][]any, 0, len(r.CFR.Defined)+len(r.CFR.Undefined)),
	}
	for _, c := range r.CFR.Defined {
		t.Rows = append(t.Rows, []any{c.Region, c.MaxDeaths, c.MaxCases, c.CFR})
	}
	for _, region := range r.CFR.Undefined {
		t.Rows = append(t.Rows, []any{region, nil, nil, nil})
	}
	return t
}

// choropleth is the map layer: excluded regions are already gone, and the
// outline is a GeoJSON Polygon geometry. Geometry cells are empty when no
// boundary was resolved.
func choropleth(r domain.Report) Table {
	t := Table{
		Name:   Choropleth,
		Header: []string{"region", "cfr", "lon", "lat", "geometry"},
		Rows:   make([][]any, 0, len(r.Choropleth)),
	}
	for _, e := range r.Choropleth {
		row := []any{e.Region, e.CFR, nil, nil, nil}
		if e.Boundary != nil {
			row[2], row[3] = e.Boundary.Center[0], e.Boundary.Center[1]
			if geom, ok := polygonGeoJSON(e.Boundary.Polygon); ok {
				row[4] = geom
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

type geoJSONPolygon struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// polygonGeoJSON encodes a single-ring (lon, lat) outline.
func polygonGeoJSON(ring [][2]float64) (string, bool) {
	if len(ring) == 0 {
		return "", false
	}
	data, err := json.Marshal(geoJSONPolygon{Type: "Polygon", Coordinates: [][][2]float64{ring}})
	if err != nil {
		return "", false
	}
	return string(data), true
}

func anomalies(r domain.Report) Table {
	t := Table{Name: Anomalies, Header: []string{"region", "date", "previous", "current"}, Rows: make([][]any, 0, len(r.Anomalies))}
	for _, a := range r.Anomalies {
		t.Rows = append(t.Rows, []any{a.Region, date(a.Date), a.Previous, a.Current})
	}
	return t
}

// regionCumulative is long format: one row per (region, date).
func regionCumulative(r domain.Report) Table {
	t := Table{Name: RegionCumulative, Header: []string{"region", "date", "cumulative_deaths"}}
	for _, s := range r.Cumulative {
		for i, d := range s.Dates {
			t.Rows = append(t.Rows, []any{s.Region, date(d), s.Cumulative[i]})
		}
	}
	return t
}

// FormatCell renders a cell value as text. nil is the empty string.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return ""
	}
}
