// Command validate checks the integrity of a report directory written by
// cmd/report: date continuity of the national timeline, monotonicity of the
// region series against the recorded anomalies, CFR arithmetic, that the
// national series equals the sum of region increments, and that the
// choropleth layer agrees with the CFR table.
//
// Usage:
//
//	go run ./cmd/validate -dir out
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "report directory containing the exported CSV tables")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	fmt.Println("=== Report Integrity Validation ===")
	fmt.Println()

	tables := map[string][]csvRow{}
	for _, name := range []string{"national_daily", "cfr", "choropleth", "anomalies", "region_cumulative"} {
		rows, err := loadCSV(filepath.Join(dir, name+".csv"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", name, err)
			return 1
		}
		tables[name] = rows
	}

	observed := observedSeries(tables["national_daily"])
	phases := []*phase{
		validateTimeline(tables["national_daily"]),
		validateMonotonicity(tables["region_cumulative"], tables["anomalies"]),
		validateCFR(tables["cfr"]),
		validateNationalSum(observed, tables["region_cumulative"]),
		validateChoropleth(tables["cfr"], tables["choropleth"]),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d timeline, %d region-days, %d CFR, %d map regions, %d anomalies\n",
		len(tables["national_daily"]), len(tables["region_cumulative"]), len(tables["cfr"]), len(tables["choropleth"]), len(tables["anomalies"]))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no header in %s", path)
	}

	header := all[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	rows := make([]csvRow, 0, len(all)-1)
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// observedSeries returns the observed national deaths keyed by date.
func observedSeries(rows []csvRow) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		if r.fields["source"] != "observed" {
			continue
		}
		if v, err := strconv.ParseInt(r.fields["deaths"], 10, 64); err == nil {
			out[r.fields["date"]] = v
		}
	}
	return out
}

// ── Phase 1: Timeline ──
// One row per calendar day, no gaps, observed rows before projected rows.

func validateTimeline(rows []csvRow) *phase {
	p := &phase{name: "Phase 1: National Timeline"}
	if len(rows) == 0 {
		p.errorf("national_daily is empty")
		return p
	}

	var prev time.Time
	seenProjected := false
	for i, r := range rows {
		d, err := parseDate(r.fields["date"])
		if err != nil {
			p.errorf("line %d: invalid date %q", r.lineNum, r.fields["date"])
			continue
		}
		if i > 0 && !d.Equal(prev.AddDate(0, 0, 1)) {
			p.errorf("line %d: %s does not follow %s", r.lineNum, d.Format(time.DateOnly), prev.Format(time.DateOnly))
		}
		prev = d

		switch r.fields["source"] {
		case "observed":
			if seenProjected {
				p.errorf("line %d: observed row after projected rows", r.lineNum)
			}
			if _, err := strconv.ParseInt(r.fields["deaths"], 10, 64); err != nil {
				p.errorf("line %d: observed deaths %q is not an integer", r.lineNum, r.fields["deaths"])
			}
		case "projected":
			seenProjected = true
			if v, err := strconv.ParseFloat(r.fields["deaths"], 64); err != nil || math.IsNaN(v) {
				p.errorf("line %d: projected deaths %q is not a number", r.lineNum, r.fields["deaths"])
			}
		default:
			p.errorf("line %d: unknown source %q", r.lineNum, r.fields["source"])
		}
	}
	return p
}

// ── Phase 2: Monotonicity ──
// Every decrease in a region's cumulative series must be a recorded anomaly.

func validateMonotonicity(cumulative, anomalies []csvRow) *phase {
	p := &phase{name: "Phase 2: Cumulative Monotonicity"}

	recorded := make(map[string]bool, len(anomalies))
	for _, a := range anomalies {
		recorded[a.fields["region"]+"|"+a.fields["date"]] = true
	}

	last := map[string]int64{}
	for _, r := range cumulative {
		region, date := r.fields["region"], r.fields["date"]
		v, err := strconv.ParseInt(r.fields["cumulative_deaths"], 10, 64)
		if err != nil {
			p.errorf("line %d: invalid cumulative_deaths %q", r.lineNum, r.fields["cumulative_deaths"])
			continue
		}
		if prev, ok := last[region]; ok && v < prev && !recorded[region+"|"+date] {
			p.errorf("%s %s: cumulative fell %d -> %d without a recorded anomaly", region, date, prev, v)
		}
		last[region] = v
	}
	return p
}

// ── Phase 3: CFR ──
// cfr = max_deaths / max_cases for defined rows; undefined rows are blank.

func validateCFR(rows []csvRow) *phase {
	p := &phase{name: "Phase 3: Case Fatality Ratios"}

	for _, r := range rows {
		if r.fields["cfr"] == "" {
			if r.fields["max_cases"] != "" {
				p.errorf("line %d: %s has cases but no CFR", r.lineNum, r.fields["region"])
			}
			continue
		}
		deaths, err1 := strconv.ParseFloat(r.fields["max_deaths"], 64)
		cases, err2 := strconv.ParseFloat(r.fields["max_cases"], 64)
		cfr, err3 := strconv.ParseFloat(r.fields["cfr"], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			p.errorf("line %d: unparseable CFR row for %s", r.lineNum, r.fields["region"])
			continue
		}
		if cases <= 0 {
			p.errorf("line %d: %s has a CFR with max_cases %v", r.lineNum, r.fields["region"], cases)
			continue
		}
		if math.Abs(cfr-deaths/cases) > 1e-9 {
			p.errorf("line %d: %s cfr %v != %v/%v", r.lineNum, r.fields["region"], cfr, deaths, cases)
		}
	}
	return p
}

// ── Phase 4: National Sum ──
// Each observed national day equals the sum of region increments that day,
// taken either as plain differences or against the running maximum.

func validateNationalSum(observed map[string]int64, cumulative []csvRow) *phase {
	p := &phase{name: "Phase 4: National Sum of Increments"}

	plain := map[string]int64{}
	clamped := map[string]int64{}
	last := map[string]int64{}
	peak := map[string]int64{}
	for _, r := range cumulative {
		region, date := r.fields["region"], r.fields["date"]
		v, err := strconv.ParseInt(r.fields["cumulative_deaths"], 10, 64)
		if err != nil {
			continue
		}
		plain[date] += v - last[region]
		last[region] = v
		if v > peak[region] {
			clamped[date] += v - peak[region]
			peak[region] = v
		}
	}

	dates := make([]string, 0, len(plain))
	for d := range plain {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	if len(dates) != len(observed) {
		p.errorf("region tables cover %d days, national series has %d", len(dates), len(observed))
	}
	for _, d := range dates {
		got, ok := observed[d]
		if !ok {
			p.errorf("%s: missing from national series", d)
			continue
		}
		if got != plain[d] && got != clamped[d] {
			p.errorf("%s: national %d != sum of increments %d", d, got, plain[d])
		}
	}
	return p
}

// ── Phase 5: Choropleth ──
// Every map region has the same defined CFR as the cfr table, and any
// geometry is a closed GeoJSON Polygon ring.

func validateChoropleth(cfrRows, mapRows []csvRow) *phase {
	p := &phase{name: "Phase 5: Choropleth Join"}

	defined := make(map[string]string, len(cfrRows))
	for _, r := range cfrRows {
		if r.fields["cfr"] != "" {
			defined[r.fields["region"]] = r.fields["cfr"]
		}
	}

	for _, r := range mapRows {
		region := r.fields["region"]
		want, ok := defined[region]
		if !ok {
			p.errorf("line %d: %s has no defined CFR", r.lineNum, region)
			continue
		}
		got, err1 := strconv.ParseFloat(r.fields["cfr"], 64)
		ref, err2 := strconv.ParseFloat(want, 64)
		if err1 != nil || err2 != nil || math.Abs(got-ref) > 1e-12 {
			p.errorf("line %d: %s map cfr %q != cfr table %q", r.lineNum, region, r.fields["cfr"], want)
		}

		if geom := r.fields["geometry"]; geom != "" {
			if msg := checkPolygon(geom); msg != "" {
				p.errorf("line %d: %s geometry %s", r.lineNum, region, msg)
			}
		}
	}
	return p
}

func checkPolygon(geom string) string {
	var g struct {
		Type        string           `json:"type"`
		Coordinates [][][2]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal([]byte(geom), &g); err != nil {
		return "is not valid GeoJSON: " + err.Error()
	}
	if g.Type != "Polygon" || len(g.Coordinates) == 0 {
		return fmt.Sprintf("has type %q with %d rings, want one Polygon ring", g.Type, len(g.Coordinates))
	}
	ring := g.Coordinates[0]
	if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
		return fmt.Sprintf("ring of %d points is not closed", len(ring))
	}
	return ""
}
