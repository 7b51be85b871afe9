// Command genmock writes a synthetic daily observation table shaped like a
// state-level cumulative COVID feed, and optionally the report the domain
// package produces for it, so fixtures always match real pipeline behavior.
//
// The table includes the irregularities the pipeline has to absorb: skipped
// report days, zero placeholders and occasional downward corrections.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/daily.csv \
//	  -report-out data/mock/report.json \
//	  -days 90 -seed 7
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// region drives one synthetic epidemic curve.
type region struct {
	name     string
	peak     float64 // final cumulative deaths
	midpoint int     // day of steepest growth
	rate     float64 // logistic growth rate
}

var defaultRegions = []region{
	{name: "NY", peak: 24000, midpoint: 35, rate: 0.16},
	{name: "NJ", peak: 11000, midpoint: 40, rate: 0.14},
	{name: "CA", peak: 5000, midpoint: 55, rate: 0.08},
	{name: "WA", peak: 1200, midpoint: 30, rate: 0.10},
	{name: "TX", peak: 2500, midpoint: 65, rate: 0.07},
	{name: "VT", peak: 55, midpoint: 38, rate: 0.12},
}

type options struct {
	start      time.Time
	days       int
	gapRate    float64
	zeroRate   float64
	correction float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the observation CSV")
	reportOut := flag.String("report-out", "", "optional output path for the analyzed report JSON")
	start := flag.String("start", "2020-03-01", "first reporting day (YYYY-MM-DD)")
	days := flag.Int("days", 90, "number of reporting days")
	seed := flag.Uint64("seed", 1, "random seed")
	gapRate := flag.Float64("gap-rate", 0.08, "probability a region skips a day")
	flag.Parse()

	if *out == "" || *days <= 0 {
		flag.Usage()
		return errors.New("missing required flag -out or non-positive -days")
	}
	startDate, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}

	opts := options{start: startDate, days: *days, gapRate: *gapRate, zeroRate: 0.02, correction: 0.01}
	obs := generate(defaultRegions, opts, rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)))
	log.Printf("generated %d observations for %d regions over %d days", len(obs), len(defaultRegions), *days)

	if err := writeCSV(*out, obs); err != nil {
		return fmt.Errorf("writing observations: %w", err)
	}
	log.Printf("wrote observations: %s", *out)

	if *reportOut == "" {
		return nil
	}

	// Set a fixed clock for a reproducible GeneratedAt.
	domain.SetClock(clockwork.NewFakeClockAt(startDate.AddDate(0, 0, *days).Add(6 * time.Hour)))
	defer domain.SetClock(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	report, err := domain.Analyze(context.Background(), obs, domain.DefaultParams(), nil, logger)
	if err != nil && !errors.Is(err, domain.ErrInsufficientFitData) {
		return fmt.Errorf("analyze: %w", err)
	}
	if err := writeJSON(*reportOut, report); err != nil {
		return fmt.Errorf("writing report fixture: %w", err)
	}
	log.Printf("wrote report fixture: %s", *reportOut)

	printStats(report)
	return nil
}

// generate produces one row per (day, region) except skipped days. The first
// and last days are always reported so the date axis spans opts.days. Cases
// track deaths at a region-specific fatality ratio; hospitalizations are
// reported for roughly half the rows.
func generate(regions []region, opts options, rng *rand.Rand) []domain.Observation {
	obs := make([]domain.Observation, 0, len(regions)*opts.days)
	for _, r := range regions {
		ratio := 0.02 + rng.Float64()*0.06
		var last int64
		for d := range opts.days {
			if d > 0 && d < opts.days-1 && rng.Float64() < opts.gapRate {
				continue
			}
			deaths := int64(math.Round(r.peak / (1 + math.Exp(-r.rate*float64(d-r.midpoint)))))
			if deaths < last {
				deaths = last
			}
			reported := deaths
			switch {
			case rng.Float64() < opts.zeroRate:
				reported = 0
			case last > 0 && rng.Float64() < opts.correction:
				reported = last - 1 - rng.Int64N(max(last/50, 1))
			default:
				last = deaths
			}

			o := domain.Observation{
				Date:   opts.start.AddDate(0, 0, d),
				Region: r.name,
				Deaths: ptr(reported),
				Cases:  ptr(int64(float64(deaths)/ratio) + int64(d)),
			}
			if rng.IntN(2) == 0 {
				o.Hospitalizations = ptr(int64(float64(*o.Cases) * 0.15))
			}
			obs = append(obs, o)
		}
	}
	return obs
}

func ptr(v int64) *int64 { return &v }

func writeCSV(path string, obs []domain.Observation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "state", "positive", "hospitalized", "death"}); err != nil {
		return err
	}
	for _, o := range obs {
		if err := w.Write([]string{
			o.Date.Format("20060102"),
			o.Region,
			formatCount(o.Cases),
			formatCount(o.Hospitalizations),
			formatCount(o.Deaths),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func formatCount(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(r domain.Report) {
	fmt.Println()
	fmt.Println("=== Report Summary ===")
	fmt.Printf("  %-20s %d\n", "observations", r.Stats.Observations)
	fmt.Printf("  %-20s %d\n", "regions", r.Stats.Regions)
	fmt.Printf("  %-20s %d\n", "days", r.Stats.Days)
	fmt.Printf("  %-20s %d\n", "filled cells", r.Stats.FilledCells)
	fmt.Printf("  %-20s %d\n", "anomalies", len(r.Anomalies))
	fmt.Printf("  %-20s %s\n", "undefined CFR", strings.Join(r.CFR.Undefined, ", "))
	if r.Projection != nil {
		fmt.Printf("  %-20s %d days\n", "projection", len(r.Projection.Points))
	} else {
		fmt.Printf("  %-20s %s\n", "projection", r.FitError)
	}
}
