package config

import (
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

// analysisFile is the YAML shape of ANALYSIS_CONFIG. Fields left out keep
// their environment or default values.
type analysisFile struct {
	FitStart        *string  `yaml:"fit_start"`
	Degree          *int     `yaml:"degree"`
	Horizon         *int     `yaml:"horizon"`
	ZeroPolicy      *string  `yaml:"zero_policy"`
	Monotonicity    *string  `yaml:"monotonicity"`
	ClampProjection *bool    `yaml:"clamp_projection"`
	ExcludedRegions []string `yaml:"excluded_regions"`
}

func applyAnalysisFile(path string, p *domain.Params) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read analysis config: %w", err)
	}

	var f analysisFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse analysis config %s: %w", path, err)
	}

	if f.FitStart != nil {
		start, err := time.Parse("2006-01-02", *f.FitStart)
		if err != nil {
			return fmt.Errorf("analysis config fit_start: %w", err)
		}
		p.FitStart = start
	}
	if f.Degree != nil {
		p.Degree = *f.Degree
	}
	if f.Horizon != nil {
		p.Horizon = *f.Horizon
	}
	if f.ZeroPolicy != nil {
		zp, err := domain.ParseZeroPolicy(*f.ZeroPolicy)
		if err != nil {
			return fmt.Errorf("analysis config zero_policy: %w", err)
		}
		p.ZeroPolicy = zp
	}
	if f.Monotonicity != nil {
		mp, err := domain.ParseMonotonicityPolicy(*f.Monotonicity)
		if err != nil {
			return fmt.Errorf("analysis config monotonicity: %w", err)
		}
		p.Monotonicity = mp
	}
	if f.ClampProjection != nil {
		p.ClampProjection = *f.ClampProjection
	}
	if f.ExcludedRegions != nil {
		p.ExcludedRegions = f.ExcludedRegions
	}
	return nil
}
