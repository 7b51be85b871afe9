package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Columns names the input table's columns.
type Columns struct {
	Date             string
	Region           string
	Cases            string
	Hospitalizations string
	Deaths           string
}

// Config holds all settings, populated from environment variables and an
// optional YAML analysis file.
type Config struct {
	InputPath       string
	Columns         Columns
	OutputDir       string
	XLSXEnabled     bool
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	Analysis           domain.Params
	AnalysisConfigPath string

	// Kafka report sink; disabled when no brokers are set.
	KafkaBrokers   []string
	KafkaSinkTopic string

	// Mapbox boundary lookups.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// KafkaEnabled reports whether the Kafka sink should be wired.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	analysis, err := loadAnalysisEnv()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		InputPath: os.Getenv("INPUT_PATH"),
		Columns: Columns{
			Date:             sharedcfg.EnvOrDefault("COLUMN_DATE", "date"),
			Region:           sharedcfg.EnvOrDefault("COLUMN_REGION", "state"),
			Cases:            sharedcfg.EnvOrDefault("COLUMN_CASES", "positive"),
			Hospitalizations: sharedcfg.EnvOrDefault("COLUMN_HOSPITALIZATIONS", "hospitalized"),
			Deaths:           sharedcfg.EnvOrDefault("COLUMN_DEATHS", "death"),
		},
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "out"),
		XLSXEnabled:     sharedcfg.EnvOrDefault("XLSX_ENABLED", "true") == "true",
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Analysis:           analysis,
		AnalysisConfigPath: os.Getenv("ANALYSIS_CONFIG"),

		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "covid-report"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parsePositiveInt("MAPBOX_CACHE_SIZE", 1000),
	}

	if cfg.AnalysisConfigPath != "" {
		if err := applyAnalysisFile(cfg.AnalysisConfigPath, &cfg.Analysis); err != nil {
			return nil, err
		}
	}

	if cfg.InputPath == "" {
		return nil, errors.New("INPUT_PATH is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if err := cfg.Analysis.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadAnalysisEnv() (domain.Params, error) {
	p := domain.DefaultParams()

	if v := os.Getenv("FIT_START"); v != "" {
		start, err := time.Parse("2006-01-02", v)
		if err != nil {
			return p, fmt.Errorf("invalid FIT_START: %w", err)
		}
		p.FitStart = start
	}
	if v := os.Getenv("FIT_DEGREE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, errors.New("invalid FIT_DEGREE")
		}
		p.Degree = n
	}
	if v := os.Getenv("PROJECTION_HORIZON"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, errors.New("invalid PROJECTION_HORIZON")
		}
		p.Horizon = n
	}

	zero, err := domain.ParseZeroPolicy(os.Getenv("ZERO_POLICY"))
	if err != nil {
		return p, fmt.Errorf("invalid ZERO_POLICY: %w", err)
	}
	p.ZeroPolicy = zero

	mono, err := domain.ParseMonotonicityPolicy(os.Getenv("MONOTONICITY_POLICY"))
	if err != nil {
		return p, fmt.Errorf("invalid MONOTONICITY_POLICY: %w", err)
	}
	p.Monotonicity = mono

	p.ClampProjection = os.Getenv("CLAMP_PROJECTION") == "true"

	if v, ok := os.LookupEnv("EXCLUDED_REGIONS"); ok {
		p.ExcludedRegions = splitList(v)
	}
	return p, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
