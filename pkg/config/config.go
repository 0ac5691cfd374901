// Package config loads the pipeline configuration from a JSON, YAML or
// TOML file, layers environment overrides on top, and builds the
// logger the rest of the pipeline shares.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"
)

// Observatory defaults. MissingRateMax bounds the middle missingness
// bucket; columns above DropThreshold are dropped outright.
const (
	DefaultMissingRateMax       = 0.3
	DefaultDropThreshold        = 0.7
	DefaultOutlierZScore        = 2.5
	DefaultCorrelationThreshold = 0.9
)

// Input describes where rows come from. Type is csv, jsonl, parquet or
// xlsx; empty means derive it from the path extension.
type Input struct {
	Path       string   `json:"path" yaml:"path" toml:"path"`
	Type       string   `json:"type" yaml:"type" toml:"type"`
	HasHeader  bool     `json:"has_header" yaml:"has_header" toml:"has_header"`
	Delimiter  string   `json:"delimiter" yaml:"delimiter" toml:"delimiter"`
	Encoding   string   `json:"encoding" yaml:"encoding" toml:"encoding"`
	Sheet      string   `json:"sheet" yaml:"sheet" toml:"sheet"`
	NullValues []string `json:"null_values" yaml:"null_values" toml:"null_values"`
}

// Output describes where cleaned rows go.
type Output struct {
	Path      string `json:"path" yaml:"path" toml:"path"`
	Type      string `json:"type" yaml:"type" toml:"type"`
	Delimiter string `json:"delimiter" yaml:"delimiter" toml:"delimiter"`
	Sheet     string `json:"sheet" yaml:"sheet" toml:"sheet"`
}

// Resolve tunes the missing-value pass. The thresholds bound the
// decision buckets; zero ML fields mean the forest defaults.
type Resolve struct {
	Enabled       bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Dataset       string   `json:"dataset" yaml:"dataset" toml:"dataset"`
	MidThreshold  float64  `json:"mid_threshold" yaml:"mid_threshold" toml:"mid_threshold"`
	DropThreshold float64  `json:"drop_threshold" yaml:"drop_threshold" toml:"drop_threshold"`
	GroupColumns  []string `json:"group_columns" yaml:"group_columns" toml:"group_columns"`
	MLTrees       int      `json:"ml_trees" yaml:"ml_trees" toml:"ml_trees"`
	MLSeed        int64    `json:"ml_seed" yaml:"ml_seed" toml:"ml_seed"`
	MLFolds       int      `json:"ml_folds" yaml:"ml_folds" toml:"ml_folds"`
}

// Profile tunes the dataset profiler.
type Profile struct {
	Enabled     bool    `json:"enabled" yaml:"enabled" toml:"enabled"`
	Path        string  `json:"path" yaml:"path" toml:"path"`
	TopK        int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	ZScore      float64 `json:"zscore" yaml:"zscore" toml:"zscore"`
	Correlation float64 `json:"correlation" yaml:"correlation" toml:"correlation"`
}

// Reports names the directory for the decision, summary and quality
// CSVs. Empty disables them.
type Reports struct {
	Dir string `json:"dir" yaml:"dir" toml:"dir"`
}

// Audit points the run recorder at Postgres. Empty DSN disables it.
type Audit struct {
	DSN string `json:"dsn" yaml:"dsn" toml:"dsn"`
}

// Log selects the logger output. Level is debug, info, warn or error;
// Format is json or console.
type Log struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// Step is one cleaning step keyed by its kind, as in
// {"impute_mean": {"column": "taux"}}.
type Step map[string]any

// Kind returns the step's key, or "" when the step does not have
// exactly one.
func (s Step) Kind() string {
	if len(s) != 1 {
		return ""
	}
	for k := range s {
		return k
	}
	return ""
}

// Params decodes the step's parameter block into out. The block goes
// through JSON on the way so YAML and TOML steps behave the same.
func (s Step) Params(out any) error {
	b, err := json.Marshal(s[s.Kind()])
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Config is the full pipeline configuration.
type Config struct {
	Input   Input   `json:"input" yaml:"input" toml:"input"`
	Output  Output  `json:"output" yaml:"output" toml:"output"`
	Resolve Resolve `json:"resolve" yaml:"resolve" toml:"resolve"`
	Profile Profile `json:"profile" yaml:"profile" toml:"profile"`
	Reports Reports `json:"reports" yaml:"reports" toml:"reports"`
	Audit   Audit   `json:"audit" yaml:"audit" toml:"audit"`
	Log     Log     `json:"log" yaml:"log" toml:"log"`
	Steps   []Step  `json:"steps" yaml:"steps" toml:"steps"`
}

// Default returns the configuration assumed before any file or
// environment override.
func Default() *Config {
	cfg := &Config{}
	cfg.Input.HasHeader = true
	cfg.Resolve.MidThreshold = DefaultMissingRateMax
	cfg.Resolve.DropThreshold = DefaultDropThreshold
	cfg.Profile.TopK = 5
	cfg.Profile.ZScore = DefaultOutlierZScore
	cfg.Profile.Correlation = DefaultCorrelationThreshold
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// Load reads the file at path, chosen by extension, loads a .env file
// when one is present, applies environment overrides and validates the
// result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(b, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	case ".toml":
		err = toml.Unmarshal(b, cfg)
	default:
		return nil, fmt.Errorf("config: unsupported extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	_ = godotenv.Load() // missing .env is fine
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Resolve.MidThreshold = getEnvAsFloat("MISSING_RATE_MAX", c.Resolve.MidThreshold)
	c.Profile.ZScore = getEnvAsFloat("OUTLIER_ZSCORE", c.Profile.ZScore)
	c.Profile.Correlation = getEnvAsFloat("CORRELATION_THRESHOLD", c.Profile.Correlation)
	c.Input.Path = getEnv("DATA_SOURCE_PATH", c.Input.Path)
	c.Audit.DSN = getEnv("AUDIT_DSN", c.Audit.DSN)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate checks threshold ranges and log settings. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error
	if c.Resolve.MidThreshold <= 0 || c.Resolve.MidThreshold >= 1 {
		errs = append(errs, fmt.Errorf("resolve: mid_threshold %v outside (0, 1)", c.Resolve.MidThreshold))
	}
	if c.Resolve.DropThreshold <= 0 || c.Resolve.DropThreshold > 1 {
		errs = append(errs, fmt.Errorf("resolve: drop_threshold %v outside (0, 1]", c.Resolve.DropThreshold))
	}
	if c.Resolve.MidThreshold >= c.Resolve.DropThreshold {
		errs = append(errs, fmt.Errorf("resolve: mid_threshold %v not below drop_threshold %v", c.Resolve.MidThreshold, c.Resolve.DropThreshold))
	}
	if c.Profile.ZScore <= 0 {
		errs = append(errs, fmt.Errorf("profile: zscore %v not positive", c.Profile.ZScore))
	}
	if c.Profile.Correlation <= 0 || c.Profile.Correlation > 1 {
		errs = append(errs, fmt.Errorf("profile: correlation %v outside (0, 1]", c.Profile.Correlation))
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// NewLogger builds the logger described by the log section. The json
// format uses production encoding, console the development one; both
// write to stderr so pipeline output stays clean on stdout.
func (c *Config) NewLogger() (*zap.Logger, error) {
	var zc zap.Config
	switch c.Log.Format {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Log.Level != "" {
		lvl, err := zap.ParseAtomicLevel(c.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("config: log level: %w", err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}

// FormatFor resolves an io format from an explicit type or, when it is
// empty, from the path extension with any .gz suffix peeled off.
// Unrecognized extensions fall back to csv.
func FormatFor(typ, path string) string {
	if typ != "" {
		return typ
	}
	p := path
	if strings.EqualFold(filepath.Ext(p), ".gz") {
		p = strings.TrimSuffix(p, filepath.Ext(p))
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".jsonl", ".ndjson":
		return "jsonl"
	case ".parquet":
		return "parquet"
	case ".xlsx":
		return "xlsx"
	default:
		return "csv"
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
