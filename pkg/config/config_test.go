package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleJSON = `{
  "input": {"path": "in.csv", "has_header": true, "delimiter": ";"},
  "resolve": {"enabled": true, "mid_threshold": 0.25, "group_columns": ["age_group", "sexe"]},
  "log": {"level": "debug", "format": "console"},
  "steps": [
    {"trim": {"column": "region"}},
    {"impute_mean": {"column": "taux"}}
  ]
}`

const sampleYAML = `input:
  path: in.csv
  has_header: true
  delimiter: ";"
resolve:
  enabled: true
  mid_threshold: 0.25
  group_columns: [age_group, sexe]
log:
  level: debug
  format: console
steps:
  - trim:
      column: region
  - impute_mean:
      column: taux
`

const sampleTOML = `[input]
path = "in.csv"
has_header = true
delimiter = ";"

[resolve]
enabled = true
mid_threshold = 0.25
group_columns = ["age_group", "sexe"]

[log]
level = "debug"
format = "console"

[[steps]]
[steps.trim]
column = "region"

[[steps]]
[steps.impute_mean]
column = "taux"
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func checkSample(t *testing.T, cfg *Config) {
	t.Helper()
	if cfg.Input.Path != "in.csv" || !cfg.Input.HasHeader || cfg.Input.Delimiter != ";" {
		t.Fatalf("input = %+v", cfg.Input)
	}
	if !cfg.Resolve.Enabled || cfg.Resolve.MidThreshold != 0.25 {
		t.Fatalf("resolve = %+v", cfg.Resolve)
	}
	if cfg.Resolve.DropThreshold != DefaultDropThreshold {
		t.Fatalf("drop_threshold = %v, want default", cfg.Resolve.DropThreshold)
	}
	if len(cfg.Resolve.GroupColumns) != 2 || cfg.Resolve.GroupColumns[1] != "sexe" {
		t.Fatalf("group_columns = %v", cfg.Resolve.GroupColumns)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if len(cfg.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(cfg.Steps))
	}
	if cfg.Steps[0].Kind() != "trim" {
		t.Fatalf("step 0 kind = %q", cfg.Steps[0].Kind())
	}
	var p struct {
		Column string `json:"column"`
	}
	if err := cfg.Steps[1].Params(&p); err != nil {
		t.Fatal(err)
	}
	if p.Column != "taux" {
		t.Fatalf("step 1 column = %q", p.Column)
	}
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeConfig(t, "cfg.json", sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	checkSample(t, cfg)
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "cfg.yaml", sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	checkSample(t, cfg)
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "cfg.toml", sampleTOML))
	if err != nil {
		t.Fatal(err)
	}
	checkSample(t, cfg)
}

func TestLoadUnknownExtension(t *testing.T) {
	if _, err := Load(writeConfig(t, "cfg.ini", "x = 1")); err == nil {
		t.Fatal("expected error for .ini")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MISSING_RATE_MAX", "0.4")
	t.Setenv("OUTLIER_ZSCORE", "3.0")
	t.Setenv("AUDIT_DSN", "postgres://audit")
	t.Setenv("LOG_LEVEL", "warn")
	cfg, err := Load(writeConfig(t, "cfg.json", `{"input": {"path": "in.csv"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Resolve.MidThreshold != 0.4 {
		t.Fatalf("mid_threshold = %v", cfg.Resolve.MidThreshold)
	}
	if cfg.Profile.ZScore != 3.0 {
		t.Fatalf("zscore = %v", cfg.Profile.ZScore)
	}
	if cfg.Audit.DSN != "postgres://audit" {
		t.Fatalf("dsn = %q", cfg.Audit.DSN)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("level = %q", cfg.Log.Level)
	}
}

func TestValidateAggregates(t *testing.T) {
	cfg := Default()
	cfg.Resolve.MidThreshold = 0.8 // not below drop_threshold
	cfg.Profile.ZScore = -1
	cfg.Profile.Correlation = 1.5
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"mid_threshold", "zscore", "correlation"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
}

func TestValidateLogSettings(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "unknown level") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "console"
	cfg.Log.Level = "debug"
	logger, err := cfg.NewLogger()
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("built")
	cfg.Log.Level = "loud"
	if _, err := cfg.NewLogger(); err == nil {
		t.Fatal("expected error for bad level")
	}
}

func TestFormatFor(t *testing.T) {
	cases := []struct {
		typ, path, want string
	}{
		{"", "data.csv", "csv"},
		{"", "data.csv.gz", "csv"},
		{"", "data.jsonl", "jsonl"},
		{"", "data.ndjson.gz", "jsonl"},
		{"", "data.parquet", "parquet"},
		{"", "report.xlsx", "xlsx"},
		{"", "data.txt", "csv"},
		{"jsonl", "data.csv", "jsonl"},
	}
	for _, c := range cases {
		if got := FormatFor(c.typ, c.path); got != c.want {
			t.Fatalf("FormatFor(%q, %q) = %q, want %q", c.typ, c.path, got, c.want)
		}
	}
}
