// Package config loads backtest session configuration from JSON files
// and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/hkquant/equity-backtest/pkg/types"
)

// RunConfig is one entry of the session's run list.
type RunConfig struct {
	Symbol         string  `json:"symbol"`
	Strategy       string  `json:"strategy"`
	InitialCapital float64 `json:"initial_capital,omitempty"` // falls back to Session default
}

// DataConfig selects and parameterizes the market-data source.
type DataConfig struct {
	// Source is "csv"; the wire source is configured per deployment.
	Source string `json:"source"`
	// Dir holds the per-symbol CSV files when Source is "csv".
	Dir string `json:"dir,omitempty"`
}

// StoreConfig enables the persistent candle cache.
type StoreConfig struct {
	Enabled bool   `json:"enabled"`
	DSN     string `json:"dsn,omitempty"` // overridden by BACKTEST_PG_DSN
}

// OutputConfig selects report destinations.
type OutputConfig struct {
	Console  bool   `json:"console"`
	JSONDir  string `json:"json_dir,omitempty"`
	ExcelDir string `json:"excel_dir,omitempty"`
}

// SessionConfig is the top-level document.
type SessionConfig struct {
	Interval       types.Interval `json:"interval"`
	StartDate      string         `json:"start_date"` // 2006-01-02
	EndDate        string         `json:"end_date"`
	InitialCapital float64        `json:"initial_capital"`
	CommissionRate float64        `json:"commission_rate,omitempty"`
	SlippageRate   float64        `json:"slippage_rate,omitempty"`
	Workers        int            `json:"workers,omitempty"`
	DetailedReport bool           `json:"detailed_report,omitempty"`

	Runs   []RunConfig  `json:"runs"`
	Data   DataConfig   `json:"data"`
	Store  StoreConfig  `json:"store"`
	Output OutputConfig `json:"output"`

	// MetricsAddr, when set, serves /metrics and /healthz while the
	// session runs.
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

// Defaults applied by Load before validation.
const (
	DefaultInterval = types.Interval30m
	DefaultWorkers  = 4
	DefaultCapital  = 1_000_000.0
)

// LoadEnv loads the env file when present. A missing default file is
// fine; a missing explicit file is an error.
func LoadEnv(envFile string) error {
	if envFile == "" {
		if _, err := os.Stat(".env"); err == nil {
			return godotenv.Load(".env")
		}
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("load env file %s: %w", envFile, err)
	}
	return nil
}

// Load reads, defaults and validates a session config.
func Load(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg SessionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *SessionConfig) applyDefaults() {
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.InitialCapital <= 0 {
		c.InitialCapital = DefaultCapital
	}
	if c.Data.Source == "" {
		c.Data.Source = "csv"
	}
	if !c.Output.Console && c.Output.JSONDir == "" && c.Output.ExcelDir == "" {
		c.Output.Console = true
	}
}

// applyEnv lets the environment override secrets and deployment knobs
// that do not belong in a committed config file.
func (c *SessionConfig) applyEnv() {
	if dsn := os.Getenv("BACKTEST_PG_DSN"); dsn != "" {
		c.Store.DSN = dsn
		c.Store.Enabled = true
	}
	if addr := os.Getenv("BACKTEST_METRICS_ADDR"); addr != "" {
		c.MetricsAddr = addr
	}
	if w := os.Getenv("BACKTEST_WORKERS"); w != "" {
		if n, err := strconv.Atoi(w); err == nil && n > 0 {
			c.Workers = n
		}
	}
}

// Validate checks cross-field consistency.
func (c *SessionConfig) Validate() error {
	if !c.Interval.Valid() {
		return fmt.Errorf("unknown interval %q", c.Interval)
	}
	if len(c.Runs) == 0 {
		return fmt.Errorf("config has no runs")
	}
	for i, run := range c.Runs {
		if run.Symbol == "" {
			return fmt.Errorf("run %d has no symbol", i)
		}
		if run.Strategy == "" {
			return fmt.Errorf("run %d (%s) has no strategy", i, run.Symbol)
		}
	}
	start, err := c.Start()
	if err != nil {
		return err
	}
	end, err := c.End()
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("end_date %s is not after start_date %s", c.EndDate, c.StartDate)
	}
	if c.Data.Source != "csv" {
		return fmt.Errorf("unknown data source %q", c.Data.Source)
	}
	if c.Data.Source == "csv" && c.Data.Dir == "" {
		return fmt.Errorf("csv data source needs data.dir")
	}
	if c.Store.Enabled && c.Store.DSN == "" {
		return fmt.Errorf("store enabled without a DSN (set store.dsn or BACKTEST_PG_DSN)")
	}
	return nil
}

// Start parses the session start date in the exchange timezone.
func (c *SessionConfig) Start() (time.Time, error) {
	t, err := parseDate(c.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("start_date: %w", err)
	}
	return t, nil
}

// End parses the session end date, pushed to the session close.
func (c *SessionConfig) End() (time.Time, error) {
	t, err := parseDate(c.EndDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("end_date: %w", err)
	}
	return t.Add(16 * time.Hour), nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	loc, err := time.LoadLocation("Asia/Hong_Kong")
	if err != nil {
		loc = time.FixedZone("HKT", 8*60*60)
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD, got %q: %w", s, err)
	}
	return t, nil
}

// CapitalFor returns the run's capital, falling back to the session
// default.
func (c *SessionConfig) CapitalFor(run RunConfig) float64 {
	if run.InitialCapital > 0 {
		return run.InitialCapital
	}
	return c.InitialCapital
}
