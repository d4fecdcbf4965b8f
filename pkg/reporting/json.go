package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hkquant/equity-backtest/internal/backtest"
)

// JSONReporter serializes full results, including trades and the equity
// curve, for downstream tooling.
type JSONReporter struct{}

func NewJSONReporter() *JSONReporter { return &JSONReporter{} }

// Format returns the indented JSON document for one result.
func (r *JSONReporter) Format(res *backtest.Result) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}

// Write renders the result to path, creating parent directories.
func (r *JSONReporter) Write(res *backtest.Result, path string) error {
	data, err := r.Format(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// WriteBatch renders every result in a batch to dir, one file per run
// named <symbol>_<strategy>.json.
func (r *JSONReporter) WriteBatch(results map[string]*backtest.Result, dir string) error {
	for _, res := range results {
		name := fmt.Sprintf("%s_%s.json", res.Symbol, res.Strategy)
		if err := r.Write(res, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
