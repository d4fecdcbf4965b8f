package main

import (
	"path/filepath"

	"github.com/hkquant/equity-backtest/internal/backtest"
	"github.com/hkquant/equity-backtest/pkg/config"
	"github.com/hkquant/equity-backtest/pkg/reporting"
)

// writeReports fans results out to every configured destination. single
// is set for one-run sessions so the console gets the full summary
// instead of the batch table.
func writeReports(cfg *config.SessionConfig, results map[string]*backtest.Result, single *backtest.Result) error {
	if cfg.Output.Console {
		console := reporting.NewConsoleReporter()
		if single != nil {
			console.Render(single)
		} else {
			console.RenderBatch(results)
		}
	}

	if cfg.Output.JSONDir != "" {
		if err := reporting.NewJSONReporter().WriteBatch(results, cfg.Output.JSONDir); err != nil {
			return err
		}
	}

	if cfg.Output.ExcelDir != "" {
		excel := reporting.NewExcelReporter()
		for _, res := range results {
			name := res.Symbol + "_" + res.Strategy + ".xlsx"
			if err := excel.Write(res, filepath.Join(cfg.Output.ExcelDir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}
