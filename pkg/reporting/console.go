// Package reporting renders backtest results to the console, Excel
// workbooks and JSON files.
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hkquant/equity-backtest/internal/backtest"
)

// ConsoleReporter renders results as terminal tables.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter writes to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// WithWriter redirects output, mainly for tests.
func (r *ConsoleReporter) WithWriter(w io.Writer) *ConsoleReporter {
	r.out = w
	return r
}

// Render prints the summary table and, for runs with trades, the trade
// list.
func (r *ConsoleReporter) Render(res *backtest.Result) {
	if !res.Success {
		fmt.Fprintf(r.out, "backtest failed: [%s] %s\n", res.ErrorCode, res.ErrorMessage)
		if res.QualityScore > 0 {
			fmt.Fprintf(r.out, "data quality score: %.1f\n", res.QualityScore)
		}
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("BACKTEST %s / %s / %s", res.Symbol, res.Strategy, res.Interval))
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Initial Capital", fmt.Sprintf("HK$%.2f", res.InitialCapital)},
		{"Final Equity", fmt.Sprintf("HK$%.2f", res.FinalEquity)},
		{"Total Return", fmt.Sprintf("HK$%.2f (%.2f%%)", res.TotalReturn, res.ReturnRate*100)},
		{"Annualized Return", fmt.Sprintf("%.2f%%", res.AnnualizedReturn*100)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Max Drawdown", fmt.Sprintf("%.2f%%", res.MaxDrawdown*100)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", res.SharpeRatio)},
		{"Sortino Ratio", fmt.Sprintf("%.2f", res.SortinoRatio)},
		{"Calmar Ratio", fmt.Sprintf("%.2f", res.CalmarRatio)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Total Trades", res.TotalTrades},
		{"Win Rate", fmt.Sprintf("%.1f%% (%dW / %dL)", res.WinRate*100, res.WinningTrades, res.LosingTrades)},
		{"Avg Win / Avg Loss", fmt.Sprintf("HK$%.2f / HK$%.2f", res.AvgWin, res.AvgLoss)},
		{"Profit Factor", fmt.Sprintf("%.2f", res.ProfitFactor)},
		{"Rejected Signals", res.RejectedSignals},
		{"Quality Score", fmt.Sprintf("%.1f", res.QualityScore)},
		{"Execution Time", fmt.Sprintf("%d ms", res.ExecutionTimeMs)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 28, Align: text.AlignLeft},
	})
	t.Render()

	if len(res.Trades) > 0 {
		r.renderTrades(res)
	}
}

func (r *ConsoleReporter) renderTrades(res *backtest.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Strategy", "Entry", "Exit", "Qty", "Entry Px", "Exit Px", "PnL", "Reason"})

	for i, tr := range res.Trades {
		t.AppendRow(table.Row{
			i + 1,
			tr.Strategy,
			tr.EntryTime.Format("2006-01-02 15:04"),
			tr.ExitTime.Format("2006-01-02 15:04"),
			tr.Quantity,
			fmt.Sprintf("%.3f", tr.EntryPrice),
			fmt.Sprintf("%.3f", tr.ExitPrice),
			fmt.Sprintf("%+.2f", tr.PnL),
			tr.ExitReason,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 8, Align: text.AlignRight},
	})
	t.Render()
}

// RenderBatch prints a one-line-per-run comparison table for batch
// results keyed by "symbol/strategy".
func (r *ConsoleReporter) RenderBatch(results map[string]*backtest.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("BATCH RESULTS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Run", "Status", "Return", "Max DD", "Sharpe", "Trades", "Win Rate"})

	for key, res := range results {
		status := "ok"
		if !res.Success {
			status = res.ErrorCode
		}
		t.AppendRow(table.Row{
			key,
			status,
			fmt.Sprintf("%.2f%%", res.ReturnRate*100),
			fmt.Sprintf("%.2f%%", res.MaxDrawdown*100),
			fmt.Sprintf("%.2f", res.SharpeRatio),
			res.TotalTrades,
			fmt.Sprintf("%.1f%%", res.WinRate*100),
		})
	}
	t.SortBy([]table.SortBy{{Number: 1, Mode: table.Asc}})
	t.Render()
}
