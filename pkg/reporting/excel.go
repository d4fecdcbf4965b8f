package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/hkquant/equity-backtest/internal/backtest"
)

// ExcelReporter writes one workbook per run with Summary, Trades and
// Equity sheets.
type ExcelReporter struct{}

func NewExcelReporter() *ExcelReporter { return &ExcelReporter{} }

// Write renders the result to path, creating parent directories.
func (r *ExcelReporter) Write(res *backtest.Result, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const tradesSheet = "Trades"
	const equitySheet = "Equity"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(equitySheet); err != nil {
		return err
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DCE6F1"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := r.writeSummary(fx, summarySheet, res, headerStyle); err != nil {
		return err
	}
	if err := r.writeTrades(fx, tradesSheet, res, headerStyle); err != nil {
		return err
	}
	if err := r.writeEquity(fx, equitySheet, res, headerStyle); err != nil {
		return err
	}

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func (r *ExcelReporter) writeSummary(fx *excelize.File, sheet string, res *backtest.Result, headerStyle int) error {
	rows := [][]interface{}{
		{"Symbol", res.Symbol},
		{"Strategy", res.Strategy},
		{"Interval", string(res.Interval)},
		{"Success", res.Success},
		{"Initial Capital", res.InitialCapital},
		{"Final Equity", res.FinalEquity},
		{"Total Return", res.TotalReturn},
		{"Return Rate", res.ReturnRate},
		{"Annualized Return", res.AnnualizedReturn},
		{"Max Drawdown", res.MaxDrawdown},
		{"Sharpe Ratio", res.SharpeRatio},
		{"Sortino Ratio", res.SortinoRatio},
		{"Calmar Ratio", res.CalmarRatio},
		{"Total Trades", res.TotalTrades},
		{"Winning Trades", res.WinningTrades},
		{"Losing Trades", res.LosingTrades},
		{"Win Rate", res.WinRate},
		{"Avg Win", res.AvgWin},
		{"Avg Loss", res.AvgLoss},
		{"Profit Factor", res.ProfitFactor},
		{"Rejected Signals", res.RejectedSignals},
		{"Quality Score", res.QualityScore},
		{"Execution Time (ms)", res.ExecutionTimeMs},
		{"Generated At", res.ReportGeneratedAt.Format("2006-01-02 15:04:05")},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := fx.SetCellStyle(sheet, "A1", fmt.Sprintf("A%d", len(rows)), headerStyle); err != nil {
		return err
	}
	return fx.SetColWidth(sheet, "A", "A", 22)
}

func (r *ExcelReporter) writeTrades(fx *excelize.File, sheet string, res *backtest.Result, headerStyle int) error {
	header := []interface{}{"#", "Symbol", "Strategy", "Entry Time", "Exit Time",
		"Quantity", "Entry Price", "Exit Price", "Fees", "PnL", "Exit Reason"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "K1", headerStyle); err != nil {
		return err
	}

	for i, tr := range res.Trades {
		row := []interface{}{
			i + 1, tr.Symbol, tr.Strategy,
			tr.EntryTime.Format("2006-01-02 15:04"),
			tr.ExitTime.Format("2006-01-02 15:04"),
			tr.Quantity, tr.EntryPrice, tr.ExitPrice, tr.Fees, tr.PnL, tr.ExitReason,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return fx.SetColWidth(sheet, "D", "E", 18)
}

func (r *ExcelReporter) writeEquity(fx *excelize.File, sheet string, res *backtest.Result, headerStyle int) error {
	header := []interface{}{"Timestamp", "Equity"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return err
	}

	for i, pt := range res.EquityCurve {
		row := []interface{}{pt.Timestamp.Format("2006-01-02 15:04"), pt.Equity}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return fx.SetColWidth(sheet, "A", "A", 18)
}
