package reporting

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hkquant/equity-backtest/internal/backtest"
	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/pkg/types"
)

func sampleResult() *backtest.Result {
	entry := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)
	return &backtest.Result{
		Success:          true,
		Symbol:           "00700.HK",
		Strategy:         "MACD",
		Interval:         types.Interval30m,
		InitialCapital:   100000,
		FinalEquity:      104200,
		TotalReturn:      4200,
		ReturnRate:       0.042,
		AnnualizedReturn: 0.31,
		MaxDrawdown:      0.018,
		SharpeRatio:      1.42,
		TotalTrades:      2,
		WinningTrades:    1,
		LosingTrades:     1,
		WinRate:          0.5,
		QualityScore:     98.5,
		Trades: []portfolio.ClosedTrade{
			{
				Symbol: "00700.HK", Strategy: "MACD",
				EntryTime: entry, ExitTime: entry.Add(3 * time.Hour),
				EntryPrice: 100.1, ExitPrice: 105.2, Quantity: 500,
				Fees: 120.5, PnL: 2429.5, ExitReason: "take_profit",
			},
			{
				Symbol: "00700.HK", Strategy: "MACD",
				EntryTime: entry.AddDate(0, 0, 2), ExitTime: entry.AddDate(0, 0, 3),
				EntryPrice: 104.0, ExitPrice: 101.0, Quantity: 300,
				Fees: 80.2, PnL: -980.2, ExitReason: "stop_loss",
			},
		},
		EquityCurve: []portfolio.EquityPoint{
			{Timestamp: entry, Equity: 100000},
			{Timestamp: entry.Add(30 * time.Minute), Equity: 101200},
		},
		ReportGeneratedAt: entry.AddDate(0, 0, 5),
	}
}

func TestConsoleReporterRendersSummaryAndTrades(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporter().WithWriter(&buf).Render(sampleResult())

	out := buf.String()
	assert.Contains(t, out, "00700.HK")
	assert.Contains(t, out, "Final Equity")
	assert.Contains(t, out, "104200.00")
	assert.Contains(t, out, "take_profit")
	assert.Contains(t, out, "stop_loss")
}

func TestConsoleReporterFailedRun(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporter().WithWriter(&buf).Render(&backtest.Result{
		Success:      false,
		ErrorCode:    "QUALITY_REJECTED",
		ErrorMessage: "quality gate failed",
		QualityScore: 42.0,
	})

	out := buf.String()
	assert.Contains(t, out, "QUALITY_REJECTED")
	assert.Contains(t, out, "42.0")
	assert.NotContains(t, out, "Final Equity")
}

func TestConsoleReporterBatch(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporter().WithWriter(&buf).RenderBatch(map[string]*backtest.Result{
		"00700.HK/MACD": sampleResult(),
		"00005.HK/BOLL": {Success: false, ErrorCode: "INSUFFICIENT_DATA"},
	})

	out := buf.String()
	assert.Contains(t, out, "00700.HK/MACD")
	assert.Contains(t, out, "INSUFFICIENT_DATA")
}

func TestJSONReporterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "result.json")

	require.NoError(t, NewJSONReporter().Write(sampleResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got backtest.Result
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "00700.HK", got.Symbol)
	assert.Equal(t, 2, got.TotalTrades)
	assert.Len(t, got.Trades, 2)
	assert.Len(t, got.EquityCurve, 2)
	assert.InDelta(t, 0.042, got.ReturnRate, 1e-12)
}

func TestJSONReporterWriteBatch(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult()
	require.NoError(t, NewJSONReporter().WriteBatch(map[string]*backtest.Result{
		"00700.HK/MACD": res,
	}, dir))

	_, err := os.Stat(filepath.Join(dir, "00700.HK_MACD.json"))
	assert.NoError(t, err)
}

func TestExcelReporterWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xlsx")

	require.NoError(t, NewExcelReporter().Write(sampleResult(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.ElementsMatch(t, []string{"Summary", "Trades", "Equity"}, fx.GetSheetList())

	symbol, err := fx.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "00700.HK", symbol)

	reason, err := fx.GetCellValue("Trades", "K2")
	require.NoError(t, err)
	assert.Equal(t, "take_profit", reason)

	rows, err := fx.GetRows("Equity")
	require.NoError(t, err)
	assert.Len(t, rows, 3) // header + 2 points
}
