// Package backtest runs deterministic bar-replay simulations over
// prepared candle data.
package backtest

import (
	"fmt"
	"time"

	"github.com/hkquant/equity-backtest/internal/engineerr"
	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/internal/regime"
	"github.com/hkquant/equity-backtest/internal/strategy"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// StrategyAdaptive selects the strategy per bar from the detected
// regime instead of locking one in.
const StrategyAdaptive = "ADAPTIVE"

// Default execution parameters.
const (
	DefaultSlippageRate = 0.001
	DefaultInterval     = types.Interval30m
)

// Request describes one backtest run.
type Request struct {
	Symbol         string         `json:"symbol"`
	Strategy       string         `json:"strategy"` // MACD | BOLL | VOLUME | ADAPTIVE
	Interval       types.Interval `json:"interval"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"` // inclusive
	InitialCapital float64        `json:"initial_capital"`

	// Optional overrides; zero means "use the default".
	CommissionRate float64 `json:"commission_rate,omitempty"`
	SlippageRate   float64 `json:"slippage_rate,omitempty"`

	GenerateDetailedReport bool `json:"generate_detailed_report"`
}

// Normalize fills defaulted fields in place.
func (r *Request) Normalize() {
	if r.Interval == "" {
		r.Interval = DefaultInterval
	}
	if r.SlippageRate == 0 {
		r.SlippageRate = DefaultSlippageRate
	}
}

// Validate checks the request, failing with INVALID_ARGUMENT.
func (r *Request) Validate() error {
	if r.Symbol == "" {
		return engineerr.New(engineerr.CodeInvalidArgument, "backtest", "symbol is required")
	}
	if r.Strategy != StrategyAdaptive && strategy.ForName(r.Strategy) == nil {
		return engineerr.New(engineerr.CodeInvalidArgument, "backtest",
			fmt.Sprintf("unknown strategy %q", r.Strategy)).WithSymbol(r.Symbol)
	}
	if !r.Interval.Valid() {
		return engineerr.New(engineerr.CodeInvalidArgument, "backtest",
			fmt.Sprintf("unknown interval %q", r.Interval)).WithSymbol(r.Symbol)
	}
	if !r.EndTime.After(r.StartTime) {
		return engineerr.New(engineerr.CodeInvalidArgument, "backtest",
			"end time must be after start time").WithSymbol(r.Symbol)
	}
	if r.InitialCapital <= 0 {
		return engineerr.New(engineerr.CodeInvalidArgument, "backtest",
			"initial capital must be positive").WithSymbol(r.Symbol)
	}
	if r.SlippageRate < 0 || r.SlippageRate > 0.05 {
		return engineerr.New(engineerr.CodeInvalidArgument, "backtest",
			"slippage rate outside [0, 0.05]").WithSymbol(r.Symbol)
	}
	return nil
}

// Result is the full outcome of one run. On failure Success is false
// and the error code and message are set; partial trades and equity
// points survive cancellation and late failures.
type Result struct {
	Success      bool   `json:"success"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	Symbol   string         `json:"symbol"`
	Strategy string         `json:"strategy"`
	Interval types.Interval `json:"interval"`

	InitialCapital   float64 `json:"initial_capital"`
	FinalEquity      float64 `json:"final_equity"`
	TotalReturn      float64 `json:"total_return"` // HKD
	ReturnRate       float64 `json:"return_rate"`  // fraction
	AnnualizedReturn float64 `json:"annualized_return"`

	MaxDrawdown  float64 `json:"max_drawdown"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	CalmarRatio  float64 `json:"calmar_ratio"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	ProfitFactor  float64 `json:"profit_factor"`

	RejectedSignals int     `json:"rejected_signals"`
	QualityScore    float64 `json:"quality_score"`

	Trades        []portfolio.ClosedTrade `json:"trades"`
	EquityCurve   []portfolio.EquityPoint `json:"equity_curve"`
	RegimeChanges []regime.Change         `json:"regime_changes,omitempty"`

	ExecutionTimeMs   int64     `json:"execution_time_ms"`
	ReportGeneratedAt time.Time `json:"report_generated_at"`
}

// failed builds an error result for req carrying whatever partial state
// is supplied.
func failed(req Request, err error) *Result {
	return &Result{
		Success:        false,
		ErrorCode:      string(engineerr.CodeOf(err)),
		ErrorMessage:   err.Error(),
		Symbol:         req.Symbol,
		Strategy:       req.Strategy,
		Interval:       req.Interval,
		InitialCapital: req.InitialCapital,
	}
}
