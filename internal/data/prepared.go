package data

import (
	"time"

	"github.com/hkquant/equity-backtest/pkg/types"
)

// Minimum lengths for a usable PreparedData handle.
const (
	MinWarmupLen   = 60
	MinBacktestLen = 30
)

// PreparedData is an immutable handle over a contiguous, adjusted,
// quality-checked candle sequence. The first WarmupLen candles prime
// indicators; the backtest measures from WarmupLen onwards.
type PreparedData struct {
	symbol    string
	interval  types.Interval
	meta      types.SymbolMeta
	candles   []types.AdjustedCandle
	warmupLen int
	report    QualityReport
}

// Symbol returns the prepared symbol.
func (p *PreparedData) Symbol() string { return p.symbol }

// Interval returns the bar interval.
func (p *PreparedData) Interval() types.Interval { return p.interval }

// Meta returns the symbol metadata (lot size, ETF flag).
func (p *PreparedData) Meta() types.SymbolMeta { return p.meta }

// Quality returns the run's quality report.
func (p *PreparedData) Quality() QualityReport { return p.report }

// WarmupLen returns the boundary index where the backtest begins.
func (p *PreparedData) WarmupLen() int { return p.warmupLen }

// Len returns the total candle count.
func (p *PreparedData) Len() int { return len(p.candles) }

// WarmupData returns the warm-up prefix.
func (p *PreparedData) WarmupData() []types.AdjustedCandle {
	return p.candles[:p.warmupLen]
}

// BacktestData returns the measured slice.
func (p *PreparedData) BacktestData() []types.AdjustedCandle {
	return p.candles[p.warmupLen:]
}

// At returns the candle at absolute index i.
func (p *PreparedData) At(i int) types.AdjustedCandle { return p.candles[i] }

// WindowEndingAt returns the n candles ending at absolute index i
// inclusive, or fewer when i+1 < n.
func (p *PreparedData) WindowEndingAt(i, n int) []types.AdjustedCandle {
	if i >= len(p.candles) {
		i = len(p.candles) - 1
	}
	start := i + 1 - n
	if start < 0 {
		start = 0
	}
	return p.candles[start : i+1]
}

// BacktestStart returns the timestamp of the first measured bar.
func (p *PreparedData) BacktestStart() time.Time {
	return p.candles[p.warmupLen].Timestamp
}
