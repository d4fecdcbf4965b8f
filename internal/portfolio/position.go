// Package portfolio tracks cash, open positions and the equity curve
// for one backtest run. The ledger is owned exclusively by the replay
// loop; nothing here is safe for concurrent use.
package portfolio

import (
	"time"
)

// Position is one open long position. Quantity only ever shrinks via
// ReduceQty; HKEX cash equities cannot go short here.
type Position struct {
	Symbol     string
	Strategy   string
	Quantity   int64
	InitialQty int64 // quantity at open, before partial exits
	EntryPrice float64
	AvgCost    float64 // entry price plus per-share buy fees
	OpenedAt   time.Time

	// Exit management state, maintained by the strategy policies.
	StopLevel      float64
	TrailingArmed  bool
	HighWater      float64 // highest close seen since entry
	TiersTaken     int     // tiered take-profit levels already filled
	RegimeExitBars int     // consecutive bars outside the home regime
}

// MarketValue returns quantity times the mark price.
func (p *Position) MarketValue(mark float64) float64 {
	return float64(p.Quantity) * mark
}

// UnrealizedPnL returns the open gain against average cost.
func (p *Position) UnrealizedPnL(mark float64) float64 {
	return (mark - p.AvgCost) * float64(p.Quantity)
}

// GainPct returns the fractional gain over the entry price.
func (p *Position) GainPct(mark float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return mark/p.EntryPrice - 1
}

// MarkHigh updates the high-water mark with the bar close.
func (p *Position) MarkHigh(mark float64) {
	if mark > p.HighWater {
		p.HighWater = mark
	}
}
