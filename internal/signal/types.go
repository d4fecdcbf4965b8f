// Package signal implements the layered signal filter that turns
// indicator state into at most one trading signal per primary bar.
package signal

import (
	"time"

	"github.com/hkquant/equity-backtest/internal/regime"
)

// Side of a signal. Long-only for HKEX cash equities.
type Side string

const (
	SideBuy Side = "BUY"
)

// Scores carries the per-layer sub-scores emitted with every signal.
type Scores struct {
	MarketState float64 `json:"market_state"`
	MACD        float64 `json:"macd"`
	Bollinger   float64 `json:"bollinger"`
	Volume      float64 `json:"volume"`
}

// Signal is one actionable entry recommendation.
type Signal struct {
	Symbol    string      `json:"symbol"`
	Timestamp time.Time   `json:"timestamp"`
	Side      Side        `json:"side"`
	Strategy  string      `json:"strategy"`
	Regime    regime.Type `json:"regime"`
	Price     float64     `json:"price"`    // bar close the signal was taken at
	Strength  float64     `json:"strength"` // weighted total, [0,100]
	Scores    Scores      `json:"scores"`
	ATR       float64     `json:"atr"`
	ATRRatio  float64     `json:"atr_ratio"` // ATR vs its 20-bar mean, clamped
}
