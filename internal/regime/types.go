// Package regime classifies the market into coarse states that drive
// strategy selection.
package regime

import "time"

// Type represents different market regimes.
type Type int

const (
	Neutral Type = iota
	Trending
	Ranging
	Breakout
)

func (t Type) String() string {
	switch t {
	case Trending:
		return "TRENDING"
	case Ranging:
		return "RANGING"
	case Breakout:
		return "BREAKOUT"
	case Neutral:
		return "NEUTRAL"
	default:
		return "UNKNOWN"
	}
}

// Change records one regime transition, kept for run analysis.
type Change struct {
	Timestamp time.Time `json:"timestamp"`
	Old       Type      `json:"old_regime"`
	New       Type      `json:"new_regime"`
	Price     float64   `json:"trigger_price"`
}
