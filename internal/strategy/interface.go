// Package strategy holds the regime-specific entry rules and the
// stop-loss / take-profit policies each strategy plugs into the
// replay loop.
package strategy

import (
	"github.com/hkquant/equity-backtest/internal/indicators"
	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/internal/regime"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// Strategy names as they appear in requests, signals and reports.
const (
	NameMACD   = "MACD"
	NameBOLL   = "BOLL"
	NameVolume = "VOLUME"
)

// Strategy is one long-only entry rule plus its exit policies. All
// methods are pure over their inputs except for the tier counter the
// simulator advances on the position itself.
type Strategy interface {
	// Name returns the request-facing strategy name.
	Name() string

	// Home returns the regime this strategy trades in.
	Home() regime.Type

	// Entry reports whether the strategy wants to open a long at the
	// close of candle c, given the primary (30m) and confirmation
	// (120m) indicator snapshots.
	Entry(c types.Candle, primary, confirm indicators.Snapshot) bool

	// InitialStop returns the protective stop level for a fill at
	// entry.
	InitialStop(entry float64, primary indicators.Snapshot) float64

	// TrailingStop returns the raised stop once trailing is armed; the
	// simulator only ever moves the stop up.
	TrailingStop(pos *portfolio.Position, primary indicators.Snapshot) float64

	// TakeProfit returns the next profit target and the fraction of
	// the position's initial quantity to exit there, or ok=false when
	// no target remains.
	TakeProfit(pos *portfolio.Position, primary indicators.Snapshot) (price, fraction float64, ok bool)
}

// ForName returns the strategy registered under name, or nil.
func ForName(name string) Strategy {
	switch name {
	case NameMACD:
		return NewMACDTrend()
	case NameBOLL:
		return NewBollReversion()
	case NameVolume:
		return NewVolumeBreakout()
	default:
		return nil
	}
}

// All returns the full strategy set, one per home regime, for the
// adaptive regime-dispatch mode.
func All() []Strategy {
	return []Strategy{NewMACDTrend(), NewBollReversion(), NewVolumeBreakout()}
}
