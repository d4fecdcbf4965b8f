package strategy

import (
	"github.com/hkquant/equity-backtest/internal/indicators"
	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/internal/regime"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// MACD-trend exit parameters.
const (
	macdATRStopMult = 1.5
	macdFloorStop   = 0.97 // hard floor at -3% from entry
	macdMinVolRatio = 1.5
)

// macdTier is one take-profit rung.
type macdTier struct {
	gain     float64
	fraction float64
}

var macdTiers = []macdTier{
	{gain: 0.05, fraction: 0.30},
	{gain: 0.08, fraction: 0.40},
	{gain: 0.10, fraction: 0.30},
}

// MACDTrend trades golden crosses in trending markets with an
// ATR-trailing stop and tiered profit taking.
type MACDTrend struct{}

// NewMACDTrend returns the trend-following strategy.
func NewMACDTrend() *MACDTrend { return &MACDTrend{} }

func (s *MACDTrend) Name() string      { return NameMACD }
func (s *MACDTrend) Home() regime.Type { return regime.Trending }

// Entry requires a golden cross with a positive histogram, agreement
// from the confirmation timeframe, volume support and price above the
// middle band.
func (s *MACDTrend) Entry(c types.Candle, primary, confirm indicators.Snapshot) bool {
	if !primary.MACDReady || !primary.BollReady || !primary.VolReady || !confirm.MACDReady {
		return false
	}
	return primary.MACDGolden &&
		primary.MACDHist > 0 &&
		confirm.MACD > confirm.MACDSignal &&
		primary.VolumeRat >= macdMinVolRatio &&
		c.Close > primary.BollMiddle
}

// InitialStop sits 1.5 ATR below entry, floored at -3%.
func (s *MACDTrend) InitialStop(entry float64, primary indicators.Snapshot) float64 {
	atrStop := entry - macdATRStopMult*primary.ATR
	floor := entry * macdFloorStop
	if atrStop > floor {
		return atrStop
	}
	return floor
}

// TrailingStop rides 1.5 ATR below the high-water mark.
func (s *MACDTrend) TrailingStop(pos *portfolio.Position, primary indicators.Snapshot) float64 {
	return pos.HighWater - macdATRStopMult*primary.ATR
}

// TakeProfit walks the +5/+8/+10 tiers, exiting 30/40/30 of the
// initial quantity.
func (s *MACDTrend) TakeProfit(pos *portfolio.Position, primary indicators.Snapshot) (float64, float64, bool) {
	if pos.TiersTaken >= len(macdTiers) {
		return 0, 0, false
	}
	tier := macdTiers[pos.TiersTaken]
	return pos.EntryPrice * (1 + tier.gain), tier.fraction, true
}
