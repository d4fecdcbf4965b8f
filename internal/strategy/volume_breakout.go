package strategy

import (
	"github.com/hkquant/equity-backtest/internal/indicators"
	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/internal/regime"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// Volume-breakout parameters.
const (
	breakoutMinVolRatio = 2.0
	breakoutFixedStop   = 0.96 // -4% from entry
	breakoutTakeProfit  = 1.06 // +6% from entry
	breakoutTrailFrom   = 0.96
)

// VolumeBreakout buys high-volume pushes through the upper band or the
// rolling high, with the confirmation timeframe also at new highs.
type VolumeBreakout struct{}

// NewVolumeBreakout returns the breakout strategy.
func NewVolumeBreakout() *VolumeBreakout { return &VolumeBreakout{} }

func (s *VolumeBreakout) Name() string      { return NameVolume }
func (s *VolumeBreakout) Home() regime.Type { return regime.Breakout }

// Entry requires a volume surge, the histogram turning positive this
// bar, price clearing resistance, and the confirmation timeframe above
// its own prior high.
func (s *VolumeBreakout) Entry(c types.Candle, primary, confirm indicators.Snapshot) bool {
	if !primary.MACDReady || !primary.BollReady || !primary.VolReady || confirm.High20 <= 0 {
		return false
	}
	cleared := c.Close > primary.BollUpper || (primary.High20 > 0 && c.Close > primary.High20)
	return primary.VolumeRat > breakoutMinVolRatio &&
		primary.MACDHistUp &&
		cleared &&
		confirm.Close > confirm.High20
}

// InitialStop is a fixed -4% below entry.
func (s *VolumeBreakout) InitialStop(entry float64, primary indicators.Snapshot) float64 {
	return entry * breakoutFixedStop
}

// TrailingStop keeps the 4% distance from the high-water mark.
func (s *VolumeBreakout) TrailingStop(pos *portfolio.Position, primary indicators.Snapshot) float64 {
	return pos.HighWater * breakoutTrailFrom
}

// TakeProfit exits the full position at +6%.
func (s *VolumeBreakout) TakeProfit(pos *portfolio.Position, primary indicators.Snapshot) (float64, float64, bool) {
	return pos.EntryPrice * breakoutTakeProfit, 1.0, true
}
