package strategy

import (
	"github.com/hkquant/equity-backtest/internal/indicators"
	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/internal/regime"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// BOLL-reversion parameters.
const (
	bollLowerBandSlack = 0.01 // entry within 1% of the lower band
	bollMaxRSI         = 30.0
	bollExitRSI        = 70.0
	bollFixedStop      = 0.98 // -2% from entry
	bollTrailFromHigh  = 0.98
)

// BollReversion buys oversold touches of the lower band in ranging
// markets, confirmed by a reversal candle.
type BollReversion struct{}

// NewBollReversion returns the mean-reversion strategy.
func NewBollReversion() *BollReversion { return &BollReversion{} }

func (s *BollReversion) Name() string      { return NameBOLL }
func (s *BollReversion) Home() regime.Type { return regime.Ranging }

// Entry requires price hugging the lower band, RSI oversold, downside
// momentum fading, the confirmation timeframe holding above its prior
// low, and a hammer or doji bar.
func (s *BollReversion) Entry(c types.Candle, primary, confirm indicators.Snapshot) bool {
	if !primary.MACDReady || !primary.BollReady || !primary.RSIReady || confirm.Low20 <= 0 {
		return false
	}
	return c.Close <= primary.BollLower*(1+bollLowerBandSlack) &&
		primary.RSI < bollMaxRSI &&
		primary.MACDHistShrink &&
		confirm.Close > confirm.Low20 &&
		(isHammer(c) || isDoji(c))
}

// InitialStop is a fixed -2% below entry.
func (s *BollReversion) InitialStop(entry float64, primary indicators.Snapshot) float64 {
	return entry * bollFixedStop
}

// TrailingStop keeps the same 2% distance, measured from the high-water
// mark.
func (s *BollReversion) TrailingStop(pos *portfolio.Position, primary indicators.Snapshot) float64 {
	return pos.HighWater * bollTrailFromHigh
}

// TakeProfit exits the full position at the upper band, or at the close
// once RSI runs overbought.
func (s *BollReversion) TakeProfit(pos *portfolio.Position, primary indicators.Snapshot) (float64, float64, bool) {
	if primary.RSIReady && primary.RSI > bollExitRSI {
		return primary.Close, 1.0, true
	}
	if primary.BollReady {
		return primary.BollUpper, 1.0, true
	}
	return 0, 0, false
}

// isHammer detects a bar whose body sits in the upper part of its range
// with a lower shadow at least twice the body.
func isHammer(c types.Candle) bool {
	body := abs(c.Close - c.Open)
	if body <= 0 {
		return false
	}
	bodyLow := min(c.Open, c.Close)
	bodyHigh := max(c.Open, c.Close)
	lowerShadow := bodyLow - c.Low
	upperShadow := c.High - bodyHigh
	return lowerShadow >= 2*body && upperShadow <= body
}

// isDoji detects a bar whose body is at most a tenth of its range.
func isDoji(c types.Candle) bool {
	rng := c.High - c.Low
	if rng <= 0 {
		return false
	}
	return abs(c.Close-c.Open) <= 0.1*rng
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
