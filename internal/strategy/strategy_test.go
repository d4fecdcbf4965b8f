package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkquant/equity-backtest/internal/indicators"
	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/internal/regime"
	"github.com/hkquant/equity-backtest/pkg/types"
)

func trendSnapshots() (indicators.Snapshot, indicators.Snapshot) {
	primary := indicators.Snapshot{
		MACDReady:  true,
		BollReady:  true,
		VolReady:   true,
		MACDGolden: true,
		MACDHist:   0.5,
		VolumeRat:  1.8,
		BollMiddle: 98.0,
		ATR:        1.2,
	}
	confirm := indicators.Snapshot{
		MACDReady:  true,
		MACD:       0.8,
		MACDSignal: 0.3,
	}
	return primary, confirm
}

func TestForName(t *testing.T) {
	assert.Equal(t, NameMACD, ForName("MACD").Name())
	assert.Equal(t, NameBOLL, ForName("BOLL").Name())
	assert.Equal(t, NameVolume, ForName("VOLUME").Name())
	assert.Nil(t, ForName("GRID"))
}

func TestMACDTrendEntry(t *testing.T) {
	s := NewMACDTrend()
	assert.Equal(t, regime.Trending, s.Home())

	c := types.Candle{Open: 99.0, High: 101.0, Low: 98.5, Close: 100.0}
	primary, confirm := trendSnapshots()
	assert.True(t, s.Entry(c, primary, confirm))

	noGolden := primary
	noGolden.MACDGolden = false
	assert.False(t, s.Entry(c, noGolden, confirm))

	thinVolume := primary
	thinVolume.VolumeRat = 1.2
	assert.False(t, s.Entry(c, thinVolume, confirm))

	confirmDisagrees := confirm
	confirmDisagrees.MACD = -0.2
	assert.False(t, s.Entry(c, primary, confirmDisagrees))

	belowMiddle := c
	belowMiddle.Close = 97.0
	assert.False(t, s.Entry(belowMiddle, primary, confirm))
}

func TestMACDTrendStops(t *testing.T) {
	s := NewMACDTrend()

	// Small ATR: the -3% floor dominates.
	snap := indicators.Snapshot{ATR: 0.5}
	assert.InDelta(t, 97.0, s.InitialStop(100.0, snap), 1e-9)

	// Large ATR still cannot push the stop below the floor.
	snap.ATR = 4.0
	assert.InDelta(t, 97.0, s.InitialStop(100.0, snap), 1e-9)

	snap.ATR = 1.0
	assert.InDelta(t, 98.5, s.InitialStop(100.0, snap), 1e-9)

	pos := &portfolio.Position{EntryPrice: 100.0, HighWater: 110.0}
	assert.InDelta(t, 108.5, s.TrailingStop(pos, snap), 1e-9)
}

func TestMACDTrendTieredTakeProfit(t *testing.T) {
	s := NewMACDTrend()
	pos := &portfolio.Position{EntryPrice: 100.0, InitialQty: 1000}

	price, frac, ok := s.TakeProfit(pos, indicators.Snapshot{})
	require.True(t, ok)
	assert.InDelta(t, 105.0, price, 1e-9)
	assert.InDelta(t, 0.30, frac, 1e-9)

	pos.TiersTaken = 1
	price, frac, ok = s.TakeProfit(pos, indicators.Snapshot{})
	require.True(t, ok)
	assert.InDelta(t, 108.0, price, 1e-9)
	assert.InDelta(t, 0.40, frac, 1e-9)

	pos.TiersTaken = 3
	_, _, ok = s.TakeProfit(pos, indicators.Snapshot{})
	assert.False(t, ok)
}

func TestBollReversionEntry(t *testing.T) {
	s := NewBollReversion()
	assert.Equal(t, regime.Ranging, s.Home())

	// Hammer: small body high in the range, long lower shadow.
	hammer := types.Candle{Open: 94.9, High: 95.2, Low: 93.8, Close: 95.1}
	primary := indicators.Snapshot{
		MACDReady:      true,
		BollReady:      true,
		RSIReady:       true,
		BollLower:      95.0,
		RSI:            25.0,
		MACDHistShrink: true,
	}
	confirm := indicators.Snapshot{Close: 96.0, Low20: 94.0}

	assert.True(t, s.Entry(hammer, primary, confirm))

	overbought := primary
	overbought.RSI = 45.0
	assert.False(t, s.Entry(hammer, overbought, confirm))

	farFromBand := hammer
	farFromBand.Close = 97.0
	farFromBand.High = 97.2
	assert.False(t, s.Entry(farFromBand, primary, confirm))

	confirmBroken := confirm
	confirmBroken.Close = 93.5
	assert.False(t, s.Entry(hammer, primary, confirmBroken))

	// A full-bodied bar is neither hammer nor doji.
	solid := types.Candle{Open: 94.0, High: 95.3, Low: 93.9, Close: 95.2}
	assert.False(t, s.Entry(solid, primary, confirm))
}

func TestCandlePatterns(t *testing.T) {
	hammer := types.Candle{Open: 99.8, High: 100.1, Low: 98.5, Close: 100.0}
	assert.True(t, isHammer(hammer))
	assert.False(t, isDoji(hammer))

	doji := types.Candle{Open: 100.0, High: 100.6, Low: 99.4, Close: 100.05}
	assert.True(t, isDoji(doji))

	marubozu := types.Candle{Open: 99.0, High: 101.0, Low: 99.0, Close: 101.0}
	assert.False(t, isHammer(marubozu))
	assert.False(t, isDoji(marubozu))
}

func TestBollReversionExits(t *testing.T) {
	s := NewBollReversion()
	assert.InDelta(t, 98.0, s.InitialStop(100.0, indicators.Snapshot{}), 1e-9)

	pos := &portfolio.Position{EntryPrice: 100.0}
	price, frac, ok := s.TakeProfit(pos, indicators.Snapshot{BollReady: true, BollUpper: 104.0})
	require.True(t, ok)
	assert.InDelta(t, 104.0, price, 1e-9)
	assert.InDelta(t, 1.0, frac, 1e-9)

	// Overbought RSI exits at the close even below the upper band.
	price, _, ok = s.TakeProfit(pos, indicators.Snapshot{
		BollReady: true, BollUpper: 104.0, RSIReady: true, RSI: 75.0, Close: 102.0,
	})
	require.True(t, ok)
	assert.InDelta(t, 102.0, price, 1e-9)
}

func TestVolumeBreakoutEntry(t *testing.T) {
	s := NewVolumeBreakout()
	assert.Equal(t, regime.Breakout, s.Home())

	c := types.Candle{Open: 104.0, High: 106.5, Low: 103.8, Close: 106.0}
	primary := indicators.Snapshot{
		MACDReady:  true,
		BollReady:  true,
		VolReady:   true,
		VolumeRat:  2.4,
		MACDHistUp: true,
		BollUpper:  105.0,
		High20:     105.5,
	}
	confirm := indicators.Snapshot{Close: 106.0, High20: 105.0}

	assert.True(t, s.Entry(c, primary, confirm))

	noSurge := primary
	noSurge.VolumeRat = 1.6
	assert.False(t, s.Entry(c, noSurge, confirm))

	histStillNegative := primary
	histStillNegative.MACDHistUp = false
	assert.False(t, s.Entry(c, histStillNegative, confirm))

	confirmBelow := confirm
	confirmBelow.Close = 104.0
	assert.False(t, s.Entry(c, primary, confirmBelow))
}

func TestVolumeBreakoutExits(t *testing.T) {
	s := NewVolumeBreakout()
	assert.InDelta(t, 96.0, s.InitialStop(100.0, indicators.Snapshot{}), 1e-9)

	pos := &portfolio.Position{EntryPrice: 100.0}
	price, frac, ok := s.TakeProfit(pos, indicators.Snapshot{})
	require.True(t, ok)
	assert.InDelta(t, 106.0, price, 1e-9)
	assert.InDelta(t, 1.0, frac, 1e-9)
}
