package adjust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkquant/equity-backtest/pkg/types"
)

func dayCandles(closes ...float64) []types.Candle {
	base := time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		out[i] = types.Candle{
			Symbol:    "00001.HK",
			Timestamp: base.AddDate(0, 0, i),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	return out
}

func TestBackwardDividendAdjust(t *testing.T) {
	candles := dayCandles(100, 101, 102, 103)
	exDate := candles[2].Timestamp // between index 1 and 2
	actions := []types.CorporateAction{{
		Symbol: "00001.HK", ExDate: exDate,
		Kind: types.ActionDividend, Dividend: 1.0,
	}}

	adjusted, err := New().Backward(candles, actions)
	require.NoError(t, err)
	require.Len(t, adjusted, 4)

	// factor = (101-1)/101; applied to candles strictly before ex-date.
	assert.InDelta(t, 99.0099, adjusted[0].Close, 1e-9)
	assert.InDelta(t, 100.0000, adjusted[1].Close, 1e-9)
	assert.InDelta(t, 102.0, adjusted[2].Close, 1e-9)
	assert.InDelta(t, 103.0, adjusted[3].Close, 1e-9)
	assert.Equal(t, types.AdjustBackward, adjusted[0].Adjust)
	assert.Equal(t, types.AdjustNone, adjusted[2].Adjust)

	// Volume is never touched.
	assert.Equal(t, 1000.0, adjusted[0].Volume)
}

func TestBackwardCumulativeEvents(t *testing.T) {
	candles := dayCandles(100, 100, 100, 100)
	actions := []types.CorporateAction{
		{Kind: types.ActionDividend, Dividend: 2.0, ExDate: candles[1].Timestamp},
		{Kind: types.ActionDividend, Dividend: 5.0, ExDate: candles[3].Timestamp},
	}

	adjusted, err := New().Backward(candles, actions)
	require.NoError(t, err)

	// Index 0 carries both factors: 0.98 * 0.95; indexes 1, 2 carry only
	// the later event's 0.95.
	assert.InDelta(t, 100*0.98*0.95, adjusted[0].Close, 1e-4)
	assert.InDelta(t, 95.0, adjusted[1].Close, 1e-9)
	assert.InDelta(t, 95.0, adjusted[2].Close, 1e-9)
	assert.InDelta(t, 100.0, adjusted[3].Close, 1e-9)
}

func TestFactorForKinds(t *testing.T) {
	cases := []struct {
		name     string
		action   types.CorporateAction
		preClose float64
		want     float64
	}{
		{"dividend", types.CorporateAction{Kind: types.ActionDividend, Dividend: 1}, 101, 100.0 / 101.0},
		{"split 1:2", types.CorporateAction{Kind: types.ActionSplit, SplitBase: 1, SplitRatio: 2}, 50, 0.5},
		{"merge 10:1", types.CorporateAction{Kind: types.ActionMerge, JoinBase: 1, JoinRatio: 10}, 5, 10.0},
		{"bonus 10 per 10", types.CorporateAction{Kind: types.ActionBonus, BonusBase: 10, BonusRatio: 10}, 20, 0.5},
		{"rights 1 per 2 at 8", types.CorporateAction{Kind: types.ActionRightsIssue, RightsBase: 2, RightsRatio: 1, RightsPrice: 8}, 10, (10*2 + 1*8) / (3 * 10.0)},
		{"explicit factor wins", types.CorporateAction{Kind: types.ActionDividend, Dividend: 1, BackwardAdjFactor: 0.9}, 101, 0.9},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := FactorFor(c.action, c.preClose)
			require.NoError(t, err)
			assert.InDelta(t, c.want, got, 1e-12)
		})
	}
}

func TestFactorForRejectsBadInput(t *testing.T) {
	_, err := FactorFor(types.CorporateAction{Kind: types.ActionDividend, Dividend: 1}, 0)
	assert.Error(t, err)
	_, err = FactorFor(types.CorporateAction{Kind: "UNKNOWN"}, 100)
	assert.Error(t, err)
}

func TestIdempotenceWithEmptyActions(t *testing.T) {
	candles := dayCandles(100, 101, 102)
	first, err := New().Backward(candles, nil)
	require.NoError(t, err)

	// Re-adjusting the already-adjusted closes with no events must be a
	// bit-identical no-op.
	rewrapped := make([]types.Candle, len(first))
	for i, a := range first {
		rewrapped[i] = a.Candle
	}
	second, err := New().Backward(rewrapped, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestInputNotMutated(t *testing.T) {
	candles := dayCandles(100, 101, 102, 103)
	actions := []types.CorporateAction{{
		Kind: types.ActionDividend, Dividend: 1.0, ExDate: candles[2].Timestamp,
	}}

	_, err := New().Backward(candles, actions)
	require.NoError(t, err)
	assert.Equal(t, 100.0, candles[0].Close)
	assert.Equal(t, 101.0, candles[1].Close)
}

func TestForwardLeavesEarliestUntouched(t *testing.T) {
	candles := dayCandles(100, 101, 102, 103)
	actions := []types.CorporateAction{{
		Kind: types.ActionDividend, Dividend: 1.0, ExDate: candles[2].Timestamp,
	}}

	adjusted, err := New().Forward(candles, actions)
	require.NoError(t, err)

	factor := 100.0 / 101.0
	assert.InDelta(t, 100.0, adjusted[0].Close, 1e-9)
	assert.InDelta(t, 101.0, adjusted[1].Close, 1e-9)
	assert.InDelta(t, 102.0/factor, adjusted[2].Close, 1e-4)
	assert.InDelta(t, 103.0/factor, adjusted[3].Close, 1e-4)
}
