// Package adjust rehabilitates candle prices for corporate actions
// (dividends, splits, merges, bonus and rights issues).
package adjust

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hkquant/equity-backtest/pkg/types"
)

// Adjuster produces backward- or forward-adjusted candle sequences.
// It never mutates its inputs and is deterministic: identical inputs
// produce bit-identical output.
type Adjuster struct{}

func New() *Adjuster { return &Adjuster{} }

// FactorFor computes the per-event backward adjustment factor. preClose
// is the close of the last trading day strictly before the ex-date,
// taken from the unadjusted sequence.
func FactorFor(action types.CorporateAction, preClose float64) (float64, error) {
	if action.BackwardAdjFactor > 0 {
		return action.BackwardAdjFactor, nil
	}
	switch action.Kind {
	case types.ActionDividend:
		if preClose <= 0 {
			return 0, fmt.Errorf("dividend factor needs positive preClose, got %v", preClose)
		}
		return (preClose - action.Dividend) / preClose, nil
	case types.ActionSplit:
		if action.SplitBase <= 0 || action.SplitRatio <= 0 {
			return 0, fmt.Errorf("split needs positive base/ratio, got %v/%v", action.SplitBase, action.SplitRatio)
		}
		// ratio = new/old shares; price scales by the inverse.
		return action.SplitBase / action.SplitRatio, nil
	case types.ActionMerge:
		if action.JoinBase <= 0 || action.JoinRatio <= 0 {
			return 0, fmt.Errorf("merge needs positive base/ratio, got %v/%v", action.JoinBase, action.JoinRatio)
		}
		return action.JoinRatio / action.JoinBase, nil
	case types.ActionBonus:
		if action.BonusBase <= 0 || action.BonusRatio < 0 {
			return 0, fmt.Errorf("bonus needs positive base, got %v/%v", action.BonusBase, action.BonusRatio)
		}
		return action.BonusBase / (action.BonusBase + action.BonusRatio), nil
	case types.ActionRightsIssue:
		if preClose <= 0 || action.RightsBase <= 0 || action.RightsRatio < 0 {
			return 0, fmt.Errorf("rights issue needs positive preClose/base")
		}
		b, e, p := action.RightsBase, action.RightsRatio, action.RightsPrice
		return (preClose*b + e*p) / ((b + e) * preClose), nil
	default:
		return 0, fmt.Errorf("unknown corporate action kind %q", action.Kind)
	}
}

// Backward applies backward adjustment: OHLC of every candle strictly
// before an ex-date is multiplied by that event's factor, cumulatively
// across events. Candles on or after the latest ex-date are unchanged.
// Volume is never adjusted. Output prices are rounded half-even to four
// decimals; intermediate factors carry full precision.
func (a *Adjuster) Backward(candles []types.Candle, actions []types.CorporateAction) ([]types.AdjustedCandle, error) {
	return a.apply(candles, actions, types.AdjustBackward)
}

// Forward applies the reciprocal relation: candles on or after an
// ex-date are divided by that event's backward factor, cumulatively, so
// the earliest prices remain untouched.
func (a *Adjuster) Forward(candles []types.Candle, actions []types.CorporateAction) ([]types.AdjustedCandle, error) {
	return a.apply(candles, actions, types.AdjustForward)
}

func (a *Adjuster) apply(candles []types.Candle, actions []types.CorporateAction, mode types.AdjustType) ([]types.AdjustedCandle, error) {
	out := make([]types.AdjustedCandle, len(candles))
	if len(actions) == 0 {
		// Nothing to do; marker stays NONE so a second pass is a no-op.
		for i, c := range candles {
			out[i] = types.AdjustedCandle{Candle: c, Adjust: types.AdjustNone}
		}
		return out, nil
	}

	events := make([]types.CorporateAction, len(actions))
	copy(events, actions)
	sort.Slice(events, func(i, j int) bool { return events[i].ExDate.Before(events[j].ExDate) })

	factors := make([]float64, len(events))
	for i, ev := range events {
		pre := preCloseBefore(candles, ev.ExDate)
		f, err := FactorFor(ev, pre)
		if err != nil {
			return nil, fmt.Errorf("corporate action at %s: %w", ev.ExDate.Format("2006-01-02"), err)
		}
		factors[i] = f
	}

	for i, c := range candles {
		factor := 1.0
		for j, ev := range events {
			if mode == types.AdjustBackward {
				// Cumulative factor on date d is the product over
				// ex-dates strictly after d.
				if c.Timestamp.Before(ev.ExDate) {
					factor *= factors[j]
				}
			} else {
				if !c.Timestamp.Before(ev.ExDate) {
					factor /= factors[j]
				}
			}
		}
		adj := c
		if factor != 1.0 {
			adj.Open = round4(c.Open * factor)
			adj.High = round4(c.High * factor)
			adj.Low = round4(c.Low * factor)
			adj.Close = round4(c.Close * factor)
		}
		marker := mode
		if factor == 1.0 {
			marker = types.AdjustNone
		}
		out[i] = types.AdjustedCandle{Candle: adj, Adjust: marker}
	}
	return out, nil
}

// preCloseBefore finds the close of the last candle whose timestamp is
// strictly before exDate, from the unadjusted sequence.
func preCloseBefore(candles []types.Candle, exDate time.Time) float64 {
	pre := 0.0
	for _, c := range candles {
		if c.Timestamp.Before(exDate) {
			pre = c.Close
		} else {
			break
		}
	}
	return pre
}

func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).RoundBank(4).Float64()
	return f
}
