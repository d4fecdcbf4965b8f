package backtest

import (
	"math"

	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// tradingDaysPerYear is the annualization base for HKEX.
const tradingDaysPerYear = 252.0

// computeMetrics fills the performance fields of result from the trade
// list and equity curve.
func computeMetrics(result *Result, trades []portfolio.ClosedTrade, curve []portfolio.EquityPoint, maxDrawdown float64, interval types.Interval) {
	result.Trades = trades
	result.EquityCurve = curve
	result.MaxDrawdown = maxDrawdown

	if len(curve) > 0 {
		result.FinalEquity = curve[len(curve)-1].Equity
	} else {
		result.FinalEquity = result.InitialCapital
	}
	result.TotalReturn = result.FinalEquity - result.InitialCapital
	if result.InitialCapital > 0 {
		result.ReturnRate = result.TotalReturn / result.InitialCapital
	}
	result.AnnualizedReturn = annualize(result.ReturnRate, len(curve), interval)

	returns := barReturns(curve)
	annFactor := tradingDaysPerYear * interval.BarsPerDay()
	result.SharpeRatio = sharpe(returns, annFactor)
	result.SortinoRatio = sortino(returns, annFactor)
	if maxDrawdown > 0 {
		result.CalmarRatio = result.AnnualizedReturn / maxDrawdown
	}

	tallyTrades(result, trades)
}

// annualize converts a whole-run return into a yearly rate:
// (1+r)^(252*barsPerDay/nBars) - 1.
func annualize(returnRate float64, nBars int, interval types.Interval) float64 {
	if nBars == 0 || returnRate <= -1 {
		return 0
	}
	exponent := tradingDaysPerYear * interval.BarsPerDay() / float64(nBars)
	return math.Pow(1+returnRate, exponent) - 1
}

// barReturns derives per-bar fractional returns from the equity curve.
func barReturns(curve []portfolio.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev > 0 {
			returns = append(returns, (curve[i].Equity-prev)/prev)
		}
	}
	return returns
}

func sharpe(returns []float64, annFactor float64) float64 {
	mean, std := meanStd(returns)
	if std < 1e-12 {
		return 0
	}
	return mean / std * math.Sqrt(annFactor)
}

func sortino(returns []float64, annFactor float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean, _ := meanStd(returns)
	downside := 0.0
	n := 0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
			n++
		}
	}
	if n == 0 || downside == 0 {
		return 0
	}
	std := math.Sqrt(downside / float64(n))
	return mean / std * math.Sqrt(annFactor)
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// tallyTrades fills win/loss counts, averages and the profit factor. A
// run with no trades reports a zero win rate, not NaN.
func tallyTrades(result *Result, trades []portfolio.ClosedTrade) {
	result.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	grossWin, grossLoss := 0.0, 0.0
	for _, t := range trades {
		if t.PnL > 0 {
			result.WinningTrades++
			grossWin += t.PnL
		} else {
			result.LosingTrades++
			grossLoss += -t.PnL
		}
	}
	result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades)
	if result.WinningTrades > 0 {
		result.AvgWin = grossWin / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		result.AvgLoss = grossLoss / float64(result.LosingTrades)
	}
	if grossLoss > 0 {
		result.ProfitFactor = grossWin / grossLoss
	} else if grossWin > 0 {
		result.ProfitFactor = math.Inf(1)
	}
}
