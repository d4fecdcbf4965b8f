package backtest

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/hkquant/equity-backtest/internal/calendar"
	"github.com/hkquant/equity-backtest/internal/commission"
	"github.com/hkquant/equity-backtest/internal/data"
	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/internal/risk"
	"github.com/hkquant/equity-backtest/internal/signal"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// barTimes enumerates every 30m bar start inside HK trading sessions in
// [start, end].
func barTimes(start, end time.Time) []time.Time {
	var out []time.Time
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, calendar.HongKong)
	for !day.After(end) {
		if calendar.IsTradingDay(day) {
			for _, hm := range [][2]int{
				{9, 30}, {10, 0}, {10, 30}, {11, 0}, {11, 30},
				{13, 0}, {13, 30}, {14, 0}, {14, 30}, {15, 0}, {15, 30},
			} {
				ts := time.Date(day.Year(), day.Month(), day.Day(), hm[0], hm[1], 0, 0, calendar.HongKong)
				if !ts.Before(start) && !ts.After(end) {
					out = append(out, ts)
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// priceFunc produces one candle for the i-th bar of a synthetic series.
type priceFunc func(i int, ts time.Time) types.Candle

// flatBar is a motionless 100.00 market.
func flatBar(symbol string) priceFunc {
	return func(i int, ts time.Time) types.Candle {
		return types.Candle{
			Symbol: symbol, Timestamp: ts,
			Open: 100.0, High: 100.0, Low: 100.0, Close: 100.0,
			Volume: 1000,
		}
	}
}

// waveBar is a deterministic drifting sine walk with volume pulses,
// noisy enough to trade on some series without being random.
func waveBar(symbol string) priceFunc {
	return func(i int, ts time.Time) types.Candle {
		base := 100.0 + 8.0*math.Sin(float64(i)/40.0) + float64(i)*0.01
		open := round4(base)
		close := round4(base + 0.6*math.Sin(float64(i)/7.0))
		high := round4(math.Max(open, close) + 0.3)
		low := round4(math.Min(open, close) - 0.3)
		vol := 1000.0 + 900.0*math.Abs(math.Sin(float64(i)/13.0))
		return types.Candle{
			Symbol: symbol, Timestamp: ts,
			Open: open, High: high, Low: low, Close: close,
			Volume: vol,
		}
	}
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

// fakeSource serves synthetic candles on the HKEX grid.
type fakeSource struct {
	gen        priceFunc
	actions    []types.CorporateAction
	duplicates int // emit the first timestamp this many extra times
}

func (f *fakeSource) FetchCandles(ctx context.Context, symbol string, interval types.Interval, start, end int64) ([]types.Candle, error) {
	times := barTimes(time.Unix(start, 0), time.Unix(end, 0))
	out := make([]types.Candle, 0, len(times)+f.duplicates)
	for i, ts := range times {
		c := f.gen(i, ts)
		c.Symbol = symbol
		out = append(out, c)
	}
	for i := 0; i < f.duplicates && len(times) > 0; i++ {
		c := f.gen(0, times[0])
		c.Symbol = symbol
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeSource) FetchCorporateActions(ctx context.Context, symbol string) ([]types.CorporateAction, error) {
	return f.actions, nil
}

// dataPipeline builds a pipeline over a fake source.
func dataPipeline(gen priceFunc) *data.Pipeline {
	return dataPipelineFrom(&fakeSource{gen: gen})
}

func dataPipelineFrom(src data.Source) *data.Pipeline {
	return data.NewPipeline(src, zerolog.Nop())
}

// makeCurve builds an equity curve of 30m steps from the given values.
func makeCurve(base time.Time, values ...float64) []portfolio.EquityPoint {
	out := make([]portfolio.EquityPoint, len(values))
	for i, v := range values {
		out[i] = portfolio.EquityPoint{Timestamp: base.Add(time.Duration(i) * 30 * time.Minute), Equity: v}
	}
	return out
}

// makeTrades builds closed trades with the given net PnLs.
func makeTrades(pnls ...float64) []portfolio.ClosedTrade {
	out := make([]portfolio.ClosedTrade, len(pnls))
	for i, p := range pnls {
		out[i] = portfolio.ClosedTrade{Symbol: "00700.HK", Strategy: "MACD", PnL: p, Quantity: 100}
	}
	return out
}

// prepare runs the pipeline over a fake source for the standard June
// 2024 window.
func prepare(gen priceFunc) (*data.PreparedData, error) {
	return dataPipeline(gen).Prepare(context.Background(),
		"00700.HK", types.Interval30m, testStart(), testEnd())
}

func testStart() time.Time {
	return time.Date(2024, 6, 3, 9, 30, 0, 0, calendar.HongKong)
}

func testEnd() time.Time {
	return time.Date(2024, 6, 21, 16, 0, 0, 0, calendar.HongKong)
}

// newSimulator wires a simulator with default collaborators for tests.
func newSimulator(prepared *data.PreparedData, capital float64) *Simulator {
	fees := commission.NewSchedule()
	riskMgr := risk.NewManager(risk.DefaultLimits(capital), fees)
	signals := signal.NewAdaptive(zerolog.Nop())
	return NewSimulator(prepared, signals, riskMgr, fees, capital, DefaultSlippageRate, zerolog.Nop())
}
