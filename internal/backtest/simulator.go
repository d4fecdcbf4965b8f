package backtest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hkquant/equity-backtest/internal/calendar"
	"github.com/hkquant/equity-backtest/internal/commission"
	"github.com/hkquant/equity-backtest/internal/data"
	"github.com/hkquant/equity-backtest/internal/engineerr"
	"github.com/hkquant/equity-backtest/internal/indicators"
	"github.com/hkquant/equity-backtest/internal/monitoring"
	"github.com/hkquant/equity-backtest/internal/order"
	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/internal/risk"
	"github.com/hkquant/equity-backtest/internal/signal"
	"github.com/hkquant/equity-backtest/internal/strategy"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// confirmFactor is how many primary bars aggregate into one
// confirmation bar (30m -> 120m on the default interval).
const confirmFactor = 4

// trailingArmGain is the unrealized gain that arms the trailing stop.
const trailingArmGain = 0.05

// regimeExitBars is how many consecutive bars outside the strategy's
// home regime force an exit.
const regimeExitBars = 3

// Exit reasons recorded on closed trades.
const (
	reasonStopLoss     = "stop_loss"
	reasonTrailingStop = "trailing_stop"
	reasonTakeProfit   = "take_profit"
	reasonRegimeChange = "regime_change"
	reasonEndOfRun     = "end_of_run"
)

// Simulator replays prepared candles through the signal engine and the
// portfolio ledger. It is single-threaded by contract: determinism
// requires the replay loop to own all mutable state.
type Simulator struct {
	prepared *data.PreparedData
	signals  *signal.Engine
	riskMgr  *risk.Manager
	fees     *commission.Schedule
	pf       *portfolio.Portfolio
	slippage float64
	log      zerolog.Logger

	primary *indicators.Engine
	confirm *indicators.Engine
	agg     confirmAggregator

	strategies map[string]strategy.Strategy
	orders     []*order.Order
	rejected   int

	// onBar, when set, is invoked after each processed bar with the
	// count of bars consumed so far.
	onBar func(done int)
}

// confirmAggregator folds primary bars into confirmation-timeframe
// candles. Groups never straddle the lunch break or a day boundary: a
// partial group is flushed as its own (shorter) confirmation candle
// when the next session's first bar arrives.
type confirmAggregator struct {
	open, high, low, closePx float64
	volume                   float64
	count                    int
	last                     time.Time
	session                  sessionID
}

// sessionID identifies one HKEX continuous-trading session.
type sessionID struct {
	year  int
	month time.Month
	day   int
	pm    bool
}

func sessionOf(t time.Time) sessionID {
	t = t.In(calendar.HongKong)
	return sessionID{year: t.Year(), month: t.Month(), day: t.Day(), pm: t.Hour() >= 12}
}

func (a *confirmAggregator) add(c types.AdjustedCandle) (types.Candle, bool) {
	sess := sessionOf(c.Timestamp)
	if a.count > 0 && sess != a.session {
		out := a.emit(c.Symbol)
		a.start(c, sess)
		return out, true
	}
	if a.count == 0 {
		a.start(c, sess)
	} else {
		a.extend(c)
	}
	if a.count < confirmFactor {
		return types.Candle{}, false
	}
	return a.emit(c.Symbol), true
}

func (a *confirmAggregator) start(c types.AdjustedCandle, sess sessionID) {
	a.open, a.high, a.low, a.closePx = c.Open, c.High, c.Low, c.Close
	a.volume = c.Volume
	a.last = c.Timestamp
	a.count = 1
	a.session = sess
}

func (a *confirmAggregator) extend(c types.AdjustedCandle) {
	if c.High > a.high {
		a.high = c.High
	}
	if c.Low < a.low {
		a.low = c.Low
	}
	a.closePx = c.Close
	a.volume += c.Volume
	a.last = c.Timestamp
	a.count++
}

func (a *confirmAggregator) emit(symbol string) types.Candle {
	out := types.Candle{
		Symbol:    symbol,
		Timestamp: a.last,
		Open:      a.open,
		High:      a.high,
		Low:       a.low,
		Close:     a.closePx,
		Volume:    a.volume,
	}
	a.count = 0
	return out
}

// NewSimulator wires a simulator for one prepared dataset.
func NewSimulator(prepared *data.PreparedData, signals *signal.Engine, riskMgr *risk.Manager, fees *commission.Schedule, initialCapital, slippage float64, log zerolog.Logger) *Simulator {
	strategies := make(map[string]strategy.Strategy)
	for _, s := range strategy.All() {
		strategies[s.Name()] = s
	}
	return &Simulator{
		prepared:   prepared,
		signals:    signals,
		riskMgr:    riskMgr,
		fees:       fees,
		pf:         portfolio.New(initialCapital),
		slippage:   slippage,
		log:        log,
		primary:    indicators.NewEngine(indicators.DefaultParams()),
		confirm:    indicators.NewEngine(indicators.DefaultParams()),
		strategies: strategies,
	}
}

// Portfolio exposes the ledger, mainly for tests and reporting.
func (s *Simulator) Portfolio() *portfolio.Portfolio { return s.pf }

// Orders returns every order the run created, in submission order.
func (s *Simulator) Orders() []*order.Order { return s.orders }

// RejectedSignals returns the count of signals the risk chain blocked.
func (s *Simulator) RejectedSignals() int { return s.rejected }

// Run replays all candles. Warm-up bars only feed indicators; measured
// bars trade. Cancellation is checked at each bar boundary and returns
// CANCELLED with the partial state retained in the portfolio.
func (s *Simulator) Run(ctx context.Context) error {
	warmup := s.prepared.WarmupLen()
	total := s.prepared.Len()

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return engineerr.Wrap(err, engineerr.CodeCancelled, "backtest", "run cancelled").
				WithSymbol(s.prepared.Symbol()).WithTimestamp(s.prepared.At(i).Timestamp)
		}

		bar := s.prepared.At(i)
		s.primary.Update(bar.Candle)
		if agg, done := s.agg.add(bar); done {
			s.confirm.Update(agg)
		}

		if i >= warmup {
			if err := s.step(bar.Candle); err != nil {
				return err
			}
		}
		if s.onBar != nil {
			s.onBar(i + 1)
		}
	}
	s.closeAtEnd(total)
	return nil
}

// step processes one measured bar: exits, then entries, then the
// equity snapshot.
func (s *Simulator) step(bar types.Candle) error {
	primarySnap := s.primary.Snapshot()
	confirmSnap := s.confirm.Snapshot()
	s.signals.ObserveRegime(primarySnap)

	if err := s.evaluateExits(bar, primarySnap); err != nil {
		return err
	}

	if s.pf.Position(bar.Symbol) == nil {
		if sig := s.signals.Evaluate(bar, primarySnap, confirmSnap); sig != nil {
			monitoring.RecordSignal(sig.Symbol, sig.Strategy)
			if err := s.enter(sig); err != nil {
				return err
			}
		}
	}

	if pos := s.pf.Position(bar.Symbol); pos != nil {
		pos.MarkHigh(bar.Close)
		if !pos.TrailingArmed && pos.GainPct(bar.Close) >= trailingArmGain {
			pos.TrailingArmed = true
		}
	}

	s.pf.Snapshot(bar.Timestamp, map[string]float64{bar.Symbol: bar.Close})
	return nil
}

// evaluateExits applies the exit precedence against the bar's range:
// hard stop, trailing stop, take-profit, then regime-change.
func (s *Simulator) evaluateExits(bar types.Candle, snap indicators.Snapshot) error {
	pos := s.pf.Position(bar.Symbol)
	if pos == nil {
		return nil
	}
	strat := s.strategies[pos.Strategy]
	if strat == nil {
		return engineerr.New(engineerr.CodeInvalidArgument, "backtest",
			"position carries unknown strategy "+pos.Strategy).WithSymbol(bar.Symbol)
	}

	// Hard stop against the bar low, filled at the stop level.
	if pos.StopLevel > 0 && bar.Low <= pos.StopLevel {
		return s.exit(bar, pos, pos.Quantity, pos.StopLevel, reasonStopLoss)
	}

	// Trailing stop only once armed; the stop never moves down.
	if pos.TrailingArmed {
		if raised := strat.TrailingStop(pos, snap); raised > pos.StopLevel {
			pos.StopLevel = raised
		}
		if bar.Low <= pos.StopLevel {
			return s.exit(bar, pos, pos.Quantity, pos.StopLevel, reasonTrailingStop)
		}
	}

	// Take-profit against the bar high; tiered targets may fill more
	// than once within a single wide bar.
	for {
		pos = s.pf.Position(bar.Symbol)
		if pos == nil {
			return nil
		}
		target, fraction, ok := strat.TakeProfit(pos, snap)
		if !ok || bar.High < target {
			break
		}
		qty := s.tierQuantity(pos, fraction)
		pos.TiersTaken++
		if err := s.exit(bar, pos, qty, target, reasonTakeProfit); err != nil {
			return err
		}
	}

	// Regime-change exit after three bars away from home.
	pos = s.pf.Position(bar.Symbol)
	if pos == nil {
		return nil
	}
	if s.signals.CurrentRegime() != strat.Home() {
		pos.RegimeExitBars++
	} else {
		pos.RegimeExitBars = 0
	}
	if pos.RegimeExitBars >= regimeExitBars {
		return s.exit(bar, pos, pos.Quantity, bar.Close, reasonRegimeChange)
	}
	return nil
}

// tierQuantity converts a tier fraction of the initial quantity into a
// lot-aligned share count, never exceeding what remains.
func (s *Simulator) tierQuantity(pos *portfolio.Position, fraction float64) int64 {
	lot := s.prepared.Meta().LotSize
	if lot <= 0 {
		lot = types.DefaultLotSize
	}
	qty := int64(fraction * float64(pos.InitialQty))
	qty -= qty % lot
	if qty <= 0 || qty > pos.Quantity {
		qty = pos.Quantity
	}
	return qty
}

// enter sizes, validates and fills a buy at the bar close plus
// slippage. Risk rejections are absorbed and counted.
func (s *Simulator) enter(sig *signal.Signal) error {
	meta := s.prepared.Meta()
	winRate := s.signals.Guard().WinRate(sig.Strategy)
	qty := s.riskMgr.Size(sig, winRate, meta)
	if qty <= 0 {
		s.rejected++
		return nil
	}

	fillPrice := sig.Price * (1 + s.slippage)
	if err := s.riskMgr.Validate(s.pf, meta, qty, fillPrice, sig.Timestamp); err != nil {
		if engineerr.CodeOf(err) == engineerr.CodeRiskRejected {
			s.rejected++
			s.log.Debug().Err(err).Str("symbol", sig.Symbol).Msg("signal blocked by risk chain")
			return nil
		}
		return err
	}

	o := order.New(sig.Symbol, order.SideBuy, order.TypeMarket, qty, sig.Price, sig.Timestamp)
	if err := o.Transition(order.StatusSubmitted, sig.Timestamp); err != nil {
		return err
	}
	fees := s.fees.Calculate(commission.Buy, fillPrice, qty, meta)
	if err := o.Fill(fillPrice, qty, fees, sig.Timestamp); err != nil {
		return err
	}
	s.orders = append(s.orders, o)

	if err := s.pf.Open(sig.Symbol, sig.Strategy, qty, fillPrice, fees.Total, sig.Timestamp); err != nil {
		return engineerr.Wrap(err, engineerr.CodeRiskRejected, "backtest", "fill exceeded cash").
			WithSymbol(sig.Symbol)
	}
	pos := s.pf.Position(sig.Symbol)
	pos.StopLevel = s.strategies[sig.Strategy].InitialStop(fillPrice, s.primary.Snapshot())
	return nil
}

// exit sells qty at the trigger price minus slippage.
func (s *Simulator) exit(bar types.Candle, pos *portfolio.Position, qty int64, trigger float64, reason string) error {
	fillPrice := trigger * (1 - s.slippage)
	meta := s.prepared.Meta()

	o := order.New(bar.Symbol, order.SideSell, order.TypeMarket, qty, trigger, bar.Timestamp)
	if err := o.Transition(order.StatusSubmitted, bar.Timestamp); err != nil {
		return err
	}
	fees := s.fees.Calculate(commission.Sell, fillPrice, qty, meta)
	if err := o.Fill(fillPrice, qty, fees, bar.Timestamp); err != nil {
		return err
	}
	s.orders = append(s.orders, o)

	trade, err := s.pf.Close(bar.Symbol, qty, fillPrice, fees.Total, bar.Timestamp, reason)
	if err != nil {
		return engineerr.Wrap(err, engineerr.CodeInvalidArgument, "backtest", "exit fill failed").
			WithSymbol(bar.Symbol)
	}
	s.signals.Guard().RecordTrade(trade.Strategy, trade.PnL > 0)
	s.log.Debug().Str("symbol", bar.Symbol).Str("reason", reason).
		Float64("pnl", trade.PnL).Int64("qty", qty).Msg("position reduced")
	return nil
}

// closeAtEnd liquidates any remaining open position at the final close
// so the run's trade list is complete.
func (s *Simulator) closeAtEnd(total int) {
	if total == 0 {
		return
	}
	last := s.prepared.At(total - 1)
	if pos := s.pf.Position(last.Symbol); pos != nil {
		if err := s.exit(last.Candle, pos, pos.Quantity, last.Close, reasonEndOfRun); err != nil {
			s.log.Warn().Err(err).Msg("end-of-run liquidation failed")
			return
		}
		// The last bar's snapshot predates this exit; record another
		// point so the curve carries the liquidation fees and slippage.
		s.pf.Snapshot(last.Timestamp, map[string]float64{last.Symbol: last.Close})
	}
}
