package signal

import (
	"github.com/rs/zerolog"

	"github.com/hkquant/equity-backtest/internal/indicators"
	"github.com/hkquant/equity-backtest/internal/regime"
	"github.com/hkquant/equity-backtest/internal/strategy"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// Engine runs the layered filter. In adaptive mode the regime selects
// the strategy per bar; in fixed mode a single strategy is consulted
// and its home regime must match.
type Engine struct {
	byRegime map[regime.Type]strategy.Strategy
	fixed    strategy.Strategy
	guard    *Guard
	detector *regime.Detector
	log      zerolog.Logger
}

// NewAdaptive creates an engine that dispatches on the detected regime.
func NewAdaptive(log zerolog.Logger) *Engine {
	e := &Engine{
		byRegime: make(map[regime.Type]strategy.Strategy),
		guard:    NewGuard(),
		detector: regime.NewDetector(),
		log:      log,
	}
	for _, s := range strategy.All() {
		e.byRegime[s.Home()] = s
	}
	return e
}

// NewFixed creates an engine locked to one strategy.
func NewFixed(s strategy.Strategy, log zerolog.Logger) *Engine {
	e := NewAdaptive(log)
	e.fixed = s
	return e
}

// Guard exposes the performance guard so the replay loop can feed
// completed trades back.
func (e *Engine) Guard() *Guard { return e.guard }

// RegimeChanges returns the regime transitions observed so far.
func (e *Engine) RegimeChanges() []regime.Change { return e.detector.Changes() }

// CurrentRegime returns the regime as of the last observed bar.
func (e *Engine) CurrentRegime() regime.Type { return e.detector.Current() }

// ObserveRegime classifies the bar without running the entry layers.
// The replay loop calls this every bar so regime-change exits see fresh
// state even while a position is open; re-observing the same bar inside
// Evaluate is a no-op.
func (e *Engine) ObserveRegime(primary indicators.Snapshot) regime.Type {
	return e.detector.Observe(primary)
}

// Evaluate emits at most one signal for the bar. primary is the 30m
// snapshot after the bar's update; confirm is the latest completed
// 120m snapshot.
func (e *Engine) Evaluate(c types.Candle, primary, confirm indicators.Snapshot) *Signal {
	current := e.detector.Observe(primary)
	if current == regime.Neutral {
		return nil
	}

	strat := e.byRegime[current]
	if e.fixed != nil {
		if e.fixed.Home() != current {
			return nil
		}
		strat = e.fixed
	}
	if strat == nil || e.guard.Suppressed(strat.Name()) {
		return nil
	}

	scores := Scores{
		MarketState: marketStateScore(primary),
		MACD:        macdScore(primary, confirm),
		Bollinger:   bollScore(primary),
		Volume:      volumeScore(primary),
	}
	if scores.MarketState < passMarketState ||
		scores.MACD < passMACD ||
		scores.Bollinger < passBollinger ||
		scores.Volume < passVolume {
		return nil
	}

	strength := weightMarketState*scores.MarketState +
		weightMACD*scores.MACD +
		weightBollinger*scores.Bollinger +
		weightVolume*scores.Volume
	if strength < minStrength {
		return nil
	}

	if !resonance(primary, confirm) {
		return nil
	}
	if !strat.Entry(c, primary, confirm) {
		return nil
	}

	e.log.Debug().Str("symbol", c.Symbol).Time("ts", c.Timestamp).
		Str("strategy", strat.Name()).Str("regime", current.String()).
		Float64("strength", strength).Msg("signal produced")

	return &Signal{
		Symbol:    c.Symbol,
		Timestamp: c.Timestamp,
		Side:      SideBuy,
		Strategy:  strat.Name(),
		Regime:    current,
		Price:     c.Close,
		Strength:  strength,
		Scores:    scores,
		ATR:       primary.ATR,
		ATRRatio:  clamp(primary.ATRVsMean, 0.5, 1.5),
	}
}
