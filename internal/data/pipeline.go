package data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/hkquant/equity-backtest/internal/adjust"
	"github.com/hkquant/equity-backtest/internal/calendar"
	"github.com/hkquant/equity-backtest/internal/engineerr"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// Warm-up and retry policy.
const (
	warmupTradingDays  = 100
	warmupCalendarCap  = 200
	fetchRetries       = 3
	fetchBackoffBase   = time.Second
	fetchAttemptBudget = 30 * time.Second
	prepareBudget      = 120 * time.Second
)

// Pipeline turns raw source candles into PreparedData.
type Pipeline struct {
	source   Source
	adjuster *adjust.Adjuster
	log      zerolog.Logger
}

// NewPipeline creates a pipeline over the given market-data source.
func NewPipeline(source Source, log zerolog.Logger) *Pipeline {
	return &Pipeline{source: source, adjuster: adjust.New(), log: log}
}

// Prepare produces a PreparedData for (symbol, interval, [start, end]),
// or fails with INSUFFICIENT_DATA, QUALITY_REJECTED or
// SOURCE_UNAVAILABLE. The whole phase is bounded by a 120s budget.
func (p *Pipeline) Prepare(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) (*PreparedData, error) {
	ctx, cancel := context.WithTimeout(ctx, prepareBudget)
	defer cancel()

	warmupStart, full := calendar.WarmupStart(start, warmupTradingDays, warmupCalendarCap)
	if !full {
		p.log.Warn().Str("symbol", symbol).Time("warmup_start", warmupStart).
			Msg("fewer than 100 trading days available for warm-up, continuing")
	}

	raw, err := p.fetchWithRetry(ctx, symbol, interval, warmupStart, end)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(raw, func(i, j int) bool { return raw[i].Timestamp.Before(raw[j].Timestamp) })

	validator := NewValidator(interval)
	kept := make([]types.Candle, 0, len(raw))
	prevClose := 0.0
	for _, c := range raw {
		if validator.Check(c, prevClose) {
			kept = append(kept, c)
		}
		prevClose = c.Close
	}
	report := validator.Report()
	p.log.Debug().Str("symbol", symbol).Int("raw", len(raw)).Int("kept", len(kept)).
		Float64("score", report.Score()).Str("grade", report.Grade()).Msg("candles validated")

	if !report.Usable() {
		return nil, &QualityError{
			Cause: engineerr.New(engineerr.CodeQualityRejected, "pipeline",
				fmt.Sprintf("quality gate failed: score %.1f (%s)", report.Score(), report.Grade())).
				WithSymbol(symbol),
			Report: report,
		}
	}

	actions, err := p.source.FetchCorporateActions(ctx, symbol)
	if err != nil {
		// Corporate actions are best-effort; an unreachable action feed
		// degrades to unadjusted candles rather than failing the run.
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("corporate actions unavailable, using raw prices")
		actions = nil
	}
	adjusted, err := p.adjuster.Backward(kept, actions)
	if err != nil {
		return nil, engineerr.Wrap(err, engineerr.CodeInvalidArgument, "pipeline", "corporate action adjustment failed").WithSymbol(symbol)
	}

	warmupLen := sort.Search(len(adjusted), func(i int) bool {
		return !adjusted[i].Timestamp.Before(start)
	})
	if warmupLen < MinWarmupLen {
		return nil, engineerr.New(engineerr.CodeInsufficientData, "pipeline",
			fmt.Sprintf("warm-up has %d candles, need %d", warmupLen, MinWarmupLen)).WithSymbol(symbol)
	}
	if len(adjusted)-warmupLen < MinBacktestLen {
		return nil, engineerr.New(engineerr.CodeInsufficientData, "pipeline",
			fmt.Sprintf("backtest slice has %d candles, need %d", len(adjusted)-warmupLen, MinBacktestLen)).WithSymbol(symbol)
	}

	return &PreparedData{
		symbol:    symbol,
		interval:  interval,
		meta:      types.LookupSymbolMeta(symbol),
		candles:   adjusted,
		warmupLen: warmupLen,
		report:    report,
	}, nil
}

// fetchWithRetry retries transient fetch failures with 1s/2s/3s backoff
// and treats an empty final result as SOURCE_UNAVAILABLE.
func (p *Pipeline) fetchWithRetry(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, fetchAttemptBudget)
		candles, err := p.source.FetchCandles(attemptCtx, symbol, interval, start.Unix(), end.Unix())
		cancel()

		if err == nil && len(candles) > 0 {
			return candles, nil
		}
		if err != nil && !errors.Is(err, ErrRetryable) {
			if ctx.Err() != nil {
				return nil, engineerr.Wrap(ctx.Err(), engineerr.CodeCancelled, "pipeline", "prepare cancelled").WithSymbol(symbol)
			}
			return nil, engineerr.Wrap(err, engineerr.CodeSourceUnavailable, "pipeline", "market data fetch failed").WithSymbol(symbol)
		}
		lastErr = err
		if attempt < fetchRetries {
			backoff := time.Duration(attempt) * fetchBackoffBase
			p.log.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt).
				Dur("backoff", backoff).Msg("market data fetch retry")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, engineerr.Wrap(ctx.Err(), engineerr.CodeCancelled, "pipeline", "prepare cancelled").WithSymbol(symbol)
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("source returned no candles")
	}
	return nil, engineerr.Wrap(lastErr, engineerr.CodeSourceUnavailable, "pipeline", "market data fetch exhausted retries").WithSymbol(symbol)
}
