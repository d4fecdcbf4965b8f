package data

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hkquant/equity-backtest/internal/store"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// CachedSource wraps a Source with a candle store. A fetch is served
// from the store when it already covers the requested range; otherwise
// the upstream source is hit and the result persisted for the next run.
// Store failures degrade to the upstream source rather than failing the
// fetch.
type CachedSource struct {
	upstream Source
	store    store.Store
	log      zerolog.Logger
}

// NewCachedSource wraps upstream with st.
func NewCachedSource(upstream Source, st store.Store, log zerolog.Logger) *CachedSource {
	return &CachedSource{upstream: upstream, store: st, log: log}
}

// FetchCandles implements Source.
func (c *CachedSource) FetchCandles(ctx context.Context, symbol string, interval types.Interval, start, end int64) ([]types.Candle, error) {
	startT, endT := time.Unix(start, 0), time.Unix(end, 0)

	latest, err := c.store.LatestTimestamp(ctx, symbol, interval)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("candle store unavailable, fetching upstream")
	} else if !latest.Before(endT) {
		cached, err := c.store.FindCandles(ctx, symbol, interval, startT, endT)
		if err == nil && len(cached) > 0 {
			c.log.Debug().Str("symbol", symbol).Int("candles", len(cached)).Msg("served candles from store")
			return cached, nil
		}
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("candle store read failed, fetching upstream")
		}
	}

	fetched, err := c.upstream.FetchCandles(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveCandles(ctx, interval, fetched); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("candle store write failed")
	}
	return fetched, nil
}

// FetchCorporateActions implements Source. Actions change rarely, so the
// store copy is refreshed only when the upstream succeeds.
func (c *CachedSource) FetchCorporateActions(ctx context.Context, symbol string) ([]types.CorporateAction, error) {
	actions, err := c.upstream.FetchCorporateActions(ctx, symbol)
	if err != nil {
		stored, serr := c.store.FindCorporateActions(ctx, symbol)
		if serr == nil && len(stored) > 0 {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("action feed down, using stored corporate actions")
			return stored, nil
		}
		return nil, err
	}
	if err := c.store.SaveCorporateActions(ctx, actions); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("action store write failed")
	}
	return actions, nil
}
