package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkquant/equity-backtest/internal/store"
	"github.com/hkquant/equity-backtest/pkg/types"
)

type countingSource struct {
	inner       Source
	candleCalls int
	actionCalls int
	actionErr   error
}

func (c *countingSource) FetchCandles(ctx context.Context, symbol string, interval types.Interval, start, end int64) ([]types.Candle, error) {
	c.candleCalls++
	return c.inner.FetchCandles(ctx, symbol, interval, start, end)
}

func (c *countingSource) FetchCorporateActions(ctx context.Context, symbol string) ([]types.CorporateAction, error) {
	c.actionCalls++
	if c.actionErr != nil {
		return nil, c.actionErr
	}
	return c.inner.FetchCorporateActions(ctx, symbol)
}

func TestCachedSourceServesSecondFetchFromStore(t *testing.T) {
	upstream := &countingSource{inner: &gridSource{}}
	cached := NewCachedSource(upstream, store.NewMemoryStore(), zerolog.Nop())
	ctx := context.Background()

	start := pipelineStart().Unix()
	end := pipelineEnd().Unix()

	first, err := cached.FetchCandles(ctx, "00700.HK", types.Interval30m, start, end)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, 1, upstream.candleCalls)

	second, err := cached.FetchCandles(ctx, "00700.HK", types.Interval30m, start, end)
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.candleCalls, "second fetch must come from the store")
	assert.Equal(t, len(first), len(second))
	assert.True(t, first[0].Timestamp.Equal(second[0].Timestamp))
	assert.Equal(t, first[len(first)-1].Close, second[len(second)-1].Close)
}

func TestCachedSourceExtendsWindowUpstream(t *testing.T) {
	upstream := &countingSource{inner: &gridSource{}}
	cached := NewCachedSource(upstream, store.NewMemoryStore(), zerolog.Nop())
	ctx := context.Background()

	start := pipelineStart().Unix()
	_, err := cached.FetchCandles(ctx, "00700.HK", types.Interval30m, start, pipelineEnd().Unix())
	require.NoError(t, err)

	// A later end falls outside the stored coverage, so the upstream is
	// hit again.
	later := pipelineEnd().AddDate(0, 0, 7).Unix()
	_, err = cached.FetchCandles(ctx, "00700.HK", types.Interval30m, start, later)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.candleCalls)
}

func TestCachedSourceFallsBackToStoredActions(t *testing.T) {
	exDate := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)
	upstream := &countingSource{inner: &gridSource{actions: []types.CorporateAction{{
		Symbol: "00700.HK", Kind: types.ActionDividend, Dividend: 1.0, ExDate: exDate,
	}}}}
	cached := NewCachedSource(upstream, store.NewMemoryStore(), zerolog.Nop())
	ctx := context.Background()

	got, err := cached.FetchCorporateActions(ctx, "00700.HK")
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Upstream goes down; the stored copy still serves.
	upstream.actionErr = errors.New("feed down")
	got, err = cached.FetchCorporateActions(ctx, "00700.HK")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Dividend)
}

func TestCachedSourceActionErrorWithEmptyStore(t *testing.T) {
	upstream := &countingSource{inner: &gridSource{}, actionErr: errors.New("feed down")}
	cached := NewCachedSource(upstream, store.NewMemoryStore(), zerolog.Nop())

	_, err := cached.FetchCorporateActions(context.Background(), "00700.HK")
	assert.Error(t, err)
}
