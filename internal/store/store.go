// Package store persists candles and corporate actions so repeated
// backtests over the same window do not refetch from the market-data
// source.
package store

import (
	"context"
	"time"

	"github.com/hkquant/equity-backtest/pkg/types"
)

// Store is the persistence collaborator for the data pipeline's cache
// layer. Implementations must be safe for concurrent use.
type Store interface {
	// SaveCandles upserts candles keyed by (symbol, interval, timestamp).
	SaveCandles(ctx context.Context, interval types.Interval, candles []types.Candle) error

	// FindCandles returns stored candles for [start, end] inclusive, in
	// chronological order.
	FindCandles(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Candle, error)

	// LatestTimestamp returns the newest stored candle time for the
	// symbol/interval, or the zero time when none are stored.
	LatestTimestamp(ctx context.Context, symbol string, interval types.Interval) (time.Time, error)

	// SaveCorporateActions upserts actions keyed by (symbol, ex-date, kind).
	SaveCorporateActions(ctx context.Context, actions []types.CorporateAction) error

	// FindCorporateActions returns all stored actions for the symbol in
	// ex-date order.
	FindCorporateActions(ctx context.Context, symbol string) ([]types.CorporateAction, error)

	// DeleteCandlesBefore removes candles older than cutoff and reports
	// how many were removed.
	DeleteCandlesBefore(ctx context.Context, symbol string, interval types.Interval, cutoff time.Time) (int64, error)

	Close() error
}
