// Package data prepares quality-gated, corporate-action-adjusted candle
// sequences with an indicator warm-up prefix for the backtest engine.
package data

import (
	"context"
	"errors"

	"github.com/hkquant/equity-backtest/pkg/types"
)

// Source is the external market-data collaborator.
type Source interface {
	// FetchCandles returns raw candles for [start, end] inclusive.
	FetchCandles(ctx context.Context, symbol string, interval types.Interval, start, end int64) ([]types.Candle, error)

	// FetchCorporateActions returns all known corporate actions for the
	// symbol.
	FetchCorporateActions(ctx context.Context, symbol string) ([]types.CorporateAction, error)
}

// ErrRetryable wraps transient source failures. The pipeline retries
// these; any other fetch error is treated as terminal.
var ErrRetryable = errors.New("retryable source error")

// Retryable marks err as transient so the pipeline's backoff loop
// retries the fetch.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err}
}

type retryableError struct{ cause error }

func (e retryableError) Error() string { return "retryable: " + e.cause.Error() }
func (e retryableError) Unwrap() error { return e.cause }
func (e retryableError) Is(target error) bool {
	return target == ErrRetryable
}
