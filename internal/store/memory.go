package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hkquant/equity-backtest/pkg/types"
)

// MemoryStore is the in-process Store used by tests and by runs that
// have no database configured.
type MemoryStore struct {
	mu      sync.RWMutex
	candles map[string][]types.Candle // key symbol|interval, sorted by time
	actions map[string][]types.CorporateAction
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candles: make(map[string][]types.Candle),
		actions: make(map[string][]types.CorporateAction),
	}
}

func candleKey(symbol string, interval types.Interval) string {
	return symbol + "|" + string(interval)
}

// SaveCandles implements Store.
func (s *MemoryStore) SaveCandles(ctx context.Context, interval types.Interval, candles []types.Candle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range candles {
		key := candleKey(c.Symbol, interval)
		existing := s.candles[key]
		idx := sort.Search(len(existing), func(i int) bool {
			return !existing[i].Timestamp.Before(c.Timestamp)
		})
		if idx < len(existing) && existing[idx].Timestamp.Equal(c.Timestamp) {
			existing[idx] = c
			continue
		}
		existing = append(existing, types.Candle{})
		copy(existing[idx+1:], existing[idx:])
		existing[idx] = c
		s.candles[key] = existing
	}
	return nil
}

// FindCandles implements Store.
func (s *MemoryStore) FindCandles(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Candle
	for _, c := range s.candles[candleKey(symbol, interval)] {
		if c.Timestamp.Before(start) || c.Timestamp.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// LatestTimestamp implements Store.
func (s *MemoryStore) LatestTimestamp(ctx context.Context, symbol string, interval types.Interval) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.candles[candleKey(symbol, interval)]
	if len(stored) == 0 {
		return time.Time{}, nil
	}
	return stored[len(stored)-1].Timestamp, nil
}

// SaveCorporateActions implements Store.
func (s *MemoryStore) SaveCorporateActions(ctx context.Context, actions []types.CorporateAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range actions {
		existing := s.actions[a.Symbol]
		replaced := false
		for i, old := range existing {
			if old.ExDate.Equal(a.ExDate) && old.Kind == a.Kind {
				existing[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, a)
			sort.Slice(existing, func(i, j int) bool {
				return existing[i].ExDate.Before(existing[j].ExDate)
			})
		}
		s.actions[a.Symbol] = existing
	}
	return nil
}

// FindCorporateActions implements Store.
func (s *MemoryStore) FindCorporateActions(ctx context.Context, symbol string) ([]types.CorporateAction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.actions[symbol]
	out := make([]types.CorporateAction, len(stored))
	copy(out, stored)
	return out, nil
}

// DeleteCandlesBefore implements Store.
func (s *MemoryStore) DeleteCandlesBefore(ctx context.Context, symbol string, interval types.Interval, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := candleKey(symbol, interval)
	stored := s.candles[key]
	idx := sort.Search(len(stored), func(i int) bool {
		return !stored[i].Timestamp.Before(cutoff)
	})
	if idx == 0 {
		return 0, nil
	}
	s.candles[key] = append([]types.Candle(nil), stored[idx:]...)
	return int64(idx), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
