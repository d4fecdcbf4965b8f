package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/hkquant/equity-backtest/pkg/types"
)

// PostgresConfig holds connection settings for the candle store.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// DefaultPostgresConfig returns conservative pool defaults.
func DefaultPostgresConfig(dsn string) PostgresConfig {
	return PostgresConfig{
		DSN:             dsn,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    30 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS candles (
    symbol    TEXT             NOT NULL,
    interval  TEXT             NOT NULL,
    ts        TIMESTAMPTZ      NOT NULL,
    open      DOUBLE PRECISION NOT NULL,
    high      DOUBLE PRECISION NOT NULL,
    low       DOUBLE PRECISION NOT NULL,
    close     DOUBLE PRECISION NOT NULL,
    volume    DOUBLE PRECISION NOT NULL,
    turnover  DOUBLE PRECISION NOT NULL DEFAULT 0,
    PRIMARY KEY (symbol, interval, ts)
);

CREATE TABLE IF NOT EXISTS corporate_actions (
    symbol       TEXT             NOT NULL,
    ex_date      TIMESTAMPTZ      NOT NULL,
    kind         TEXT             NOT NULL,
    dividend     DOUBLE PRECISION NOT NULL DEFAULT 0,
    split_base   DOUBLE PRECISION NOT NULL DEFAULT 0,
    split_ratio  DOUBLE PRECISION NOT NULL DEFAULT 0,
    join_base    DOUBLE PRECISION NOT NULL DEFAULT 0,
    join_ratio   DOUBLE PRECISION NOT NULL DEFAULT 0,
    bonus_base   DOUBLE PRECISION NOT NULL DEFAULT 0,
    bonus_ratio  DOUBLE PRECISION NOT NULL DEFAULT 0,
    rights_base  DOUBLE PRECISION NOT NULL DEFAULT 0,
    rights_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
    rights_price DOUBLE PRECISION NOT NULL DEFAULT 0,
    adj_factor   DOUBLE PRECISION NOT NULL DEFAULT 0,
    PRIMARY KEY (symbol, ex_date, kind)
);
`

// PostgresStore is the Store backed by PostgreSQL.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
	log     zerolog.Logger
}

// NewPostgresStore opens the pool, verifies connectivity and ensures the
// schema exists.
func NewPostgresStore(cfg PostgresConfig, log zerolog.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres store needs a DSN")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresStore{db: db, timeout: cfg.QueryTimeout, log: log}, nil
}

type candleRow struct {
	Symbol   string    `db:"symbol"`
	Interval string    `db:"interval"`
	TS       time.Time `db:"ts"`
	Open     float64   `db:"open"`
	High     float64   `db:"high"`
	Low      float64   `db:"low"`
	Close    float64   `db:"close"`
	Volume   float64   `db:"volume"`
	Turnover float64   `db:"turnover"`
}

// SaveCandles implements Store.
func (s *PostgresStore) SaveCandles(ctx context.Context, interval types.Interval, candles []types.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin candle upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, interval, ts, open, high, low, close, volume, turnover)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, interval, ts) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume, turnover = EXCLUDED.turnover`)
	if err != nil {
		return fmt.Errorf("prepare candle upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.Symbol, string(interval), c.Timestamp,
			c.Open, c.High, c.Low, c.Close, c.Volume, c.Turnover); err != nil {
			return fmt.Errorf("upsert candle %s@%s: %w", c.Symbol, c.Timestamp.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

// FindCandles implements Store.
func (s *PostgresStore) FindCandles(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []candleRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT symbol, interval, ts, open, high, low, close, volume, turnover
		FROM candles
		WHERE symbol = $1 AND interval = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC`, symbol, string(interval), start, end)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}

	out := make([]types.Candle, len(rows))
	for i, r := range rows {
		out[i] = types.Candle{
			Symbol: r.Symbol, Timestamp: r.TS,
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Close,
			Volume: r.Volume, Turnover: r.Turnover,
		}
	}
	return out, nil
}

// LatestTimestamp implements Store.
func (s *PostgresStore) LatestTimestamp(ctx context.Context, symbol string, interval types.Interval) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var ts time.Time
	err := s.db.GetContext(ctx, &ts, `
		SELECT ts FROM candles
		WHERE symbol = $1 AND interval = $2
		ORDER BY ts DESC LIMIT 1`, symbol, string(interval))
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest candle: %w", err)
	}
	return ts, nil
}

// SaveCorporateActions implements Store.
func (s *PostgresStore) SaveCorporateActions(ctx context.Context, actions []types.CorporateAction) error {
	if len(actions) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin action upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO corporate_actions (symbol, ex_date, kind, dividend,
			split_base, split_ratio, join_base, join_ratio,
			bonus_base, bonus_ratio, rights_base, rights_ratio, rights_price, adj_factor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (symbol, ex_date, kind) DO UPDATE SET
			dividend = EXCLUDED.dividend,
			split_base = EXCLUDED.split_base, split_ratio = EXCLUDED.split_ratio,
			join_base = EXCLUDED.join_base, join_ratio = EXCLUDED.join_ratio,
			bonus_base = EXCLUDED.bonus_base, bonus_ratio = EXCLUDED.bonus_ratio,
			rights_base = EXCLUDED.rights_base, rights_ratio = EXCLUDED.rights_ratio,
			rights_price = EXCLUDED.rights_price, adj_factor = EXCLUDED.adj_factor`)
	if err != nil {
		return fmt.Errorf("prepare action upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range actions {
		if _, err := stmt.ExecContext(ctx, a.Symbol, a.ExDate, string(a.Kind), a.Dividend,
			a.SplitBase, a.SplitRatio, a.JoinBase, a.JoinRatio,
			a.BonusBase, a.BonusRatio, a.RightsBase, a.RightsRatio, a.RightsPrice,
			a.BackwardAdjFactor); err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				return fmt.Errorf("upsert action %s/%s (pq %s): %w", a.Symbol, a.Kind, pqErr.Code, err)
			}
			return fmt.Errorf("upsert action %s/%s: %w", a.Symbol, a.Kind, err)
		}
	}
	return tx.Commit()
}

type actionRow struct {
	Symbol      string    `db:"symbol"`
	ExDate      time.Time `db:"ex_date"`
	Kind        string    `db:"kind"`
	Dividend    float64   `db:"dividend"`
	SplitBase   float64   `db:"split_base"`
	SplitRatio  float64   `db:"split_ratio"`
	JoinBase    float64   `db:"join_base"`
	JoinRatio   float64   `db:"join_ratio"`
	BonusBase   float64   `db:"bonus_base"`
	BonusRatio  float64   `db:"bonus_ratio"`
	RightsBase  float64   `db:"rights_base"`
	RightsRatio float64   `db:"rights_ratio"`
	RightsPrice float64   `db:"rights_price"`
	AdjFactor   float64   `db:"adj_factor"`
}

// FindCorporateActions implements Store.
func (s *PostgresStore) FindCorporateActions(ctx context.Context, symbol string) ([]types.CorporateAction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []actionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT symbol, ex_date, kind, dividend,
			split_base, split_ratio, join_base, join_ratio,
			bonus_base, bonus_ratio, rights_base, rights_ratio, rights_price, adj_factor
		FROM corporate_actions
		WHERE symbol = $1
		ORDER BY ex_date ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query corporate actions: %w", err)
	}

	out := make([]types.CorporateAction, len(rows))
	for i, r := range rows {
		out[i] = types.CorporateAction{
			Symbol: r.Symbol, ExDate: r.ExDate, Kind: types.ActionKind(r.Kind),
			Dividend:  r.Dividend,
			SplitBase: r.SplitBase, SplitRatio: r.SplitRatio,
			JoinBase: r.JoinBase, JoinRatio: r.JoinRatio,
			BonusBase: r.BonusBase, BonusRatio: r.BonusRatio,
			RightsBase: r.RightsBase, RightsRatio: r.RightsRatio, RightsPrice: r.RightsPrice,
			BackwardAdjFactor: r.AdjFactor,
		}
	}
	return out, nil
}

// DeleteCandlesBefore implements Store.
func (s *PostgresStore) DeleteCandlesBefore(ctx context.Context, symbol string, interval types.Interval, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM candles
		WHERE symbol = $1 AND interval = $2 AND ts < $3`, symbol, string(interval), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale candles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted candles: %w", err)
	}
	if n > 0 {
		s.log.Debug().Str("symbol", symbol).Int64("deleted", n).Msg("stale candles removed")
	}
	return n, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }
