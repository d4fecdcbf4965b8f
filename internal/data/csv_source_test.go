package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkquant/equity-backtest/internal/calendar"
	"github.com/hkquant/equity-backtest/pkg/types"
)

func writeDataFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestCSVSourceFetchCandles(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "00700.HK_30m.csv",
		"timestamp,open,high,low,close,volume,turnover\n"+
			"2024-06-03 10:00:00,100.0,101.0,99.5,100.5,20000,2010000\n"+
			"2024-06-03 10:30:00,100.5,102.0,100.0,101.5,25000,2530000\n"+
			"2024-06-03 11:00:00,101.5,101.8,100.8,101.0,18000,1820000\n")

	src := NewCSVSource(dir, zerolog.Nop())
	from := time.Date(2024, 6, 3, 10, 0, 0, 0, calendar.HongKong)
	to := time.Date(2024, 6, 3, 10, 30, 0, 0, calendar.HongKong)

	candles, err := src.FetchCandles(context.Background(), "00700.HK", types.Interval30m, from.Unix(), to.Unix())
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, "00700.HK", candles[0].Symbol)
	assert.True(t, candles[0].Timestamp.Equal(from))
	assert.Equal(t, 100.5, candles[0].Close)
	assert.Equal(t, 2530000.0, candles[1].Turnover)
}

func TestCSVSourceSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "00700.HK_30m.csv",
		"timestamp,open,high,low,close,volume\n"+
			"not-a-date,100,101,99,100,1000\n"+
			"2024-06-03 10:00:00,100,101,99,abc,1000\n"+
			"2024-06-03 10:30:00,100,101\n"+
			"2024-06-03 11:00:00,100.0,101.0,99.5,100.5,20000\n")

	src := NewCSVSource(dir, zerolog.Nop())
	candles, err := src.FetchCandles(context.Background(), "00700.HK", types.Interval30m, 0, time.Now().Unix())
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 100.5, candles[0].Close)
}

func TestCSVSourceMissingCandleFile(t *testing.T) {
	src := NewCSVSource(t.TempDir(), zerolog.Nop())
	_, err := src.FetchCandles(context.Background(), "00700.HK", types.Interval30m, 0, 1)
	assert.Error(t, err)
}

func TestCSVSourceCustomFormat(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "00700.HK_1d.csv",
		"date,close,open,high,low,volume\n"+
			"2024-06-03,101.0,100.0,102.0,99.0,50000\n")

	src := NewCSVSource(dir, zerolog.Nop()).WithFormat(CSVColumnMapping{
		TimestampCol: 0,
		CloseCol:     1,
		OpenCol:      2,
		HighCol:      3,
		LowCol:       4,
		VolumeCol:    5,
		TurnoverCol:  -1,
		MinColumns:   6,
		DateFormat:   "2006-01-02",
	})

	candles, err := src.FetchCandles(context.Background(), "00700.HK", types.Interval1d, 0, time.Now().Unix())
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 101.0, candles[0].Close)
	assert.Equal(t, 102.0, candles[0].High)
	assert.Zero(t, candles[0].Turnover)
}

func TestCSVSourceFetchCorporateActions(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "00700.HK_actions.csv",
		"ex_date,kind,v1,v2,v3\n"+
			"2024-05-17,DIVIDEND,3.40\n"+
			"2023-01-09,SPLIT,1,2\n"+
			"2022-07-04,RIGHTS_ISSUE,10,1,28.00\n"+
			"2022-01-01,SOMETHING_ELSE,1\n")

	src := NewCSVSource(dir, zerolog.Nop())
	actions, err := src.FetchCorporateActions(context.Background(), "00700.HK")
	require.NoError(t, err)
	require.Len(t, actions, 3)

	assert.Equal(t, types.ActionDividend, actions[0].Kind)
	assert.Equal(t, 3.40, actions[0].Dividend)
	assert.Equal(t, 2.0, actions[1].SplitRatio)
	assert.Equal(t, 28.00, actions[2].RightsPrice)
}

func TestCSVSourceNoActionsFile(t *testing.T) {
	src := NewCSVSource(t.TempDir(), zerolog.Nop())
	actions, err := src.FetchCorporateActions(context.Background(), "00700.HK")
	require.NoError(t, err)
	assert.Nil(t, actions)
}

func TestCSVSourceCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewCSVSource(t.TempDir(), zerolog.Nop())
	_, err := src.FetchCandles(ctx, "00700.HK", types.Interval30m, 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
