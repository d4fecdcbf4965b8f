package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkquant/equity-backtest/pkg/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `{
	"start_date": "2024-06-03",
	"end_date": "2024-06-21",
	"runs": [{"symbol": "00700.HK", "strategy": "MACD"}],
	"data": {"source": "csv", "dir": "./testdata"}
}`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, types.Interval30m, cfg.Interval)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultCapital, cfg.InitialCapital)
	assert.True(t, cfg.Output.Console)
	assert.False(t, cfg.Store.Enabled)
}

func TestLoadFullDocument(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"interval": "1d",
		"start_date": "2024-01-02",
		"end_date": "2024-06-28",
		"initial_capital": 500000,
		"commission_rate": 0.001,
		"workers": 8,
		"runs": [
			{"symbol": "00700.HK", "strategy": "MACD"},
			{"symbol": "00005.HK", "strategy": "BOLL", "initial_capital": 250000}
		],
		"data": {"source": "csv", "dir": "/data/hk"},
		"store": {"enabled": true, "dsn": "postgres://localhost/backtest"},
		"output": {"console": true, "json_dir": "./reports"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, types.Interval1d, cfg.Interval)
	assert.Equal(t, 8, cfg.Workers)
	assert.Len(t, cfg.Runs, 2)
	assert.Equal(t, 500000.0, cfg.CapitalFor(cfg.Runs[0]))
	assert.Equal(t, 250000.0, cfg.CapitalFor(cfg.Runs[1]))
	assert.True(t, cfg.Store.Enabled)

	start, err := cfg.Start()
	require.NoError(t, err)
	end, err := cfg.End()
	require.NoError(t, err)
	assert.True(t, end.After(start))
	assert.Equal(t, "Asia/Hong_Kong", start.Location().String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	_, err := Load(writeConfig(t, `{"runs": [`))
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "no runs",
			body: `{"start_date":"2024-06-03","end_date":"2024-06-21","runs":[],"data":{"source":"csv","dir":"x"}}`,
			want: "no runs",
		},
		{
			name: "run without symbol",
			body: `{"start_date":"2024-06-03","end_date":"2024-06-21","runs":[{"strategy":"MACD"}],"data":{"source":"csv","dir":"x"}}`,
			want: "no symbol",
		},
		{
			name: "run without strategy",
			body: `{"start_date":"2024-06-03","end_date":"2024-06-21","runs":[{"symbol":"00700.HK"}],"data":{"source":"csv","dir":"x"}}`,
			want: "no strategy",
		},
		{
			name: "bad interval",
			body: `{"interval":"7m","start_date":"2024-06-03","end_date":"2024-06-21","runs":[{"symbol":"00700.HK","strategy":"MACD"}],"data":{"source":"csv","dir":"x"}}`,
			want: "interval",
		},
		{
			name: "end before start",
			body: `{"start_date":"2024-06-21","end_date":"2024-06-03","runs":[{"symbol":"00700.HK","strategy":"MACD"}],"data":{"source":"csv","dir":"x"}}`,
			want: "not after",
		},
		{
			name: "bad date format",
			body: `{"start_date":"03/06/2024","end_date":"2024-06-21","runs":[{"symbol":"00700.HK","strategy":"MACD"}],"data":{"source":"csv","dir":"x"}}`,
			want: "YYYY-MM-DD",
		},
		{
			name: "csv without dir",
			body: `{"start_date":"2024-06-03","end_date":"2024-06-21","runs":[{"symbol":"00700.HK","strategy":"MACD"}],"data":{"source":"csv"}}`,
			want: "data.dir",
		},
		{
			name: "unknown source",
			body: `{"start_date":"2024-06-03","end_date":"2024-06-21","runs":[{"symbol":"00700.HK","strategy":"MACD"}],"data":{"source":"ftp","dir":"x"}}`,
			want: "data source",
		},
		{
			name: "store without dsn",
			body: `{"start_date":"2024-06-03","end_date":"2024-06-21","runs":[{"symbol":"00700.HK","strategy":"MACD"}],"data":{"source":"csv","dir":"x"},"store":{"enabled":true}}`,
			want: "DSN",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEnvOverridesDSN(t *testing.T) {
	t.Setenv("BACKTEST_PG_DSN", "postgres://env/backtest")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, "postgres://env/backtest", cfg.Store.DSN)
}

func TestEnvOverridesWorkers(t *testing.T) {
	t.Setenv("BACKTEST_WORKERS", "12")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Workers)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "session.env")
	require.NoError(t, os.WriteFile(envPath, []byte("BACKTEST_TEST_SENTINEL=on\n"), 0o644))

	require.NoError(t, LoadEnv(envPath))
	assert.Equal(t, "on", os.Getenv("BACKTEST_TEST_SENTINEL"))
	t.Cleanup(func() { os.Unsetenv("BACKTEST_TEST_SENTINEL") })

	assert.Error(t, LoadEnv(filepath.Join(dir, "missing.env")))
	assert.NoError(t, LoadEnv(""))
}
