// Command backtest runs event-driven backtests over Hong Kong equity
// candle data and renders the results to console, JSON or Excel.
//
// Single run:
//
//	backtest -symbol 00700.HK -strategy MACD -start 2024-01-02 -end 2024-06-28 -data-dir ./data
//
// Batch session from a config file:
//
//	backtest -config session.json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/hkquant/equity-backtest/internal/backtest"
	"github.com/hkquant/equity-backtest/internal/data"
	"github.com/hkquant/equity-backtest/internal/engineerr"
	"github.com/hkquant/equity-backtest/internal/logger"
	"github.com/hkquant/equity-backtest/internal/monitoring"
	"github.com/hkquant/equity-backtest/internal/store"
	"github.com/hkquant/equity-backtest/pkg/config"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// Exit codes.
const (
	exitOK          = 0
	exitInvalidArgs = 1
	exitDataError   = 2
	exitRunFailed   = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "session config file (JSON); overrides the single-run flags")
		envFile    = flag.String("env", "", "env file to load (default: .env when present)")

		symbol   = flag.String("symbol", "", "symbol to backtest, e.g. 00700.HK")
		strat    = flag.String("strategy", "ADAPTIVE", "strategy: MACD | BOLL | VOLUME | ADAPTIVE")
		interval = flag.String("interval", "30m", "candle interval: 15m | 30m | 60m | 1d")
		start    = flag.String("start", "", "backtest start date (YYYY-MM-DD)")
		end      = flag.String("end", "", "backtest end date (YYYY-MM-DD, inclusive)")
		capital  = flag.Float64("capital", config.DefaultCapital, "initial capital in HKD")
		comm     = flag.Float64("commission", 0, "override broker commission rate (0 = HKEX default)")
		slippage = flag.Float64("slippage", 0, "override slippage rate (0 = default 0.001)")
		dataDir  = flag.String("data-dir", "./data", "directory with per-symbol CSV candle files")

		jsonDir  = flag.String("json-dir", "", "write JSON reports into this directory")
		excelDir = flag.String("excel-dir", "", "write Excel workbooks into this directory")
		detailed = flag.Bool("detailed", false, "include regime changes in the report")

		metricsAddr = flag.String("metrics-addr", "", "serve /metrics and /healthz on this address")
		verbose     = flag.Bool("verbose", false, "debug logging")
		logFile     = flag.String("log-file", "", "also append JSON logs to this file")
	)
	flag.Parse()

	if err := config.LoadEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitInvalidArgs
	}

	log, logCloser, err := logger.New(logger.Options{Verbose: *verbose, FilePath: *logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitInvalidArgs
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	cfg, err := buildSession(*configPath, sessionFlags{
		symbol: *symbol, strategy: *strat, interval: *interval,
		start: *start, end: *end, capital: *capital, dataDir: *dataDir,
		commission: *comm, slippage: *slippage,
		jsonDir: *jsonDir, excelDir: *excelDir, detailed: *detailed,
		metricsAddr: *metricsAddr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitInvalidArgs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeStore, err := buildSource(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("data source setup failed")
		return exitDataError
	}
	defer closeStore()

	health := monitoring.NewHealthChecker()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := monitoring.Serve(cfg.MetricsAddr, health); err != nil {
				log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics listener stopped")
			}
		}()
	}

	pipeline := data.NewPipeline(source, log)
	runner := backtest.NewRunner(pipeline, log)

	requests, err := buildRequests(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitInvalidArgs
	}

	if len(requests) == 1 {
		return runSingle(ctx, runner, requests[0], cfg, health, log)
	}
	return runBatch(ctx, runner, requests, cfg, health, log)
}

// sessionFlags carries the single-run command line so it can be folded
// into a SessionConfig when no config file is given.
type sessionFlags struct {
	symbol, strategy, interval string
	start, end                 string
	capital                    float64
	commission, slippage       float64
	dataDir                    string
	jsonDir, excelDir          string
	detailed                   bool
	metricsAddr                string
}

func buildSession(configPath string, fl sessionFlags) (*config.SessionConfig, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	if fl.symbol == "" {
		return nil, fmt.Errorf("either -config or -symbol is required (see -h)")
	}
	cfg := &config.SessionConfig{
		Interval:       types.Interval(fl.interval),
		StartDate:      fl.start,
		EndDate:        fl.end,
		InitialCapital: fl.capital,
		CommissionRate: fl.commission,
		SlippageRate:   fl.slippage,
		DetailedReport: fl.detailed,
		Runs:           []config.RunConfig{{Symbol: fl.symbol, Strategy: fl.strategy}},
		Data:           config.DataConfig{Source: "csv", Dir: fl.dataDir},
		Output: config.OutputConfig{
			Console:  true,
			JSONDir:  fl.jsonDir,
			ExcelDir: fl.excelDir,
		},
		MetricsAddr: fl.metricsAddr,
	}
	cfg.Workers = config.DefaultWorkers
	if dsn := os.Getenv("BACKTEST_PG_DSN"); dsn != "" {
		cfg.Store = config.StoreConfig{Enabled: true, DSN: dsn}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildSource assembles the candle source chain: CSV files, optionally
// fronted by the persistent store cache.
func buildSource(cfg *config.SessionConfig, log zerolog.Logger) (data.Source, func(), error) {
	var src data.Source = data.NewCSVSource(cfg.Data.Dir, log)

	if !cfg.Store.Enabled {
		return src, func() {}, nil
	}

	st, err := store.NewPostgresStore(store.DefaultPostgresConfig(cfg.Store.DSN), log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect candle store: %w", err)
	}
	closer := func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("closing candle store")
		}
	}
	return data.NewCachedSource(src, st, log), closer, nil
}

func buildRequests(cfg *config.SessionConfig) ([]backtest.Request, error) {
	startT, err := cfg.Start()
	if err != nil {
		return nil, err
	}
	endT, err := cfg.End()
	if err != nil {
		return nil, err
	}

	reqs := make([]backtest.Request, 0, len(cfg.Runs))
	for _, run := range cfg.Runs {
		reqs = append(reqs, backtest.Request{
			Symbol:                 run.Symbol,
			Strategy:               run.Strategy,
			Interval:               cfg.Interval,
			StartTime:              startT,
			EndTime:                endT,
			InitialCapital:         cfg.CapitalFor(run),
			CommissionRate:         cfg.CommissionRate,
			SlippageRate:           cfg.SlippageRate,
			GenerateDetailedReport: cfg.DetailedReport,
		})
	}
	return reqs, nil
}

func runSingle(ctx context.Context, runner *backtest.Runner, req backtest.Request,
	cfg *config.SessionConfig, health *monitoring.HealthChecker, log zerolog.Logger) int {

	runner.WithProgress(func(done, total int) {
		if total > 0 {
			log.Debug().Int("done", done).Int("total", total).Msg("replay progress")
		}
	})

	res := runner.Run(ctx, req)
	health.RunFinished(res.Success, res.ErrorMessage)

	if err := writeReports(cfg, map[string]*backtest.Result{
		req.Symbol + "/" + req.Strategy: res,
	}, res); err != nil {
		log.Error().Err(err).Msg("writing reports")
		return exitRunFailed
	}
	if !res.Success {
		return exitCodeFor(res.ErrorCode)
	}
	return exitOK
}

// exitCodeFor distinguishes data-preparation failures from execution
// failures in the process exit status.
func exitCodeFor(errorCode string) int {
	switch engineerr.Code(errorCode) {
	case engineerr.CodeInvalidArgument:
		return exitInvalidArgs
	case engineerr.CodeSourceUnavailable, engineerr.CodeInsufficientData, engineerr.CodeQualityRejected:
		return exitDataError
	default:
		return exitRunFailed
	}
}

func runBatch(ctx context.Context, runner *backtest.Runner, reqs []backtest.Request,
	cfg *config.SessionConfig, health *monitoring.HealthChecker, log zerolog.Logger) int {

	log.Info().Int("runs", len(reqs)).Int("workers", cfg.Workers).Msg("starting batch")
	results := backtest.RunBatch(ctx, runner, reqs, cfg.Workers)

	failures := 0
	for _, res := range results {
		health.RunFinished(res.Success, res.ErrorMessage)
		if !res.Success {
			failures++
		}
	}

	if err := writeReports(cfg, results, nil); err != nil {
		log.Error().Err(err).Msg("writing reports")
		return exitRunFailed
	}
	if failures == len(results) {
		return exitRunFailed
	}
	if failures > 0 {
		log.Warn().Int("failed", failures).Int("total", len(results)).Msg("batch finished with failures")
	}
	return exitOK
}
