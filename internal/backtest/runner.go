package backtest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/hkquant/equity-backtest/internal/commission"
	"github.com/hkquant/equity-backtest/internal/data"
	"github.com/hkquant/equity-backtest/internal/engineerr"
	"github.com/hkquant/equity-backtest/internal/monitoring"
	"github.com/hkquant/equity-backtest/internal/risk"
	"github.com/hkquant/equity-backtest/internal/signal"
	"github.com/hkquant/equity-backtest/internal/strategy"
)

// ProgressFunc receives replay progress: bars processed out of total.
type ProgressFunc func(done, total int)

// progressEvery is how many measured bars pass between progress
// callbacks.
const progressEvery = 500

// Runner drives the full backtest flow: prepare, replay, measure.
type Runner struct {
	pipeline *data.Pipeline
	log      zerolog.Logger
	progress ProgressFunc
}

// NewRunner creates a runner over the given data pipeline.
func NewRunner(pipeline *data.Pipeline, log zerolog.Logger) *Runner {
	return &Runner{pipeline: pipeline, log: log}
}

// WithProgress installs a progress callback.
func (r *Runner) WithProgress(fn ProgressFunc) *Runner {
	r.progress = fn
	return r
}

// Run executes one backtest request end to end. The returned Result is
// never nil: failures carry the error code, and cancellation or
// late-phase failures keep the partial trades and equity curve.
func (r *Runner) Run(ctx context.Context, req Request) *Result {
	started := time.Now()
	req.Normalize()

	finish := func(res *Result) *Result {
		res.ExecutionTimeMs = time.Since(started).Milliseconds()
		res.ReportGeneratedAt = time.Now()
		status := "success"
		if !res.Success {
			status = res.ErrorCode
		}
		monitoring.RecordRun(status, time.Since(started).Seconds())
		return res
	}

	if err := req.Validate(); err != nil {
		r.log.Error().Err(err).Str("symbol", req.Symbol).Msg("request rejected")
		return finish(failed(req, err))
	}

	prepared, err := r.pipeline.Prepare(ctx, req.Symbol, req.Interval, req.StartTime, req.EndTime)
	if err != nil {
		res := failed(req, err)
		var qerr *data.QualityError
		if errors.As(err, &qerr) {
			res.QualityScore = qerr.Report.Score()
		}
		return finish(res)
	}

	fees := commission.NewSchedule()
	if req.CommissionRate > 0 {
		fees = fees.WithCommissionRate(req.CommissionRate)
	}

	var signals *signal.Engine
	if req.Strategy == StrategyAdaptive {
		signals = signal.NewAdaptive(r.log)
	} else {
		signals = signal.NewFixed(strategy.ForName(req.Strategy), r.log)
	}

	riskMgr := risk.NewManager(risk.DefaultLimits(req.InitialCapital), fees)
	sim := NewSimulator(prepared, signals, riskMgr, fees, req.InitialCapital, req.SlippageRate, r.log)

	runErr := r.replay(ctx, sim, prepared.Len())

	result := &Result{
		Success:        runErr == nil,
		Symbol:         req.Symbol,
		Strategy:       req.Strategy,
		Interval:       req.Interval,
		InitialCapital: req.InitialCapital,
		QualityScore:   prepared.Quality().Score(),
	}
	if runErr != nil {
		result.ErrorCode = string(engineerr.CodeOf(runErr))
		result.ErrorMessage = runErr.Error()
	}

	pf := sim.Portfolio()
	computeMetrics(result, pf.Trades(), pf.EquityCurve(), pf.MaxDrawdown(), req.Interval)
	result.RejectedSignals = sim.RejectedSignals()
	monitoring.SetQualityScore(req.Symbol, result.QualityScore)
	for _, tr := range pf.Trades() {
		monitoring.RecordTrade(tr.Symbol, tr.ExitReason)
	}
	for i := 0; i < result.RejectedSignals; i++ {
		monitoring.RecordRejectedSignal(req.Symbol)
	}
	if req.GenerateDetailedReport {
		result.RegimeChanges = signals.RegimeChanges()
	}

	r.log.Info().Str("symbol", req.Symbol).Str("strategy", req.Strategy).
		Bool("success", result.Success).Int("trades", result.TotalTrades).
		Float64("return_rate", result.ReturnRate).
		Int64("elapsed_ms", time.Since(started).Milliseconds()).
		Msg("backtest finished")
	return finish(result)
}

// replay runs the simulator, emitting progress callbacks around it.
// The simulator checks cancellation at every bar internally; progress
// granularity only affects reporting.
func (r *Runner) replay(ctx context.Context, sim *Simulator, total int) error {
	if r.progress != nil {
		r.progress(0, total)
		defer r.progress(total, total)
		sim.onBar = func(done int) {
			if done%progressEvery == 0 {
				r.progress(done, total)
			}
		}
	}
	return sim.Run(ctx)
}
