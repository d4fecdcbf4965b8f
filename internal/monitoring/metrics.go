// Package monitoring exposes Prometheus metrics and a health endpoint
// for long-running batch backtest sessions.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Completed backtest runs by terminal status",
		},
		[]string{"status"},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall-clock duration of one backtest run",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_signals_total",
			Help: "Signals produced by the signal engine",
		},
		[]string{"symbol", "strategy"},
	)

	rejectedSignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_rejected_signals_total",
			Help: "Signals absorbed by the risk chain",
		},
		[]string{"symbol"},
	)

	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Closed trades by symbol and exit reason",
		},
		[]string{"symbol", "reason"},
	)

	qualityScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backtest_data_quality_score",
			Help: "Quality score of the most recent prepared data, 0-100",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(signalsTotal)
	prometheus.MustRegister(rejectedSignalsTotal)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(qualityScore)
}

// MetricsHandler serves the Prometheus scrape endpoint.
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler { return &MetricsHandler{} }

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordRun records one finished run. status is "success" or the error
// code of the failure.
func RecordRun(status string, seconds float64) {
	runsTotal.WithLabelValues(status).Inc()
	runDuration.Observe(seconds)
}

// RecordSignal counts one produced signal.
func RecordSignal(symbol, strategy string) {
	signalsTotal.WithLabelValues(symbol, strategy).Inc()
}

// RecordRejectedSignal counts one risk-absorbed signal.
func RecordRejectedSignal(symbol string) {
	rejectedSignalsTotal.WithLabelValues(symbol).Inc()
}

// RecordTrade counts one closed trade.
func RecordTrade(symbol, reason string) {
	tradesTotal.WithLabelValues(symbol, reason).Inc()
}

// SetQualityScore publishes the prepared-data quality score.
func SetQualityScore(symbol string, score float64) {
	qualityScore.WithLabelValues(symbol).Set(score)
}
