package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks batch progress for the /healthz endpoint.
type HealthChecker struct {
	mu         sync.RWMutex
	lastRun    time.Time
	runsDone   int
	runsFailed int
	lastError  string
}

type HealthStatus struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	LastRun    time.Time `json:"last_run,omitempty"`
	RunsDone   int       `json:"runs_done"`
	RunsFailed int       `json:"runs_failed"`
	Uptime     string    `json:"uptime"`
	LastError  string    `json:"last_error,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// RunFinished records the outcome of one backtest run.
func (h *HealthChecker) RunFinished(ok bool, errMsg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRun = time.Now()
	h.runsDone++
	if !ok {
		h.runsFailed++
		h.lastError = errMsg
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if h.runsDone > 0 && h.runsFailed == h.runsDone {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	} else if h.runsFailed > 0 {
		status = "degraded"
	}

	health := HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		LastRun:    h.lastRun,
		RunsDone:   h.runsDone,
		RunsFailed: h.runsFailed,
		Uptime:     time.Since(startTime).String(),
		LastError:  h.lastError,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// Serve starts the metrics/health listener on addr. It blocks, so run it
// in its own goroutine; batch sessions that exit quickly simply never
// call it.
func Serve(addr string, health *HealthChecker) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewMetricsHandler())
	mux.Handle("/healthz", health)
	return http.ListenAndServe(addr, mux)
}
