package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const readinessTimeout = 5 * time.Second

// Checker reports whether a backing component (redis, clickhouse, kafka)
// can serve requests.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// StatusChecker reports a named state instead of a bare error. The
// elasticsearch client registers through this with its cluster color;
// "red" counts as down, "yellow" does not.
type StatusChecker interface {
	HealthCheck(ctx context.Context) (string, error)
}

// HealthHandler answers liveness and readiness probes. Backends register at
// startup; the grouping API itself needs none of them, so an empty handler
// reports ready.
type HealthHandler struct {
	checkers map[string]Checker
	statuses map[string]StatusChecker
	logger   *zap.Logger
}

func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checkers: make(map[string]Checker),
		statuses: make(map[string]StatusChecker),
		logger:   logger,
	}
}

func (h *HealthHandler) Register(name string, c Checker) {
	h.checkers[name] = c
}

func (h *HealthHandler) RegisterStatus(name string, c StatusChecker) {
	h.statuses[name] = c
}

type componentStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (cs componentStatus) down() bool {
	return cs.Status == "unhealthy" || cs.Status == "red"
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeProbeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness probes every registered backend in parallel and reports 503 when
// any of them is down.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	components := make(map[string]componentStatus)
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(name string, cs componentStatus) {
		mu.Lock()
		components[name] = cs
		mu.Unlock()
	}

	for name, checker := range h.checkers {
		wg.Add(1)
		go func(name string, c Checker) {
			defer wg.Done()
			start := time.Now()
			err := c.HealthCheck(ctx)
			cs := componentStatus{Status: "healthy", Latency: time.Since(start).String()}
			if err != nil {
				cs.Status = "unhealthy"
				cs.Error = err.Error()
			}
			record(name, cs)
		}(name, checker)
	}

	for name, checker := range h.statuses {
		wg.Add(1)
		go func(name string, c StatusChecker) {
			defer wg.Done()
			start := time.Now()
			status, err := c.HealthCheck(ctx)
			cs := componentStatus{Status: status, Latency: time.Since(start).String()}
			if err != nil {
				cs.Error = err.Error()
			}
			record(name, cs)
		}(name, checker)
	}

	wg.Wait()

	code := http.StatusOK
	overall := "healthy"
	for name, cs := range components {
		if cs.down() {
			code = http.StatusServiceUnavailable
			overall = "degraded"
			h.logger.Warn("readiness check failed",
				zap.String("component", name),
				zap.String("status", cs.Status),
				zap.String("error", cs.Error),
			)
		}
	}

	writeProbeJSON(w, code, map[string]any{
		"status":     overall,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func writeProbeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
