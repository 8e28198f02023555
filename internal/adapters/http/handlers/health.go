package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/longregen/geoqa/internal/adapters/circuitbreaker"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter is satisfied by *llm.Service
type BreakerReporter interface {
	BreakerState() circuitbreaker.State
}

type HealthHandler struct {
	version string
	timeout time.Duration
	db      Pinger
	llm     BreakerReporter
}

// NewHealthHandler builds a handler; db and llm may be nil
func NewHealthHandler(version string, db Pinger, llm BreakerReporter) *HealthHandler {
	return &HealthHandler{
		version: version,
		timeout: 5 * time.Second,
		db:      db,
		llm:     llm,
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type DetailedHealthResponse struct {
	Status   string                   `json:"status"`
	Version  string                   `json:"version"`
	Services map[string]ServiceHealth `json:"services"`
}

type ServiceHealth struct {
	Status    string  `json:"status"`
	LatencyMs *int64  `json:"latency_ms,omitempty"`
	Error     *string `json:"error,omitempty"`
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, HealthResponse{Status: "ok", Version: h.version}, http.StatusOK)
}

// HandleDetailed checks the database and the LLM circuit breaker
func (h *HealthHandler) HandleDetailed(w http.ResponseWriter, r *http.Request) {
	response := DetailedHealthResponse{
		Version:  h.version,
		Services: make(map[string]ServiceHealth),
	}

	if h.db != nil {
		response.Services["database"] = h.checkDatabase(r.Context())
	}
	if h.llm != nil {
		response.Services["llm"] = checkBreaker(h.llm.BreakerState())
	}

	response.Status = overallStatus(response.Services)

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, response, status)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ServiceHealth {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.db.Ping(checkCtx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		return ServiceHealth{Status: "unhealthy", LatencyMs: &latency, Error: &errMsg}
	}
	return ServiceHealth{Status: "healthy", LatencyMs: &latency}
}

// checkBreaker reports the breaker state without calling the model
func checkBreaker(state circuitbreaker.State) ServiceHealth {
	switch state {
	case circuitbreaker.StateClosed:
		return ServiceHealth{Status: "healthy"}
	case circuitbreaker.StateHalfOpen:
		return ServiceHealth{Status: "degraded"}
	default:
		msg := "circuit " + state.String()
		return ServiceHealth{Status: "unhealthy", Error: &msg}
	}
}

// overallStatus is unhealthy if the database is down, degraded if the LLM is
func overallStatus(services map[string]ServiceHealth) string {
	status := "healthy"
	for name, service := range services {
		switch {
		case service.Status == "unhealthy" && name == "database":
			return "unhealthy"
		case service.Status != "healthy":
			status = "degraded"
		}
	}
	return status
}
