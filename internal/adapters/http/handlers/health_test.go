package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/longregen/geoqa/internal/adapters/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

type fakeBreaker struct{ state circuitbreaker.State }

func (b fakeBreaker) BreakerState() circuitbreaker.State { return b.state }

func TestHealthHandler_Handle(t *testing.T) {
	handler := NewHealthHandler("1.2.3", nil, nil)

	rr := httptest.NewRecorder()
	handler.Handle(rr, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "1.2.3", response.Version)
}

func TestHealthHandler_HandleDetailed(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		llm        BreakerReporter
		wantStatus string
		wantCode   int
		wantCount  int
	}{
		{"no dependencies", nil, nil, "healthy", http.StatusOK, 0},
		{"all healthy", fakePinger{}, fakeBreaker{circuitbreaker.StateClosed}, "healthy", http.StatusOK, 2},
		{"llm half open", fakePinger{}, fakeBreaker{circuitbreaker.StateHalfOpen}, "degraded", http.StatusOK, 2},
		{"llm open", nil, fakeBreaker{circuitbreaker.StateOpen}, "degraded", http.StatusOK, 1},
		{"database down", fakePinger{err: errors.New("refused")}, fakeBreaker{circuitbreaker.StateClosed}, "unhealthy", http.StatusServiceUnavailable, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler("dev", tt.db, tt.llm)

			rr := httptest.NewRecorder()
			handler.HandleDetailed(rr, httptest.NewRequest("GET", "/health/detailed", nil))

			assert.Equal(t, tt.wantCode, rr.Code)

			var response DetailedHealthResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Len(t, response.Services, tt.wantCount)
		})
	}
}

func TestHealthHandler_DatabaseError(t *testing.T) {
	handler := NewHealthHandler("dev", fakePinger{err: errors.New("connection refused")}, nil)

	rr := httptest.NewRecorder()
	handler.HandleDetailed(rr, httptest.NewRequest("GET", "/health/detailed", nil))

	var response DetailedHealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))

	db := response.Services["database"]
	assert.Equal(t, "unhealthy", db.Status)
	require.NotNil(t, db.Error)
	assert.Equal(t, "connection refused", *db.Error)
	assert.NotNil(t, db.LatencyMs)
}

func TestOverallStatus(t *testing.T) {
	assert.Equal(t, "healthy", overallStatus(nil))
	assert.Equal(t, "degraded", overallStatus(map[string]ServiceHealth{"llm": {Status: "unhealthy"}}))
	assert.Equal(t, "unhealthy", overallStatus(map[string]ServiceHealth{
		"llm":      {Status: "healthy"},
		"database": {Status: "unhealthy"},
	}))
}
