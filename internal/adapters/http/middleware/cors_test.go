package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS(t *testing.T) {
	handler := CORS([]string{"http://localhost:3000", "https://geo.example.org"})(okHandler)

	tests := []struct {
		name        string
		method      string
		origin      string
		wantOrigin  string
		wantCreds   string
		wantStatus  int
		wantVaryHdr bool
	}{
		{"listed origin", "POST", "http://localhost:3000", "http://localhost:3000", "true", http.StatusOK, true},
		{"second listed origin", "GET", "https://geo.example.org", "https://geo.example.org", "true", http.StatusOK, true},
		{"unlisted origin passes through without headers", "GET", "https://evil.example", "", "", http.StatusOK, false},
		{"no origin", "GET", "", "", "", http.StatusOK, false},
		{"preflight from listed origin", "OPTIONS", "http://localhost:3000", "http://localhost:3000", "true", http.StatusNoContent, true},
		{"preflight from unlisted origin", "OPTIONS", "https://evil.example", "", "", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/predict", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, rr.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, tt.wantVaryHdr, rr.Header().Get("Vary") == "Origin")
			assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	handler := CORS([]string{"*"})(okHandler)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	// credentials are never combined with a wildcard origin
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest("OPTIONS", "/api/v1/predict", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCORS_PreflightSkipsHandler(t *testing.T) {
	called := false
	handler := CORS([]string{"http://localhost:3000"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("OPTIONS", "/api/v1/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, called)
}
