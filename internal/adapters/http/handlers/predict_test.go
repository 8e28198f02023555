package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/longregen/geoqa/internal/adapters/http/dto"
	"github.com/longregen/geoqa/internal/adapters/http/encoding"
	"github.com/longregen/geoqa/internal/domain"
	"github.com/longregen/geoqa/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func newPredictHandler(module prompt.Module) *PredictHandler {
	return NewPredictHandler(module, prompt.GeographyQA, &MockIDGenerator{}, nil)
}

var denali = &capitalModule{answers: map[string]string{
	"What is the highest mountain in North America?": "Denali",
}}

func TestPredictHandler_Predict(t *testing.T) {
	handler := newPredictHandler(denali)

	body := `{"inputs": {"question": "What is the highest mountain in North America?"}}`
	req := httptest.NewRequest("POST", "/api/v1/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.Predict(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp dto.PredictResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "gpr_test_1", resp.ID)
	assert.Equal(t, "Denali", resp.Outputs["answer"].String())
	assert.Len(t, resp.Outputs, 1)
	assert.Equal(t, []string{"question"}, resp.Example.InputKeys)
	assert.Equal(t, []string{"answer"}, resp.Example.OutputKeys)
}

func TestPredictHandler_Msgpack(t *testing.T) {
	handler := newPredictHandler(denali)

	payload, err := msgpack.Marshal(map[string]any{
		"inputs": map[string]any{"question": "What is the highest mountain in North America?"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/predict", bytes.NewReader(payload))
	req.Header.Set("Content-Type", encoding.ContentTypeMsgpack)
	req.Header.Set("Accept", encoding.ContentTypeMsgpack)
	rr := httptest.NewRecorder()

	handler.Predict(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, encoding.ContentTypeMsgpack, rr.Header().Get("Content-Type"))

	var resp dto.PredictResponse
	require.NoError(t, msgpack.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Denali", resp.Outputs["answer"].String())
}

func TestPredictHandler_Errors(t *testing.T) {
	tests := []struct {
		name      string
		module    prompt.Module
		body      string
		wantCode  int
		wantError string
	}{
		{"invalid body", denali, `{"inputs":`, http.StatusBadRequest, "invalid_request"},
		{"no inputs", denali, `{"inputs": {}}`, http.StatusBadRequest, "invalid_request"},
		{"missing signature input", denali, `{"inputs": {"query": "x"}}`, http.StatusBadRequest, "invalid_input"},
		{"llm unavailable", &capitalModule{err: fmt.Errorf("predict: %w", domain.ErrLLMUnavailable)},
			`{"inputs": {"question": "q"}}`, http.StatusServiceUnavailable, "llm_unavailable"},
		{"no llm", &capitalModule{err: prompt.ErrNoLLM}, `{"inputs": {"question": "q"}}`, http.StatusServiceUnavailable, "not_configured"},
		{"upstream failure", denali, `{"inputs": {"question": "Where is Atlantis?"}}`, http.StatusBadGateway, "prediction_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newPredictHandler(tt.module)
			req := httptest.NewRequest("POST", "/api/v1/predict", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			handler.Predict(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			var resp dto.ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestSignatureHandler_Get(t *testing.T) {
	handler := NewSignatureHandler(prompt.GeographyQA)

	rr := httptest.NewRecorder()
	handler.Get(rr, httptest.NewRequest("GET", "/api/v1/signature", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.SignatureResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "geography_qa", resp.Name)
	assert.Equal(t, "Answer questions about geography.", resp.Instruction)
	assert.Equal(t, []dto.SignatureField{{Name: "question"}}, resp.Inputs)
	assert.Equal(t, []dto.SignatureField{{Name: "answer"}}, resp.Outputs)
}
