package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/longregen/geoqa/internal/adapters/circuitbreaker"
	"github.com/longregen/geoqa/internal/adapters/http/dto"
	"github.com/longregen/geoqa/internal/domain"
	"github.com/longregen/geoqa/internal/example"
	"github.com/longregen/geoqa/internal/ports"
	"github.com/longregen/geoqa/internal/prompt"
)

type PredictHandler struct {
	module    prompt.Module
	signature prompt.Signature
	idGen     ports.IDGenerator
	logger    *slog.Logger
}

func NewPredictHandler(module prompt.Module, signature prompt.Signature, idGen ports.IDGenerator, logger *slog.Logger) *PredictHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictHandler{
		module:    module,
		signature: signature,
		idGen:     idGen,
		logger:    logger,
	}
}

// Predict runs the module on the posted inputs
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody[dto.PredictRequest](r, w)
	if !ok {
		return
	}
	if len(req.Inputs) == 0 {
		respondError(w, "invalid_request", "inputs are required", http.StatusBadRequest)
		return
	}

	in := example.New(req.Inputs, h.signature.InputNames(), h.signature.OutputNames())
	id := h.idGen.GeneratePredictionID()

	out, err := h.module.Forward(r.Context(), in)
	if err != nil {
		h.respondPredictError(w, id, err)
		return
	}

	outputs := make(map[string]example.Value, len(out.OutputKeys))
	for _, key := range out.OutputKeys {
		if out.Has(key) {
			outputs[key] = out.Get(key)
		}
	}

	h.logger.Debug("prediction complete", "id", id, "outputs", len(outputs))
	respond(w, r, dto.PredictResponse{ID: id, Outputs: outputs, Example: out}, http.StatusOK)
}

func (h *PredictHandler) respondPredictError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, prompt.ErrMissingInput):
		respondError(w, "invalid_input", err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, circuitbreaker.ErrCircuitOpen):
		respondError(w, "llm_unavailable", "The language model is temporarily unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, prompt.ErrNoLLM):
		respondError(w, "not_configured", "No language model is configured", http.StatusServiceUnavailable)
	default:
		h.logger.Error("prediction failed", "id", id, "error", err)
		respondError(w, "prediction_failed", "Prediction failed", http.StatusBadGateway)
	}
}

type SignatureHandler struct {
	signature prompt.Signature
}

func NewSignatureHandler(signature prompt.Signature) *SignatureHandler {
	return &SignatureHandler{signature: signature}
}

func (h *SignatureHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := dto.SignatureResponse{
		Name:        h.signature.Name,
		Instruction: h.signature.Instruction,
		Inputs:      []dto.SignatureField{},
		Outputs:     []dto.SignatureField{},
	}
	for _, name := range h.signature.InputNames() {
		resp.Inputs = append(resp.Inputs, dto.SignatureField{Name: name})
	}
	for _, name := range h.signature.OutputNames() {
		resp.Outputs = append(resp.Outputs, dto.SignatureField{Name: name})
	}
	respond(w, r, resp, http.StatusOK)
}
