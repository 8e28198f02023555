package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/longregen/geoqa/internal/adapters/http/dto"
	"github.com/longregen/geoqa/internal/domain"
	"github.com/longregen/geoqa/internal/domain/models"
	"github.com/longregen/geoqa/internal/example"
	"github.com/longregen/geoqa/internal/ports"
	"github.com/longregen/geoqa/internal/prompt"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxEvalExamples  = 1000
	maxBatchExamples = 1000
)

type DatasetsHandler struct {
	repo          ports.ExampleRepository
	idGen         ports.IDGenerator
	module        prompt.Module
	defaultInputs []string
	metrics       prompt.MetricsCollector
	logger        *slog.Logger
}

// NewDatasetsHandler serves stored examples; module may be nil, which disables Evaluate
func NewDatasetsHandler(repo ports.ExampleRepository, idGen ports.IDGenerator, module prompt.Module, defaultInputs []string, metrics prompt.MetricsCollector, logger *slog.Logger) *DatasetsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetsHandler{
		repo:          repo,
		idGen:         idGen,
		module:        module,
		defaultInputs: defaultInputs,
		metrics:       metrics,
		logger:        logger,
	}
}

func (h *DatasetsHandler) List(w http.ResponseWriter, r *http.Request) {
	name, ok := validateURLParam(r, w, "name", "dataset name")
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", defaultListLimit, maxListLimit)
	offset := parseIntQuery(r, "offset", 0, 0)

	examples, err := h.repo.ListByDataset(r.Context(), name, limit, offset)
	if err != nil {
		h.logger.Error("failed to list examples", "dataset", name, "error", err)
		respondError(w, "internal_error", "Failed to list examples", http.StatusInternalServerError)
		return
	}

	total, err := h.repo.CountByDataset(r.Context(), name)
	if err != nil {
		h.logger.Error("failed to count examples", "dataset", name, "error", err)
		respondError(w, "internal_error", "Failed to count examples", http.StatusInternalServerError)
		return
	}

	resp := dto.ExampleListResponse{
		Examples: make([]dto.DatasetExampleResponse, 0, len(examples)),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}
	for _, ex := range examples {
		resp.Examples = append(resp.Examples, dto.FromDatasetExample(ex))
	}
	respond(w, r, resp, http.StatusOK)
}

// Create stores posted examples in one batch
func (h *DatasetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	name, ok := validateURLParam(r, w, "name", "dataset name")
	if !ok {
		return
	}
	req, ok := decodeBody[dto.CreateExamplesRequest](r, w)
	if !ok {
		return
	}

	inputKeys := req.InputKeys
	if len(inputKeys) == 0 {
		inputKeys = h.defaultInputs
	}

	examples := make([]example.Example, 0, len(req.Examples)+len(req.Records))
	examples = append(examples, req.Examples...)
	for _, record := range req.Records {
		examples = append(examples, example.New(record, append([]string(nil), inputKeys...), nil))
	}

	switch {
	case len(examples) == 0:
		respondError(w, "invalid_request", "examples or records are required", http.StatusBadRequest)
		return
	case len(examples) > maxBatchExamples:
		respondError(w, "invalid_request", "too many examples in one request", http.StatusRequestEntityTooLarge)
		return
	}

	stored := make([]*models.DatasetExample, 0, len(examples))
	ids := make([]string, 0, len(examples))
	for _, ex := range examples {
		id := h.idGen.GenerateExampleID()
		stored = append(stored, models.NewDatasetExample(id, name, ex, models.SourceAPI))
		ids = append(ids, id)
	}

	if err := h.repo.CreateBatch(r.Context(), stored); err != nil {
		h.logger.Error("failed to store examples", "dataset", name, "error", err)
		respondError(w, "internal_error", "Failed to store examples", http.StatusInternalServerError)
		return
	}

	respond(w, r, dto.CreateExamplesResponse{IDs: ids, Count: len(ids)}, http.StatusCreated)
}

func (h *DatasetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "example id")
	if !ok {
		return
	}

	ex, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, id, err)
		return
	}
	respond(w, r, dto.FromDatasetExample(ex), http.StatusOK)
}

func (h *DatasetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "example id")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.respondRepoError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Evaluate scores the module against the first stored examples of a dataset
func (h *DatasetsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	name, ok := validateURLParam(r, w, "name", "dataset name")
	if !ok {
		return
	}
	if h.module == nil {
		respondError(w, "not_configured", "No predictor is configured", http.StatusServiceUnavailable)
		return
	}
	req, ok := decodeBody[dto.EvaluateRequest](r, w)
	if !ok {
		return
	}

	metric, err := prompt.MetricByName(req.Metric, "")
	if err != nil {
		respondError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}

	limit := req.Limit
	if limit <= 0 || limit > maxEvalExamples {
		limit = maxEvalExamples
	}

	stored, err := h.repo.ListByDataset(r.Context(), name, limit, 0)
	if err != nil {
		h.logger.Error("failed to load dataset", "dataset", name, "error", err)
		respondError(w, "internal_error", "Failed to load dataset", http.StatusInternalServerError)
		return
	}
	if len(stored) == 0 {
		respondError(w, "not_found", domain.ErrDatasetEmpty.Error(), http.StatusNotFound)
		return
	}

	devset := make([]example.Example, len(stored))
	for i, ex := range stored {
		devset[i] = ex.Example
	}

	runID := h.idGen.GenerateEvalRunID()
	logger := h.logger.With("run_id", runID, "dataset", name)

	report, err := prompt.Evaluate(r.Context(), h.module, metric, devset, prompt.EvaluateOptions{
		Concurrency: req.Concurrency,
		Metrics:     h.metrics,
		Logger:      logger,
	})
	if err != nil {
		respondError(w, "evaluation_aborted", err.Error(), http.StatusServiceUnavailable)
		return
	}

	logger.Info("evaluation complete", "examples", len(devset), "mean", report.Mean, "failed", report.Failed)

	resp := dto.EvaluateResponse{
		RunID:   runID,
		Dataset: name,
		Metric:  prompt.MetricName(metric),
		Mean:    report.Mean,
		Failed:  report.Failed,
		Results: make([]dto.EvaluationResultResponse, len(report.Results)),
	}
	for i, res := range report.Results {
		item := dto.EvaluationResultResponse{
			ExampleID: stored[i].ID,
			Score:     res.Score.Score,
			Feedback:  res.Score.Feedback,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		resp.Results[i] = item
	}
	respond(w, r, resp, http.StatusOK)
}

func (h *DatasetsHandler) respondRepoError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, domain.ErrExampleNotFound) {
		respondError(w, "not_found", "Example not found", http.StatusNotFound)
		return
	}
	h.logger.Error("example lookup failed", "id", id, "error", err)
	respondError(w, "internal_error", "Failed to access example", http.StatusInternalServerError)
}
