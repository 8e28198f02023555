package dto

import (
	"time"

	"github.com/longregen/geoqa/internal/domain/models"
	"github.com/longregen/geoqa/internal/example"
)

type DatasetExampleResponse struct {
	ID        string          `json:"id" msgpack:"id"`
	Dataset   string          `json:"dataset" msgpack:"dataset"`
	Example   example.Example `json:"example" msgpack:"example"`
	Source    string          `json:"source,omitempty" msgpack:"source,omitempty"`
	CreatedAt time.Time       `json:"created_at" msgpack:"created_at"`
}

func FromDatasetExample(ex *models.DatasetExample) DatasetExampleResponse {
	return DatasetExampleResponse{
		ID:        ex.ID,
		Dataset:   ex.Dataset,
		Example:   ex.Example,
		Source:    ex.Source,
		CreatedAt: ex.CreatedAt,
	}
}

type ExampleListResponse struct {
	Examples []DatasetExampleResponse `json:"examples" msgpack:"examples"`
	Total    int                      `json:"total" msgpack:"total"`
	Limit    int                      `json:"limit" msgpack:"limit"`
	Offset   int                      `json:"offset" msgpack:"offset"`
}

// CreateExamplesRequest accepts full examples or flat records that take InputKeys
type CreateExamplesRequest struct {
	Examples  []example.Example          `json:"examples,omitempty" msgpack:"examples,omitempty"`
	Records   []map[string]example.Value `json:"records,omitempty" msgpack:"records,omitempty"`
	InputKeys []string                   `json:"input_keys,omitempty" msgpack:"input_keys,omitempty"`
}

type CreateExamplesResponse struct {
	IDs   []string `json:"ids" msgpack:"ids"`
	Count int      `json:"count" msgpack:"count"`
}

type EvaluateRequest struct {
	Metric      string `json:"metric" msgpack:"metric"` // exact_match, contains, token_overlap
	Limit       int    `json:"limit,omitempty" msgpack:"limit,omitempty"`
	Concurrency int    `json:"concurrency,omitempty" msgpack:"concurrency,omitempty"`
}

type EvaluationResultResponse struct {
	ExampleID string  `json:"example_id" msgpack:"example_id"`
	Score     float64 `json:"score" msgpack:"score"`
	Feedback  string  `json:"feedback,omitempty" msgpack:"feedback,omitempty"`
	Error     string  `json:"error,omitempty" msgpack:"error,omitempty"`
}

type EvaluateResponse struct {
	RunID   string                     `json:"run_id" msgpack:"run_id"`
	Dataset string                     `json:"dataset" msgpack:"dataset"`
	Metric  string                     `json:"metric" msgpack:"metric"`
	Mean    float64                    `json:"mean" msgpack:"mean"`
	Failed  int                        `json:"failed" msgpack:"failed"`
	Results []EvaluationResultResponse `json:"results" msgpack:"results"`
}
