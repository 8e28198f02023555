package models

import (
	"time"

	"github.com/longregen/geoqa/internal/example"
)

// DatasetExample is an example stored as part of a named dataset
type DatasetExample struct {
	ID        string          `json:"id"`
	Dataset   string          `json:"dataset"`
	Example   example.Example `json:"example"`
	Source    string          `json:"source"` // file, api, synthetic
	CreatedAt time.Time       `json:"created_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// NewDatasetExample stamps an example for storage
func NewDatasetExample(id, dataset string, ex example.Example, source string) *DatasetExample {
	if source == "" {
		source = SourceFile
	}
	return &DatasetExample{
		ID:        id,
		Dataset:   dataset,
		Example:   ex,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}

// Dataset example source constants
const (
	SourceFile      = "file"
	SourceAPI       = "api"
	SourceSynthetic = "synthetic"
)
