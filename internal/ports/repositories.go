package ports

import (
	"context"

	"github.com/longregen/geoqa/internal/domain/models"
)

// ExampleRepository defines operations for dataset example persistence
type ExampleRepository interface {
	Create(ctx context.Context, ex *models.DatasetExample) error
	CreateBatch(ctx context.Context, examples []*models.DatasetExample) error
	GetByID(ctx context.Context, id string) (*models.DatasetExample, error)
	ListByDataset(ctx context.Context, dataset string, limit, offset int) ([]*models.DatasetExample, error)
	CountByDataset(ctx context.Context, dataset string) (int, error)
	Delete(ctx context.Context, id string) error
}

// TransactionManager runs a function inside a database transaction
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator generates unique IDs for entities
type IDGenerator interface {
	// GenerateExampleID generates a new dataset example ID (gex_xxx)
	GenerateExampleID() string

	// GeneratePredictionID generates a new prediction ID (gpr_xxx)
	GeneratePredictionID() string

	// GenerateEvalRunID generates a new evaluation run ID (gev_xxx)
	GenerateEvalRunID() string
}
