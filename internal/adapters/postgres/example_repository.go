package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/longregen/geoqa/internal/domain"
	"github.com/longregen/geoqa/internal/domain/models"
	"github.com/longregen/geoqa/internal/example"
	"github.com/longregen/geoqa/internal/ports"
)

const exampleColumns = `id, dataset, data, input_keys, output_keys, source, created_at, deleted_at`

// ExampleRepository implements ports.ExampleRepository
type ExampleRepository struct {
	BaseRepository
	tx ports.TransactionManager
}

func NewExampleRepository(db DB) *ExampleRepository {
	return &ExampleRepository{
		BaseRepository: NewBaseRepository(db),
		tx:             NewTransactionManager(db),
	}
}

var _ ports.ExampleRepository = (*ExampleRepository)(nil)

func (r *ExampleRepository) Create(ctx context.Context, ex *models.DatasetExample) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return r.insert(ctx, ex)
}

// CreateBatch inserts all examples in one transaction
func (r *ExampleRepository) CreateBatch(ctx context.Context, examples []*models.DatasetExample) error {
	if len(examples) == 0 {
		return nil
	}
	return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for i, ex := range examples {
			if err := r.insert(ctx, ex); err != nil {
				return fmt.Errorf("example %d: %w", i, err)
			}
		}
		return nil
	})
}

func (r *ExampleRepository) insert(ctx context.Context, ex *models.DatasetExample) error {
	data, err := json.Marshal(ex.Example.Data)
	if err != nil {
		return fmt.Errorf("failed to encode example data: %w", err)
	}

	query := `
		INSERT INTO geoqa_examples (
			id, dataset, data, input_keys, output_keys, source, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		ex.ID,
		ex.Dataset,
		data,
		nonNil(ex.Example.InputKeys),
		nonNil(ex.Example.OutputKeys),
		nullString(ex.Source),
		ex.CreatedAt,
	)
	return err
}

func (r *ExampleRepository) GetByID(ctx context.Context, id string) (*models.DatasetExample, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + exampleColumns + `
		FROM geoqa_examples
		WHERE id = $1 AND deleted_at IS NULL`

	ex, err := r.scanExample(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrExampleNotFound, id)
		}
		return nil, err
	}
	return ex, nil
}

// ListByDataset returns the dataset's examples in insertion order
func (r *ExampleRepository) ListByDataset(ctx context.Context, dataset string, limit, offset int) ([]*models.DatasetExample, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + exampleColumns + `
		FROM geoqa_examples
		WHERE dataset = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.conn(ctx).Query(ctx, query, dataset, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanExamples(rows)
}

func (r *ExampleRepository) CountByDataset(ctx context.Context, dataset string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM geoqa_examples WHERE dataset = $1 AND deleted_at IS NULL`

	var count int
	err := r.conn(ctx).QueryRow(ctx, query, dataset).Scan(&count)
	return count, err
}

// Delete soft-deletes an example
func (r *ExampleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE geoqa_examples
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.conn(ctx).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrExampleNotFound, id)
	}
	return nil
}

func (r *ExampleRepository) scanExample(row pgx.Row) (*models.DatasetExample, error) {
	var (
		ex                    models.DatasetExample
		data                  []byte
		inputKeys, outputKeys []string
		source                sql.NullString
		deletedAt             sql.NullTime
	)

	err := row.Scan(
		&ex.ID,
		&ex.Dataset,
		&data,
		&inputKeys,
		&outputKeys,
		&source,
		&ex.CreatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	fields := map[string]example.Value{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode example %s: %w", ex.ID, err)
		}
	}

	ex.Example = example.Example{
		Data:       fields,
		InputKeys:  nonNil(inputKeys),
		OutputKeys: nonNil(outputKeys),
	}
	ex.Source = getString(source)
	ex.DeletedAt = getTimePtr(deletedAt)
	return &ex, nil
}

func (r *ExampleRepository) scanExamples(rows pgx.Rows) ([]*models.DatasetExample, error) {
	examples := []*models.DatasetExample{}
	for rows.Next() {
		ex, err := r.scanExample(rows)
		if err != nil {
			return nil, err
		}
		examples = append(examples, ex)
	}
	return examples, rows.Err()
}
