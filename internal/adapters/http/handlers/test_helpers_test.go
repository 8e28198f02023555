package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/longregen/geoqa/internal/domain"
	"github.com/longregen/geoqa/internal/domain/models"
	"github.com/longregen/geoqa/internal/example"
	"github.com/longregen/geoqa/internal/prompt"
)

// setURLParam adds a URL parameter to the request context (chi router style)
func setURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type MockIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func (m *MockIDGenerator) nextID(prefix string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("%s_test_%d", prefix, m.counter)
}

func (m *MockIDGenerator) GenerateExampleID() string    { return m.nextID("gex") }
func (m *MockIDGenerator) GeneratePredictionID() string { return m.nextID("gpr") }
func (m *MockIDGenerator) GenerateEvalRunID() string    { return m.nextID("gev") }

// MockExampleRepository keeps examples in memory in insertion order
type MockExampleRepository struct {
	mu       sync.Mutex
	examples []*models.DatasetExample
	err      error
}

func (m *MockExampleRepository) Create(ctx context.Context, ex *models.DatasetExample) error {
	return m.CreateBatch(ctx, []*models.DatasetExample{ex})
}

func (m *MockExampleRepository) CreateBatch(ctx context.Context, examples []*models.DatasetExample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.examples = append(m.examples, examples...)
	return nil
}

func (m *MockExampleRepository) GetByID(ctx context.Context, id string) (*models.DatasetExample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, ex := range m.examples {
		if ex.ID == id && ex.DeletedAt == nil {
			return ex, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrExampleNotFound, id)
}

func (m *MockExampleRepository) live(dataset string) []*models.DatasetExample {
	var out []*models.DatasetExample
	for _, ex := range m.examples {
		if ex.Dataset == dataset && ex.DeletedAt == nil {
			out = append(out, ex)
		}
	}
	return out
}

func (m *MockExampleRepository) ListByDataset(ctx context.Context, dataset string, limit, offset int) ([]*models.DatasetExample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	all := m.live(dataset)
	if offset >= len(all) {
		return []*models.DatasetExample{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (m *MockExampleRepository) CountByDataset(ctx context.Context, dataset string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return len(m.live(dataset)), nil
}

func (m *MockExampleRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.examples {
		if ex.ID == id && ex.DeletedAt == nil {
			now := ex.CreatedAt
			ex.DeletedAt = &now
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrExampleNotFound, id)
}

// capitalModule answers from a fixed table, without touching any LLM
type capitalModule struct {
	answers map[string]string
	err     error
}

func (m *capitalModule) Forward(ctx context.Context, in example.Example) (example.Example, error) {
	if m.err != nil {
		return example.Example{}, m.err
	}
	q, err := in.Lookup("question")
	if err != nil {
		return example.Example{}, fmt.Errorf("%w: question", prompt.ErrMissingInput)
	}
	answer, ok := m.answers[q.String()]
	if !ok {
		return example.Example{}, errors.New("no answer")
	}
	return example.New(
		map[string]example.Value{"question": q, "answer": example.String(answer)},
		[]string{"question"},
		[]string{"answer"},
	), nil
}
