package prompt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
	"github.com/XiaoConstantine/dspy-go/pkg/modules"
	"github.com/longregen/geoqa/internal/example"
)

var (
	// ErrMissingInput is returned when a signature input is absent from the example
	ErrMissingInput = errors.New("missing input field")
	// ErrMissingOutput is returned when the model response lacks a signature output
	ErrMissingOutput = errors.New("missing output field")
	// ErrNoLLM is returned by Predict when it was built without a model
	ErrNoLLM = errors.New("no language model configured")
)

// Module turns an example holding inputs into an example holding outputs
type Module interface {
	Forward(ctx context.Context, in example.Example) (example.Example, error)
}

type processFunc func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// Predict wraps dspy-go Predict behind the Module contract
type Predict struct {
	predict *modules.Predict
	sig     Signature
	name    string
	llm     core.LLM
	tracer  Tracer
	metrics MetricsCollector
	process processFunc
}

// Option configures a Predict module
type Option func(*Predict)

// WithLLM sets the model the predictor calls
func WithLLM(llm core.LLM) Option {
	return func(p *Predict) {
		p.llm = llm
	}
}

// WithTracer sets a tracer for the module
func WithTracer(tracer Tracer) Option {
	return func(p *Predict) {
		p.tracer = tracer
	}
}

// WithMetrics sets a metrics collector for the module
func WithMetrics(metrics MetricsCollector) Option {
	return func(p *Predict) {
		p.metrics = metrics
	}
}

// WithName overrides the module name used in spans and metrics
func WithName(name string) Option {
	return func(p *Predict) {
		p.name = name
	}
}

func withProcess(fn processFunc) Option {
	return func(p *Predict) {
		p.process = fn
	}
}

func NewPredict(sig Signature, opts ...Option) *Predict {
	p := &Predict{
		predict: modules.NewPredict(sig.Signature),
		sig:     sig,
		name:    sig.Name,
		tracer:  &NoOpTracer{},
		metrics: &NoOpMetrics{},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.llm != nil {
		p.predict.SetLLM(p.llm)
	}
	if p.process == nil {
		p.process = p.processWithLLM
	}

	return p
}

func (p *Predict) Signature() Signature {
	return p.sig
}

func (p *Predict) Name() string {
	return p.name
}

func (p *Predict) processWithLLM(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	if p.llm == nil {
		return nil, ErrNoLLM
	}
	var opts []core.Option
	if onChunk, ok := ctx.Value(chunkHandlerKey{}).(func(string) error); ok {
		opts = append(opts, core.WithStreamHandler(func(chunk core.StreamChunk) error {
			if chunk.Done || chunk.Content == "" {
				return nil
			}
			return onChunk(chunk.Content)
		}))
	}
	return p.predict.Process(core.WithExecutionState(ctx), inputs, opts...)
}

type chunkHandlerKey struct{}

// ForwardStream is Forward with the raw completion text passed to onChunk as it
// arrives. The returned example is parsed from the full completion.
func (p *Predict) ForwardStream(ctx context.Context, in example.Example, onChunk func(text string) error) (example.Example, error) {
	if onChunk != nil {
		ctx = context.WithValue(ctx, chunkHandlerKey{}, onChunk)
	}
	return p.Forward(ctx, in)
}

// Forward reads the signature inputs from in and returns an example holding
// those inputs plus the produced outputs.
func (p *Predict) Forward(ctx context.Context, in example.Example) (example.Example, error) {
	inputNames := p.sig.InputNames()
	outputNames := p.sig.OutputNames()

	inputs := make(map[string]any, len(inputNames))
	data := make(map[string]example.Value, len(inputNames)+len(outputNames))
	for _, name := range inputNames {
		v, ok := in.Data[name]
		if !ok {
			return example.Example{}, fmt.Errorf("%w: %s", ErrMissingInput, name)
		}
		inputs[name] = v.Interface()
		data[name] = v
	}

	outputs, err := p.Process(ctx, inputs)
	if err != nil {
		return example.Example{}, err
	}

	for _, name := range outputNames {
		v, ok := outputs[name]
		if !ok {
			return example.Example{}, fmt.Errorf("%w: %s", ErrMissingOutput, name)
		}
		data[name] = example.ValueOf(v)
	}

	return example.New(data, inputNames, outputNames), nil
}

// Process executes the prediction on a plain input map with tracing and metrics
func (p *Predict) Process(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	ctx, span := p.tracer.StartSpan(ctx, "predict")
	defer span.End()
	span.SetAttribute("module", p.name)
	span.SetAttribute("inputs", p.sig.InputNames())

	start := time.Now()
	outputs, err := p.process(ctx, inputs)
	elapsed := time.Since(start).Seconds()

	status := "ok"
	if err != nil {
		status = "error"
		span.SetError(err)
	}
	labels := map[string]string{"module": p.name, "status": status}
	p.metrics.IncrementCounter("predictions", labels)
	p.metrics.RecordHistogram("prediction_duration_seconds", elapsed, map[string]string{"module": p.name})

	if err != nil {
		return nil, fmt.Errorf("predict %s failed: %w", p.name, err)
	}

	return outputs, nil
}

// Tracer defines the interface for tracing module execution
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a traced execution span
type Span interface {
	End()
	SetError(err error)
	SetAttribute(key string, value any)
}

// MetricsCollector receives predictor measurements
type MetricsCollector interface {
	IncrementCounter(name string, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

// NoOpTracer is a tracer that does nothing
type NoOpTracer struct{}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &NoOpSpan{}
}

// NoOpSpan is a span that does nothing
type NoOpSpan struct{}

func (s *NoOpSpan) End()                               {}
func (s *NoOpSpan) SetError(err error)                 {}
func (s *NoOpSpan) SetAttribute(key string, value any) {}

// NoOpMetrics is a metrics collector that does nothing
type NoOpMetrics struct{}

func (m *NoOpMetrics) IncrementCounter(name string, labels map[string]string)               {}
func (m *NoOpMetrics) RecordHistogram(name string, value float64, labels map[string]string) {}
func (m *NoOpMetrics) SetGauge(name string, value float64, labels map[string]string)        {}

// DummyPredict echoes its input. It stands in for a real predictor in tests.
type DummyPredict struct{}

func (DummyPredict) Forward(ctx context.Context, in example.Example) (example.Example, error) {
	if err := ctx.Err(); err != nil {
		return example.Example{}, err
	}
	return in.Clone(), nil
}

var (
	_ Module = (*Predict)(nil)
	_ Module = DummyPredict{}
)
