package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/longregen/geoqa/internal/adapters/circuitbreaker"
	"github.com/longregen/geoqa/internal/adapters/metrics"
	"github.com/longregen/geoqa/internal/domain"
	"github.com/longregen/geoqa/internal/ports"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// LLMTimeout is the maximum time to wait for LLM responses
	LLMTimeout = 2 * time.Minute
)

// ChatClient is the subset of Client used by Service
type ChatClient interface {
	Chat(ctx context.Context, messages []openai.ChatCompletionMessage) (*openai.ChatCompletionResponse, error)
	ChatJSON(ctx context.Context, messages []openai.ChatCompletionMessage) (*openai.ChatCompletionResponse, error)
	ChatStream(ctx context.Context, messages []openai.ChatCompletionMessage) (<-chan StreamChunk, error)
	Model() string
}

type ServiceOption func(*Service)

// WithRequestTimeout bounds each non-streaming call and the lifetime of a stream
func WithRequestTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithBreaker(cb *circuitbreaker.CircuitBreaker) ServiceOption {
	return func(s *Service) {
		s.breaker = cb
	}
}

// Service implements ports.LLMService on top of a ChatClient
type Service struct {
	client  ChatClient
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
	logger  *slog.Logger
}

var _ ports.LLMService = (*Service)(nil)

func NewService(client ChatClient, opts ...ServiceOption) *Service {
	s := &Service{
		client:  client,
		timeout: LLMTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.breaker == nil {
		s.breaker = circuitbreaker.New(5, 30*time.Second, // 5 failures, 30s timeout
			circuitbreaker.WithStateChange(s.onBreakerChange),
		)
	}
	metrics.CircuitBreakerState.WithLabelValues("llm").Set(float64(s.breaker.State()))

	return s
}

func (s *Service) onBreakerChange(from, to circuitbreaker.State) {
	metrics.CircuitBreakerState.WithLabelValues("llm").Set(float64(to))
	s.logger.Warn("llm circuit breaker changed state",
		"from", from.String(),
		"to", to.String(),
		"model", s.client.Model(),
	)
}

func (s *Service) ModelName() string {
	return s.client.Model()
}

// BreakerState reports the circuit breaker guarding the client
func (s *Service) BreakerState() circuitbreaker.State {
	return s.breaker.State()
}

// Chat sends a non-streaming chat request
func (s *Service) Chat(ctx context.Context, messages []ports.LLMMessage) (*ports.LLMResponse, error) {
	return s.execute(ctx, messages, s.client.Chat)
}

// ChatJSON sends a chat request in JSON response mode
func (s *Service) ChatJSON(ctx context.Context, messages []ports.LLMMessage) (*ports.LLMResponse, error) {
	return s.execute(ctx, messages, s.client.ChatJSON)
}

type chatFunc func(context.Context, []openai.ChatCompletionMessage) (*openai.ChatCompletionResponse, error)

func (s *Service) execute(ctx context.Context, messages []ports.LLMMessage, call chatFunc) (*ports.LLMResponse, error) {
	var result *ports.LLMResponse
	err := s.breaker.Execute(func() error {
		var err error
		result, err = s.doChat(ctx, messages, call)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return result, err
}

func (s *Service) doChat(ctx context.Context, messages []ports.LLMMessage, call chatFunc) (*ports.LLMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.client.Model()
	start := time.Now()
	response, err := call(ctx, convertMessages(messages))
	metrics.LLMRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(model, "error").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMRequestFailed, err)
	}
	if len(response.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(model, "empty").Inc()
		return nil, domain.ErrLLMEmptyResponse
	}
	metrics.LLMRequestsTotal.WithLabelValues(model, "ok").Inc()
	metrics.LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(response.Usage.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(response.Usage.CompletionTokens))

	choice := response.Choices[0]
	return &ports.LLMResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		PromptTokens: response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
	}, nil
}

// ChatStream sends a streaming chat request
func (s *Service) ChatStream(parentCtx context.Context, messages []ports.LLMMessage) (<-chan ports.LLMStreamChunk, error) {
	ctx, cancel := context.WithTimeout(parentCtx, s.timeout)

	clientChan, err := s.client.ChatStream(ctx, convertMessages(messages))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("chat stream request failed: %w", err)
	}

	outputChan := make(chan ports.LLMStreamChunk, 10)
	go func() {
		defer cancel()
		convertStreamChunks(ctx, clientChan, outputChan)
	}()

	return outputChan, nil
}

func convertMessages(messages []ports.LLMMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return out
}

// convertStreamChunks forwards client chunks until the client channel closes
// or ctx ends. outputChan is always closed.
func convertStreamChunks(ctx context.Context, clientChan <-chan StreamChunk, outputChan chan<- ports.LLMStreamChunk) {
	defer close(outputChan)

	for {
		select {
		case <-ctx.Done():
			select {
			case outputChan <- ports.LLMStreamChunk{Error: ctx.Err()}:
			default:
			}
			return
		case chunk, ok := <-clientChan:
			if !ok {
				return
			}

			select {
			case outputChan <- ports.LLMStreamChunk{
				Content: chunk.Content,
				Done:    chunk.Done,
				Error:   chunk.Error,
			}:
			case <-ctx.Done():
				return
			}
		}
	}
}
