package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/longregen/geoqa/internal/adapters/metrics"
	"github.com/longregen/geoqa/internal/adapters/retry"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.GetTracerProvider().Tracer("geoqa/llm")

// StreamChunk is one delta of a streamed completion
type StreamChunk struct {
	Content      string
	FinishReason string
	Error        error
	Done         bool
}

type clientConfig struct {
	model        string
	maxTokens    int
	temperature  float64
	systemPrompt string
	httpClient   *http.Client
	timeout      time.Duration
	retryConfig  retry.BackoffConfig
}

// Option configures a Client
type Option func(*clientConfig)

func WithModel(model string) Option {
	return func(c *clientConfig) {
		c.model = model
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(c *clientConfig) {
		c.maxTokens = maxTokens
	}
}

func WithTemperature(temperature float64) Option {
	return func(c *clientConfig) {
		c.temperature = temperature
	}
}

// WithSystemPrompt prepends a system message to conversations that lack one
func WithSystemPrompt(prompt string) Option {
	return func(c *clientConfig) {
		c.systemPrompt = prompt
	}
}

// WithHTTPClient overrides the transport; WithTimeout is then ignored
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

func WithRetryConfig(cfg retry.BackoffConfig) Option {
	return func(c *clientConfig) {
		c.retryConfig = cfg
	}
}

// Client is an OpenAI-compatible chat completion client
type Client struct {
	api          *openai.Client
	baseURL      string
	model        string
	maxTokens    int
	temperature  float64
	systemPrompt string
	retryConfig  retry.BackoffConfig
}

// NewClient creates a client. baseURL is the full API base, e.g. "https://api.openai.com/v1".
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{
		model:       "gpt-4o-mini",
		maxTokens:   1024,
		temperature: 0.7,
		timeout:     60 * time.Second,
		retryConfig: retry.LLMConfig(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	baseURL = strings.TrimSuffix(baseURL, "/")

	openaiCfg := openai.DefaultConfig(apiKey)
	openaiCfg.BaseURL = baseURL
	if cfg.httpClient != nil {
		openaiCfg.HTTPClient = cfg.httpClient
	} else {
		openaiCfg.HTTPClient = &http.Client{Timeout: cfg.timeout}
	}

	c := &Client{
		api:          openai.NewClientWithConfig(openaiCfg),
		baseURL:      baseURL,
		model:        cfg.model,
		maxTokens:    cfg.maxTokens,
		temperature:  cfg.temperature,
		systemPrompt: cfg.systemPrompt,
		retryConfig:  cfg.retryConfig,
	}

	onRetry := c.retryConfig.OnRetry
	c.retryConfig.OnRetry = func(attempt int, err error, wait time.Duration) {
		metrics.LLMRetriesTotal.WithLabelValues(c.model).Inc()
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
	}

	return c
}

func (c *Client) Model() string {
	return c.model
}

// Chat sends a non-streaming chat completion request
func (c *Client) Chat(ctx context.Context, messages []openai.ChatCompletionMessage) (*openai.ChatCompletionResponse, error) {
	return c.chat(ctx, c.request(messages), "llm.chat")
}

// ChatJSON requests a JSON object response
func (c *Client) ChatJSON(ctx context.Context, messages []openai.ChatCompletionMessage) (*openai.ChatCompletionResponse, error) {
	req := c.request(messages)
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	return c.chat(ctx, req, "llm.chat_json")
}

func (c *Client) request(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	if c.systemPrompt != "" && (len(messages) == 0 || messages[0].Role != openai.ChatMessageRoleSystem) {
		system := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.systemPrompt,
		}
		messages = append([]openai.ChatCompletionMessage{system}, messages...)
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: float32(c.temperature),
	}
}

func (c *Client) chat(ctx context.Context, req openai.ChatCompletionRequest, spanName string) (*openai.ChatCompletionResponse, error) {
	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.request.max_tokens", req.MaxTokens),
		attribute.Int("llm.request.messages", len(req.Messages)),
	)
	if req.Temperature > 0 {
		span.SetAttributes(attribute.Float64("llm.request.temperature", float64(req.Temperature)))
	}

	var resp openai.ChatCompletionResponse
	attempts := 0
	err := retry.WithBackoffHTTP(ctx, c.retryConfig, func() (int, error) {
		attempts++
		var err error
		resp, err = c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return statusCode(err), err
		}
		return http.StatusOK, nil
	})
	span.SetAttributes(attribute.Int("llm.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	span.SetAttributes(
		attribute.Int("llm.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int("llm.usage.total_tokens", resp.Usage.TotalTokens),
	)
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		span.SetAttributes(
			attribute.String("llm.response.finish_reason", string(choice.FinishReason)),
			attribute.Int("llm.response.content_length", len(choice.Message.Content)),
		)
	} else {
		span.SetAttributes(attribute.Int("llm.response.choices", 0))
	}

	return &resp, nil
}

// ChatStream streams a completion. Only opening the stream is retried.
// The returned channel is closed after a Done or Error chunk, or when ctx ends.
func (c *Client) ChatStream(ctx context.Context, messages []openai.ChatCompletionMessage) (<-chan StreamChunk, error) {
	req := c.request(messages)
	req.Stream = true

	var stream *openai.ChatCompletionStream
	err := retry.WithBackoffHTTP(ctx, c.retryConfig, func() (int, error) {
		s, err := c.api.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return statusCode(err), err
		}
		stream = s
		return http.StatusOK, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open chat stream: %w", err)
	}

	chunks := make(chan StreamChunk, 10)

	go func() {
		defer close(chunks)
		defer stream.Close()

		send := func(chunk StreamChunk) bool {
			select {
			case chunks <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(StreamChunk{Done: true})
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				}
				send(StreamChunk{Error: err})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			choice := resp.Choices[0]
			chunk := StreamChunk{
				Content:      choice.Delta.Content,
				FinishReason: string(choice.FinishReason),
			}
			if chunk.Content == "" && chunk.FinishReason == "" {
				continue
			}
			if !send(chunk) {
				return
			}
		}
	}()

	return chunks, nil
}

// statusCode extracts the HTTP status carried by go-openai errors
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
