package ports

import (
	"context"
)

// LLMMessage represents a message in the LLM conversation context
type LLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMResponse represents a response from the LLM
type LLMResponse struct {
	Content      string `json:"content,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// LLMStreamChunk represents a streaming chunk from the LLM
type LLMStreamChunk struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done"`
	Error   error  `json:"error,omitempty"`
}

// LLMService defines the interface for LLM interactions
type LLMService interface {
	Chat(ctx context.Context, messages []LLMMessage) (*LLMResponse, error)
	// ChatJSON asks the model for a JSON object response
	ChatJSON(ctx context.Context, messages []LLMMessage) (*LLMResponse, error)
	ChatStream(ctx context.Context, messages []LLMMessage) (<-chan LLMStreamChunk, error)
	ModelName() string
}
