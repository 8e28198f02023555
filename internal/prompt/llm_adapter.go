package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
	"github.com/longregen/geoqa/internal/ports"
)

// LLMServiceAdapter adapts ports.LLMService to dspy-go's LLM interface
type LLMServiceAdapter struct {
	service ports.LLMService
}

func NewLLMServiceAdapter(service ports.LLMService) *LLMServiceAdapter {
	return &LLMServiceAdapter{service: service}
}

var _ core.LLM = (*LLMServiceAdapter)(nil)

func userPrompt(prompt string) []ports.LLMMessage {
	return []ports.LLMMessage{{Role: "user", Content: prompt}}
}

func (a *LLMServiceAdapter) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	resp, err := a.service.Chat(ctx, userPrompt(prompt))
	if err != nil {
		return nil, fmt.Errorf("llm service chat failed: %w", err)
	}

	return &core.LLMResponse{
		Content: resp.Content,
	}, nil
}

// GenerateWithJSON asks for a JSON object and decodes it
func (a *LLMServiceAdapter) GenerateWithJSON(ctx context.Context, prompt string, opts ...core.GenerateOption) (map[string]interface{}, error) {
	resp, err := a.service.ChatJSON(ctx, userPrompt(prompt))
	if err != nil {
		return nil, fmt.Errorf("llm service json chat failed: %w", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &out); err != nil {
		return nil, fmt.Errorf("model did not return a JSON object: %w", err)
	}
	return out, nil
}

// stripCodeFence removes a surrounding ```json fence some models add in JSON mode
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func (a *LLMServiceAdapter) GenerateWithFunctions(ctx context.Context, prompt string, functions []map[string]interface{}, opts ...core.GenerateOption) (map[string]interface{}, error) {
	return nil, fmt.Errorf("GenerateWithFunctions not supported by %s", a.ProviderName())
}

func (a *LLMServiceAdapter) CreateEmbedding(ctx context.Context, input string, opts ...core.EmbeddingOption) (*core.EmbeddingResult, error) {
	return nil, fmt.Errorf("CreateEmbedding not supported by %s", a.ProviderName())
}

func (a *LLMServiceAdapter) CreateEmbeddings(ctx context.Context, inputs []string, opts ...core.EmbeddingOption) (*core.BatchEmbeddingResult, error) {
	return nil, fmt.Errorf("CreateEmbeddings not supported by %s", a.ProviderName())
}

// StreamGenerate streams a completion from ports.LLMService.ChatStream.
// The chunk channel closes after a Done or error chunk, or when Cancel is called.
func (a *LLMServiceAdapter) StreamGenerate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.StreamResponse, error) {
	ctx, cancel := context.WithCancel(ctx)

	upstream, err := a.service.ChatStream(ctx, userPrompt(prompt))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("llm service stream failed: %w", err)
	}

	chunks := make(chan core.StreamChunk, 10)
	go func() {
		defer cancel()
		defer close(chunks)
		forwardChunks(ctx, upstream, chunks)
	}()

	return &core.StreamResponse{ChunkChannel: chunks, Cancel: cancel}, nil
}

func forwardChunks(ctx context.Context, upstream <-chan ports.LLMStreamChunk, out chan<- core.StreamChunk) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-upstream:
			if !ok {
				return
			}
			select {
			case out <- core.StreamChunk{Content: chunk.Content, Done: chunk.Done, Error: chunk.Error}:
			case <-ctx.Done():
				return
			}
			if chunk.Done || chunk.Error != nil {
				return
			}
		}
	}
}

func (a *LLMServiceAdapter) GenerateWithContent(ctx context.Context, content []core.ContentBlock, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	return nil, fmt.Errorf("GenerateWithContent not supported by %s", a.ProviderName())
}

func (a *LLMServiceAdapter) StreamGenerateWithContent(ctx context.Context, content []core.ContentBlock, opts ...core.GenerateOption) (*core.StreamResponse, error) {
	return nil, fmt.Errorf("StreamGenerateWithContent not supported by %s", a.ProviderName())
}

func (a *LLMServiceAdapter) ProviderName() string {
	return "geoqa"
}

func (a *LLMServiceAdapter) ModelID() string {
	return a.service.ModelName()
}

func (a *LLMServiceAdapter) Capabilities() []core.Capability {
	return []core.Capability{core.CapabilityChat, core.CapabilityCompletion, core.CapabilityStreaming}
}
