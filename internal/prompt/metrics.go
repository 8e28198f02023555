package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/longregen/geoqa/internal/example"
	"github.com/longregen/geoqa/internal/ports"
)

const defaultAnswerField = "answer"

// Metric scores a prediction against a gold example
type Metric interface {
	// Score returns a value in [0, 1] and optional feedback
	Score(ctx context.Context, gold, pred example.Example) (ScoreWithFeedback, error)
}

// ScoreWithFeedback combines numeric score with textual feedback
type ScoreWithFeedback struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback,omitempty"`
}

func field(name string) string {
	if name == "" {
		return defaultAnswerField
	}
	return name
}

// labelOf returns the gold value of key, which must be present
func labelOf(gold example.Example, key string) (example.Value, error) {
	v, err := gold.Lookup(key)
	if err != nil {
		return example.Value{}, fmt.Errorf("gold example: %w", err)
	}
	return v, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ExactMatchMetric checks if the prediction exactly matches the expected output
type ExactMatchMetric struct {
	// Field defaults to "answer"
	Field string
	// Normalize ignores case and collapses whitespace
	Normalize bool
}

func (m *ExactMatchMetric) Name() string { return "exact_match" }

func (m *ExactMatchMetric) Score(ctx context.Context, gold, pred example.Example) (ScoreWithFeedback, error) {
	key := field(m.Field)
	expected, err := labelOf(gold, key)
	if err != nil {
		return ScoreWithFeedback{}, err
	}
	actual := pred.Get(key)

	match := expected.Equal(actual)
	if !match && m.Normalize {
		match = normalize(expected.String()) == normalize(actual.String())
	}

	if match {
		return ScoreWithFeedback{Score: 1.0, Feedback: "Correct!"}, nil
	}

	return ScoreWithFeedback{
		Score:    0.0,
		Feedback: fmt.Sprintf("Expected: %s, Got: %s", expected, actual),
	}, nil
}

// ContainsMetric passes when the predicted field contains the expected text, ignoring case
type ContainsMetric struct {
	Field string
}

func (m *ContainsMetric) Name() string { return "contains" }

func (m *ContainsMetric) Score(ctx context.Context, gold, pred example.Example) (ScoreWithFeedback, error) {
	key := field(m.Field)
	label, err := labelOf(gold, key)
	if err != nil {
		return ScoreWithFeedback{}, err
	}
	expected := normalize(label.String())
	actual := normalize(pred.Get(key).String())

	if expected != "" && strings.Contains(actual, expected) {
		return ScoreWithFeedback{Score: 1.0, Feedback: "Correct!"}, nil
	}
	return ScoreWithFeedback{
		Score:    0.0,
		Feedback: fmt.Sprintf("Expected %q within %q", expected, actual),
	}, nil
}

// TokenOverlapMetric scores the Jaccard similarity of the word sets
type TokenOverlapMetric struct {
	Field string
}

func (m *TokenOverlapMetric) Name() string { return "token_overlap" }

func (m *TokenOverlapMetric) Score(ctx context.Context, gold, pred example.Example) (ScoreWithFeedback, error) {
	key := field(m.Field)
	label, err := labelOf(gold, key)
	if err != nil {
		return ScoreWithFeedback{}, err
	}
	expected := label.String()
	actual := pred.Get(key).String()

	similarity := jaccardSimilarity(expected, actual)
	return ScoreWithFeedback{
		Score:    similarity,
		Feedback: fmt.Sprintf("Token overlap: %.2f\nExpected: %s\nActual: %s", similarity, expected, actual),
	}, nil
}

func jaccardSimilarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)

	if a == b {
		return 1.0
	}

	setA := make(map[string]bool)
	for _, word := range strings.Fields(a) {
		setA[word] = true
	}

	setB := make(map[string]bool)
	for _, word := range strings.Fields(b) {
		setB[word] = true
	}

	intersection := 0
	for word := range setA {
		if setB[word] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// LLMJudgeMetric asks a model to grade the prediction
type LLMJudgeMetric struct {
	llmService ports.LLMService
	criteria   string
	field      string
}

func NewLLMJudgeMetric(llmService ports.LLMService, criteria string) *LLMJudgeMetric {
	return &LLMJudgeMetric{
		llmService: llmService,
		criteria:   criteria,
		field:      defaultAnswerField,
	}
}

func (m *LLMJudgeMetric) Name() string { return "llm_judge" }

func (m *LLMJudgeMetric) Score(ctx context.Context, gold, pred example.Example) (ScoreWithFeedback, error) {
	var question strings.Builder
	for _, k := range gold.InputKeys {
		fmt.Fprintf(&question, "%s: %s\n", k, gold.Get(k))
	}

	prompt := fmt.Sprintf(`Evaluate this response based on: %s

%s
Expected Answer: %s
Actual Response: %s

Provide a score from 0.0 to 1.0 and explain your reasoning.
Format:
REASONING: ...
SCORE: X.X`,
		m.criteria,
		strings.TrimSpace(question.String()),
		gold.Get(m.field),
		pred.Get(m.field),
	)

	resp, err := m.llmService.Chat(ctx, []ports.LLMMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return ScoreWithFeedback{}, fmt.Errorf("llm judge failed: %w", err)
	}

	score, reasoning := parseJudgeResponse(resp.Content)
	return ScoreWithFeedback{Score: score, Feedback: reasoning}, nil
}

// parseJudgeResponse extracts score and reasoning. Scores are clamped to [0, 1].
func parseJudgeResponse(content string) (float64, string) {
	var score float64
	var reasoning string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SCORE:"):
			if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "SCORE:")), 64); err == nil {
				score = v
			}
		case strings.HasPrefix(line, "REASONING:"):
			reasoning = strings.TrimSpace(strings.TrimPrefix(line, "REASONING:"))
		}
	}

	return min(max(score, 0), 1), reasoning
}

// MetricName returns m's name when it has one
func MetricName(m Metric) string {
	if named, ok := m.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", m)
}

// ErrUnknownMetric is returned by MetricByName
var ErrUnknownMetric = errors.New("unknown metric")

// MetricByName resolves the string-comparison metrics; llm_judge needs a service
// and is resolved by NewLLMJudgeMetric instead.
func MetricByName(name, fieldName string) (Metric, error) {
	switch name {
	case "", "exact_match":
		return &ExactMatchMetric{Field: fieldName, Normalize: true}, nil
	case "exact_match_strict":
		return &ExactMatchMetric{Field: fieldName}, nil
	case "contains":
		return &ContainsMetric{Field: fieldName}, nil
	case "token_overlap":
		return &TokenOverlapMetric{Field: fieldName}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
}
