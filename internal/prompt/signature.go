package prompt

import (
	"fmt"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
)

// Signature wraps dspy-go's signature with a name and version
type Signature struct {
	core.Signature
	Name        string
	Description string
	Version     int
}

// MustParseSignature creates a signature from a string or panics
func MustParseSignature(sig string) Signature {
	s, err := ParseSignature(sig)
	if err != nil {
		panic(fmt.Sprintf("failed to parse signature: %v", err))
	}
	return s
}

// ParseSignature creates a signature from a string like "input1, input2 -> output1, output2".
// Type annotations ("name: str") are accepted and ignored.
func ParseSignature(sig string) (Signature, error) {
	parts := strings.Split(sig, "->")
	if len(parts) != 2 {
		return Signature{}, fmt.Errorf("invalid signature format: %s", sig)
	}

	inputFields, err := parseFields(parts[0])
	if err != nil {
		return Signature{}, fmt.Errorf("invalid inputs in %q: %w", sig, err)
	}
	outputFields, err := parseFields(parts[1])
	if err != nil {
		return Signature{}, fmt.Errorf("invalid outputs in %q: %w", sig, err)
	}
	if len(outputFields) == 0 {
		return Signature{}, fmt.Errorf("signature %q declares no outputs", sig)
	}

	inputs := make([]core.InputField, len(inputFields))
	for i, f := range inputFields {
		inputs[i] = core.InputField{Field: f}
	}

	outputs := make([]core.OutputField, len(outputFields))
	for i, f := range outputFields {
		outputs[i] = core.OutputField{Field: f}
	}

	return Signature{
		Signature: core.NewSignature(inputs, outputs),
		Name:      generateName(sig),
		Version:   1,
	}, nil
}

func parseFields(fieldStr string) ([]core.Field, error) {
	fieldStr = strings.TrimSpace(fieldStr)
	if fieldStr == "" {
		return nil, nil
	}

	parts := strings.Split(fieldStr, ",")
	fields := make([]core.Field, 0, len(parts))
	seen := make(map[string]bool, len(parts))

	for _, part := range parts {
		name, _, _ := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate field %q", name)
		}
		seen[name] = true
		fields = append(fields, core.NewField(name))
	}

	return fields, nil
}

func generateName(sig string) string {
	name := strings.ReplaceAll(sig, "->", "_to_")
	replacer := strings.NewReplacer(",", "_", " ", "", ":", "_")
	return replacer.Replace(name)
}

// WithInstruction returns a copy carrying the instruction text sent to the model
func (s Signature) WithInstruction(text string) Signature {
	s.Signature.Instruction = text
	s.Description = text
	return s
}

// WithName returns a copy with the given name
func (s Signature) WithName(name string) Signature {
	s.Name = name
	return s
}

func (s Signature) InputNames() []string {
	names := make([]string, len(s.Inputs))
	for i, f := range s.Inputs {
		names[i] = f.Name
	}
	return names
}

func (s Signature) OutputNames() []string {
	names := make([]string, len(s.Outputs))
	for i, f := range s.Outputs {
		names[i] = f.Name
	}
	return names
}

// Predefined signatures
var (
	GeographyQA = MustParseSignature("question -> answer").
		WithName("geography_qa").
		WithInstruction("Answer questions about geography.")

	QA = MustParseSignature("question -> answer").
		WithName("qa").
		WithInstruction("You are a helpful assistant.")
)
