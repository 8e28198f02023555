// Package dataset reads and writes example collections stored as JSON Lines or YAML files.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/longregen/geoqa/internal/example"
	"gopkg.in/yaml.v3"
)

// maxLineSize bounds a single JSONL record
const maxLineSize = 4 * 1024 * 1024

// Load reads a dataset file, choosing the format from its extension.
// defaultInputs applies to records that do not declare their own input keys.
func Load(path string, defaultInputs []string) ([]example.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return LoadJSONL(f, defaultInputs)
	case ".yaml", ".yml":
		return LoadYAML(f, defaultInputs)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", filepath.Ext(path))
	}
}

// LoadJSONL reads one example per line. Blank lines and lines starting with # are skipped.
func LoadJSONL(r io.Reader, defaultInputs []string) ([]example.Example, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var examples []example.Example
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var raw map[string]example.Value
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}

		ex, err := decodeRecord(raw, defaultInputs)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	return examples, nil
}

// yamlDocument is the object form of a YAML dataset
type yamlDocument struct {
	InputKeys []string         `yaml:"input_keys"`
	Examples  []map[string]any `yaml:"examples"`
}

// LoadYAML reads either a top-level list of records or a document with
// "input_keys" and "examples".
func LoadYAML(r io.Reader, defaultInputs []string) ([]example.Example, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(content, &node); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var records []map[string]any
	inputs := defaultInputs

	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&records); err != nil {
			return nil, fmt.Errorf("invalid YAML records: %w", err)
		}
	case yaml.MappingNode:
		var doc yamlDocument
		if err := node.Content[0].Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid YAML document: %w", err)
		}
		records = doc.Examples
		if len(doc.InputKeys) > 0 {
			inputs = doc.InputKeys
		}
	default:
		return nil, fmt.Errorf("YAML dataset must be a list or a mapping")
	}

	examples := make([]example.Example, 0, len(records))
	for i, rec := range records {
		raw := make(map[string]example.Value, len(rec))
		for k, v := range rec {
			raw[k] = example.ValueOf(v)
		}
		ex, err := decodeRecord(raw, inputs)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		examples = append(examples, ex)
	}
	return examples, nil
}

// WriteJSONL writes examples in the full form accepted by LoadJSONL
func WriteJSONL(w io.Writer, examples []example.Example) error {
	enc := json.NewEncoder(w)
	for i, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return fmt.Errorf("failed to encode example %d: %w", i, err)
		}
	}
	return nil
}

// decodeRecord accepts the full form ({"data", "input_keys", "output_keys"})
// or a flat object of fields.
func decodeRecord(raw map[string]example.Value, defaultInputs []string) (example.Example, error) {
	dataValue, hasData := raw["data"]
	_, hasInputs := raw["input_keys"]
	if !hasData || !hasInputs {
		return example.New(raw, cloneKeys(defaultInputs), nil), nil
	}

	data, ok := dataValue.AsObject()
	if !ok {
		return example.Example{}, fmt.Errorf("data must be an object, got %s", dataValue.Kind())
	}

	inputKeys, err := stringList(raw["input_keys"])
	if err != nil {
		return example.Example{}, fmt.Errorf("input_keys: %w", err)
	}

	var outputKeys []string
	if v, ok := raw["output_keys"]; ok && !v.IsNull() {
		outputKeys, err = stringList(v)
		if err != nil {
			return example.Example{}, fmt.Errorf("output_keys: %w", err)
		}
	}

	return example.New(data, inputKeys, outputKeys), nil
}

func stringList(v example.Value) ([]string, error) {
	if v.IsNull() {
		return nil, nil
	}
	items, ok := v.AsArray()
	if !ok {
		return nil, fmt.Errorf("expected list, got %s", v.Kind())
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.AsString()
		if !ok {
			return nil, fmt.Errorf("expected string key, got %s", item.Kind())
		}
		out = append(out, s)
	}
	return out, nil
}

func cloneKeys(keys []string) []string {
	return append([]string(nil), keys...)
}
