// Package example implements the record passed to and returned from predictors:
// a bag of named fields partitioned into declared input keys and output keys.
package example

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrMissingField is returned by Lookup when the example has no such field
var ErrMissingField = errors.New("missing field")

// Example is a named set of field values with input/output key partitioning.
//
// InputKeys and OutputKeys are not required to name fields present in Data.
type Example struct {
	Data       map[string]Value `json:"data" msgpack:"data"`
	InputKeys  []string         `json:"input_keys" msgpack:"input_keys"`
	OutputKeys []string         `json:"output_keys" msgpack:"output_keys"`
}

// New builds an example. Output keys are resolved as follows:
// explicit outputKeys are used as given; otherwise, with non-empty inputKeys,
// every data key that is not an input becomes an output; otherwise there are none.
// New takes ownership of data. The key slices are copied.
func New(data map[string]Value, inputKeys, outputKeys []string) Example {
	if data == nil {
		data = map[string]Value{}
	}

	switch {
	case len(outputKeys) > 0:
		outputKeys = slices.Clone(outputKeys)
	case len(inputKeys) > 0:
		outputKeys = complement(data, inputKeys)
	default:
		outputKeys = []string{}
	}

	return Example{
		Data:       data,
		InputKeys:  cloneKeys(inputKeys),
		OutputKeys: outputKeys,
	}
}

// FromMap builds an example from plain Go values
func FromMap(fields map[string]any, inputKeys ...string) Example {
	data := make(map[string]Value, len(fields))
	for k, v := range fields {
		data[k] = ValueOf(v)
	}
	return New(data, inputKeys, nil)
}

// Get returns the value stored under key. When the key is absent it falls back
// to def[0] when given, and to the empty string otherwise. A missing field does
// not signal an error; use Lookup for that.
func (e Example) Get(key string, def ...string) Value {
	if v, ok := e.Data[key]; ok {
		return v
	}
	if len(def) > 0 {
		return String(def[0])
	}
	return String("")
}

// Lookup is the strict form of Get
func (e Example) Lookup(key string) (Value, error) {
	v, ok := e.Data[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return v, nil
}

func (e Example) Has(key string) bool {
	_, ok := e.Data[key]
	return ok
}

// Keys returns the field names sorted lexically
func (e Example) Keys() []string {
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns the field values in Keys order
func (e Example) Values() []Value {
	keys := e.Keys()
	values := make([]Value, len(keys))
	for i, k := range keys {
		values[i] = e.Data[k]
	}
	return values
}

// Set writes a field in place
func (e *Example) Set(key string, v Value) {
	if e.Data == nil {
		e.Data = map[string]Value{}
	}
	e.Data[key] = v
}

// SetInputKeys replaces the input keys in place and recomputes the output keys
// as the complement, dropping any explicitly declared outputs.
func (e *Example) SetInputKeys(keys ...string) {
	e.InputKeys = cloneKeys(keys)
	e.OutputKeys = complement(e.Data, keys)
}

// WithInputKeys returns a copy with the given input keys and the complement as outputs
func (e Example) WithInputKeys(keys ...string) Example {
	if keys == nil {
		keys = []string{}
	}
	return Example{
		Data:       copyData(e.Data),
		InputKeys:  slices.Clone(keys),
		OutputKeys: complement(e.Data, keys),
	}
}

// Without returns a copy with the named fields removed from the data and
// from both key lists.
func (e Example) Without(keys ...string) Example {
	data := make(map[string]Value, len(e.Data))
	for k, v := range e.Data {
		if !slices.Contains(keys, k) {
			data[k] = v.clone()
		}
	}
	return Example{
		Data:       data,
		InputKeys:  filterKeys(e.InputKeys, keys),
		OutputKeys: filterKeys(e.OutputKeys, keys),
	}
}

// Inputs returns a copy holding only the input fields
func (e Example) Inputs() Example {
	data := make(map[string]Value, len(e.InputKeys))
	for _, k := range e.InputKeys {
		if v, ok := e.Data[k]; ok {
			data[k] = v.clone()
		}
	}
	return Example{
		Data:       data,
		InputKeys:  slices.Clone(e.InputKeys),
		OutputKeys: []string{},
	}
}

// Labels returns a copy holding every field that is not an input
func (e Example) Labels() Example {
	return e.Without(e.InputKeys...)
}

// Clone returns a deep copy
func (e Example) Clone() Example {
	return Example{
		Data:       copyData(e.Data),
		InputKeys:  cloneKeys(e.InputKeys),
		OutputKeys: cloneKeys(e.OutputKeys),
	}
}

// Map returns the data as plain Go values
func (e Example) Map() map[string]any {
	out := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		out[k] = v.Interface()
	}
	return out
}

func (e Example) String() string {
	return fmt.Sprintf("Example(%s, inputs=%v, outputs=%v)", Object(e.Data), e.InputKeys, e.OutputKeys)
}

// complement returns the sorted data keys that are not in keys
func complement(data map[string]Value, keys []string) []string {
	out := make([]string, 0, len(data))
	for k := range data {
		if !slices.Contains(keys, k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func filterKeys(keys, remove []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !slices.Contains(remove, k) {
			out = append(out, k)
		}
	}
	return out
}

func copyData(data map[string]Value) map[string]Value {
	out := make(map[string]Value, len(data))
	for k, v := range data {
		out[k] = v.clone()
	}
	return out
}

func cloneKeys(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return slices.Clone(keys)
}
