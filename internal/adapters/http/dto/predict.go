package dto

import (
	"github.com/longregen/geoqa/internal/example"
)

// PredictRequest carries the signature inputs for a single prediction
type PredictRequest struct {
	Inputs map[string]example.Value `json:"inputs" msgpack:"inputs"`
}

type PredictResponse struct {
	ID      string                   `json:"id" msgpack:"id"`
	Outputs map[string]example.Value `json:"outputs" msgpack:"outputs"`
	Example example.Example          `json:"example" msgpack:"example"`
}

type SignatureField struct {
	Name        string `json:"name" msgpack:"name"`
	Description string `json:"description,omitempty" msgpack:"description,omitempty"`
}

type SignatureResponse struct {
	Name        string           `json:"name" msgpack:"name"`
	Instruction string           `json:"instruction" msgpack:"instruction"`
	Inputs      []SignatureField `json:"inputs" msgpack:"inputs"`
	Outputs     []SignatureField `json:"outputs" msgpack:"outputs"`
}
