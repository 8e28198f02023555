package domain

import "errors"

// Common domain errors
var (
	// Dataset errors
	ErrExampleNotFound = errors.New("example not found")
	ErrDatasetEmpty    = errors.New("dataset is empty")

	// LLM errors
	ErrLLMUnavailable   = errors.New("LLM service unavailable")
	ErrLLMRequestFailed = errors.New("LLM request failed")
	ErrLLMEmptyResponse = errors.New("LLM returned no choices")
)
