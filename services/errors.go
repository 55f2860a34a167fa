package services

import "fmt"

// Error taxonomy for the RAG pipelines. Validation and configuration errors
// are never retried; gateway errors are retried inside the pipeline before
// they cross a component boundary.

// ValidationError reports bad caller input. Always a client error.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConfigurationError reports a fatal setup problem, e.g. an embedding
// dimensionality mismatch. Not recoverable at request time.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// EmbeddingError reports an embedding gateway failure after retries.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding gateway: %v", e.Err) }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// StoreError reports a vector store gateway failure after retries.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("vector store: %v", e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// GenerationError reports a chat completion gateway failure after retries.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("chat completion: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }
