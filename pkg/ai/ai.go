package ai

import (
	"context"
	"errors"
)

// ErrMalformedOutput marks capability responses that could not be parsed
// into the requested structured shape, even after repair. Callers use it to
// distinguish parse failures from transport failures.
var ErrMalformedOutput = errors.New("model output does not match requested format")

// GenerateOptions holds configuration for a single generation request.
type GenerateOptions struct {
	Model           string   // Model identifier to use for generation
	SystemPrompts   []string // System prompts prepended to the request
	Temperature     float64  // Sampling temperature
	MaxOutputTokens int      // Upper bound on generated tokens, 0 means provider default
}

// GenerateOption is a functional option for configuring generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts sets the system prompts prepended to the request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxOutputTokens caps the number of generated tokens.
func WithMaxOutputTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxOutputTokens = n
	}
}

// ModelMetrics contains accumulated token usage and timing from the
// capability since the last reset.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// GraphAIClient is the boundary to the external text-analysis capability.
// Implementations send text and return either free-form completions or
// output constrained by a JSON schema derived from the out parameter.
//
// GenerateCompletionWithFormat must return an error wrapping
// ErrMalformedOutput when the response cannot be parsed into out; any other
// error is a transport or service failure.
type GraphAIClient interface {
	GenerateCompletion(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)
	GenerateCompletionWithFormat(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...GenerateOption,
	) error

	ResetMetrics()
	GetMetrics() ModelMetrics
}
