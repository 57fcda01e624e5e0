package domain

import "context"

// GenerateRequest is a single bounded text generation call.
type GenerateRequest struct {
	Prompt        string
	MaxTokens     int
	Temperature   float32
	StopSequences []string
}

// TextGenerator produces free text from a prompt. Calls may fail or time out.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Generation is either a configured generator or its explicit absence.
// The zero value is the absent state.
type Generation struct {
	gen  TextGenerator
	name string
}

// WithGenerator wraps a configured generator. A nil gen yields the absent state.
func WithGenerator(gen TextGenerator, name string) Generation {
	if gen == nil {
		return Generation{}
	}
	return Generation{gen: gen, name: name}
}

// NoGenerator returns the absent state.
func NoGenerator() Generation { return Generation{} }

// Get returns the generator and whether one is configured.
func (g Generation) Get() (TextGenerator, bool) { return g.gen, g.gen != nil }

// Name returns the generator name, or "none" when absent.
func (g Generation) Name() string {
	if g.gen == nil {
		return "none"
	}
	return g.name
}
