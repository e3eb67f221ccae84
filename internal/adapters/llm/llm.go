// Package llm turns a free-text question into a raw JSON query descriptor.
//
// Parsers are untrusted: whatever they return goes through query.Decode
// before anything reads the table.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/rehabchat/internal/domain/model"
)

// Backend names accepted by New.
const (
	BackendLMStudio = "lmstudio"
	BackendOpenAI   = "openai"
	BackendGemini   = "gemini"
	BackendRules    = "rules"
)

// Parser converts a question, read in the light of the previous turn, into
// descriptor JSON.
type Parser interface {
	Parse(ctx context.Context, question string, c model.Context) (string, error)
	Name() string
}

// New builds the parser for backend.
func New(ctx context.Context, backend string, opts ...Option) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendLMStudio:
		return NewLMStudio(opts...), nil
	case BackendOpenAI:
		return NewOpenAI(opts...)
	case BackendGemini:
		return NewGemini(ctx, opts...)
	case BackendRules:
		return NewRules(opts...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}
