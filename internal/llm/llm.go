package llm

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"

	"personal-chef/internal/shared"
)

// Error kinds surfaced by the clients. Both map to the same user-facing
// message; they are kept apart for logging and tests.
var (
	// ErrBackend wraps network, auth and quota failures from the
	// generation backend.
	ErrBackend = errors.New("llm backend error")

	// ErrTimeout marks a generation call that exceeded the configured
	// deadline.
	ErrTimeout = errors.New("llm backend timeout")
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator generates JSON text constrained by a response schema.
// Implementations perform a single attempt: no retries on failure and
// no repair of malformed output.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, responseSchema *genai.Schema) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
