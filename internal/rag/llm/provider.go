package llm

import "context"

// Provider answers a question grounded on a numbered context block.
type Provider interface {
	Generate(ctx context.Context, question string, contextBlock string) (string, error)
}
