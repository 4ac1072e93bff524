package port

import "context"

// LLM represents a language-model service used for table summarization,
// keyword extraction, theme summarization and answer synthesis.
type LLM interface {
	// GenerateWithSystem generates text with a system prompt.
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
