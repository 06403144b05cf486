package ai

import "context"

// DigestGenerator is the interface for language-model digest generation.
// Implementations return the model's raw response text, which is expected
// to parse as JSON but carries no schema guarantee; validation is the
// summarization engine's responsibility.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type DigestGenerator interface {
	GenerateDigest(ctx context.Context, instruction, content string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
