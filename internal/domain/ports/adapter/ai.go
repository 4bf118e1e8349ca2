package adapter

import "context"

// LLMAdapter is the port for a single language-model provider. Generate runs
// one system+user prompt against a concrete model and returns the raw text.
type LLMAdapter interface {
	Generate(ctx context.Context, model, systemPrompt, userContent string) (string, error)
}

// ModelInvoker runs a prompt across a priority list of model names, falling
// through on quota exhaustion. It fails only when every model fails.
type ModelInvoker interface {
	Invoke(ctx context.Context, systemPrompt, userContent string, models []string) (string, error)
}
