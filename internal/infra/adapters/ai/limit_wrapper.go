package ai

import (
	"context"

	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
)

var _ adapter.LLMAdapter = (*limitedLLM)(nil)

// limitedLLM caps concurrent generations with a semaphore so a burst of
// jobs cannot hammer the provider.
type limitedLLM struct {
	inner adapter.LLMAdapter
	sem   chan struct{}
}

func NewLimitedLLM(inner adapter.LLMAdapter, maxConcurrent int) adapter.LLMAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedLLM{inner: inner, sem: make(chan struct{}, maxConcurrent)}
}

func (l *limitedLLM) Generate(ctx context.Context, model, systemPrompt, userContent string) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, model, systemPrompt, userContent)
}
