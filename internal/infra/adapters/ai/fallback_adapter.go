package ai

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dong881/audio-processor/internal/domain"
	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
	"github.com/dong881/audio-processor/internal/infra/metrics"
)

var _ adapter.ModelInvoker = (*FallbackInvoker)(nil)

// FallbackInvoker tries a priority list of models in order. Quota and
// rate-limit failures fall through to the next model; any other failure
// aborts the chain immediately unless fallbackOnAnyError is set. The
// fail-fast default mirrors the source system: a structural or auth error is
// unlikely to be model-specific, so masking it behind a fallback would hide
// real problems.
type FallbackInvoker struct {
	byProvider         map[string]adapter.LLMAdapter
	defaultProvider    string
	fallbackOnAnyError bool
	log                *zerolog.Logger
}

func NewFallbackInvoker(byProvider map[string]adapter.LLMAdapter, defaultProvider string, fallbackOnAnyError bool, logger *zerolog.Logger) *FallbackInvoker {
	l := logger.With().Str("component", "FallbackInvoker").Logger()
	return &FallbackInvoker{
		byProvider:         byProvider,
		defaultProvider:    strings.ToLower(defaultProvider),
		fallbackOnAnyError: fallbackOnAnyError,
		log:                &l,
	}
}

func (f *FallbackInvoker) pick(model string) adapter.LLMAdapter {
	prov := f.defaultProvider
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		prov = "gemini"
	case strings.HasPrefix(l, "gpt") || strings.HasPrefix(l, "o1") || strings.HasPrefix(l, "o3"):
		prov = "openai"
	}
	if a := f.byProvider[prov]; a != nil {
		return a
	}
	for _, a := range f.byProvider {
		if a != nil {
			return a
		}
	}
	return nil
}

func (f *FallbackInvoker) Invoke(ctx context.Context, systemPrompt, userContent string, models []string) (string, error) {
	if len(models) == 0 {
		return "", domain.ErrInvalidArgument
	}

	var lastErr error
	for i, model := range models {
		llm := f.pick(model)
		if llm == nil {
			return "", domain.ErrAllModelsFailed
		}

		out, err := llm.Generate(ctx, model, systemPrompt, userContent)
		if err == nil {
			metrics.IncLLMCall(model, "ok")
			f.log.Debug().Str("model", model).Msg("generation succeeded")
			return out, nil
		}

		if IsQuotaError(err) {
			metrics.IncLLMCall(model, "quota")
			f.log.Warn().Str("model", model).Err(err).Msg("model quota exhausted, trying next")
			lastErr = err
			if i < len(models)-1 {
				metrics.IncLLMFallback()
			}
			continue
		}

		metrics.IncLLMCall(model, "error")
		if f.fallbackOnAnyError {
			f.log.Warn().Str("model", model).Err(err).Msg("model failed, fallback widened to all errors")
			lastErr = err
			if i < len(models)-1 {
				metrics.IncLLMFallback()
			}
			continue
		}
		f.log.Error().Str("model", model).Err(err).Msg("model failed, aborting fallback chain")
		return "", err
	}

	f.log.Error().Msg("all models in priority list failed")
	if lastErr != nil {
		return "", lastErr
	}
	return "", domain.ErrAllModelsFailed
}

// IsQuotaError classifies quota/rate-limit failures by the markers the
// providers actually emit: an HTTP 429 code or the word "quota" anywhere in
// the error text.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource exhausted")
}
