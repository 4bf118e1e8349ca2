package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dong881/audio-processor/internal/domain"
	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
)

// scriptedLLM returns per-model canned results.
type scriptedLLM struct {
	results map[string]string
	errs    map[string]error
	calls   []string
}

func (s *scriptedLLM) Generate(_ context.Context, model, _, _ string) (string, error) {
	s.calls = append(s.calls, model)
	if err, ok := s.errs[model]; ok {
		return "", err
	}
	return s.results[model], nil
}

func newInvoker(llm *scriptedLLM, anyError bool) *FallbackInvoker {
	l := zerolog.Nop()
	return NewFallbackInvoker(map[string]adapter.LLMAdapter{"gemini": llm}, "gemini", anyError, &l)
}

func TestFallback_FirstModelSucceeds(t *testing.T) {
	llm := &scriptedLLM{results: map[string]string{"gemini-2.5-pro": "answer"}}
	inv := newInvoker(llm, false)

	out, err := inv.Invoke(context.Background(), "sys", "user", []string{"gemini-2.5-pro", "gemini-2.5-flash"})
	if err != nil || out != "answer" {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if len(llm.calls) != 1 {
		t.Errorf("calls = %v", llm.calls)
	}
}

func TestFallback_QuotaFallsThrough(t *testing.T) {
	llm := &scriptedLLM{
		errs:    map[string]error{"gemini-2.5-pro": errors.New("googleapi: Error 429: quota exceeded")},
		results: map[string]string{"gemini-2.5-flash": "from-flash"},
	}
	inv := newInvoker(llm, false)

	out, err := inv.Invoke(context.Background(), "sys", "user", []string{"gemini-2.5-pro", "gemini-2.5-flash"})
	if err != nil || out != "from-flash" {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if len(llm.calls) != 2 {
		t.Errorf("calls = %v", llm.calls)
	}
}

func TestFallback_NonQuotaAbortsChain(t *testing.T) {
	boom := errors.New("invalid request: bad schema")
	llm := &scriptedLLM{
		errs:    map[string]error{"gemini-2.5-pro": boom},
		results: map[string]string{"gemini-2.5-flash": "never reached"},
	}
	inv := newInvoker(llm, false)

	_, err := inv.Invoke(context.Background(), "sys", "user", []string{"gemini-2.5-pro", "gemini-2.5-flash"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(llm.calls) != 1 {
		t.Errorf("non-quota error must stop the chain, calls = %v", llm.calls)
	}
}

func TestFallback_WidenedModeContinuesOnAnyError(t *testing.T) {
	llm := &scriptedLLM{
		errs:    map[string]error{"gemini-2.5-pro": errors.New("internal server error")},
		results: map[string]string{"gemini-2.5-flash": "recovered"},
	}
	inv := newInvoker(llm, true)

	out, err := inv.Invoke(context.Background(), "sys", "user", []string{"gemini-2.5-pro", "gemini-2.5-flash"})
	if err != nil || out != "recovered" {
		t.Fatalf("out=%q err=%v", out, err)
	}
}

func TestFallback_AllQuotaReturnsLastError(t *testing.T) {
	quota := errors.New("RESOURCE_EXHAUSTED")
	llm := &scriptedLLM{errs: map[string]error{
		"gemini-2.5-pro":   quota,
		"gemini-2.5-flash": quota,
	}}
	inv := newInvoker(llm, false)

	_, err := inv.Invoke(context.Background(), "sys", "user", []string{"gemini-2.5-pro", "gemini-2.5-flash"})
	if err == nil {
		t.Fatal("expected error after exhausting all models")
	}
	if len(llm.calls) != 2 {
		t.Errorf("calls = %v", llm.calls)
	}
}

func TestFallback_EmptyModelList(t *testing.T) {
	inv := newInvoker(&scriptedLLM{}, false)
	if _, err := inv.Invoke(context.Background(), "s", "u", nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("err = %v", err)
	}
}

func TestIsQuotaError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("Error 429: Too Many Requests"), true},
		{errors.New("quota exceeded for project"), true},
		{errors.New("rate limit reached"), true},
		{errors.New("RESOURCE_EXHAUSTED"), true},
		{errors.New("connection refused"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsQuotaError(tc.err); got != tc.want {
			t.Errorf("IsQuotaError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
