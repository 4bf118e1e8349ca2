package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
)

const summarySystemPrompt = `You summarize meeting transcripts.
Respond with ONLY a JSON object with exactly these keys:
  "title":   a concise meeting title (max 10 words, no date)
  "summary": 2-4 sentences capturing the outcome of the meeting
  "todos":   an array of action-item strings, empty if none
Wrap the object in a ` + "```json" + ` fence.`

const notesSystemPrompt = `You write detailed structured meeting notes in Markdown.
Use ## section headings per topic, bullet points for discussion details and
**bold** for decisions. Cover everything substantive; do not invent content.
Respond with the Markdown only.`

// minTranscriptChars is the threshold under which summarization is skipped;
// a few words of audio carry nothing worth a model call.
const minTranscriptChars = 50

// SummaryResult is the parsed summarization output.
type SummaryResult struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Todos   []string `json:"todos"`
}

// Summarizer produces the title/summary/todos triple and the detailed notes
// body. Summarize never returns an error: parse failures retry, and
// exhausted retries degrade to a usable default so one flaky model response
// cannot fail a job that already has a transcript.
type Summarizer struct {
	invoker     adapter.ModelInvoker
	models      []string
	tokenBudget int
	maxAttempts int
	retryDelay  time.Duration
	log         *zerolog.Logger
}

func NewSummarizer(invoker adapter.ModelInvoker, models []string, tokenBudget int, logger *zerolog.Logger) *Summarizer {
	l := logger.With().Str("component", "Summarizer").Logger()
	if tokenBudget <= 0 {
		tokenBudget = 100_000
	}
	return &Summarizer{
		invoker:     invoker,
		models:      models,
		tokenBudget: tokenBudget,
		maxAttempts: 3,
		retryDelay:  2 * time.Second,
		log:         &l,
	}
}

func defaultSummary() SummaryResult {
	return SummaryResult{
		Title:   "Meeting Recording",
		Summary: "The recording was too short or unclear to summarize.",
		Todos:   []string{},
	}
}

func (s *Summarizer) Summarize(ctx context.Context, transcript, attachmentText string) SummaryResult {
	if len(strings.TrimSpace(transcript)) < minTranscriptChars {
		s.log.Info().Msg("transcript below summarization threshold, using default")
		return defaultSummary()
	}

	user := s.buildUserContent(transcript, attachmentText)
	var lastRaw string
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 && s.retryDelay > 0 {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return defaultSummary()
			}
		}
		raw, err := s.invoker.Invoke(ctx, summarySystemPrompt, user, s.models)
		if err != nil {
			s.log.Warn().Int("attempt", attempt).Err(err).Msg("summary generation failed")
			continue
		}
		lastRaw = raw
		res, err := parseSummary(raw)
		if err != nil {
			s.log.Warn().Int("attempt", attempt).Err(err).Msg("summary response unparseable, retrying")
			continue
		}
		return res
	}

	// Exhausted: salvage what we can rather than fail.
	res := defaultSummary()
	if lastRaw != "" {
		res.Summary = strings.TrimSpace(lastRaw)
	}
	s.log.Error().Msg("summarization exhausted retries, falling back to raw output")
	return res
}

// notesFallback stands in for the detailed notes body when generation fails.
const notesFallback = "Detailed notes could not be generated for this recording."

// Notes generates the detailed Markdown notes body. Failure is non-fatal.
func (s *Summarizer) Notes(ctx context.Context, transcript, attachmentText string) string {
	user := s.buildUserContent(transcript, attachmentText)
	raw, err := s.invoker.Invoke(ctx, notesSystemPrompt, user, s.models)
	if err != nil {
		s.log.Warn().Err(err).Msg("notes generation failed, using fallback body")
		return notesFallback
	}
	return strings.TrimSpace(stripFence(raw))
}

func (s *Summarizer) buildUserContent(transcript, attachmentText string) string {
	var b strings.Builder
	b.WriteString("Transcript:\n")
	b.WriteString(s.truncateToBudget(transcript))
	if attachmentText != "" {
		b.WriteString("\n\nSupporting documents:\n")
		b.WriteString(attachmentText)
	}
	return b.String()
}

// truncateToBudget caps transcript size by token count so long recordings
// stay inside the model context window. Encoding failures fall back to a
// rough character bound.
func (s *Summarizer) truncateToBudget(text string) string {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		if limit := s.tokenBudget * 4; len(text) > limit {
			return text[:limit]
		}
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= s.tokenBudget {
		return text
	}
	s.log.Warn().Int("tokens", len(tokens)).Int("budget", s.tokenBudget).Msg("transcript truncated for prompt")
	return enc.Decode(tokens[:s.tokenBudget])
}

// parseSummary accepts either a fenced ```json block or a bare JSON object
// and requires all three keys to be present.
func parseSummary(raw string) (SummaryResult, error) {
	payload := stripFence(raw)
	match := jsonObjectRe.FindString(payload)
	if match == "" {
		return SummaryResult{}, fmt.Errorf("no JSON object in response")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(match), &keys); err != nil {
		return SummaryResult{}, fmt.Errorf("decode summary: %w", err)
	}
	for _, k := range []string{"title", "summary", "todos"} {
		if _, ok := keys[k]; !ok {
			return SummaryResult{}, fmt.Errorf("summary response missing %q", k)
		}
	}

	var res SummaryResult
	if err := json.Unmarshal([]byte(match), &res); err != nil {
		return SummaryResult{}, fmt.Errorf("decode summary: %w", err)
	}
	if strings.TrimSpace(res.Title) == "" || strings.TrimSpace(res.Summary) == "" {
		return SummaryResult{}, fmt.Errorf("summary response has empty title or summary")
	}
	if res.Todos == nil {
		res.Todos = []string{}
	}
	return res, nil
}

func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	return s
}
