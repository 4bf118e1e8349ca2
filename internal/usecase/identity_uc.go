package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dong881/audio-processor/internal/domain/model"
	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
)

const identitySystemPrompt = `You identify meeting participants from a transcript sample.
Given anonymous speaker tags (SPEAKER_00, SPEAKER_01, ...) and what they said,
infer each speaker's real name from self-introductions, direct address and
context clues. Respond with ONLY a JSON object mapping every tag to a name.
If a speaker cannot be identified, map the tag to itself.`

// identitySampleLimit caps how many segments are fed into the identity
// prompt; the opening of a meeting carries most of the introductions.
const identitySampleLimit = 20

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// IdentityResolver maps anonymous diarization tags to human names using a
// cheap model tier. It never fails a job: any error degrades to an identity
// map where every tag resolves to itself.
type IdentityResolver struct {
	invoker adapter.ModelInvoker
	models  []string
	log     *zerolog.Logger
}

func NewIdentityResolver(invoker adapter.ModelInvoker, models []string, logger *zerolog.Logger) *IdentityResolver {
	l := logger.With().Str("component", "IdentityResolver").Logger()
	return &IdentityResolver{invoker: invoker, models: models, log: &l}
}

func (r *IdentityResolver) Resolve(ctx context.Context, segments []model.Segment, attachmentText string) model.SpeakerMap {
	tags := collectTags(segments)
	fallback := make(model.SpeakerMap, len(tags))
	for _, t := range tags {
		fallback[t] = t
	}
	// With fewer than two speakers there is no dialogue to infer names from.
	if len(tags) < 2 {
		return fallback
	}

	sample := segments
	if len(sample) > identitySampleLimit {
		sample = sample[:identitySampleLimit]
	}
	var b strings.Builder
	b.WriteString("Speaker tags: " + strings.Join(tags, ", ") + "\n\nTranscript sample:\n")
	for _, seg := range sample {
		fmt.Fprintf(&b, "%s: %s\n", seg.Speaker, seg.Text)
	}
	if attachmentText != "" {
		b.WriteString("\nMeeting documents (may contain attendee names):\n")
		b.WriteString(attachmentText)
	}

	raw, err := r.invoker.Invoke(ctx, identitySystemPrompt, b.String(), r.models)
	if err != nil {
		r.log.Warn().Err(err).Msg("identity resolution failed, keeping anonymous tags")
		return fallback
	}

	parsed, err := parseIdentityMap(raw)
	if err != nil {
		r.log.Warn().Err(err).Msg("identity response unparseable, keeping anonymous tags")
		return fallback
	}

	// Every tag must resolve to something; fill gaps with the tag itself.
	resolved := make(model.SpeakerMap, len(tags))
	for _, t := range tags {
		if name, ok := parsed[t]; ok && strings.TrimSpace(name) != "" {
			resolved[t] = strings.TrimSpace(name)
		} else {
			resolved[t] = t
		}
	}
	return resolved
}

func parseIdentityMap(raw string) (map[string]string, error) {
	match := jsonObjectRe.FindString(raw)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal([]byte(match), &values); err != nil {
		return nil, fmt.Errorf("decode identity map: %w", err)
	}
	// Coerce per key: a number or object where a name belongs drops that one
	// entry only, the caller self-maps whatever is left out.
	m := make(map[string]string, len(values))
	for k, v := range values {
		var name string
		if err := json.Unmarshal(v, &name); err != nil {
			continue
		}
		m[k] = name
	}
	return m, nil
}

func collectTags(segments []model.Segment) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, seg := range segments {
		if seg.Speaker == model.UnknownSpeaker {
			continue
		}
		if _, ok := seen[seg.Speaker]; ok {
			continue
		}
		seen[seg.Speaker] = struct{}{}
		tags = append(tags, seg.Speaker)
	}
	sort.Strings(tags)
	return tags
}
