package usecase

import (
	"fmt"
	"strings"

	"github.com/dong881/audio-processor/internal/domain/model"
)

// AttributeSpeakers merges transcription output with diarization output by
// temporal overlap. Each transcript segment is assigned the speaker whose
// turns cover the largest share of its duration; segments with zero overlap
// get the UNKNOWN tag. Ties go to the first speaker reaching the maximum, in
// turn order.
func AttributeSpeakers(segments []model.TranscriptSegment, turns []model.SpeakerTurn) []model.Segment {
	out := make([]model.Segment, 0, len(segments))
	for _, seg := range segments {
		overlap := make(map[string]float64)
		var order []string
		for _, t := range turns {
			o := overlapSeconds(seg.Start, seg.End, t.Start, t.End)
			if o <= 0 {
				continue
			}
			if _, seen := overlap[t.Speaker]; !seen {
				order = append(order, t.Speaker)
			}
			overlap[t.Speaker] += o
		}

		speaker := model.UnknownSpeaker
		best := 0.0
		for _, s := range order {
			if overlap[s] > best {
				best = overlap[s]
				speaker = s
			}
		}

		out = append(out, model.Segment{
			Speaker: speaker,
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
		})
	}
	return out
}

func overlapSeconds(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	return end - start
}

// FormatTranscript renders attributed segments as "Speaker: text" lines,
// applying the resolved speaker map when one is provided.
func FormatTranscript(segments []model.Segment, speakers model.SpeakerMap) string {
	var b strings.Builder
	for _, seg := range segments {
		name := seg.Speaker
		if resolved, ok := speakers[seg.Speaker]; ok && resolved != "" {
			name = resolved
		}
		fmt.Fprintf(&b, "%s: %s\n", name, seg.Text)
	}
	return b.String()
}
