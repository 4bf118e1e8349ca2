package model

// UnknownSpeaker is assigned to transcript segments with zero temporal
// overlap against every diarization turn.
const UnknownSpeaker = "UNKNOWN"

// TranscriptSegment is one time-stamped unit of recognized speech.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SpeakerTurn is one diarization interval labeled with an anonymous tag
// such as SPEAKER_00.
type SpeakerTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Segment is an attributed unit of speech: a transcript segment with the
// speaker that covered most of its duration.
type Segment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// SpeakerMap maps anonymous diarization tags to resolved identities. Tags
// the resolver could not place map to themselves.
type SpeakerMap map[string]string

// Participants returns the unique resolved identities, insertion order not
// guaranteed.
func (m SpeakerMap) Participants() []string {
	seen := make(map[string]struct{}, len(m))
	out := make([]string, 0, len(m))
	for _, v := range m {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
