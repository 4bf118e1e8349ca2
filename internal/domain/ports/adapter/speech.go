package adapter

import (
	"context"

	"github.com/dong881/audio-processor/internal/domain/model"
)

// Transcriber converts normalized audio into time-stamped text segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]model.TranscriptSegment, error)
}

// Diarizer converts normalized audio into speaker-labeled turns.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]model.SpeakerTurn, error)
}

// Transcoder normalizes arbitrary audio containers into the canonical
// decodable format (16kHz mono 16-bit PCM WAV). It returns the path of the
// canonical file, which may be the input path when already canonical.
type Transcoder interface {
	EnsureWAV(ctx context.Context, inputPath string) (string, error)
}
