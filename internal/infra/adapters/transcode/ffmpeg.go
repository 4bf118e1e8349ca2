// Package transcode converts downloaded audio into the 16 kHz mono PCM WAV
// the speech services require.
package transcode

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
)

var _ adapter.Transcoder = (*FFmpeg)(nil)

type FFmpeg struct {
	binary string
}

func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary}
}

// EnsureWAV returns inputPath unchanged when it already is a .wav file,
// otherwise transcodes next to it and returns the new path. The caller owns
// deleting the original.
func (f *FFmpeg) EnsureWAV(ctx context.Context, inputPath string) (string, error) {
	if strings.EqualFold(filepath.Ext(inputPath), ".wav") {
		return inputPath, nil
	}

	outPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".wav"
	cmd := exec.CommandContext(ctx, f.binary,
		"-y",
		"-i", inputPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		tail := string(out)
		if len(tail) > 512 {
			tail = tail[len(tail)-512:]
		}
		return "", fmt.Errorf("ffmpeg transcode: %w: %s", err, strings.TrimSpace(tail))
	}
	return outPath, nil
}
