// Package speech holds HTTP adapters for the transcription and diarization
// services that sit next to this backend.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dong881/audio-processor/internal/domain/model"
	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
)

var _ adapter.Transcriber = (*WhisperClient)(nil)

// WhisperClient talks to a whisper.cpp style inference server. The server
// loads its model lazily, so the first request can take a while; warmUp sends
// a probe once and subsequent calls reuse the loaded model.
type WhisperClient struct {
	base   string
	client *http.Client

	warmOnce sync.Once
	warmErr  error
}

func NewWhisperClient(base string, timeout time.Duration) *WhisperClient {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &WhisperClient{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (w *WhisperClient) warmUp(ctx context.Context) error {
	w.warmOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.base+"/health", nil)
		if err != nil {
			w.warmErr = err
			return
		}
		resp, err := w.client.Do(req)
		if err != nil {
			w.warmErr = fmt.Errorf("whisper warm-up: %w", err)
			return
		}
		resp.Body.Close()
	})
	return w.warmErr
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func (w *WhisperClient) Transcribe(ctx context.Context, wavPath string) ([]model.TranscriptSegment, error) {
	if err := w.warmUp(ctx); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.base+"/inference", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper inference: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("whisper http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var payload struct {
		Segments []whisperSegment `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("whisper decode: %w", err)
	}

	segs := make([]model.TranscriptSegment, 0, len(payload.Segments))
	for _, s := range payload.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segs = append(segs, model.TranscriptSegment{Start: s.Start, End: s.End, Text: text})
	}
	return segs, nil
}
