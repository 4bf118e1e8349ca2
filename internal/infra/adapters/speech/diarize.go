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

var _ adapter.Diarizer = (*DiarizerClient)(nil)

// DiarizerClient calls a pyannote-style diarization service that returns
// speaker turns as start/end/label triples. Like the whisper server, the
// diarization model loads on first contact, so a one-time probe precedes
// the first real request.
type DiarizerClient struct {
	base   string
	client *http.Client

	warmOnce sync.Once
	warmErr  error
}

func NewDiarizerClient(base string, timeout time.Duration) *DiarizerClient {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &DiarizerClient{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (d *DiarizerClient) warmUp(ctx context.Context) error {
	d.warmOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.base+"/health", nil)
		if err != nil {
			d.warmErr = err
			return
		}
		resp, err := d.client.Do(req)
		if err != nil {
			d.warmErr = fmt.Errorf("diarizer warm-up: %w", err)
			return
		}
		resp.Body.Close()
	})
	return d.warmErr
}

type diarTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

func (d *DiarizerClient) Diarize(ctx context.Context, wavPath string) ([]model.SpeakerTurn, error) {
	if err := d.warmUp(ctx); err != nil {
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
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.base+"/diarize", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diarize request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("diarize http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var payload struct {
		Turns []diarTurn `json:"turns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("diarize decode: %w", err)
	}

	turns := make([]model.SpeakerTurn, 0, len(payload.Turns))
	for _, t := range payload.Turns {
		turns = append(turns, model.SpeakerTurn{Start: t.Start, End: t.End, Speaker: t.Speaker})
	}
	return turns, nil
}
