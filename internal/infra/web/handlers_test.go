package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dong881/audio-processor/internal/domain/model"
	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
	"github.com/dong881/audio-processor/internal/infra/jobstore"
	"github.com/dong881/audio-processor/internal/infra/worker"
	"github.com/dong881/audio-processor/internal/usecase"
)

//
// ---------------- minimal pipeline fakes ----------------
//

type stubStorage struct{}

func (stubStorage) GetMetadata(_ context.Context, id string) (adapter.FileMeta, error) {
	return adapter.FileMeta{ID: id, Name: "rec.m4a"}, nil
}

func (stubStorage) Download(_ context.Context, _, destDir string) (string, error) {
	if err := os.WriteFile(filepath.Join(destDir, "rec.m4a"), []byte("x"), 0o644); err != nil {
		return "", err
	}
	return "rec.m4a", nil
}

func (stubStorage) Rename(context.Context, string, string) error { return nil }

func (stubStorage) List(context.Context, string) ([]adapter.FileMeta, error) {
	return []adapter.FileMeta{{ID: "f1", Name: "rec.m4a", MimeType: "audio/mp4"}}, nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(string) (string, error) { return "", nil }

type stubTranscoder struct{}

func (stubTranscoder) EnsureWAV(_ context.Context, in string) (string, error) {
	out := strings.TrimSuffix(in, filepath.Ext(in)) + ".wav"
	return out, os.WriteFile(out, []byte("w"), 0o644)
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(context.Context, string) ([]model.TranscriptSegment, error) {
	return []model.TranscriptSegment{{Start: 0, End: 1, Text: "short"}}, nil
}

type stubDiarizer struct{}

func (stubDiarizer) Diarize(context.Context, string) ([]model.SpeakerTurn, error) {
	return []model.SpeakerTurn{{Start: 0, End: 1, Speaker: "SPEAKER_00"}}, nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, adapter.PageContent) (adapter.PageRef, []string, error) {
	return adapter.PageRef{ID: "p1", URL: "https://notion.example/p1"}, nil, nil
}

type stubInvoker struct{}

func (stubInvoker) Invoke(context.Context, string, string, []string) (string, error) {
	return `{"title":"T","summary":"S","todos":[]}`, nil
}

//
// ---------------- harness ----------------
//

func newTestRouter(t *testing.T) (*chi.Mux, *AuthManager) {
	t.Helper()
	l := zerolog.Nop()

	repo := jobstore.NewMemoryStore()
	pool := worker.NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() { cancel(); pool.Stop() })

	pipeline := usecase.NewPipelineUC(
		repo, pool,
		stubStorage{}, stubExtractor{}, stubTranscoder{}, stubTranscriber{}, stubDiarizer{},
		usecase.NewIdentityResolver(stubInvoker{}, []string{"m"}, &l),
		usecase.NewSummarizer(stubInvoker{}, []string{"m"}, 0, &l),
		stubPublisher{}, t.TempDir(), &l,
	)

	auth := NewAuthManager("test-key", "test-secret", time.Minute)
	srv := &Server{pipeline: pipeline, auth: auth, log: &l}
	r := chi.NewRouter()
	RegisterRoutes(r, srv)
	return r, auth
}

func bearer(t *testing.T, auth *AuthManager) string {
	t.Helper()
	tok, _, err := auth.Mint()
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return "Bearer " + tok
}

func doJSON(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

//
// ---------------- tests ----------------
//

func TestToken_Exchange(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(r, http.MethodPost, "/auth/token", "", map[string]string{"api_key": "wrong"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key: %d", rec.Code)
	}

	rec = doJSON(r, http.MethodPost, "/auth/token", "", map[string]string{"api_key": "test-key"})
	if rec.Code != http.StatusOK {
		t.Fatalf("right key: %d %s", rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Errorf("token missing: %s", rec.Body)
	}
}

func TestAPI_RequiresAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(r, http.MethodGet, "/api/v1/jobs", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d", rec.Code)
	}
	rec = doJSON(r, http.MethodGet, "/api/v1/jobs", "Bearer garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: %d", rec.Code)
	}
}

func TestSubmit_AcceptedAndValidated(t *testing.T) {
	r, auth := newTestRouter(t)
	tok := bearer(t, auth)

	rec := doJSON(r, http.MethodPost, "/api/v1/jobs", tok, map[string]any{"file_id": "f1"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body)
	}
	var job model.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.ID == "" || job.Status != model.JobStatusPending {
		t.Errorf("job = %+v", job)
	}

	rec = doJSON(r, http.MethodPost, "/api/v1/jobs", tok, map[string]any{"file_id": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty file_id: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader("{not json"))
	req.Header.Set("Authorization", tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body: %d", w.Code)
	}
}

func TestStatus_NotFoundAndFound(t *testing.T) {
	r, auth := newTestRouter(t)
	tok := bearer(t, auth)

	rec := doJSON(r, http.MethodGet, "/api/v1/jobs/nope", tok, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: %d", rec.Code)
	}

	rec = doJSON(r, http.MethodPost, "/api/v1/jobs", tok, map[string]any{"file_id": "f1"})
	var job model.Job
	_ = json.Unmarshal(rec.Body.Bytes(), &job)

	rec = doJSON(r, http.MethodGet, "/api/v1/jobs/"+job.ID, tok, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status: %d", rec.Code)
	}
}

func TestList_FilterValidation(t *testing.T) {
	r, auth := newTestRouter(t)
	tok := bearer(t, auth)

	rec := doJSON(r, http.MethodGet, "/api/v1/jobs?filter=bogus", tok, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus filter: %d", rec.Code)
	}

	doJSON(r, http.MethodPost, "/api/v1/jobs", tok, map[string]any{"file_id": "f1"})
	rec = doJSON(r, http.MethodGet, "/api/v1/jobs?filter=all", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var resp struct {
		Data  []model.Job `json:"data"`
		Total int         `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCancel_NotFound(t *testing.T) {
	r, auth := newTestRouter(t)
	rec := doJSON(r, http.MethodDelete, "/api/v1/jobs/nope", bearer(t, auth), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cancel unknown: %d", rec.Code)
	}
}

func TestFiles_Listed(t *testing.T) {
	r, auth := newTestRouter(t)
	rec := doJSON(r, http.MethodGet, "/api/v1/files", bearer(t, auth), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("files: %d", rec.Code)
	}
	var resp struct {
		Data []adapter.FileMeta `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp.Data) != 1 {
		t.Errorf("resp = %+v err=%v", resp, err)
	}
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doJSON(r, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: %d", rec.Code)
	}
}
