package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dong881/audio-processor/internal/domain"
	"github.com/dong881/audio-processor/internal/domain/model"
	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
	"github.com/dong881/audio-processor/internal/infra/jobstore"
	"github.com/dong881/audio-processor/internal/infra/worker"
)

//
// ---------------- in-memory adapter fakes ----------------
//

type fakeStorage struct {
	mu       sync.Mutex
	names    map[string]string // fileID -> remote name
	renames  map[string]string
	download error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		names:   map[string]string{"file-1": "REC_20250115_093000.m4a"},
		renames: map[string]string{},
	}
}

func (f *fakeStorage) GetMetadata(_ context.Context, fileID string) (adapter.FileMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.names[fileID]
	if !ok {
		return adapter.FileMeta{}, domain.ErrNotFound
	}
	return adapter.FileMeta{ID: fileID, Name: name, WebViewLink: "https://drive.example/" + fileID}, nil
}

func (f *fakeStorage) Download(_ context.Context, fileID, destDir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.download != nil {
		return "", f.download
	}
	name, ok := f.names[fileID]
	if !ok {
		return "", domain.ErrNotFound
	}
	if err := os.WriteFile(filepath.Join(destDir, name), []byte("audio-bytes"), 0o644); err != nil {
		return "", err
	}
	return name, nil
}

func (f *fakeStorage) Rename(_ context.Context, fileID, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renames[fileID] = newName
	return nil
}

func (f *fakeStorage) List(_ context.Context, _ string) ([]adapter.FileMeta, error) {
	return []adapter.FileMeta{{ID: "file-1", Name: "REC_20250115_093000.m4a"}}, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(_ string) (string, error) { return "", nil }

type fakeTranscoder struct{ err error }

func (f *fakeTranscoder) EnsureWAV(_ context.Context, inputPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	out := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".wav"
	if err := os.WriteFile(out, []byte("wav-bytes"), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

type fakeTranscriber struct {
	segments []model.TranscriptSegment
	err      error
	gate     chan struct{} // when set, Transcribe blocks until closed
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ string) ([]model.TranscriptSegment, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.segments, f.err
}

type fakeDiarizer struct {
	turns []model.SpeakerTurn
	err   error
}

func (f *fakeDiarizer) Diarize(_ context.Context, _ string) ([]model.SpeakerTurn, error) {
	return f.turns, f.err
}

type fakePublisher struct {
	mu       sync.Mutex
	pages    []adapter.PageContent
	warnings []string
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, page adapter.PageContent) (adapter.PageRef, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return adapter.PageRef{}, nil, f.err
	}
	f.pages = append(f.pages, page)
	return adapter.PageRef{ID: "page-1", URL: "https://notion.example/page-1"}, f.warnings, nil
}

// progressRepo wraps the memory store and records every progress value.
type progressRepo struct {
	*jobstore.MemoryStore
	mu     sync.Mutex
	points []int
}

func (r *progressRepo) Update(ctx context.Context, id string, fn func(*model.Job)) error {
	return r.MemoryStore.Update(ctx, id, func(j *model.Job) {
		fn(j)
		r.mu.Lock()
		r.points = append(r.points, j.Progress)
		r.mu.Unlock()
	})
}

//
// ---------------- harness ----------------
//

type pipelineFixture struct {
	uc      *PipelineUC
	repo    *progressRepo
	storage *fakeStorage
	pub     *fakePublisher
	scratch string
	cancel  context.CancelFunc
}

func newFixture(t *testing.T, mutate func(*fakeStorage, *fakeTranscoder, *fakeTranscriber, *fakeDiarizer, *fakePublisher, *fakeInvoker)) *pipelineFixture {
	t.Helper()

	storage := newFakeStorage()
	transcoder := &fakeTranscoder{}
	transcriber := &fakeTranscriber{segments: []model.TranscriptSegment{
		{Start: 0, End: 4, Text: "we should ship the new release on Friday after the regression run finishes"},
		{Start: 4, End: 6, Text: "sounds good, I will prepare the changelog"},
	}}
	diarizer := &fakeDiarizer{turns: []model.SpeakerTurn{
		{Start: 0, End: 4, Speaker: "SPEAKER_00"},
		{Start: 4, End: 6, Speaker: "SPEAKER_01"},
	}}
	pub := &fakePublisher{}
	inv := &fakeInvoker{responses: []string{
		`{"SPEAKER_00": "Alex", "SPEAKER_01": "Blair"}`,
		"```json\n{\"title\": \"Ship Plan\", \"summary\": \"The release ships Friday.\", \"todos\": [\"run regression\"]}\n```",
		"## Release\n- ship on Friday",
	}}
	if mutate != nil {
		mutate(storage, transcoder, transcriber, diarizer, pub, inv)
	}

	repo := &progressRepo{MemoryStore: jobstore.NewMemoryStore()}
	pool := worker.NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() { cancel(); pool.Stop() })

	scratch := t.TempDir()
	uc := NewPipelineUC(
		repo, pool,
		storage, fakeExtractor{}, transcoder, transcriber, diarizer,
		NewIdentityResolver(inv, []string{"m"}, testLogger()),
		NewSummarizer(inv, []string{"m"}, 0, testLogger()),
		pub, scratch, testLogger(),
	)
	return &pipelineFixture{uc: uc, repo: repo, storage: storage, pub: pub, scratch: scratch, cancel: cancel}
}

func waitTerminal(t *testing.T, repo *progressRepo, id string) *model.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := repo.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

//
// ---------------- tests ----------------
//

func TestPipeline_CompletesEndToEnd(t *testing.T) {
	fx := newFixture(t, nil)

	job, err := fx.uc.Submit(context.Background(), "file-1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != model.JobStatusPending {
		t.Errorf("fresh job should be pending, got %s", job.Status)
	}

	final := waitTerminal(t, fx.repo, job.ID)
	if final.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (err=%s)", final.Status, final.Error)
	}
	if final.Progress != 100 {
		t.Errorf("terminal progress must be 100, got %d", final.Progress)
	}
	if final.Result == nil || !final.Result.Success {
		t.Fatalf("missing success result: %+v", final.Result)
	}
	if final.Result.Title != "Ship Plan" {
		t.Errorf("title = %q", final.Result.Title)
	}
	if final.Result.IdentifiedSpeakers["SPEAKER_00"] != "Alex" {
		t.Errorf("speakers = %v", final.Result.IdentifiedSpeakers)
	}
	if final.Result.NotionPageID != "page-1" {
		t.Errorf("page id = %q", final.Result.NotionPageID)
	}
	if final.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	// The published transcript carries the resolved name.
	if len(fx.pub.pages) != 1 {
		t.Fatalf("expected 1 published page, got %d", len(fx.pub.pages))
	}
	page := fx.pub.pages[0]
	if !strings.HasPrefix(page.Transcript, "Alex: we should ship") {
		t.Errorf("transcript = %q", page.Transcript)
	}
	if page.Date != "2025-01-15" {
		t.Errorf("date = %q", page.Date)
	}
	if page.AudioFileURL != "https://drive.example/file-1" {
		t.Errorf("audio url = %q", page.AudioFileURL)
	}

	// The source file is archived under "[date] title.ext".
	if got := fx.storage.renames["file-1"]; got != "[2025-01-15] Ship Plan.m4a" {
		t.Errorf("rename = %q", got)
	}

	// Scratch space is gone.
	if _, err := os.Stat(filepath.Join(fx.scratch, "audiojob-"+job.ID)); !os.IsNotExist(err) {
		t.Errorf("scratch dir survived: %v", err)
	}
}

func TestPipeline_ProgressIsMonotonic(t *testing.T) {
	fx := newFixture(t, nil)

	job, err := fx.uc.Submit(context.Background(), "file-1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitTerminal(t, fx.repo, job.ID)

	fx.repo.mu.Lock()
	defer fx.repo.mu.Unlock()
	prev := -1
	for _, p := range fx.repo.points {
		if p < prev {
			t.Fatalf("progress went backwards: %v", fx.repo.points)
		}
		prev = p
	}
	if prev != 100 {
		t.Errorf("final progress %d, points %v", prev, fx.repo.points)
	}
}

func TestPipeline_StageCheckpoints(t *testing.T) {
	fx := newFixture(t, nil)

	job, err := fx.uc.Submit(context.Background(), "file-1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitTerminal(t, fx.repo, job.ID)

	// metadata, attachments, download, then the recognition stages; the
	// transcode step reports no checkpoint of its own.
	want := []int{0, 10, 20, 30, 60, 70, 75, 85, 95, 100}
	fx.repo.mu.Lock()
	defer fx.repo.mu.Unlock()
	if len(fx.repo.points) != len(want) {
		t.Fatalf("checkpoints = %v, want %v", fx.repo.points, want)
	}
	for i := range want {
		if fx.repo.points[i] != want[i] {
			t.Fatalf("checkpoints = %v, want %v", fx.repo.points, want)
		}
	}
}

func TestPipeline_FailureCleansScratchAndKeepsPartial(t *testing.T) {
	fx := newFixture(t, func(_ *fakeStorage, _ *fakeTranscoder, _ *fakeTranscriber, _ *fakeDiarizer, pub *fakePublisher, _ *fakeInvoker) {
		pub.err = errors.New("database is locked")
	})

	job, err := fx.uc.Submit(context.Background(), "file-1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	final := waitTerminal(t, fx.repo, job.ID)

	if final.Status != model.JobStatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if final.Progress != 100 {
		t.Errorf("terminal progress must be 100, got %d", final.Progress)
	}
	if !strings.Contains(final.Error, "publish") {
		t.Errorf("error = %q", final.Error)
	}
	// Work done before the failing stage is preserved.
	if final.Result == nil || final.Result.Title != "Ship Plan" {
		t.Errorf("partial result lost: %+v", final.Result)
	}
	if final.Result.Success {
		t.Error("failed job must not be marked successful")
	}

	if _, err := os.Stat(filepath.Join(fx.scratch, "audiojob-"+job.ID)); !os.IsNotExist(err) {
		t.Errorf("scratch dir survived failure: %v", err)
	}
}

func TestPipeline_TranscodeFailureFailsJob(t *testing.T) {
	fx := newFixture(t, func(_ *fakeStorage, tr *fakeTranscoder, _ *fakeTranscriber, _ *fakeDiarizer, _ *fakePublisher, _ *fakeInvoker) {
		tr.err = errors.New("unsupported codec")
	})

	job, _ := fx.uc.Submit(context.Background(), "file-1", nil)
	final := waitTerminal(t, fx.repo, job.ID)
	if final.Status != model.JobStatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if !strings.Contains(final.Error, "transcode") {
		t.Errorf("error = %q", final.Error)
	}
}

func TestPipeline_CancelBetweenStages(t *testing.T) {
	gate := make(chan struct{})
	fx := newFixture(t, func(_ *fakeStorage, _ *fakeTranscoder, tr *fakeTranscriber, _ *fakeDiarizer, _ *fakePublisher, _ *fakeInvoker) {
		tr.gate = gate
	})

	job, err := fx.uc.Submit(context.Background(), "file-1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Wait until the worker is inside the recognition stage, then cancel.
	deadline := time.Now().Add(5 * time.Second)
	for {
		j, _ := fx.repo.Get(context.Background(), job.ID)
		if j.Progress >= 30 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never reached recognition stage")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := fx.uc.Cancel(context.Background(), job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	close(gate)

	final := waitTerminal(t, fx.repo, job.ID)
	if final.Status != model.JobStatusCancelled {
		t.Fatalf("expected cancelled, got %s", final.Status)
	}
	if len(fx.pub.pages) != 0 {
		t.Error("cancelled job must not publish")
	}
}

func TestPipeline_CancelTerminalJobRejected(t *testing.T) {
	fx := newFixture(t, nil)
	job, _ := fx.uc.Submit(context.Background(), "file-1", nil)
	waitTerminal(t, fx.repo, job.ID)

	if err := fx.uc.Cancel(context.Background(), job.ID); !errors.Is(err, domain.ErrJobNotCancelable) {
		t.Errorf("expected ErrJobNotCancelable, got %v", err)
	}
}

func TestPipeline_SubmitValidation(t *testing.T) {
	fx := newFixture(t, nil)
	if _, err := fx.uc.Submit(context.Background(), "  ", nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPipeline_PublishWarningsSurface(t *testing.T) {
	fx := newFixture(t, func(_ *fakeStorage, _ *fakeTranscoder, _ *fakeTranscriber, _ *fakeDiarizer, pub *fakePublisher, _ *fakeInvoker) {
		pub.warnings = []string{"batch 2/3 dropped: timeout"}
	})

	job, _ := fx.uc.Submit(context.Background(), "file-1", nil)
	final := waitTerminal(t, fx.repo, job.ID)
	if final.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}
	if len(final.Result.PublishWarnings) != 1 {
		t.Errorf("warnings = %v", final.Result.PublishWarnings)
	}
}
