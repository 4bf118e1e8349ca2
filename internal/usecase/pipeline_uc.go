package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dong881/audio-processor/internal/domain"
	"github.com/dong881/audio-processor/internal/domain/model"
	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
	"github.com/dong881/audio-processor/internal/domain/ports/repository"
	"github.com/dong881/audio-processor/internal/infra/metrics"
	"github.com/dong881/audio-processor/internal/infra/worker"
)

// Progress checkpoints reported as the worker moves through the stages.
// Values only ever increase for a given job.
const (
	progressMetadata    = 10
	progressAttachments = 20
	progressDownloaded  = 30
	progressRecognized  = 60
	progressAttributed  = 70
	progressIdentified  = 75
	progressSummarized  = 85
	progressPublishing  = 95
	progressDone        = 100
)

// PipelineUC owns the job lifecycle: it accepts submissions, runs the
// processing stages on the worker pool and answers status queries. Exactly
// one worker goroutine mutates a job after submission.
type PipelineUC struct {
	repo        repository.JobRepository
	pool        *worker.Pool
	storage     adapter.FileStorage
	extractor   adapter.DocumentTextExtractor
	transcoder  adapter.Transcoder
	transcriber adapter.Transcriber
	diarizer    adapter.Diarizer
	identity    *IdentityResolver
	summarizer  *Summarizer
	publisher   adapter.NotePublisher
	scratchDir  string
	log         *zerolog.Logger
}

func NewPipelineUC(
	repo repository.JobRepository,
	pool *worker.Pool,
	storage adapter.FileStorage,
	extractor adapter.DocumentTextExtractor,
	transcoder adapter.Transcoder,
	transcriber adapter.Transcriber,
	diarizer adapter.Diarizer,
	identity *IdentityResolver,
	summarizer *Summarizer,
	publisher adapter.NotePublisher,
	scratchDir string,
	logger *zerolog.Logger,
) *PipelineUC {
	l := logger.With().Str("component", "PipelineUC").Logger()
	return &PipelineUC{
		repo:        repo,
		pool:        pool,
		storage:     storage,
		extractor:   extractor,
		transcoder:  transcoder,
		transcriber: transcriber,
		diarizer:    diarizer,
		identity:    identity,
		summarizer:  summarizer,
		publisher:   publisher,
		scratchDir:  scratchDir,
		log:         &l,
	}
}

// Submit registers a new job and queues it for processing. The returned job
// is the pending snapshot; processing happens asynchronously.
func (uc *PipelineUC) Submit(ctx context.Context, fileID string, attachmentIDs []string) (*model.Job, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, fmt.Errorf("%w: file_id is required", domain.ErrInvalidArgument)
	}

	now := time.Now()
	job := &model.Job{
		ID:                ulid.Make().String(),
		FileID:            fileID,
		AttachmentFileIDs: attachmentIDs,
		Status:            model.JobStatusPending,
		Progress:          0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	id := job.ID
	if err := uc.pool.Submit(func(runCtx context.Context) { uc.runJob(runCtx, id) }); err != nil {
		_ = uc.repo.Update(ctx, id, func(j *model.Job) {
			j.Status = model.JobStatusFailed
			j.Progress = progressDone
			j.Error = "worker queue full"
		})
		return nil, err
	}

	uc.log.Info().Str("job_id", id).Str("file_id", fileID).Msg("job accepted")
	return job.Clone(), nil
}

func (uc *PipelineUC) Get(ctx context.Context, id string) (*model.Job, error) {
	return uc.repo.Get(ctx, id)
}

// List returns jobs matching the filter, newest first.
func (uc *PipelineUC) List(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	jobs, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

// Cancel requests cooperative cancellation. The worker honors the flag at
// the next stage boundary; an in-flight blocking call is not interrupted.
func (uc *PipelineUC) Cancel(ctx context.Context, id string) error {
	job, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return domain.ErrJobNotCancelable
	}
	return uc.repo.Update(ctx, id, func(j *model.Job) {
		j.CancelRequested = true
	})
}

// Files lists candidate recordings in the remote storage.
func (uc *PipelineUC) Files(ctx context.Context, query string) ([]adapter.FileMeta, error) {
	return uc.storage.List(ctx, query)
}

// runJob executes the full pipeline for one job. Scratch files are removed
// no matter how the job ends.
func (uc *PipelineUC) runJob(ctx context.Context, jobID string) {
	log := uc.log.With().Str("job_id", jobID).Logger()

	job, err := uc.repo.Get(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Msg("job vanished before processing")
		return
	}

	scratch := filepath.Join(uc.scratchDir, "audiojob-"+jobID)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		uc.fail(ctx, jobID, nil, fmt.Errorf("create scratch dir: %w", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.Warn().Err(err).Str("dir", scratch).Msg("scratch cleanup failed")
		}
	}()

	partial := &model.JobResult{}
	setProgress := func(p int) {
		_ = uc.repo.Update(ctx, jobID, func(j *model.Job) {
			j.Status = model.JobStatusProcessing
			j.Progress = p
		})
	}
	setProgress(0)

	// primary file metadata: the name and view link are nice to have, the
	// job carries on without them
	if uc.cancelled(ctx, jobID) {
		return
	}
	var meta adapter.FileMeta
	if m, merr := uc.storage.GetMetadata(ctx, job.FileID); merr == nil {
		meta = m
	} else {
		log.Warn().Err(merr).Msg("metadata fetch failed, continuing without it")
	}
	setProgress(progressMetadata)

	// attachments: failures skip the attachment, never the job
	if uc.cancelled(ctx, jobID) {
		return
	}
	attachmentText := uc.collectAttachments(ctx, job.AttachmentFileIDs, scratch, &log)
	setProgress(progressAttachments)

	// download
	if uc.cancelled(ctx, jobID) {
		return
	}
	var filename string
	err = uc.timed("download", func() error {
		var derr error
		filename, derr = uc.storage.Download(ctx, job.FileID, scratch)
		return derr
	})
	if err != nil {
		uc.fail(ctx, jobID, partial, fmt.Errorf("download: %w", err))
		return
	}
	audioPath := filepath.Join(scratch, filename)
	setProgress(progressDownloaded)

	// transcode is part of readying the audio, it carries no checkpoint of
	// its own
	if uc.cancelled(ctx, jobID) {
		return
	}
	var wavPath string
	err = uc.timed("transcode", func() error {
		var terr error
		wavPath, terr = uc.transcoder.EnsureWAV(ctx, audioPath)
		return terr
	})
	if err != nil {
		uc.fail(ctx, jobID, partial, fmt.Errorf("transcode: %w", err))
		return
	}
	if wavPath != audioPath {
		// The original container is no longer needed once the WAV exists.
		if err := os.Remove(audioPath); err != nil {
			log.Warn().Err(err).Msg("could not remove pre-transcode file")
		}
	}

	// transcription and diarization run concurrently on the same WAV
	if uc.cancelled(ctx, jobID) {
		return
	}
	var (
		transcript []model.TranscriptSegment
		turns      []model.SpeakerTurn
	)
	err = uc.timed("recognize", func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var terr error
			transcript, terr = uc.transcriber.Transcribe(gctx, wavPath)
			return terr
		})
		g.Go(func() error {
			var derr error
			turns, derr = uc.diarizer.Diarize(gctx, wavPath)
			return derr
		})
		return g.Wait()
	})
	if err != nil {
		uc.fail(ctx, jobID, partial, fmt.Errorf("speech recognition: %w", err))
		return
	}
	setProgress(progressRecognized)

	// attribution
	if uc.cancelled(ctx, jobID) {
		return
	}
	segments := AttributeSpeakers(transcript, turns)
	setProgress(progressAttributed)

	// speaker identity
	if uc.cancelled(ctx, jobID) {
		return
	}
	var speakers model.SpeakerMap
	_ = uc.timed("identify", func() error {
		speakers = uc.identity.Resolve(ctx, segments, attachmentText)
		return nil
	})
	partial.IdentifiedSpeakers = speakers
	setProgress(progressIdentified)

	attributed := FormatTranscript(segments, speakers)

	// summary and detailed notes
	if uc.cancelled(ctx, jobID) {
		return
	}
	var summary SummaryResult
	var notes string
	_ = uc.timed("summarize", func() error {
		summary = uc.summarizer.Summarize(ctx, attributed, attachmentText)
		notes = uc.summarizer.Notes(ctx, attributed, attachmentText)
		return nil
	})
	partial.Title = summary.Title
	partial.Summary = summary.Summary
	partial.Todos = summary.Todos
	setProgress(progressSummarized)

	date := ExtractRecordingDate(filename, job.CreatedAt)

	// publish
	if uc.cancelled(ctx, jobID) {
		return
	}
	setProgress(progressPublishing)
	var ref adapter.PageRef
	var warnings []string
	err = uc.timed("publish", func() error {
		var perr error
		ref, warnings, perr = uc.publisher.Publish(ctx, adapter.PageContent{
			Title:         summary.Title,
			Date:          date,
			Participants:  speakers.Participants(),
			Summary:       summary.Summary,
			Todos:         summary.Todos,
			NotesMarkdown: notes,
			Transcript:    attributed,
			AudioFileName: filename,
			AudioFileURL:  meta.WebViewLink,
		})
		return perr
	})
	if err != nil {
		uc.fail(ctx, jobID, partial, fmt.Errorf("publish: %w", err))
		return
	}
	partial.NotionPageID = ref.ID
	partial.NotionPageURL = ref.URL
	partial.PublishWarnings = warnings

	// archive rename is best-effort
	newName := RenamedFilename(filename, date, summary.Title)
	if err := uc.storage.Rename(ctx, job.FileID, newName); err != nil {
		log.Warn().Err(err).Str("new_name", newName).Msg("source rename failed")
	} else {
		partial.DriveFilename = newName
	}

	partial.Success = true
	now := time.Now()
	_ = uc.repo.Update(ctx, jobID, func(j *model.Job) {
		j.Status = model.JobStatusCompleted
		j.Progress = progressDone
		j.CompletedAt = &now
		j.Result = partial
	})
	metrics.IncJob(string(model.JobStatusCompleted))
	log.Info().Str("page_id", ref.ID).Int("warnings", len(warnings)).Msg("job completed")
}

// collectAttachments downloads and extracts text from each attachment.
// Individual failures are logged and skipped.
func (uc *PipelineUC) collectAttachments(ctx context.Context, ids []string, scratch string, log *zerolog.Logger) string {
	if len(ids) == 0 {
		return ""
	}
	var parts []string
	for _, id := range ids {
		// Each attachment gets its own subdirectory so a name clash with the
		// recording (or another attachment) cannot overwrite anything.
		dir := filepath.Join(scratch, uuid.NewString())
		name, err := uc.storage.Download(ctx, id, dir)
		if err != nil {
			log.Warn().Err(err).Str("attachment_id", id).Msg("attachment download failed, skipping")
			continue
		}
		text, err := uc.extractor.Extract(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("attachment", name).Msg("attachment extraction failed, skipping")
			continue
		}
		if text != "" {
			parts = append(parts, fmt.Sprintf("--- %s ---\n%s", name, text))
		}
	}
	return strings.Join(parts, "\n\n")
}

// cancelled checks the cooperative flag and, when set, finalizes the job as
// cancelled. Used between stages only.
func (uc *PipelineUC) cancelled(ctx context.Context, jobID string) bool {
	job, err := uc.repo.Get(ctx, jobID)
	if err != nil || !job.CancelRequested {
		return false
	}
	now := time.Now()
	_ = uc.repo.Update(ctx, jobID, func(j *model.Job) {
		j.Status = model.JobStatusCancelled
		j.Progress = progressDone
		j.CompletedAt = &now
	})
	metrics.IncJob(string(model.JobStatusCancelled))
	uc.log.Info().Str("job_id", jobID).Msg("job cancelled")
	return true
}

// fail finalizes the job with whatever partial result the stages produced.
func (uc *PipelineUC) fail(ctx context.Context, jobID string, partial *model.JobResult, err error) {
	now := time.Now()
	_ = uc.repo.Update(ctx, jobID, func(j *model.Job) {
		j.Status = model.JobStatusFailed
		j.Progress = progressDone
		j.CompletedAt = &now
		j.Error = err.Error()
		if partial != nil {
			res := *partial
			res.Success = false
			res.Error = err.Error()
			j.Result = &res
		}
	})
	metrics.IncJob(string(model.JobStatusFailed))
	uc.log.Error().Str("job_id", jobID).Err(err).Msg("job failed")
}

func (uc *PipelineUC) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveStage(stage, time.Since(start))
	return err
}
