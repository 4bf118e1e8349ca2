package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dong881/audio-processor/internal/domain"
	"github.com/dong881/audio-processor/internal/domain/model"
	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
)

type tokenRequest struct {
	APIKey string `json:"api_key"`
}

// handleToken exchanges the configured API key for a short-lived JWT. The
// key may come from the JSON body or the X-API-Key header.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			key = req.APIKey
		}
	}
	if !s.auth.CheckAPIKey(key) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	token, exp, err := s.auth.Mint()
	if err != nil {
		s.log.Error().Err(err).Msg("token mint failed")
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}{token, exp})
}

type submitRequest struct {
	FileID            string   `json:"file_id"`
	AttachmentFileIDs []string `json:"attachment_file_ids,omitempty"`
}

// handleSubmit accepts a processing job and returns 202 with the pending
// job snapshot.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := s.pipeline.Submit(r.Context(), req.FileID, req.AttachmentFileIDs)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrQueueFull):
			http.Error(w, "Processing queue is full, retry later", http.StatusServiceUnavailable)
		default:
			s.log.Error().Err(err).Msg("job submission failed")
			http.Error(w, "Failed to submit job", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.pipeline.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to get job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleList returns jobs newest first. The 'filter' query parameter
// accepts all|active|completed|failed and defaults to all.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter := model.JobFilter(r.URL.Query().Get("filter"))
	switch filter {
	case "", model.JobFilterAll, model.JobFilterActive, model.JobFilterCompleted, model.JobFilterFailed:
	default:
		http.Error(w, "Invalid filter", http.StatusBadRequest)
		return
	}
	if filter == "" {
		filter = model.JobFilterAll
	}

	jobs, err := s.pipeline.List(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Data  []*model.Job `json:"data"`
		Total int          `json:"total"`
	}{jobs, len(jobs)})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.pipeline.Cancel(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, struct {
			ID        string `json:"id"`
			Cancelled bool   `json:"cancel_requested"`
		}{id, true})
	case errors.Is(err, domain.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, domain.ErrJobNotCancelable):
		http.Error(w, "Job already finished", http.StatusConflict)
	default:
		http.Error(w, "Failed to cancel job", http.StatusInternalServerError)
	}
}

// handleFiles lists candidate recordings from the storage provider.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.pipeline.Files(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.log.Error().Err(err).Msg("file listing failed")
		http.Error(w, "Failed to list files", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []adapter.FileMeta `json:"data"`
	}{files})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
