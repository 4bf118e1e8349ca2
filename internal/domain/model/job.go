package model

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobResult is the payload attached to a job once it reaches a terminal
// state. On failure, whatever summary/speaker data had been computed before
// the failing stage is preserved here instead of being discarded.
type JobResult struct {
	Success            bool              `json:"success"`
	NotionPageID       string            `json:"notion_page_id,omitempty"`
	NotionPageURL      string            `json:"notion_page_url,omitempty"`
	Title              string            `json:"title"`
	Summary            string            `json:"summary"`
	Todos              []string          `json:"todos"`
	IdentifiedSpeakers map[string]string `json:"identified_speakers,omitempty"`
	DriveFilename      string            `json:"drive_filename,omitempty"`
	PublishWarnings    []string          `json:"publish_warnings,omitempty"`
	Error              string            `json:"error,omitempty"`
}

// Job tracks one submission through the pipeline. A job record is mutated by
// exactly one worker goroutine for its whole lifetime; everyone else only
// reads copies handed out by the repository.
type Job struct {
	ID                string     `json:"id"`
	FileID            string     `json:"file_id"`
	AttachmentFileIDs []string   `json:"attachment_file_ids,omitempty"`
	Status            JobStatus  `json:"status"`
	Progress          int        `json:"progress"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Result            *JobResult `json:"result,omitempty"`
	Error             string     `json:"error,omitempty"`

	// CancelRequested is the cooperative cancellation flag. The worker checks
	// it between stages; it cannot interrupt an in-flight blocking call.
	CancelRequested bool `json:"cancel_requested,omitempty"`
}

// Clone returns a deep copy safe to hand to readers.
func (j *Job) Clone() *Job {
	cp := *j
	if j.AttachmentFileIDs != nil {
		cp.AttachmentFileIDs = append([]string(nil), j.AttachmentFileIDs...)
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	if j.Result != nil {
		r := *j.Result
		if j.Result.Todos != nil {
			r.Todos = append([]string(nil), j.Result.Todos...)
		}
		if j.Result.IdentifiedSpeakers != nil {
			r.IdentifiedSpeakers = make(map[string]string, len(j.Result.IdentifiedSpeakers))
			for k, v := range j.Result.IdentifiedSpeakers {
				r.IdentifiedSpeakers[k] = v
			}
		}
		if j.Result.PublishWarnings != nil {
			r.PublishWarnings = append([]string(nil), j.Result.PublishWarnings...)
		}
		cp.Result = &r
	}
	return &cp
}

// JobFilter selects jobs for listing.
type JobFilter string

const (
	JobFilterAll       JobFilter = "all"
	JobFilterActive    JobFilter = "active"
	JobFilterCompleted JobFilter = "completed"
	JobFilterFailed    JobFilter = "failed"
)

// Matches reports whether a job passes the filter.
func (f JobFilter) Matches(j *Job) bool {
	switch f {
	case JobFilterActive:
		return j.Status == JobStatusPending || j.Status == JobStatusProcessing
	case JobFilterCompleted:
		return j.Status == JobStatusCompleted
	case JobFilterFailed:
		return j.Status == JobStatusFailed
	default:
		return true
	}
}
