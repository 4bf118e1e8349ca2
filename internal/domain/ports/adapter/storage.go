package adapter

import "context"

// FileMeta describes a remote file.
type FileMeta struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	Size        string `json:"size,omitempty"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

// FileStorage is the port for the remote file provider (Google Drive in
// production). Metadata and rename failures are treated as non-fatal by the
// pipeline; download failures are fatal.
type FileStorage interface {
	GetMetadata(ctx context.Context, fileID string) (FileMeta, error)
	// Download fetches the file into destDir and returns the sanitized local
	// filename.
	Download(ctx context.Context, fileID, destDir string) (string, error)
	Rename(ctx context.Context, fileID, newName string) error
	List(ctx context.Context, query string) ([]FileMeta, error)
}

// DocumentTextExtractor pulls plain text out of a downloaded attachment.
// Unsupported formats return ("", nil).
type DocumentTextExtractor interface {
	Extract(path string) (string, error)
}
