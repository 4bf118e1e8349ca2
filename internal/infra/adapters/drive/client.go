// Package drive is a thin Google Drive v3 REST client covering the calls
// the pipeline needs: file metadata, media download, rename and listing.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
)

var _ adapter.FileStorage = (*Client)(nil)

var unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

type Client struct {
	token  string
	base   string // e.g., https://www.googleapis.com/drive/v3
	client *http.Client
}

func NewClient(token, base string) (*Client, error) {
	if token == "" {
		return nil, errors.New("drive: empty access token")
	}
	if base == "" {
		base = "https://www.googleapis.com/drive/v3"
	}
	return &Client{
		token:  token,
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("drive http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp, nil
}

func (c *Client) GetMetadata(ctx context.Context, fileID string) (adapter.FileMeta, error) {
	u := fmt.Sprintf("%s/files/%s?fields=%s", c.base, url.PathEscape(fileID),
		url.QueryEscape("id,name,mimeType,size,webViewLink"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return adapter.FileMeta{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return adapter.FileMeta{}, err
	}
	defer resp.Body.Close()

	var meta adapter.FileMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return adapter.FileMeta{}, fmt.Errorf("drive metadata decode: %w", err)
	}
	return meta, nil
}

// Download streams the file media into destDir and returns the sanitized
// local filename.
func (c *Client) Download(ctx context.Context, fileID, destDir string) (string, error) {
	meta, err := c.GetMetadata(ctx, fileID)
	if err != nil {
		return "", err
	}
	name := meta.Name
	if name == "" {
		name = "file_" + fileID
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")

	u := fmt.Sprintf("%s/files/%s?alt=media", c.base, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	f, err := os.Create(filepath.Join(destDir, name))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("drive download: %w", err)
	}
	return name, nil
}

func (c *Client) Rename(ctx context.Context, fileID, newName string) error {
	body, _ := json.Marshal(map[string]string{"name": newName})
	u := fmt.Sprintf("%s/files/%s", c.base, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) List(ctx context.Context, query string) ([]adapter.FileMeta, error) {
	if query == "" {
		query = "trashed = false and (mimeType contains 'audio/' or mimeType = 'application/pdf')"
	}
	u := fmt.Sprintf("%s/files?q=%s&orderBy=%s&fields=%s",
		c.base,
		url.QueryEscape(query),
		url.QueryEscape("modifiedTime desc"),
		url.QueryEscape("files(id,name,mimeType,size,webViewLink)"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Files []adapter.FileMeta `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("drive list decode: %w", err)
	}
	return payload.Files, nil
}
