// Package notionapi is the REST client and publisher for the Notion API.
package notionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dong881/audio-processor/internal/notion"
)

const defaultNotionVersion = "2022-06-28"

// apiError carries the status code so the publisher can tell auth failures
// apart from transient ones.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("notion http %d: %s", e.Status, e.Body)
}

// IsAuthError reports whether err is a 401 or 403 API response.
func IsAuthError(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && (ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden)
}

type Client struct {
	token   string
	base    string
	version string
	client  *http.Client
}

func NewClient(token, base, version string, timeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, errors.New("notion: empty integration token")
	}
	if base == "" {
		base = "https://api.notion.com/v1"
	}
	if version == "" {
		version = defaultNotionVersion
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		token:   token,
		base:    strings.TrimRight(base, "/"),
		version: version,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("notion decode: %w", err)
		}
	}
	return nil
}

type pageResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreatePage creates a page in the configured database with the given title
// and initial children. Children must respect the per-request block limit.
func (c *Client) CreatePage(ctx context.Context, databaseID, title string, children []notion.Block) (pageResponse, error) {
	payload := map[string]any{
		"parent": map[string]string{"database_id": databaseID},
		"properties": map[string]any{
			"title": map[string]any{
				"title": []notion.RichText{notion.Text(title)},
			},
		},
	}
	if len(children) > 0 {
		payload["children"] = children
	}
	var page pageResponse
	if err := c.do(ctx, http.MethodPost, "/pages", payload, &page); err != nil {
		return pageResponse{}, err
	}
	return page, nil
}

// AppendChildren appends blocks to a page or block.
func (c *Client) AppendChildren(ctx context.Context, blockID string, children []notion.Block) error {
	payload := map[string]any{"children": children}
	return c.do(ctx, http.MethodPatch, "/blocks/"+blockID+"/children", payload, nil)
}
