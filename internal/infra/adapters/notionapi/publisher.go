package notionapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
	"github.com/dong881/audio-processor/internal/infra/metrics"
	"github.com/dong881/audio-processor/internal/notion"
)

var _ adapter.NotePublisher = (*Publisher)(nil)

// Publisher composes a meeting page and writes it through the API in
// size-bounded batches. The first batch rides on page creation; overflow
// batches are appended with retries. A batch that keeps failing is dropped
// and reported as a warning rather than failing the whole publish, except
// for auth errors on creation which abort immediately.
type Publisher struct {
	client         *Client
	databaseID     string
	maxBlocks      int
	batchPause     time.Duration
	initialBackoff time.Duration
	maxRetries     uint64
	log            *zerolog.Logger
}

func NewPublisher(client *Client, databaseID string, maxBlocks int, logger *zerolog.Logger) *Publisher {
	if maxBlocks <= 0 || maxBlocks > notion.DefaultMaxBlocks {
		maxBlocks = notion.DefaultMaxBlocks
	}
	l := logger.With().Str("component", "NotionPublisher").Logger()
	return &Publisher{
		client:         client,
		databaseID:     databaseID,
		maxBlocks:      maxBlocks,
		batchPause:     time.Second,
		initialBackoff: 2 * time.Second,
		maxRetries:     3,
		log:            &l,
	}
}

func (p *Publisher) Publish(ctx context.Context, page adapter.PageContent) (adapter.PageRef, []string, error) {
	blocks := p.compose(page)
	batches := notion.Batch(blocks, p.maxBlocks)
	if len(batches) == 0 {
		batches = [][]notion.Block{nil}
	}

	created, err := p.client.CreatePage(ctx, p.databaseID, page.Title, batches[0])
	if err != nil {
		metrics.IncPublishBatch("failed")
		return adapter.PageRef{}, nil, fmt.Errorf("create page: %w", err)
	}
	metrics.IncPublishBatch("ok")

	var warnings []string
	for i, batch := range batches[1:] {
		select {
		case <-time.After(p.batchPause):
		case <-ctx.Done():
			return adapter.PageRef{ID: created.ID, URL: created.URL}, warnings, ctx.Err()
		}

		if err := p.appendWithRetry(ctx, created.ID, batch); err != nil {
			metrics.IncPublishBatch("failed")
			metrics.IncPublishWarning()
			warning := fmt.Sprintf("batch %d/%d (%d blocks) dropped: %v", i+2, len(batches), len(batch), err)
			warnings = append(warnings, warning)
			p.log.Warn().Str("page_id", created.ID).Msg(warning)
			continue
		}
		metrics.IncPublishBatch("ok")
	}

	return adapter.PageRef{ID: created.ID, URL: created.URL}, warnings, nil
}

func (p *Publisher) appendWithRetry(ctx context.Context, pageID string, batch []notion.Block) error {
	op := func() error {
		err := p.client.AppendChildren(ctx, pageID, batch)
		if err != nil && IsAuthError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialBackoff
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, p.maxRetries), ctx))
}

// compose lays out the page body: date and participants, the summary
// callout, todos, detailed notes, the collapsible transcript and the link
// back to the recording.
func (p *Publisher) compose(page adapter.PageContent) []notion.Block {
	var blocks []notion.Block

	if page.Date != "" {
		blocks = append(blocks, notion.Paragraph(notion.Text("Date: "+page.Date)))
	}
	if len(page.Participants) > 0 {
		blocks = append(blocks, notion.Paragraph(
			notion.Text("Participants: "+strings.Join(page.Participants, ", "))))
	}
	if page.Summary != "" {
		blocks = append(blocks, notion.CalloutOf(page.Summary, "💡"))
	}

	if len(page.Todos) > 0 {
		blocks = append(blocks, notion.Heading(2, []notion.RichText{notion.Text("Action Items")}))
		for _, todo := range page.Todos {
			blocks = append(blocks, notion.ToDoItem(notion.ParseInline(todo), false))
		}
	}

	if page.NotesMarkdown != "" {
		blocks = append(blocks, notion.Heading(2, []notion.RichText{notion.Text("Meeting Notes")}))
		blocks = append(blocks, notion.RenderMarkdown(page.NotesMarkdown)...)
	}

	if page.Transcript != "" {
		blocks = append(blocks, notion.Divider())
		blocks = append(blocks, notion.Heading(2, []notion.RichText{notion.Text("Full Transcript")}))
		paragraphs := notion.SplitTranscript(page.Transcript, 0)
		blocks = append(blocks, notion.TranscriptToggles(paragraphs, p.maxBlocks)...)
	}

	if page.AudioFileName != "" {
		rt := []notion.RichText{notion.Text("Recording: ")}
		if page.AudioFileURL != "" {
			rt = append(rt, notion.TextLink(page.AudioFileName, page.AudioFileURL))
		} else {
			rt = append(rt, notion.Text(page.AudioFileName))
		}
		blocks = append(blocks, notion.Paragraph(rt...))
	}

	return blocks
}
