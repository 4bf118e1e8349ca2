package adapter

import "context"

// PageContent is everything the publisher needs to compose a meeting page.
type PageContent struct {
	Title        string
	Date         string // YYYY-MM-DD
	Participants []string
	Summary      string
	Todos        []string
	// NotesMarkdown is the LLM-generated detailed notes body.
	NotesMarkdown string
	// Transcript is the full attributed transcript, one "Speaker: text" line
	// per segment.
	Transcript string
	// AudioFileName/AudioFileURL link back to the source recording; both may
	// be empty.
	AudioFileName string
	AudioFileURL  string
}

// PageRef identifies a published page.
type PageRef struct {
	ID  string
	URL string
}

// NotePublisher creates the remote page and appends the overflow content in
// size-bounded batches. Per-batch append failures do not fail the publish;
// they come back as warnings.
type NotePublisher interface {
	Publish(ctx context.Context, page PageContent) (PageRef, []string, error)
}
