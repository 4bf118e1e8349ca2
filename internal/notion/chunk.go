package notion

import "fmt"

// DefaultMaxBlocks is the working ceiling for blocks per API request. The
// API rejects writes above 100; 90 leaves margin for base content.
const DefaultMaxBlocks = 90

// maxTranscriptChars bounds a single transcript paragraph block.
const maxTranscriptChars = 2000

// Batch splits blocks into request-sized batches of at most ceiling blocks.
func Batch(blocks []Block, ceiling int) [][]Block {
	if ceiling <= 0 {
		ceiling = DefaultMaxBlocks
	}
	var batches [][]Block
	for i := 0; i < len(blocks); i += ceiling {
		end := i + ceiling
		if end > len(blocks) {
			end = len(blocks)
		}
		batches = append(batches, blocks[i:end])
	}
	return batches
}

// SplitTranscript chunks the attributed transcript into paragraph blocks of
// at most maxLen characters, splitting on line boundaries.
func SplitTranscript(transcript string, maxLen int) []Block {
	if maxLen <= 0 {
		maxLen = maxTranscriptChars
	}
	var blocks []Block
	var current []byte
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, Paragraph(Text(string(current))))
			current = nil
		}
	}
	start := 0
	for start <= len(transcript) {
		end := start
		for end < len(transcript) && transcript[end] != '\n' {
			end++
		}
		line := transcript[start:end]
		if len(current)+len(line)+1 > maxLen && len(current) > 0 {
			flush()
		}
		if len(current) > 0 {
			current = append(current, '\n')
		}
		current = append(current, line...)
		start = end + 1
	}
	flush()
	return blocks
}

// TranscriptToggles wraps transcript blocks into collapsible toggles, each
// holding at most ceiling children. The first toggle carries a short intro;
// subsequent ones are titled "part N/M". The ceiling applies recursively:
// toggle children never exceed it at any depth.
func TranscriptToggles(transcriptBlocks []Block, ceiling int) []Block {
	if ceiling <= 0 {
		ceiling = DefaultMaxBlocks
	}
	if len(transcriptBlocks) == 0 {
		return nil
	}
	// The first toggle carries two intro blocks, so it holds fewer
	// transcript blocks than the rest.
	firstCap := ceiling - 2
	if firstCap < 1 {
		firstCap = 1
	}
	total := 1
	if rest := len(transcriptBlocks) - firstCap; rest > 0 {
		total += (rest + ceiling - 1) / ceiling
	}

	var toggles []Block
	cursor := 0
	for part := 1; cursor < len(transcriptBlocks); part++ {
		capacity := ceiling
		if part == 1 {
			capacity = firstCap
		}
		end := cursor + capacity
		if end > len(transcriptBlocks) {
			end = len(transcriptBlocks)
		}

		var children []Block
		if part == 1 {
			children = append(children,
				Paragraph(Text("This section contains the full transcript")),
				Divider(),
			)
		}
		children = append(children, transcriptBlocks[cursor:end]...)

		title := "Expand full transcript"
		if part > 1 {
			title = fmt.Sprintf("Expand full transcript (part %d/%d)", part, total)
		}
		toggles = append(toggles, Toggle(title, children))
		cursor = end
	}
	return toggles
}
