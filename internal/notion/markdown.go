package notion

import (
	"regexp"
	"strings"
)

var reNumbered = regexp.MustCompile(`^\d+\.\s`)

// RenderMarkdown interprets Markdown line by line and produces Notion blocks.
// Three constructs are stateful across lines (fenced code, block quotes,
// tables); everything else resolves per line. Malformed input degrades to
// literal text; this function never fails.
func RenderMarkdown(text string) []Block {
	var blocks []Block
	lines := strings.Split(text, "\n")

	inCode := false
	var codeContent strings.Builder
	codeLanguage := ""

	inQuote := false
	var quoteContent strings.Builder

	inTable := false
	var tableRows [][]string

	flushQuote := func() {
		blocks = append(blocks, QuoteOf(ParseInline(strings.TrimSpace(quoteContent.String()))))
		inQuote = false
		quoteContent.Reset()
	}
	flushTable := func() {
		if len(tableRows) > 0 {
			rows := make([][][]RichText, 0, len(tableRows))
			for _, row := range tableRows {
				cells := make([][]RichText, 0, len(row))
				for _, cell := range row {
					cells = append(cells, ParseInline(strings.TrimSpace(cell)))
				}
				rows = append(rows, cells)
			}
			blocks = append(blocks, TableOf(rows))
		}
		inTable = false
		tableRows = nil
	}

	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])

		// Blank lines only matter inside code/quote collection.
		if line == "" {
			if inCode {
				codeContent.WriteString("\n")
			} else if inQuote {
				quoteContent.WriteString("\n")
			}
			i++
			continue
		}

		if inCode && strings.HasPrefix(line, "```") {
			blocks = append(blocks, CodeOf(strings.TrimSpace(codeContent.String()), strings.ToLower(codeLanguage)))
			inCode = false
			codeContent.Reset()
			codeLanguage = ""
			i++
			continue
		}
		if inCode {
			codeContent.WriteString(line)
			codeContent.WriteString("\n")
			i++
			continue
		}
		if strings.HasPrefix(line, "```") {
			inCode = true
			codeLanguage = strings.TrimSpace(line[3:])
			i++
			continue
		}

		if inTable && !strings.HasPrefix(line, "|") {
			flushTable()
			// fall through: the current line re-enters normal handling
		} else if inTable || strings.HasPrefix(line, "|") {
			inTable = true
			if !isTableSeparator(line) {
				tableRows = append(tableRows, splitTableRow(line))
			}
			i++
			continue
		}

		if inQuote && !strings.HasPrefix(line, ">") {
			flushQuote()
		} else if strings.HasPrefix(line, ">") {
			inQuote = true
			quoteContent.WriteString(strings.TrimSpace(line[1:]))
			quoteContent.WriteString(" ")
			i++
			continue
		}

		switch {
		case strings.HasPrefix(line, "#"):
			level := 0
			for _, r := range line {
				if r != '#' {
					break
				}
				level++
			}
			heading := strings.TrimSpace(line[level:])
			blocks = append(blocks, Heading(level, ParseInline(heading)))

		case strings.HasPrefix(line, "[ ]") || strings.HasPrefix(line, "[x]") || strings.HasPrefix(line, "[X]"):
			checked := !strings.HasPrefix(line, "[ ]")
			content := strings.TrimSpace(line[3:])
			blocks = append(blocks, ToDoItem(ParseInline(content), checked))

		case reNumbered.MatchString(line):
			content := strings.TrimSpace(reNumbered.ReplaceAllString(line, ""))
			blocks = append(blocks, NumberedItem(ParseInline(content)))

		case line == "---" || line == "***" || line == "___":
			blocks = append(blocks, Divider())

		case strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "+"):
			content := strings.TrimSpace(line[1:])
			blocks = append(blocks, BulletedItem(ParseInline(content)))

		default:
			blocks = append(blocks, Paragraph(ParseInline(line)...))
		}
		i++
	}

	// Unclosed multi-line constructs flush at EOF.
	if inCode && codeContent.Len() > 0 {
		blocks = append(blocks, CodeOf(strings.TrimSpace(codeContent.String()), strings.ToLower(codeLanguage)))
	}
	if inQuote && quoteContent.Len() > 0 {
		flushQuote()
	}
	if inTable {
		flushTable()
	}
	return blocks
}

// isTableSeparator reports whether a table line is the header separator row
// (only dashes, pipes, colons and spaces).
func isTableSeparator(line string) bool {
	for _, r := range line {
		switch r {
		case '-', '|', ' ', ':':
		default:
			return false
		}
	}
	return true
}

func splitTableRow(line string) []string {
	cells := strings.Split(line, "|")
	if len(cells) > 0 && strings.TrimSpace(cells[0]) == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
