package notion

import (
	"regexp"
	"sort"
)

var (
	reInlineCode    = regexp.MustCompile("`([^`]+)`")
	reBold          = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reStrikethrough = regexp.MustCompile(`~~(.*?)~~`)
	reLink          = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
)

type inlineMatch struct {
	start, end int
	kind       string
	content    string
	url        string
}

// ParseInline scans text for inline code, bold, italic, strikethrough and
// link markup and returns the corresponding rich text runs. Overlapping
// candidates resolve earliest-start-wins; anything unmatched (including
// malformed markup) passes through as plain text. It never fails.
func ParseInline(text string) []RichText {
	if text == "" {
		return []RichText{Text("")}
	}

	var all []inlineMatch
	for _, m := range reInlineCode.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, inlineMatch{start: m[0], end: m[1], kind: "code", content: text[m[2]:m[3]]})
	}
	for _, m := range reBold.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, inlineMatch{start: m[0], end: m[1], kind: "bold", content: text[m[2]:m[3]]})
	}
	all = append(all, italicMatches(text)...)
	for _, m := range reStrikethrough.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, inlineMatch{start: m[0], end: m[1], kind: "strikethrough", content: text[m[2]:m[3]]})
	}
	for _, m := range reLink.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, inlineMatch{start: m[0], end: m[1], kind: "link", content: text[m[2]:m[3]], url: text[m[4]:m[5]]})
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })

	// Drop any match overlapping an already accepted one.
	var valid []inlineMatch
	for _, m := range all {
		ok := true
		for _, v := range valid {
			if m.start < v.end && m.end > v.start {
				ok = false
				break
			}
		}
		if ok {
			valid = append(valid, m)
		}
	}

	if len(valid) == 0 {
		return []RichText{Text(text)}
	}

	var runs []RichText
	pos := 0
	for _, m := range valid {
		if m.start > pos {
			runs = append(runs, Text(text[pos:m.start]))
		}
		switch m.kind {
		case "link":
			runs = append(runs, TextLink(m.content, m.url))
		case "bold":
			runs = append(runs, styled(m.content, Annotations{Bold: true}))
		case "italic":
			runs = append(runs, styled(m.content, Annotations{Italic: true}))
		case "strikethrough":
			runs = append(runs, styled(m.content, Annotations{Strikethrough: true}))
		case "code":
			runs = append(runs, styled(m.content, Annotations{Code: true}))
		}
		pos = m.end
	}
	if pos < len(text) {
		runs = append(runs, Text(text[pos:]))
	}
	return runs
}

// italicMatches scans for single-star spans by hand so that ** pairs are
// skipped whole and adjacent spans like *a* *b* both match. Content never
// contains a star; a ** inside an open span resets it.
func italicMatches(text string) []inlineMatch {
	var out []inlineMatch
	open := -1
	for i := 0; i < len(text); i++ {
		if text[i] != '*' {
			continue
		}
		if i+1 < len(text) && text[i+1] == '*' {
			open = -1
			i++
			continue
		}
		if open == -1 {
			open = i
			continue
		}
		if i > open+1 {
			out = append(out, inlineMatch{start: open, end: i + 1, kind: "italic", content: text[open+1 : i]})
			open = -1
		} else {
			open = i
		}
	}
	return out
}

func styled(content string, a Annotations) RichText {
	return RichText{Type: "text", Text: TextContent{Content: content}, Annotations: &a}
}
