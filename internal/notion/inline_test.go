package notion

import "testing"

func TestParseInline_Plain(t *testing.T) {
	runs := ParseInline("just text")
	if len(runs) != 1 || runs[0].Text.Content != "just text" || runs[0].Annotations != nil {
		t.Errorf("got %+v", runs)
	}
}

func TestParseInline_Bold(t *testing.T) {
	runs := ParseInline("a **bold** word")
	if len(runs) != 3 {
		t.Fatalf("got %d runs: %+v", len(runs), runs)
	}
	if runs[1].Text.Content != "bold" || runs[1].Annotations == nil || !runs[1].Annotations.Bold {
		t.Errorf("bold run = %+v", runs[1])
	}
	if runs[0].Text.Content != "a " || runs[2].Text.Content != " word" {
		t.Errorf("surrounding runs = %+v", runs)
	}
}

func TestParseInline_ItalicDoesNotEatBold(t *testing.T) {
	runs := ParseInline("**strong** and *slanted*")
	var bold, italic bool
	for _, r := range runs {
		if r.Annotations == nil {
			continue
		}
		if r.Annotations.Bold && r.Text.Content == "strong" {
			bold = true
		}
		if r.Annotations.Italic && r.Text.Content == "slanted" {
			italic = true
		}
	}
	if !bold || !italic {
		t.Errorf("bold=%v italic=%v runs=%+v", bold, italic, runs)
	}
}

func TestParseInline_AdjacentItalics(t *testing.T) {
	runs := ParseInline("*a* *b*")
	var got []string
	for _, r := range runs {
		if r.Annotations != nil && r.Annotations.Italic {
			got = append(got, r.Text.Content)
		}
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("both spans should match, got %v (runs %+v)", got, runs)
	}
}

func TestParseInline_ItalicAfterBold(t *testing.T) {
	runs := ParseInline("**a** *b*")
	var bold, italic bool
	for _, r := range runs {
		if r.Annotations == nil {
			continue
		}
		if r.Annotations.Bold && r.Text.Content == "a" {
			bold = true
		}
		if r.Annotations.Italic && r.Text.Content == "b" {
			italic = true
		}
	}
	if !bold || !italic {
		t.Errorf("bold=%v italic=%v runs=%+v", bold, italic, runs)
	}
}

func TestParseInline_CodeAndStrikethrough(t *testing.T) {
	runs := ParseInline("`cmd` and ~~gone~~")
	if runs[0].Annotations == nil || !runs[0].Annotations.Code {
		t.Errorf("code run = %+v", runs[0])
	}
	last := runs[len(runs)-1]
	if last.Annotations == nil || !last.Annotations.Strikethrough {
		t.Errorf("strikethrough run = %+v", last)
	}
}

func TestParseInline_Link(t *testing.T) {
	runs := ParseInline("see [docs](https://example.com) here")
	if len(runs) != 3 {
		t.Fatalf("got %+v", runs)
	}
	link := runs[1]
	if link.Text.Content != "docs" || link.Text.Link == nil || link.Text.Link.URL != "https://example.com" {
		t.Errorf("link run = %+v", link)
	}
}

func TestParseInline_OverlapEarliestWins(t *testing.T) {
	// The backtick span starts first and swallows the would-be bold marks.
	runs := ParseInline("`a **b` c**")
	if runs[0].Annotations == nil || !runs[0].Annotations.Code {
		t.Fatalf("got %+v", runs)
	}
	if runs[0].Text.Content != "a **b" {
		t.Errorf("code content = %q", runs[0].Text.Content)
	}
	for _, r := range runs[1:] {
		if r.Annotations != nil && r.Annotations.Bold {
			t.Errorf("overlapping bold should be dropped: %+v", runs)
		}
	}
}

func TestParseInline_EmptyString(t *testing.T) {
	runs := ParseInline("")
	if len(runs) != 1 || runs[0].Text.Content != "" {
		t.Errorf("got %+v", runs)
	}
}
