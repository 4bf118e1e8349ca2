// Package notion converts Markdown notes into Notion API block payloads and
// chunks them under the API's per-request block-count ceiling.
package notion

// Link is an inline hyperlink target.
type Link struct {
	URL string `json:"url"`
}

// TextContent is the text payload of a rich text run.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Annotations carry inline styling. Zero-valued fields are omitted so plain
// runs serialize without an annotations object.
type Annotations struct {
	Bold          bool `json:"bold,omitempty"`
	Italic        bool `json:"italic,omitempty"`
	Strikethrough bool `json:"strikethrough,omitempty"`
	Code          bool `json:"code,omitempty"`
}

// RichText is one styled text run.
type RichText struct {
	Type        string       `json:"type"`
	Text        TextContent  `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

type HeadingBlock struct {
	RichText []RichText `json:"rich_text"`
}

type ParagraphBlock struct {
	RichText []RichText `json:"rich_text"`
}

type ListItemBlock struct {
	RichText []RichText `json:"rich_text"`
}

type ToDoBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

type QuoteBlock struct {
	RichText []RichText `json:"rich_text"`
}

type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
}

type CalloutBlock struct {
	RichText []RichText `json:"rich_text"`
	Icon     *Icon      `json:"icon,omitempty"`
}

type Icon struct {
	Emoji string `json:"emoji"`
}

type DividerBlock struct{}

type ToggleBlock struct {
	RichText []RichText `json:"rich_text"`
	Children []Block    `json:"children,omitempty"`
}

type TableBlock struct {
	TableWidth      int     `json:"table_width"`
	HasColumnHeader bool    `json:"has_column_header"`
	HasRowHeader    bool    `json:"has_row_header"`
	Children        []Block `json:"children"`
}

type TableRowBlock struct {
	Cells [][]RichText `json:"cells"`
}

// Block is a tagged-variant Notion content block. Exactly one of the typed
// payload pointers is set, matching Type.
type Block struct {
	Object    string          `json:"object"`
	Type      string          `json:"type"`
	Heading1  *HeadingBlock   `json:"heading_1,omitempty"`
	Heading2  *HeadingBlock   `json:"heading_2,omitempty"`
	Heading3  *HeadingBlock   `json:"heading_3,omitempty"`
	Paragraph *ParagraphBlock `json:"paragraph,omitempty"`
	Bulleted  *ListItemBlock  `json:"bulleted_list_item,omitempty"`
	Numbered  *ListItemBlock  `json:"numbered_list_item,omitempty"`
	ToDo      *ToDoBlock      `json:"to_do,omitempty"`
	Quote     *QuoteBlock     `json:"quote,omitempty"`
	Code      *CodeBlock      `json:"code,omitempty"`
	Callout   *CalloutBlock   `json:"callout,omitempty"`
	Divider   *DividerBlock   `json:"divider,omitempty"`
	Toggle    *ToggleBlock    `json:"toggle,omitempty"`
	Table     *TableBlock     `json:"table,omitempty"`
	TableRow  *TableRowBlock  `json:"table_row,omitempty"`
}

// Text returns a single plain rich text run.
func Text(content string) RichText {
	return RichText{Type: "text", Text: TextContent{Content: content}}
}

// TextLink returns a rich text run carrying a hyperlink.
func TextLink(content, url string) RichText {
	return RichText{Type: "text", Text: TextContent{Content: content, Link: &Link{URL: url}}}
}

// Heading builds a heading block, clamping level into [1,3].
func Heading(level int, rt []RichText) Block {
	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	b := Block{Object: "block"}
	switch level {
	case 1:
		b.Type = "heading_1"
		b.Heading1 = &HeadingBlock{RichText: rt}
	case 2:
		b.Type = "heading_2"
		b.Heading2 = &HeadingBlock{RichText: rt}
	case 3:
		b.Type = "heading_3"
		b.Heading3 = &HeadingBlock{RichText: rt}
	}
	return b
}

// Paragraph builds a paragraph block.
func Paragraph(rt ...RichText) Block {
	return Block{Object: "block", Type: "paragraph", Paragraph: &ParagraphBlock{RichText: rt}}
}

// BulletedItem builds a bulleted list item.
func BulletedItem(rt []RichText) Block {
	return Block{Object: "block", Type: "bulleted_list_item", Bulleted: &ListItemBlock{RichText: rt}}
}

// NumberedItem builds a numbered list item.
func NumberedItem(rt []RichText) Block {
	return Block{Object: "block", Type: "numbered_list_item", Numbered: &ListItemBlock{RichText: rt}}
}

// ToDoItem builds a to-do block.
func ToDoItem(rt []RichText, checked bool) Block {
	return Block{Object: "block", Type: "to_do", ToDo: &ToDoBlock{RichText: rt, Checked: checked}}
}

// QuoteOf builds a quote block.
func QuoteOf(rt []RichText) Block {
	return Block{Object: "block", Type: "quote", Quote: &QuoteBlock{RichText: rt}}
}

// CodeOf builds a code block; an empty language maps to plain_text.
func CodeOf(content, language string) Block {
	if language == "" {
		language = "plain_text"
	}
	return Block{Object: "block", Type: "code", Code: &CodeBlock{
		RichText: []RichText{Text(content)},
		Language: language,
	}}
}

// CalloutOf builds a callout block with an emoji icon.
func CalloutOf(content, emoji string) Block {
	return Block{Object: "block", Type: "callout", Callout: &CalloutBlock{
		RichText: []RichText{Text(content)},
		Icon:     &Icon{Emoji: emoji},
	}}
}

// Divider builds a divider block.
func Divider() Block {
	return Block{Object: "block", Type: "divider", Divider: &DividerBlock{}}
}

// Toggle builds a collapsible toggle block with nested children.
func Toggle(title string, children []Block) Block {
	return Block{Object: "block", Type: "toggle", Toggle: &ToggleBlock{
		RichText: []RichText{Text(title)},
		Children: children,
	}}
}

// TableOf builds a table block from rows of rich text cells. The first row
// is treated as the column header.
func TableOf(rows [][][]RichText) Block {
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	children := make([]Block, 0, len(rows))
	for _, cells := range rows {
		children = append(children, Block{
			Object:   "block",
			Type:     "table_row",
			TableRow: &TableRowBlock{Cells: cells},
		})
	}
	return Block{Object: "block", Type: "table", Table: &TableBlock{
		TableWidth:      width,
		HasColumnHeader: true,
		Children:        children,
	}}
}
