// Package content is the forum's own content model: typed rich text spans,
// paragraph and heading blocks, and the comment headers carried by toggle
// blocks. It converts to and from the upstream block schema.
package content

import "strings"

type BlockType string

const (
	Paragraph BlockType = "paragraph"
	H1        BlockType = "h1"
	H2        BlockType = "h2"
	H3        BlockType = "h3"
)

type SpanType string

const (
	SpanText     SpanType = "text"
	SpanMention  SpanType = "mention"
	SpanEquation SpanType = "equation"
)

type MentionType string

const (
	MentionDate MentionType = "date"
	MentionPage MentionType = "page"
)

const DefaultColor = "default"

type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// Span is one run of rich text. Exactly one of Text, Mention or Equation is
// set, matching Type.
type Span struct {
	Type        SpanType      `json:"type"`
	Text        *TextSpan     `json:"text,omitempty"`
	Mention     *MentionSpan  `json:"mention,omitempty"`
	Equation    *EquationSpan `json:"equation,omitempty"`
	Annotations Annotations   `json:"annotations"`
}

type TextSpan struct {
	Content string  `json:"content"`
	Link    *string `json:"link,omitempty"`
}

// MentionSpan references a page or a date. Text is the upstream rendering.
type MentionSpan struct {
	Type MentionType `json:"type"`
	Text string      `json:"text"`
	Page *string     `json:"page,omitempty"`
	Date *string     `json:"date,omitempty"`
}

type EquationSpan struct {
	Expression string `json:"expression"`
}

// RenderText is the text a span contributes to its block's plain text.
func (s Span) RenderText() string {
	switch s.Type {
	case SpanText:
		if s.Text != nil {
			return s.Text.Content
		}
	case SpanMention:
		if s.Mention != nil {
			return s.Mention.Text
		}
	case SpanEquation:
		if s.Equation != nil {
			return s.Equation.Expression
		}
	}
	return ""
}

// PlainText concatenates the rendered text of spans in order.
func PlainText(spans []Span) string {
	var b strings.Builder
	for _, span := range spans {
		b.WriteString(span.RenderText())
	}
	return b.String()
}

type Block struct {
	ID          string    `json:"id"`
	Type        BlockType `json:"type"`
	CreatedTime string    `json:"created_time"`
	EditedTime  string    `json:"edited_time"`
	RichText    []Span    `json:"rich_text"`
	PlainText   string    `json:"plain_text"`
	Color       string    `json:"color,omitempty"`
}

// CommentHeader is reconstructed from a toggle block's own rich text. Fields
// are empty when the author/date mention pattern is missing.
type CommentHeader struct {
	Author   string `json:"author"`
	Relation string `json:"relation"`
	Date     string `json:"date"`
}

type Comment struct {
	ID     string        `json:"id"`
	Header CommentHeader `json:"header"`
}

// ContentAndComments is the parse of one block's direct children. Comments
// are never expanded recursively.
type ContentAndComments struct {
	Content  []Block   `json:"content"`
	Comments []Comment `json:"comments"`
}
