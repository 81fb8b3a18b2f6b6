package content

import (
	"errors"
	"fmt"
	"time"

	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

// TimestampLayout matches the millisecond UTC timestamps the upstream emits.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var ErrEmptyContent = errors.New("content is empty")

var upstreamTypes = map[BlockType]notion.BlockType{
	Paragraph: notion.BlockParagraph,
	H1:        notion.BlockHeading1,
	H2:        notion.BlockHeading2,
	H3:        notion.BlockHeading3,
}

// Validate rejects empty input and blocks without a known type.
func Validate(blocks []Block) error {
	if len(blocks) == 0 {
		return ErrEmptyContent
	}
	for i, block := range blocks {
		if _, ok := upstreamTypes[block.Type]; !ok {
			return fmt.Errorf("block %d: unsupported type %q", i, block.Type)
		}
	}
	return nil
}

// ToRequest converts content blocks into upstream block payloads. Ids and
// timestamps are not sent.
func ToRequest(blocks []Block) []notion.Block {
	out := make([]notion.Block, 0, len(blocks))
	for _, block := range blocks {
		t, ok := upstreamTypes[block.Type]
		if !ok {
			continue
		}
		out = append(out, newTextBlock(t, &notion.TextBlock{
			RichText: SpansToRichText(block.RichText),
			Color:    block.Color,
		}))
	}
	return out
}

func newTextBlock(t notion.BlockType, payload *notion.TextBlock) notion.Block {
	block := notion.Block{Object: "block", Type: t}
	switch t {
	case notion.BlockParagraph:
		block.Paragraph = payload
	case notion.BlockHeading1:
		block.Heading1 = payload
	case notion.BlockHeading2:
		block.Heading2 = payload
	case notion.BlockHeading3:
		block.Heading3 = payload
	case notion.BlockToggle:
		block.Toggle = payload
	}
	return block
}

// SpansToRichText is the inverse of ParseRichText. Page mentions are sent with
// canonical ids.
func SpansToRichText(spans []Span) []notion.RichText {
	out := make([]notion.RichText, 0, len(spans))
	for _, span := range spans {
		annotations := toAnnotations(span.Annotations)
		switch {
		case span.Type == SpanText && span.Text != nil:
			text := &notion.Text{Content: span.Text.Content}
			if span.Text.Link != nil && *span.Text.Link != "" {
				text.Link = &notion.Link{URL: *span.Text.Link}
			}
			out = append(out, notion.RichText{Type: notion.RichTextText, Text: text, Annotations: annotations})
		case span.Type == SpanMention && span.Mention != nil:
			mention, ok := toMention(*span.Mention)
			if !ok {
				continue
			}
			out = append(out, notion.RichText{Type: notion.RichTextMention, Mention: mention, Annotations: annotations})
		case span.Type == SpanEquation && span.Equation != nil:
			out = append(out, notion.RichText{
				Type:        notion.RichTextEquation,
				Equation:    &notion.Equation{Expression: span.Equation.Expression},
				Annotations: annotations,
			})
		}
	}
	return out
}

func toMention(m MentionSpan) (*notion.Mention, bool) {
	switch {
	case m.Type == MentionPage && m.Page != nil:
		return &notion.Mention{Type: notion.MentionPage, Page: &notion.Reference{ID: util.Canonical(*m.Page)}}, true
	case m.Type == MentionDate && m.Date != nil:
		return &notion.Mention{Type: notion.MentionDate, Date: &notion.DateValue{Start: *m.Date}}, true
	default:
		return nil, false
	}
}

func toAnnotations(a Annotations) *notion.Annotations {
	color := a.Color
	if color == "" {
		color = DefaultColor
	}
	return &notion.Annotations{
		Bold:          a.Bold,
		Italic:        a.Italic,
		Strikethrough: a.Strikethrough,
		Underline:     a.Underline,
		Code:          a.Code,
		Color:         color,
	}
}

// CommentBlock builds the toggle that stores a comment: its own rich text is
// a mention of the author page followed by a mention of the posting time, and
// the comment body goes in as children.
func CommentBlock(authorID string, at time.Time, children []notion.Block) notion.Block {
	header := []notion.RichText{
		{
			Type:    notion.RichTextMention,
			Mention: &notion.Mention{Type: notion.MentionPage, Page: &notion.Reference{ID: util.Canonical(authorID)}},
		},
		{
			Type:    notion.RichTextMention,
			Mention: &notion.Mention{Type: notion.MentionDate, Date: &notion.DateValue{Start: at.UTC().Format(TimestampLayout)}},
		},
	}
	return newTextBlock(notion.BlockToggle, &notion.TextBlock{RichText: header, Children: children})
}
