package content

import (
	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

// Disposition says what the parser does with an upstream block type.
type Disposition int

const (
	Unknown Disposition = iota
	AsContent
	AsComment
	Dropped
)

// Triage classifies an upstream block type. Every entry of
// notion.KnownBlockTypes must map to something other than Unknown; the
// package tests enforce it so new upstream types get classified on purpose.
func Triage(t notion.BlockType) Disposition {
	switch t {
	case notion.BlockParagraph, notion.BlockHeading1, notion.BlockHeading2, notion.BlockHeading3:
		return AsContent
	case notion.BlockToggle:
		return AsComment
	case notion.BlockBulletedListItem, notion.BlockNumberedListItem, notion.BlockQuote,
		notion.BlockToDo, notion.BlockTemplate, notion.BlockSyncedBlock, notion.BlockChildPage,
		notion.BlockChildDatabase, notion.BlockEquation, notion.BlockCode, notion.BlockCallout,
		notion.BlockDivider, notion.BlockBreadcrumb, notion.BlockTableOfContents,
		notion.BlockColumnList, notion.BlockColumn, notion.BlockLinkToPage, notion.BlockTable,
		notion.BlockTableRow, notion.BlockEmbed, notion.BlockBookmark, notion.BlockImage,
		notion.BlockVideo, notion.BlockPDF, notion.BlockFile, notion.BlockAudio,
		notion.BlockLinkPreview, notion.BlockUnsupported:
		return Dropped
	default:
		return Unknown
	}
}

var contentTypes = map[notion.BlockType]BlockType{
	notion.BlockParagraph: Paragraph,
	notion.BlockHeading1:  H1,
	notion.BlockHeading2:  H2,
	notion.BlockHeading3:  H3,
}

// ParseBlocks splits upstream blocks into content blocks and comment headers,
// preserving upstream order. Unsupported block types are skipped.
func ParseBlocks(blocks []notion.Block) ContentAndComments {
	out := ContentAndComments{Content: []Block{}, Comments: []Comment{}}
	for _, raw := range blocks {
		switch Triage(raw.Type) {
		case AsContent:
			out.Content = append(out.Content, parseContentBlock(raw))
		case AsComment:
			out.Comments = append(out.Comments, ParseComment(raw))
		}
	}
	return out
}

func parseContentBlock(raw notion.Block) Block {
	block := Block{
		ID:          util.Compact(raw.ID),
		Type:        contentTypes[raw.Type],
		CreatedTime: raw.CreatedTime,
		EditedTime:  raw.LastEditedTime,
		RichText:    []Span{},
	}
	if payload := raw.Text(); payload != nil {
		block.RichText = ParseRichText(payload.RichText)
		block.Color = payload.Color
	}
	block.PlainText = PlainText(block.RichText)
	return block
}

// ParseComment reads the header of a toggle block.
func ParseComment(raw notion.Block) Comment {
	comment := Comment{ID: util.Compact(raw.ID)}
	if payload := raw.Text(); payload != nil {
		comment.Header = ParseCommentHeader(payload.RichText)
	}
	return comment
}

// ParseRichText converts upstream runs in order. Mentions other than page and
// date have no representation and are omitted.
func ParseRichText(runs []notion.RichText) []Span {
	spans := make([]Span, 0, len(runs))
	for _, run := range runs {
		if span, ok := parseRun(run); ok {
			spans = append(spans, span)
		}
	}
	return spans
}

func parseRun(run notion.RichText) (Span, bool) {
	span := Span{Type: SpanType(run.Type), Annotations: parseAnnotations(run.Annotations)}
	switch run.Type {
	case notion.RichTextText:
		text := &TextSpan{Content: run.PlainText}
		if run.Text != nil {
			text.Content = run.Text.Content
			if run.Text.Link != nil {
				link := run.Text.Link.URL
				text.Link = &link
			}
		}
		span.Text = text
		return span, true
	case notion.RichTextMention:
		if run.Mention == nil {
			return Span{}, false
		}
		mention := &MentionSpan{Text: run.PlainText}
		switch run.Mention.Type {
		case notion.MentionPage:
			if run.Mention.Page == nil {
				return Span{}, false
			}
			id := util.Compact(run.Mention.Page.ID)
			mention.Type = MentionPage
			mention.Page = &id
		case notion.MentionDate:
			if run.Mention.Date == nil {
				return Span{}, false
			}
			start := run.Mention.Date.Start
			mention.Type = MentionDate
			mention.Date = &start
		default:
			return Span{}, false
		}
		span.Mention = mention
		return span, true
	case notion.RichTextEquation:
		expression := run.PlainText
		if run.Equation != nil {
			expression = run.Equation.Expression
		}
		span.Equation = &EquationSpan{Expression: expression}
		return span, true
	default:
		return Span{}, false
	}
}

func parseAnnotations(raw *notion.Annotations) Annotations {
	if raw == nil {
		return Annotations{Color: DefaultColor}
	}
	color := raw.Color
	if color == "" {
		color = DefaultColor
	}
	return Annotations{
		Bold:          raw.Bold,
		Italic:        raw.Italic,
		Strikethrough: raw.Strikethrough,
		Underline:     raw.Underline,
		Code:          raw.Code,
		Color:         color,
	}
}

// ParseCommentHeader looks for a page mention immediately followed by a date
// mention. Without that pair it falls back to the first page mention and the
// first date mention it finds, leaving missing fields empty.
func ParseCommentHeader(runs []notion.RichText) CommentHeader {
	for i := 0; i+1 < len(runs); i++ {
		if isMention(runs[i], notion.MentionPage) && isMention(runs[i+1], notion.MentionDate) {
			header := headerFromPage(runs[i])
			header.Date = runs[i+1].Mention.Date.Start
			return header
		}
	}

	var header CommentHeader
	for _, run := range runs {
		switch {
		case header.Relation == "" && isMention(run, notion.MentionPage):
			page := headerFromPage(run)
			header.Author, header.Relation = page.Author, page.Relation
		case header.Date == "" && isMention(run, notion.MentionDate):
			header.Date = run.Mention.Date.Start
		}
	}
	return header
}

func isMention(run notion.RichText, t notion.MentionType) bool {
	if run.Type != notion.RichTextMention || run.Mention == nil || run.Mention.Type != t {
		return false
	}
	switch t {
	case notion.MentionPage:
		return run.Mention.Page != nil
	case notion.MentionDate:
		return run.Mention.Date != nil
	}
	return false
}

func headerFromPage(run notion.RichText) CommentHeader {
	relation := util.Compact(run.Mention.Page.ID)
	author := run.PlainText
	if author == "" {
		author = relation
	}
	return CommentHeader{Author: author, Relation: relation}
}
