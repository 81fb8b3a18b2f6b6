package content

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexeiaccio/notion-forum/internal/notion"
)

func textRun(s string) notion.RichText {
	return notion.RichText{Type: notion.RichTextText, Text: &notion.Text{Content: s}, PlainText: s}
}

func pageMention(id, plain string) notion.RichText {
	return notion.RichText{
		Type:      notion.RichTextMention,
		Mention:   &notion.Mention{Type: notion.MentionPage, Page: &notion.Reference{ID: id}},
		PlainText: plain,
	}
}

func dateMention(start string) notion.RichText {
	return notion.RichText{
		Type:      notion.RichTextMention,
		Mention:   &notion.Mention{Type: notion.MentionDate, Date: &notion.DateValue{Start: start}},
		PlainText: start,
	}
}

func paragraph(id string, runs ...notion.RichText) notion.Block {
	return notion.Block{ID: id, Type: notion.BlockParagraph, Paragraph: &notion.TextBlock{RichText: runs, Color: "gray"}}
}

func toggle(id string, runs ...notion.RichText) notion.Block {
	return notion.Block{ID: id, Type: notion.BlockToggle, Toggle: &notion.TextBlock{RichText: runs}}
}

func TestEveryKnownBlockTypeIsTriaged(t *testing.T) {
	for _, bt := range notion.KnownBlockTypes {
		if Triage(bt) == Unknown {
			t.Errorf("block type %q is not triaged", bt)
		}
	}
	assert.Equal(t, Unknown, Triage("brand_new_type"))
}

func TestParseBlocksDispatchesByType(t *testing.T) {
	blocks := []notion.Block{
		paragraph("aaaa-1", textRun("hello")),
		{ID: "h", Type: notion.BlockHeading2, Heading2: &notion.TextBlock{RichText: []notion.RichText{textRun("title")}}},
		{ID: "img", Type: notion.BlockImage},
		{ID: "x", Type: "unsupported_type"},
		toggle("c-1", pageMention("u1", ""), dateMention("2024-01-01T00:00:00Z")),
	}

	out := ParseBlocks(blocks)

	require.Len(t, out.Content, 2)
	assert.Equal(t, Paragraph, out.Content[0].Type)
	assert.Equal(t, "aaaa1", out.Content[0].ID)
	assert.Equal(t, "gray", out.Content[0].Color)
	assert.Equal(t, H2, out.Content[1].Type)
	require.Len(t, out.Comments, 1)
	assert.Equal(t, "c1", out.Comments[0].ID)
}

func TestParseBlocksDropsUnknownType(t *testing.T) {
	out := ParseBlocks([]notion.Block{paragraph("p", textRun("x")), {ID: "u", Type: "unsupported_type"}})
	assert.Len(t, out.Content, 1)
	assert.Empty(t, out.Comments)
}

func TestParseBlocksEmptyInputHasNonNilSlices(t *testing.T) {
	out := ParseBlocks(nil)
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[],"comments":[]}`, string(raw))
}

func TestParseBlocksIsIdempotent(t *testing.T) {
	blocks := []notion.Block{
		paragraph("p", textRun("a"), pageMention("page-1", "Page"), dateMention("2024-02-02")),
		toggle("c", pageMention("u", "User"), dateMention("2024-01-01T00:00:00Z")),
	}
	assert.Equal(t, ParseBlocks(blocks), ParseBlocks(blocks))
}

func TestPlainTextIsConcatenationOfSpans(t *testing.T) {
	eq := notion.RichText{Type: notion.RichTextEquation, Equation: &notion.Equation{Expression: "e=mc^2"}}
	out := ParseBlocks([]notion.Block{paragraph("p", textRun("Energy: "), eq, textRun(" and "), pageMention("p2", "Other page"))})

	block := out.Content[0]
	var want string
	for _, span := range block.RichText {
		want += span.RenderText()
	}
	assert.Equal(t, want, block.PlainText)
	assert.Equal(t, "Energy: e=mc^2 and Other page", block.PlainText)
}

func TestParseRichTextDropsUnsupportedMentions(t *testing.T) {
	user := notion.RichText{Type: notion.RichTextMention, Mention: &notion.Mention{Type: notion.MentionUser, User: &notion.Reference{ID: "u"}}, PlainText: "@user"}
	db := notion.RichText{Type: notion.RichTextMention, Mention: &notion.Mention{Type: notion.MentionDatabase, Database: &notion.Reference{ID: "d"}}}

	spans := ParseRichText([]notion.RichText{textRun("a"), user, db, dateMention("2024-01-01")})

	require.Len(t, spans, 2)
	assert.Equal(t, SpanText, spans[0].Type)
	assert.Equal(t, SpanMention, spans[1].Type)
	assert.Equal(t, MentionDate, spans[1].Mention.Type)
}

func TestParseRichTextPopulatesExactlyOnePayload(t *testing.T) {
	link := notion.RichText{Type: notion.RichTextText, Text: &notion.Text{Content: "site", Link: &notion.Link{URL: "https://example.com"}},
		Annotations: &notion.Annotations{Bold: true, Color: "red"}}
	eq := notion.RichText{Type: notion.RichTextEquation, Equation: &notion.Equation{Expression: "x"}}
	spans := ParseRichText([]notion.RichText{link, pageMention("p", "P"), eq})

	for _, span := range spans {
		set := 0
		if span.Text != nil {
			set++
		}
		if span.Mention != nil {
			set++
		}
		if span.Equation != nil {
			set++
		}
		assert.Equal(t, 1, set, "span %+v", span)
	}
	assert.Equal(t, "https://example.com", *spans[0].Text.Link)
	assert.Equal(t, Annotations{Bold: true, Color: "red"}, spans[0].Annotations)
	assert.Equal(t, Annotations{Color: DefaultColor}, spans[1].Annotations)
}

func TestParseCommentHeader(t *testing.T) {
	header := ParseCommentHeader([]notion.RichText{pageMention("u1", ""), dateMention("2024-01-01T00:00:00Z")})
	assert.Equal(t, CommentHeader{Author: "u1", Relation: "u1", Date: "2024-01-01T00:00:00Z"}, header)
}

func TestParseCommentHeaderUsesDisplayNameAndCompactRelation(t *testing.T) {
	header := ParseCommentHeader([]notion.RichText{
		textRun("by "),
		pageMention("1a2b3c4d-0000-4abc-8def-0123456789ab", "Ada"),
		dateMention("2024-03-03T10:00:00.000Z"),
	})
	assert.Equal(t, "Ada", header.Author)
	assert.Equal(t, "1a2b3c4d00004abc8def0123456789ab", header.Relation)
	assert.Equal(t, "2024-03-03T10:00:00.000Z", header.Date)
}

func TestParseCommentHeaderPartial(t *testing.T) {
	assert.Equal(t, CommentHeader{}, ParseCommentHeader([]notion.RichText{textRun("plain toggle")}))
	assert.Equal(t, CommentHeader{Date: "2024-01-01"}, ParseCommentHeader([]notion.RichText{dateMention("2024-01-01")}))
	assert.Equal(t, CommentHeader{Author: "Ada", Relation: "u"}, ParseCommentHeader([]notion.RichText{pageMention("u", "Ada"), textRun(" said")}))
}

func TestToRequestRoundTripsThroughParser(t *testing.T) {
	link := "https://example.com"
	page := "1a2b3c4d00004abc8def0123456789ab"
	date := "2024-05-05"
	blocks := []Block{
		{Type: H1, RichText: []Span{{Type: SpanText, Text: &TextSpan{Content: "Head"}, Annotations: Annotations{Color: DefaultColor}}}},
		{Type: Paragraph, Color: "blue", RichText: []Span{
			{Type: SpanText, Text: &TextSpan{Content: "see", Link: &link}, Annotations: Annotations{Italic: true, Color: DefaultColor}},
			{Type: SpanMention, Mention: &MentionSpan{Type: MentionPage, Page: &page}, Annotations: Annotations{Color: DefaultColor}},
			{Type: SpanMention, Mention: &MentionSpan{Type: MentionDate, Date: &date}, Annotations: Annotations{Color: DefaultColor}},
			{Type: SpanEquation, Equation: &EquationSpan{Expression: "a+b"}, Annotations: Annotations{Color: DefaultColor}},
		}},
	}
	require.NoError(t, Validate(blocks))

	req := ToRequest(blocks)
	require.Len(t, req, 2)
	assert.Equal(t, notion.BlockHeading1, req[0].Type)
	assert.Equal(t, "blue", req[1].Paragraph.Color)
	assert.Equal(t, "1a2b3c4d-0000-4abc-8def-0123456789ab", req[1].Paragraph.RichText[1].Mention.Page.ID)

	parsed := ParseBlocks(req)
	require.Len(t, parsed.Content, 2)
	assert.Equal(t, blocks[1].RichText[0], parsed.Content[1].RichText[0])
	assert.Equal(t, page, *parsed.Content[1].RichText[1].Mention.Page)
	assert.Equal(t, "a+b", parsed.Content[1].RichText[3].Equation.Expression)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrEmptyContent)
	assert.Error(t, Validate([]Block{{Type: "quote"}}))
}

func TestCommentBlockEncodesAuthorAndDate(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.FixedZone("X", 3600))
	block := CommentBlock("1a2b3c4d00004abc8def0123456789ab", at, ToRequest([]Block{{Type: Paragraph}}))

	require.Equal(t, notion.BlockToggle, block.Type)
	require.NotNil(t, block.Toggle)
	assert.Len(t, block.Toggle.Children, 1)

	comment := ParseComment(notion.Block{ID: "c", Type: block.Type, Toggle: block.Toggle})
	assert.Equal(t, "1a2b3c4d00004abc8def0123456789ab", comment.Header.Relation)
	assert.Equal(t, "2024-01-02T02:04:05.006Z", comment.Header.Date)
}
