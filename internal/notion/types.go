// Package notion models the subset of the Notion REST API (version
// 2022-06-28) that the forum reads and writes. The shapes mirror the wire
// format; nothing here interprets them.
package notion

type BlockType string

const (
	BlockParagraph        BlockType = "paragraph"
	BlockHeading1         BlockType = "heading_1"
	BlockHeading2         BlockType = "heading_2"
	BlockHeading3         BlockType = "heading_3"
	BlockBulletedListItem BlockType = "bulleted_list_item"
	BlockNumberedListItem BlockType = "numbered_list_item"
	BlockQuote            BlockType = "quote"
	BlockToDo             BlockType = "to_do"
	BlockToggle           BlockType = "toggle"
	BlockTemplate         BlockType = "template"
	BlockSyncedBlock      BlockType = "synced_block"
	BlockChildPage        BlockType = "child_page"
	BlockChildDatabase    BlockType = "child_database"
	BlockEquation         BlockType = "equation"
	BlockCode             BlockType = "code"
	BlockCallout          BlockType = "callout"
	BlockDivider          BlockType = "divider"
	BlockBreadcrumb       BlockType = "breadcrumb"
	BlockTableOfContents  BlockType = "table_of_contents"
	BlockColumnList       BlockType = "column_list"
	BlockColumn           BlockType = "column"
	BlockLinkToPage       BlockType = "link_to_page"
	BlockTable            BlockType = "table"
	BlockTableRow         BlockType = "table_row"
	BlockEmbed            BlockType = "embed"
	BlockBookmark         BlockType = "bookmark"
	BlockImage            BlockType = "image"
	BlockVideo            BlockType = "video"
	BlockPDF              BlockType = "pdf"
	BlockFile             BlockType = "file"
	BlockAudio            BlockType = "audio"
	BlockLinkPreview      BlockType = "link_preview"
	BlockUnsupported      BlockType = "unsupported"
)

// KnownBlockTypes lists every block type the API version we pin can return.
var KnownBlockTypes = []BlockType{
	BlockParagraph, BlockHeading1, BlockHeading2, BlockHeading3,
	BlockBulletedListItem, BlockNumberedListItem, BlockQuote, BlockToDo,
	BlockToggle, BlockTemplate, BlockSyncedBlock, BlockChildPage,
	BlockChildDatabase, BlockEquation, BlockCode, BlockCallout, BlockDivider,
	BlockBreadcrumb, BlockTableOfContents, BlockColumnList, BlockColumn,
	BlockLinkToPage, BlockTable, BlockTableRow, BlockEmbed, BlockBookmark,
	BlockImage, BlockVideo, BlockPDF, BlockFile, BlockAudio, BlockLinkPreview,
	BlockUnsupported,
}

// Block is a block object. Only the payloads the forum reads or writes are
// modelled; other payloads are ignored when decoding.
type Block struct {
	Object         string    `json:"object,omitempty"`
	ID             string    `json:"id,omitempty"`
	Type           BlockType `json:"type,omitempty"`
	CreatedTime    string    `json:"created_time,omitempty"`
	LastEditedTime string    `json:"last_edited_time,omitempty"`
	HasChildren    bool      `json:"has_children,omitempty"`
	Archived       bool      `json:"archived,omitempty"`

	Paragraph *TextBlock `json:"paragraph,omitempty"`
	Heading1  *TextBlock `json:"heading_1,omitempty"`
	Heading2  *TextBlock `json:"heading_2,omitempty"`
	Heading3  *TextBlock `json:"heading_3,omitempty"`
	Toggle    *TextBlock `json:"toggle,omitempty"`
}

// TextBlock is the payload shared by paragraph, heading and toggle blocks.
type TextBlock struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color,omitempty"`
	Children []Block    `json:"children,omitempty"`
}

// Text returns the payload matching the block's type, or nil.
func (b Block) Text() *TextBlock {
	switch b.Type {
	case BlockParagraph:
		return b.Paragraph
	case BlockHeading1:
		return b.Heading1
	case BlockHeading2:
		return b.Heading2
	case BlockHeading3:
		return b.Heading3
	case BlockToggle:
		return b.Toggle
	default:
		return nil
	}
}

type RichTextType string

const (
	RichTextText     RichTextType = "text"
	RichTextMention  RichTextType = "mention"
	RichTextEquation RichTextType = "equation"
)

type RichText struct {
	Type        RichTextType `json:"type,omitempty"`
	Text        *Text        `json:"text,omitempty"`
	Mention     *Mention     `json:"mention,omitempty"`
	Equation    *Equation    `json:"equation,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	PlainText   string       `json:"plain_text,omitempty"`
	Href        *string      `json:"href,omitempty"`
}

type Text struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

type Link struct {
	URL string `json:"url"`
}

type Equation struct {
	Expression string `json:"expression"`
}

type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

type MentionType string

const (
	MentionPage            MentionType = "page"
	MentionDate            MentionType = "date"
	MentionUser            MentionType = "user"
	MentionDatabase        MentionType = "database"
	MentionLinkPreview     MentionType = "link_preview"
	MentionTemplateMention MentionType = "template_mention"
)

type Mention struct {
	Type     MentionType `json:"type,omitempty"`
	Page     *Reference  `json:"page,omitempty"`
	Database *Reference  `json:"database,omitempty"`
	User     *Reference  `json:"user,omitempty"`
	Date     *DateValue  `json:"date,omitempty"`
}

type Reference struct {
	ID string `json:"id"`
}

type DateValue struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// Page is a page object. Property values are not inlined; each one is
// fetched through the page property endpoint.
type Page struct {
	Object         string                 `json:"object,omitempty"`
	ID             string                 `json:"id"`
	CreatedTime    string                 `json:"created_time"`
	LastEditedTime string                 `json:"last_edited_time"`
	Archived       bool                   `json:"archived"`
	Parent         Parent                 `json:"parent"`
	URL            string                 `json:"url,omitempty"`
	Properties     map[string]PropertyRef `json:"properties"`
}

type PropertyRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

const (
	ObjectList         = "list"
	ObjectPropertyItem = "property_item"
)

// PropertyItem is the response of the page property endpoint. Paginated
// property types (title, rich_text, relation, people) come back as an object
// of type "list" whose Results hold one item each.
type PropertyItem struct {
	Object string `json:"object"`
	ID     string `json:"id,omitempty"`
	Type   string `json:"type"`

	Title       *RichText      `json:"title,omitempty"`
	RichText    *RichText      `json:"rich_text,omitempty"`
	Relation    *Reference     `json:"relation,omitempty"`
	People      *Reference     `json:"people,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	Email       *string        `json:"email,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Files       []FileObject   `json:"files,omitempty"`

	Results    []*PropertyItem `json:"results,omitempty"`
	NextCursor *string         `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more,omitempty"`
}

type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type FileObject struct {
	Type     string    `json:"type"`
	Name     string    `json:"name"`
	File     *FileLink `json:"file,omitempty"`
	External *FileLink `json:"external,omitempty"`
}

type FileLink struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

type BlockList struct {
	Results    []Block `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

type PageList struct {
	Results    []Page  `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// PropertyValue is a property write payload keyed by property type.
type PropertyValue map[string]any

func TitleValue(content string) PropertyValue {
	return PropertyValue{"title": []RichText{{Type: RichTextText, Text: &Text{Content: content}}}}
}

func RelationValue(ids ...string) PropertyValue {
	refs := make([]Reference, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, Reference{ID: id})
	}
	return PropertyValue{"relation": refs}
}

func DatePropertyValue(start string) PropertyValue {
	return PropertyValue{"date": DateValue{Start: start}}
}

// FilesValue writes a single named file. Notion-hosted urls must be sent as
// "file", everything else as "external".
func FilesValue(name, url string, hosted bool) PropertyValue {
	file := FileObject{Name: name}
	if hosted {
		file.Type = "file"
		file.File = &FileLink{URL: url}
	} else {
		file.Type = "external"
		file.External = &FileLink{URL: url}
	}
	return PropertyValue{"files": []FileObject{file}}
}

type Parent struct {
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
}

type CreatePageRequest struct {
	Parent     Parent                   `json:"parent"`
	Properties map[string]PropertyValue `json:"properties"`
	Children   []Block                  `json:"children,omitempty"`
}

type UpdatePageRequest struct {
	Properties map[string]PropertyValue `json:"properties,omitempty"`
	Archived   *bool                    `json:"archived,omitempty"`
}

type Filter struct {
	Property string          `json:"property,omitempty"`
	Relation *RelationFilter `json:"relation,omitempty"`
	Date     *DateFilter     `json:"date,omitempty"`
	And      []Filter        `json:"and,omitempty"`
	Or       []Filter        `json:"or,omitempty"`
}

type RelationFilter struct {
	Contains string `json:"contains"`
}

type DateFilter struct {
	IsEmpty    bool `json:"is_empty,omitempty"`
	IsNotEmpty bool `json:"is_not_empty,omitempty"`
}

type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}
