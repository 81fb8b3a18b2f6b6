// Package search mirrors forum pages and comments into Meilisearch so they
// can be found without walking the content tree upstream.
package search

type ResultType string

const (
	ResultPage    ResultType = "page"
	ResultComment ResultType = "comment"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	PageID  string     `json:"pageId"`
	// Path is the comment breadcrumb joined by "/", empty for pages.
	Path string `json:"path,omitempty"`
}

type Query struct {
	Text         string
	FilterType   ResultType // empty = all types
	FilterPageID string
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// PageRecord is the data we index for a published page.
type PageRecord struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Text    string   `json:"text"`
	Authors []string `json:"authors"`
	Tags    []string `json:"tags"`
}

// CommentRecord is the data we index for a comment. Path holds the
// breadcrumb below the page, so a hit can be opened directly.
type CommentRecord struct {
	ID     string `json:"id"`
	PageID string `json:"pageId"`
	Path   string `json:"path"`
	Author string `json:"author"`
	Text   string `json:"text"`
}
