package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexeiaccio/notion-forum/internal/cache"
	"github.com/alexeiaccio/notion-forum/internal/gate"
	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/rbac"
	"github.com/alexeiaccio/notion-forum/internal/search"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

const (
	pageDB = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa01"
	userDB = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa02"
	roleDB = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa03"

	pageID   = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbb01"
	comment1 = "cccccccccccccccccccccccccccccc01"
	comment2 = "cccccccccccccccccccccccccccccc02"
	userAda  = "dddddddddddddddddddddddddddddd01"
	userBob  = "dddddddddddddddddddddddddddddd02"
	tagGo    = "eeeeeeeeeeeeeeeeeeeeeeeeeeeeee01"
)

var errMissing = errors.New("object_not_found")

var fixedNow = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

// fakeUpstream is an in-memory workspace. Objects are keyed by compact id.
// The func fields override the default behaviour of the write endpoints.
type fakeUpstream struct {
	mu       sync.Mutex
	pages    map[string]notion.Page
	props    map[string]notion.PropertyItem
	blocks   map[string]notion.Block
	children map[string][]notion.Block
	delays   map[string]time.Duration
	calls    map[string]int

	queryFn       func(databaseID string, req notion.QueryRequest) (notion.PageList, error)
	appendFn      func(blockID string, children []notion.Block) (notion.BlockList, error)
	updatePageFn  func(pageID string, req notion.UpdatePageRequest) (notion.Page, error)
	updateBlockFn func(blockID string, block notion.Block) (notion.Block, error)
	createPageFn  func(req notion.CreatePageRequest) (notion.Page, error)
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		pages:    map[string]notion.Page{},
		props:    map[string]notion.PropertyItem{},
		blocks:   map[string]notion.Block{},
		children: map[string][]notion.Block{},
		delays:   map[string]time.Duration{},
		calls:    map[string]int{},
	}
}

func propKey(pageID, propertyID, cursor string) string {
	return util.Compact(pageID) + "/" + propertyID + "@" + cursor
}

// addPage registers a page whose properties are served from items, keyed by
// property name. The property id is the name with an "id-" prefix.
func (f *fakeUpstream) addPage(id, parentDB string, items map[string]notion.PropertyItem) {
	refs := map[string]notion.PropertyRef{}
	for name, item := range items {
		refs[name] = notion.PropertyRef{ID: "id-" + name, Type: item.Type}
		f.props[propKey(id, "id-"+name, "")] = item
	}
	f.pages[util.Compact(id)] = notion.Page{
		Object:         "page",
		ID:             util.Canonical(id),
		CreatedTime:    "2024-01-01T00:00:00.000Z",
		LastEditedTime: "2024-01-02T00:00:00.000Z",
		Parent:         notion.Parent{DatabaseID: util.Canonical(parentDB)},
		Properties:     refs,
	}
}

func (f *fakeUpstream) record(op, id string) {
	f.mu.Lock()
	f.calls[op+":"+util.Compact(id)]++
	delay := f.delays[util.Compact(id)]
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
}

func (f *fakeUpstream) count(op, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op+":"+util.Compact(id)]
}

func (f *fakeUpstream) total(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for key, c := range f.calls {
		if len(key) > len(op) && key[:len(op)+1] == op+":" {
			n += c
		}
	}
	return n
}

func (f *fakeUpstream) RetrievePage(_ context.Context, id string) (notion.Page, error) {
	f.record("pages.retrieve", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	page, ok := f.pages[util.Compact(id)]
	if !ok {
		return notion.Page{}, errMissing
	}
	return page, nil
}

func (f *fakeUpstream) UpdatePage(_ context.Context, id string, req notion.UpdatePageRequest) (notion.Page, error) {
	f.record("pages.update", id)
	if f.updatePageFn != nil {
		return f.updatePageFn(id, req)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	page, ok := f.pages[util.Compact(id)]
	if !ok {
		return notion.Page{}, errMissing
	}
	return page, nil
}

func (f *fakeUpstream) CreatePage(_ context.Context, req notion.CreatePageRequest) (notion.Page, error) {
	f.record("pages.create", req.Parent.DatabaseID)
	if f.createPageFn != nil {
		return f.createPageFn(req)
	}
	return notion.Page{}, errMissing
}

func (f *fakeUpstream) QueryDatabase(_ context.Context, id string, req notion.QueryRequest) (notion.PageList, error) {
	f.record("databases.query", id)
	if f.queryFn != nil {
		return f.queryFn(id, req)
	}
	return notion.PageList{Results: []notion.Page{}}, nil
}

func (f *fakeUpstream) RetrieveBlock(_ context.Context, id string) (notion.Block, error) {
	f.record("blocks.retrieve", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	block, ok := f.blocks[util.Compact(id)]
	if !ok {
		return notion.Block{}, errMissing
	}
	return block, nil
}

func (f *fakeUpstream) ListBlockChildren(_ context.Context, id string) (notion.BlockList, error) {
	f.record("blocks.children.list", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	children, ok := f.children[util.Compact(id)]
	if !ok {
		return notion.BlockList{}, errMissing
	}
	return notion.BlockList{Results: children}, nil
}

func (f *fakeUpstream) AppendBlockChildren(_ context.Context, id string, children []notion.Block) (notion.BlockList, error) {
	f.record("blocks.children.append", id)
	if f.appendFn != nil {
		return f.appendFn(id, children)
	}
	out := make([]notion.Block, len(children))
	for i, child := range children {
		child.ID = fmt.Sprintf("ffffffff-ffff-ffff-ffff-%012d", i+1)
		out[i] = child
	}
	return notion.BlockList{Results: out}, nil
}

func (f *fakeUpstream) UpdateBlock(_ context.Context, id string, block notion.Block) (notion.Block, error) {
	f.record("blocks.update", id)
	if f.updateBlockFn != nil {
		return f.updateBlockFn(id, block)
	}
	block.ID = util.Canonical(id)
	return block, nil
}

func (f *fakeUpstream) RetrievePageProperty(ctx context.Context, pageID, propertyID string) (notion.PropertyItem, error) {
	return f.RetrievePagePropertyFrom(ctx, pageID, propertyID, "")
}

func (f *fakeUpstream) RetrievePagePropertyFrom(_ context.Context, pageID, propertyID, cursor string) (notion.PropertyItem, error) {
	f.record("pages.properties.retrieve", pageID)
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.props[propKey(pageID, propertyID, cursor)]
	if !ok {
		return notion.PropertyItem{}, errMissing
	}
	return item, nil
}

func titleProp(text string) notion.PropertyItem {
	return listProp(&notion.PropertyItem{
		Object: notion.ObjectPropertyItem,
		Type:   "title",
		Title:  &notion.RichText{Type: notion.RichTextText, PlainText: text},
	})
}

func relationProp(ids ...string) notion.PropertyItem {
	items := make([]*notion.PropertyItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, &notion.PropertyItem{
			Object:   notion.ObjectPropertyItem,
			Type:     "relation",
			Relation: &notion.Reference{ID: util.Canonical(id)},
		})
	}
	return listProp(items...)
}

func dateProp(start string) notion.PropertyItem {
	return notion.PropertyItem{Object: notion.ObjectPropertyItem, Type: "date", Date: &notion.DateValue{Start: start}}
}

func listProp(items ...*notion.PropertyItem) notion.PropertyItem {
	return notion.PropertyItem{Object: notion.ObjectList, Type: "property_item", Results: items}
}

func paragraphBlock(id, text string) notion.Block {
	return notion.Block{
		Object: "block",
		ID:     util.Canonical(id),
		Type:   notion.BlockParagraph,
		Paragraph: &notion.TextBlock{RichText: []notion.RichText{
			{Type: notion.RichTextText, Text: &notion.Text{Content: text}, PlainText: text},
		}},
	}
}

func commentBlock(id, authorID, authorName, date string) notion.Block {
	return notion.Block{
		Object: "block",
		ID:     util.Canonical(id),
		Type:   notion.BlockToggle,
		Toggle: &notion.TextBlock{RichText: []notion.RichText{
			{
				Type:      notion.RichTextMention,
				Mention:   &notion.Mention{Type: notion.MentionPage, Page: &notion.Reference{ID: util.Canonical(authorID)}},
				PlainText: authorName,
			},
			{
				Type:      notion.RichTextMention,
				Mention:   &notion.Mention{Type: notion.MentionDate, Date: &notion.DateValue{Start: date}},
				PlainText: date,
			},
		}},
	}
}

// seedForum builds a published page by Ada tagged Go, with one paragraph and
// a two level comment thread.
func seedForum(f *fakeUpstream) {
	f.addPage(pageID, pageDB, map[string]notion.PropertyItem{
		propTitle:     titleProp("Hello forum"),
		propAuthors:   relationProp(userAda),
		propTags:      relationProp(tagGo),
		propPublished: dateProp("2024-01-05T00:00:00.000Z"),
		propLikes:     relationProp(userBob),
		propDislikes:  relationProp(),
	})
	f.addPage(userAda, userDB, map[string]notion.PropertyItem{propName: titleProp("Ada")})
	f.addPage(userBob, userDB, map[string]notion.PropertyItem{propName: titleProp("Bob")})
	f.addPage(tagGo, "", map[string]notion.PropertyItem{propName: titleProp("Go")})

	f.children[pageID] = []notion.Block{
		paragraphBlock("11111111111111111111111111111111", "First post"),
		commentBlock(comment1, userBob, "Bob", "2024-01-06T00:00:00.000Z"),
	}
	f.blocks[comment1] = commentBlock(comment1, userBob, "Bob", "2024-01-06T00:00:00.000Z")
	f.children[comment1] = []notion.Block{
		paragraphBlock("22222222222222222222222222222222", "Nice"),
		commentBlock(comment2, userAda, "Ada", "2024-01-07T00:00:00.000Z"),
	}
	f.blocks[comment2] = commentBlock(comment2, userAda, "Ada", "2024-01-07T00:00:00.000Z")
	f.children[comment2] = []notion.Block{paragraphBlock("33333333333333333333333333333333", "Thanks")}
}

func newTestService(t *testing.T, up *fakeUpstream) (*Service, *cache.MemoryStore) {
	t.Helper()
	store := cache.NewMemoryStore()
	logger := zerolog.Nop()
	svc := NewService(Deps{
		Upstream:    up,
		Gate:        gate.New(gate.Config{Limit: 1000, Interval: time.Second, MaxConcurrent: 32}, logger),
		Cache:       cache.New(store, logger),
		Databases:   Databases{Pages: pageDB, Users: userDB, Roles: roleDB},
		TokenSecret: []byte("test-secret"),
		Logger:      logger,
	})
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func sessionFor(userID string, role rbac.Role) Session {
	return Session{UserID: userID, Name: userID, Role: role}
}

// recordingSearch keeps the ids of indexed and removed pages.
type recordingSearch struct {
	mu      sync.Mutex
	indexed []string
	deleted []string
}

func (r *recordingSearch) IndexPage(page search.PageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, page.ID)
}

func (r *recordingSearch) IndexComment(search.CommentRecord) {}

func (r *recordingSearch) DeletePage(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
}

func (r *recordingSearch) Search(q search.Query) search.Response {
	return search.Response{Results: []search.Result{}, Query: q.Text}
}
