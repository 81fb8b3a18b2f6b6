package property

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexeiaccio/notion-forum/internal/gate"
	"github.com/alexeiaccio/notion-forum/internal/notion"
)

func titleItem(text string) *notion.PropertyItem {
	return &notion.PropertyItem{
		Object: notion.ObjectPropertyItem,
		Type:   "title",
		Title:  &notion.RichText{Type: notion.RichTextText, PlainText: text},
	}
}

func relationItem(id string) *notion.PropertyItem {
	return &notion.PropertyItem{Object: notion.ObjectPropertyItem, Type: "relation", Relation: &notion.Reference{ID: id}}
}

func list(items ...*notion.PropertyItem) *notion.PropertyItem {
	return &notion.PropertyItem{Object: notion.ObjectList, Type: "property_item", Results: items}
}

func TestResolveFollowsListToFirstResult(t *testing.T) {
	props := Properties{"authors": list(relationItem("a-1"), relationItem("a-2"))}

	item := Resolve(props, "authors", "relation")
	require.NotNil(t, item)
	assert.Equal(t, "a-1", item.Relation.ID)
}

func TestResolveReturnsNilOnMismatchOrAbsence(t *testing.T) {
	num := 3.0
	props := Properties{
		"likes": {Object: notion.ObjectPropertyItem, Type: "number", Number: &num},
		"empty": list(),
	}

	assert.Nil(t, Resolve(props, "likes", "relation"))
	assert.Nil(t, Resolve(props, "missing", "number"))
	assert.Nil(t, Resolve(props, "empty", "title"))
	assert.Nil(t, Resolve(nil, "likes", "number"))
	require.NotNil(t, Number(props, "likes"))
	assert.Equal(t, 3.0, *Number(props, "likes"))
}

func TestResolveListKeepsOrderAndFiltersType(t *testing.T) {
	props := Properties{"authors": list(relationItem("a-1"), titleItem("x"), relationItem("a-2"))}

	items := ResolveList(props, "authors", "relation")
	require.Len(t, items, 2)
	assert.Equal(t, "a-1", items[0].Relation.ID)
	assert.Equal(t, "a-2", items[1].Relation.ID)
}

func TestRelationsCompactsIDs(t *testing.T) {
	props := Properties{"tags": list(relationItem("1a2b3c4d-0000-4abc-8def-0123456789ab"))}
	assert.Equal(t, []string{"1a2b3c4d00004abc8def0123456789ab"}, Relations(props, "tags"))
	assert.Empty(t, Relations(props, "authors"))
}

func TestTextJoinsFirstPage(t *testing.T) {
	props := Properties{"title": list(titleItem("Hello, "), titleItem("world"))}

	text := Text(props, "title", "title")
	require.NotNil(t, text)
	assert.Equal(t, "Hello, world", *text)
	assert.Nil(t, Text(props, "name", "title"))
}

func TestFilesFlattensKinds(t *testing.T) {
	props := Properties{"image": {
		Object: notion.ObjectPropertyItem,
		Type:   "files",
		Files: []notion.FileObject{
			{Type: "external", Name: "a", External: &notion.FileLink{URL: "https://cdn/a.png"}},
			{Type: "file", Name: "b", File: &notion.FileLink{URL: "https://s3/b.png"}},
			{Type: "unknown", Name: "c"},
		},
	}}

	assert.Equal(t, []File{{URL: "https://cdn/a.png", Name: "a"}, {URL: "https://s3/b.png", Name: "b"}}, Files(props, "image"))
}

func TestSelectionIncludes(t *testing.T) {
	assert.True(t, Selection{}.Includes("title"))
	assert.True(t, Selection{Pick: []string{"title"}}.Includes("title"))
	assert.False(t, Selection{Pick: []string{"title"}}.Includes("tags"))
	assert.False(t, Selection{Omit: []string{"tags"}}.Includes("tags"))
}

type fakeRetriever struct {
	mu    sync.Mutex
	calls []string
	fn    func(pageID, propertyID string) (notion.PropertyItem, error)
}

func (f *fakeRetriever) RetrievePageProperty(_ context.Context, pageID, propertyID string) (notion.PropertyItem, error) {
	f.mu.Lock()
	f.calls = append(f.calls, propertyID)
	f.mu.Unlock()
	return f.fn(pageID, propertyID)
}

func TestFetcherFetchesSelectedAndDropsFailures(t *testing.T) {
	retriever := &fakeRetriever{fn: func(_, propertyID string) (notion.PropertyItem, error) {
		if propertyID == "bad" {
			return notion.PropertyItem{}, errors.New("boom")
		}
		return *titleItem(propertyID), nil
	}}
	fetcher := NewFetcher(retriever, gate.New(gate.Config{Limit: 50, Interval: time.Second}, zerolog.Nop()))
	page := notion.Page{ID: "p", Properties: map[string]notion.PropertyRef{
		"title":   {ID: "title", Type: "title"},
		"broken":  {ID: "bad", Type: "title"},
		"skipped": {ID: "skip", Type: "title"},
	}}

	props := fetcher.Fetch(context.Background(), page, Selection{Omit: []string{"skipped"}})

	assert.Len(t, props, 1)
	assert.Equal(t, "title", *Text(props, "title", "title"))
	assert.ElementsMatch(t, []string{"title", "bad"}, retriever.calls)
}
