package property

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alexeiaccio/notion-forum/internal/gate"
	"github.com/alexeiaccio/notion-forum/internal/notion"
)

type retriever interface {
	RetrievePageProperty(ctx context.Context, pageID, propertyID string) (notion.PropertyItem, error)
}

// Selection limits which properties are fetched. Pick, when non-empty, is an
// include list; Omit is always applied afterwards.
type Selection struct {
	Pick []string
	Omit []string
}

func (s Selection) Includes(name string) bool {
	if len(s.Pick) > 0 && !slices.Contains(s.Pick, name) {
		return false
	}
	return !slices.Contains(s.Omit, name)
}

type Fetcher struct {
	client retriever
	gate   *gate.Gate
}

func NewFetcher(client retriever, g *gate.Gate) *Fetcher {
	return &Fetcher{client: client, gate: g}
}

// Fetch issues one gated property call per selected property of page.
// Properties whose call fails are left out of the result.
func (f *Fetcher) Fetch(ctx context.Context, page notion.Page, sel Selection) Properties {
	props := make(Properties, len(page.Properties))
	var mu sync.Mutex
	var group errgroup.Group
	for name, ref := range page.Properties {
		if !sel.Includes(name) || ref.ID == "" {
			continue
		}
		group.Go(func() error {
			item, ok := gate.Call(ctx, f.gate, "pages.properties.retrieve", func(ctx context.Context) (notion.PropertyItem, error) {
				return f.client.RetrievePageProperty(ctx, page.ID, ref.ID)
			})
			if !ok {
				return nil
			}
			mu.Lock()
			props[name] = &item
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return props
}
