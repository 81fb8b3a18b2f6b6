package app

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alexeiaccio/notion-forum/internal/cache"
	"github.com/alexeiaccio/notion-forum/internal/content"
	"github.com/alexeiaccio/notion-forum/internal/gate"
	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/property"
	"github.com/alexeiaccio/notion-forum/internal/search"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

// Property names in the page database.
const (
	propTitle     = "title"
	propAuthors   = "authors"
	propTags      = "tags"
	propPublished = "published"
	propLikes     = "likes"
	propDislikes  = "dislikes"
)

// propName is the title property of user and tag pages.
const propName = "name"

const pageListSize = 10

var pageSelection = property.Selection{
	Pick: []string{propTitle, propAuthors, propTags, propPublished, propLikes, propDislikes},
}

// GetPage assembles a page with its direct content and comment headers,
// cached at page/{id}.
func (s *Service) GetPage(ctx context.Context, id string) (PageDetail, error) {
	id = util.Compact(strings.TrimSpace(id))
	if id == "" {
		return PageDetail{}, precondition("page id is required")
	}
	return cache.Cached(s.cache, cache.PagePath(id), cache.TagPage, func(ctx context.Context) (PageDetail, error) {
		return s.assemblePage(ctx, id)
	})(ctx)
}

func (s *Service) assemblePage(ctx context.Context, id string) (PageDetail, error) {
	var (
		page        Page
		found       bool
		children    content.ContentAndComments
		hasChildren bool
		group       errgroup.Group
	)
	group.Go(func() error {
		page, found = s.fetchPage(ctx, id)
		return nil
	})
	group.Go(func() error {
		children, hasChildren = s.children(ctx, id)
		return nil
	})
	_ = group.Wait()

	if !found {
		return PageDetail{}, notFound("page", id)
	}
	if !hasChildren {
		return PageDetail{}, upstreamFailed("list children of page", id)
	}
	s.resolvePageRelations(ctx, &page, true)

	detail := PageDetail{Page: page, ContentAndComments: children}
	if page.Published != nil {
		s.indexPage(detail)
	} else if s.search != nil {
		s.search.DeletePage(id)
	}
	return detail, nil
}

// GetBlockChildren parses the direct children of any block. It is not cached.
func (s *Service) GetBlockChildren(ctx context.Context, id string) (content.ContentAndComments, error) {
	id = util.Compact(strings.TrimSpace(id))
	if id == "" {
		return content.ContentAndComments{}, precondition("block id is required")
	}
	children, ok := s.children(ctx, id)
	if !ok {
		return content.ContentAndComments{}, notFound("block", id)
	}
	return children, nil
}

// GetRelations resolves relation targets to their names. Each id is looked
// up on its own: a failure only blanks that entry.
func (s *Service) GetRelations(ctx context.Context, ids []string) []Relation {
	out := make([]Relation, len(ids))
	var group errgroup.Group
	for i, id := range ids {
		group.Go(func() error {
			out[i] = s.resolveRelation(ctx, id)
			return nil
		})
	}
	_ = group.Wait()
	return out
}

func (s *Service) resolveRelation(ctx context.Context, id string) Relation {
	id = strings.TrimSpace(id)
	if id == "" {
		return Relation{}
	}
	page, ok := gate.Call(ctx, s.gate, "pages.retrieve", func(ctx context.Context) (notion.Page, error) {
		return s.upstream.RetrievePage(ctx, util.Canonical(id))
	})
	if !ok {
		return Relation{}
	}
	props := s.props.Fetch(ctx, page, property.Selection{Pick: []string{propName}})
	return Relation{
		ID:   ptr(util.Compact(page.ID)),
		Name: property.Text(props, propName, "title"),
	}
}

// GetPagesList lists published pages, oldest edit first. A non-empty author
// restricts the list to pages that author is related to.
func (s *Service) GetPagesList(ctx context.Context, cursor, author string) (PagesList, error) {
	filter := &notion.Filter{Property: propPublished, Date: &notion.DateFilter{IsNotEmpty: true}}
	if author = strings.TrimSpace(author); author != "" {
		filter = &notion.Filter{And: []notion.Filter{
			*filter,
			{Property: propAuthors, Relation: &notion.RelationFilter{Contains: util.Canonical(author)}},
		}}
	}
	return s.listPages(ctx, filter, cursor)
}

func (s *Service) listPages(ctx context.Context, filter *notion.Filter, cursor string) (PagesList, error) {
	if s.dbs.Pages == "" {
		return PagesList{}, precondition("page database is not configured")
	}
	req := notion.QueryRequest{
		Filter:      filter,
		Sorts:       []notion.Sort{{Timestamp: "last_edited_time", Direction: "ascending"}},
		StartCursor: strings.TrimSpace(cursor),
		PageSize:    pageListSize,
	}
	list, ok := gate.Call(ctx, s.gate, "databases.query", func(ctx context.Context) (notion.PageList, error) {
		return s.upstream.QueryDatabase(ctx, util.Canonical(s.dbs.Pages), req)
	})
	if !ok {
		return PagesList{}, upstreamFailed("query pages in", s.dbs.Pages)
	}

	results := make([]Page, len(list.Results))
	var group errgroup.Group
	for i, raw := range list.Results {
		group.Go(func() error {
			results[i] = pageFromProps(raw, s.props.Fetch(ctx, raw, pageSelection))
			return nil
		})
	}
	_ = group.Wait()

	return PagesList{Results: results, HasMore: list.HasMore, NextCursor: list.NextCursor}, nil
}

// fetchPage retrieves a page and its forum properties. Relations are left
// unresolved.
func (s *Service) fetchPage(ctx context.Context, id string) (Page, bool) {
	raw, ok := s.retrievePage(ctx, id)
	if !ok {
		return Page{}, false
	}
	return pageFromProps(raw, s.props.Fetch(ctx, raw, pageSelection)), true
}

func (s *Service) retrievePage(ctx context.Context, id string) (notion.Page, bool) {
	return gate.Call(ctx, s.gate, "pages.retrieve", func(ctx context.Context) (notion.Page, error) {
		return s.upstream.RetrievePage(ctx, util.Canonical(id))
	})
}

func (s *Service) children(ctx context.Context, id string) (content.ContentAndComments, bool) {
	list, ok := gate.Call(ctx, s.gate, "blocks.children.list", func(ctx context.Context) (notion.BlockList, error) {
		return s.upstream.ListBlockChildren(ctx, util.Canonical(id))
	})
	if !ok {
		return content.ContentAndComments{}, false
	}
	return content.ParseBlocks(list.Results), true
}

// resolvePageRelations replaces the author (and optionally tag) stubs with
// resolved names. Both lists are resolved concurrently.
func (s *Service) resolvePageRelations(ctx context.Context, page *Page, withTags bool) {
	var group errgroup.Group
	group.Go(func() error {
		page.Authors = s.GetRelations(ctx, relationIDs(page.Authors))
		return nil
	})
	if withTags {
		group.Go(func() error {
			page.Tags = s.GetRelations(ctx, relationIDs(page.Tags))
			return nil
		})
	}
	_ = group.Wait()
}

func pageFromProps(raw notion.Page, props property.Properties) Page {
	return Page{
		ID:        util.Compact(raw.ID),
		Title:     property.Text(props, propTitle, "title"),
		Authors:   relationStubs(property.Relations(props, propAuthors)),
		Tags:      relationStubs(property.Relations(props, propTags)),
		Created:   raw.CreatedTime,
		Updated:   raw.LastEditedTime,
		Published: property.Date(props, propPublished),
		Likes:     len(property.Relations(props, propLikes)),
		Dislikes:  len(property.Relations(props, propDislikes)),
	}
}

func relationStubs(ids []string) []Relation {
	out := make([]Relation, 0, len(ids))
	for _, id := range ids {
		out = append(out, Relation{ID: ptr(id)})
	}
	return out
}

func relationIDs(relations []Relation) []string {
	ids := make([]string, 0, len(relations))
	for _, relation := range relations {
		if relation.ID != nil {
			ids = append(ids, *relation.ID)
		}
	}
	return ids
}

func (s *Service) indexPage(detail PageDetail) {
	if s.search == nil {
		return
	}
	record := search.PageRecord{
		ID:      detail.ID,
		Text:    contentText(detail.Content),
		Authors: relationNames(detail.Authors),
		Tags:    relationNames(detail.Tags),
	}
	if detail.Title != nil {
		record.Title = *detail.Title
	}
	s.search.IndexPage(record)
}

func relationNames(relations []Relation) []string {
	names := make([]string, 0, len(relations))
	for _, relation := range relations {
		if relation.Name != nil {
			names = append(names, *relation.Name)
		}
	}
	return names
}

func contentText(blocks []content.Block) string {
	lines := make([]string, 0, len(blocks))
	for _, block := range blocks {
		lines = append(lines, block.PlainText)
	}
	return strings.Join(lines, "\n")
}
