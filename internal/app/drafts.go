package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alexeiaccio/notion-forum/internal/cache"
	"github.com/alexeiaccio/notion-forum/internal/content"
	"github.com/alexeiaccio/notion-forum/internal/gate"
	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/rbac"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

// Drafts are pages in the page database whose published date is empty.

func (s *Service) CreateDraft(ctx context.Context, session Session, title string, blocks []content.Block) (Page, error) {
	if err := authorize(session, rbac.ActionWrite); err != nil {
		return Page{}, err
	}
	if err := content.Validate(blocks); err != nil {
		return Page{}, precondition("draft: %v", err)
	}
	if s.dbs.Pages == "" {
		return Page{}, precondition("page database is not configured")
	}

	props := map[string]notion.PropertyValue{
		propAuthors: notion.RelationValue(util.Canonical(session.UserID)),
	}
	title = strings.TrimSpace(title)
	if title != "" {
		props[propTitle] = notion.TitleValue(title)
	}
	created, ok := gate.Call(ctx, s.gate, "pages.create", func(ctx context.Context) (notion.Page, error) {
		return s.upstream.CreatePage(ctx, notion.CreatePageRequest{
			Parent:     notion.Parent{DatabaseID: util.Canonical(s.dbs.Pages)},
			Properties: props,
			Children:   content.ToRequest(blocks),
		})
	})
	if !ok {
		return Page{}, upstreamFailed("create draft for", session.UserID)
	}

	page := Page{
		ID:      util.Compact(created.ID),
		Authors: relationStubs([]string{session.UserID}),
		Tags:    []Relation{},
		Created: created.CreatedTime,
		Updated: created.LastEditedTime,
	}
	if title != "" {
		page.Title = &title
	}
	s.logger.Info().Str("user", session.UserID).Str("page", page.ID).Msg("draft created")
	return page, nil
}

// GetDraftsList lists the caller's unpublished pages.
func (s *Service) GetDraftsList(ctx context.Context, session Session, cursor string) (PagesList, error) {
	if err := authorize(session, rbac.ActionRead); err != nil {
		return PagesList{}, err
	}
	filter := &notion.Filter{And: []notion.Filter{
		{Property: propAuthors, Relation: &notion.RelationFilter{Contains: util.Canonical(session.UserID)}},
		{Property: propPublished, Date: &notion.DateFilter{IsEmpty: true}},
	}}
	return s.listPages(ctx, filter, cursor)
}

// GetDraft loads an unpublished page for one of its authors. Drafts are
// never cached.
func (s *Service) GetDraft(ctx context.Context, session Session, id string) (PageDetail, error) {
	if err := authorize(session, rbac.ActionRead); err != nil {
		return PageDetail{}, err
	}
	id = util.Compact(strings.TrimSpace(id))
	if id == "" {
		return PageDetail{}, precondition("draft id is required")
	}

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

	if !found || page.Published != nil {
		return PageDetail{}, notFound("draft", id)
	}
	if !isAuthor(page, session) {
		return PageDetail{}, fmt.Errorf("draft %s: %w", id, ErrForbidden)
	}
	if !hasChildren {
		return PageDetail{}, upstreamFailed("list children of draft", id)
	}
	s.resolvePageRelations(ctx, &page, false)
	return PageDetail{Page: page, ContentAndComments: children}, nil
}

// PublishDraft stamps the published date, drops any stale page entry and
// rebuilds it so the page is cached and indexed. Publishing twice returns the
// first date.
func (s *Service) PublishDraft(ctx context.Context, session Session, id string) (string, error) {
	if err := authorize(session, rbac.ActionPublish); err != nil {
		return "", err
	}
	id = util.Compact(strings.TrimSpace(id))
	if id == "" {
		return "", precondition("draft id is required")
	}

	page, found := s.fetchPage(ctx, id)
	if !found {
		return "", notFound("draft", id)
	}
	if !isAuthor(page, session) {
		return "", fmt.Errorf("publish %s: %w", id, ErrForbidden)
	}
	if page.Published != nil {
		return *page.Published, nil
	}

	published := s.now().UTC().Format(content.TimestampLayout)
	_, ok := gate.Call(ctx, s.gate, "pages.update", func(ctx context.Context) (notion.Page, error) {
		return s.upstream.UpdatePage(ctx, util.Canonical(id), notion.UpdatePageRequest{
			Properties: map[string]notion.PropertyValue{propPublished: notion.DatePropertyValue(published)},
		})
	})
	if !ok {
		return "", upstreamFailed("publish", id)
	}
	s.cache.Revalidate(ctx, cache.PagePath(id))
	if _, err := s.GetPage(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("page", id).Msg("published page not rebuilt")
	}
	s.logger.Info().Str("user", session.UserID).Str("page", id).Msg("draft published")
	return published, nil
}

func isAuthor(page Page, session Session) bool {
	return session.Role == rbac.RoleAdmin || slices.Contains(relationIDs(page.Authors), session.UserID)
}
