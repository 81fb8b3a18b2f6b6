package app

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alexeiaccio/notion-forum/internal/cache"
	"github.com/alexeiaccio/notion-forum/internal/content"
	"github.com/alexeiaccio/notion-forum/internal/gate"
	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/rbac"
	"github.com/alexeiaccio/notion-forum/internal/search"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

// GetComment loads the comment a breadcrumb [page, c1, ..., cn] points at,
// with its own content and direct replies. It is cached at
// page/{page}/comments/{c1}/.../{cn}.
func (s *Service) GetComment(ctx context.Context, trail []string) (CommentDetail, error) {
	trail, err := normalizeTrail(trail)
	if err != nil {
		return CommentDetail{}, err
	}
	if len(trail) < 2 {
		return CommentDetail{}, precondition("breadcrumb needs a comment id")
	}
	return cache.Cached(s.cache, cache.CommentPath(trail), cache.TagComment, func(ctx context.Context) (CommentDetail, error) {
		return s.assembleComment(ctx, trail)
	})(ctx)
}

func (s *Service) assembleComment(ctx context.Context, trail []string) (CommentDetail, error) {
	id := trail[len(trail)-1]
	var (
		block       notion.Block
		found       bool
		children    content.ContentAndComments
		hasChildren bool
		group       errgroup.Group
	)
	group.Go(func() error {
		block, found = gate.Call(ctx, s.gate, "blocks.retrieve", func(ctx context.Context) (notion.Block, error) {
			return s.upstream.RetrieveBlock(ctx, util.Canonical(id))
		})
		return nil
	})
	group.Go(func() error {
		children, hasChildren = s.children(ctx, id)
		return nil
	})
	_ = group.Wait()

	if !found || content.Triage(block.Type) != content.AsComment {
		return CommentDetail{}, notFound("comment", id)
	}
	if !hasChildren {
		return CommentDetail{}, upstreamFailed("list children of comment", id)
	}

	detail := CommentDetail{Comment: content.ParseComment(block), ContentAndComments: children}
	s.indexComment(trail, detail.Comment, detail.Content)
	return detail, nil
}

// GetBreadcrumbs loads the page of a breadcrumb and the header of every
// comment on it. All lookups run in parallel and go through the same cache
// entries as GetPage and GetComment, so each prefix of the trail is cached
// on its own. Comments come back in trail order.
func (s *Service) GetBreadcrumbs(ctx context.Context, trail []string) (Breadcrumbs, error) {
	trail, err := normalizeTrail(trail)
	if err != nil {
		return Breadcrumbs{}, err
	}

	var (
		page     PageDetail
		pageErr  error
		comments = make([]*content.Comment, len(trail)-1)
		group    errgroup.Group
	)
	group.Go(func() error {
		page, pageErr = s.breadcrumbPage(ctx, trail[0])
		return nil
	})
	for i := 1; i < len(trail); i++ {
		group.Go(func() error {
			detail, err := s.GetComment(ctx, trail[:i+1])
			if err != nil {
				s.logger.Debug().Err(err).Strs("trail", trail[:i+1]).Msg("breadcrumb comment unavailable")
				return nil
			}
			comments[i-1] = &detail.Comment
			return nil
		})
	}
	_ = group.Wait()

	if pageErr != nil {
		return Breadcrumbs{}, pageErr
	}
	return Breadcrumbs{Page: page.Page, Comments: comments}, nil
}

// breadcrumbPage only needs page metadata. When the full page entry cannot
// be built because its children failed, the metadata is fetched directly.
func (s *Service) breadcrumbPage(ctx context.Context, id string) (PageDetail, error) {
	page, err := s.GetPage(ctx, id)
	if !errors.Is(err, ErrUpstream) {
		return page, err
	}
	meta, ok := s.fetchPage(ctx, util.Compact(id))
	if !ok {
		return PageDetail{}, err
	}
	s.resolvePageRelations(ctx, &meta, true)
	return PageDetail{Page: meta}, nil
}

// PostComment appends a comment under the last element of trail, which is
// either the page itself or the comment being replied to. The page entry
// and every comment entry down to the parent are revalidated.
func (s *Service) PostComment(ctx context.Context, session Session, trail []string, blocks []content.Block) (content.ContentAndComments, error) {
	if err := authorize(session, rbac.ActionComment); err != nil {
		return content.ContentAndComments{}, err
	}
	trail, err := normalizeTrail(trail)
	if err != nil {
		return content.ContentAndComments{}, err
	}
	if err := content.Validate(blocks); err != nil {
		return content.ContentAndComments{}, precondition("comment: %v", err)
	}

	parent := trail[len(trail)-1]
	toggle := content.CommentBlock(session.UserID, s.now(), content.ToRequest(blocks))
	appended, ok := gate.Call(ctx, s.gate, "blocks.children.append", func(ctx context.Context) (notion.BlockList, error) {
		return s.upstream.AppendBlockChildren(ctx, util.Canonical(parent), []notion.Block{toggle})
	})
	if !ok {
		return content.ContentAndComments{}, upstreamFailed("append comment to", parent)
	}

	s.cache.Revalidate(ctx, cache.TrailPaths(trail)...)

	parsed := content.ParseBlocks(appended.Results)
	for _, comment := range parsed.Comments {
		s.indexComment(append(trail[:len(trail):len(trail)], comment.ID), comment, blocks)
	}
	s.logger.Info().Str("user", session.UserID).Strs("trail", trail).Int("comments", len(parsed.Comments)).Msg("comment posted")
	return parsed, nil
}

func (s *Service) indexComment(trail []string, comment content.Comment, body []content.Block) {
	if s.search == nil || len(trail) < 2 {
		return
	}
	s.search.IndexComment(search.CommentRecord{
		ID:     comment.ID,
		PageID: trail[0],
		Path:   strings.Join(trail[1:], "/"),
		Author: comment.Header.Author,
		Text:   contentText(body),
	})
}
