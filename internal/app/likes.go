package app

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alexeiaccio/notion-forum/internal/cache"
	"github.com/alexeiaccio/notion-forum/internal/gate"
	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/property"
	"github.com/alexeiaccio/notion-forum/internal/rbac"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

// GetLikes counts every vote on a page, following the relation pagination,
// and reports the caller's own vote.
func (s *Service) GetLikes(ctx context.Context, session Session, id string) (Likes, error) {
	if err := authorize(session, rbac.ActionRead); err != nil {
		return Likes{}, err
	}
	_, likes, dislikes, err := s.votes(ctx, id)
	if err != nil {
		return Likes{}, err
	}
	return tally(likes, dislikes, session.UserID), nil
}

// PostLike toggles the caller's vote. Voting the same way twice withdraws
// the vote; voting the other way moves it.
func (s *Service) PostLike(ctx context.Context, session Session, id, vote string) (Likes, error) {
	if err := authorize(session, rbac.ActionComment); err != nil {
		return Likes{}, err
	}
	if vote != VoteLike && vote != VoteDislike {
		return Likes{}, precondition("vote must be %q or %q", VoteLike, VoteDislike)
	}
	raw, likes, dislikes, err := s.votes(ctx, id)
	if err != nil {
		return Likes{}, err
	}
	likes, dislikes = toggleVote(likes, dislikes, session.UserID, vote)

	_, ok := gate.Call(ctx, s.gate, "pages.update", func(ctx context.Context) (notion.Page, error) {
		return s.upstream.UpdatePage(ctx, raw.ID, notion.UpdatePageRequest{
			Properties: map[string]notion.PropertyValue{
				propLikes:    notion.RelationValue(canonicalAll(likes)...),
				propDislikes: notion.RelationValue(canonicalAll(dislikes)...),
			},
		})
	})
	if !ok {
		return Likes{}, upstreamFailed("vote on", id)
	}
	s.cache.Revalidate(ctx, cache.PagePath(util.Compact(raw.ID)))
	return tally(likes, dislikes, session.UserID), nil
}

func (s *Service) votes(ctx context.Context, id string) (notion.Page, []string, []string, error) {
	id = util.Compact(strings.TrimSpace(id))
	if id == "" {
		return notion.Page{}, nil, nil, precondition("page id is required")
	}
	raw, ok := s.retrievePage(ctx, id)
	if !ok {
		return notion.Page{}, nil, nil, notFound("page", id)
	}

	var (
		likes, dislikes     []string
		likesOK, dislikesOK bool
		group               errgroup.Group
	)
	group.Go(func() error {
		likes, likesOK = s.allRelations(ctx, raw, propLikes)
		return nil
	})
	group.Go(func() error {
		dislikes, dislikesOK = s.allRelations(ctx, raw, propDislikes)
		return nil
	})
	_ = group.Wait()

	if !likesOK || !dislikesOK {
		return notion.Page{}, nil, nil, upstreamFailed("read votes of", id)
	}
	return raw, likes, dislikes, nil
}

// allRelations reads every page of a relation property. A page without the
// property has no relations.
func (s *Service) allRelations(ctx context.Context, raw notion.Page, name string) ([]string, bool) {
	ref, ok := raw.Properties[name]
	if !ok || ref.ID == "" {
		return []string{}, true
	}
	ids := []string{}
	cursor := ""
	for {
		item, ok := gate.Call(ctx, s.gate, "pages.properties.retrieve", func(ctx context.Context) (notion.PropertyItem, error) {
			return s.upstream.RetrievePagePropertyFrom(ctx, raw.ID, ref.ID, cursor)
		})
		if !ok {
			return nil, false
		}
		ids = append(ids, property.Relations(property.Properties{name: &item}, name)...)
		if !item.HasMore || item.NextCursor == nil || *item.NextCursor == "" {
			return ids, true
		}
		cursor = *item.NextCursor
	}
}

func toggleVote(likes, dislikes []string, userID, vote string) ([]string, []string) {
	target, other := &likes, &dislikes
	if vote == VoteDislike {
		target, other = &dislikes, &likes
	}
	if slices.Contains(*target, userID) {
		*target = without(*target, userID)
		return likes, dislikes
	}
	*target = append(without(*target, userID), userID)
	*other = without(*other, userID)
	return likes, dislikes
}

func without(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(candidate string) bool { return candidate == id })
}

func tally(likes, dislikes []string, userID string) Likes {
	out := Likes{Likes: len(likes), Dislikes: len(dislikes)}
	switch {
	case slices.Contains(likes, userID):
		out.Vote = ptr(VoteLike)
	case slices.Contains(dislikes, userID):
		out.Vote = ptr(VoteDislike)
	}
	return out
}

func canonicalAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = util.Canonical(id)
	}
	return out
}
