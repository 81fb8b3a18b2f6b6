package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexeiaccio/notion-forum/internal/cache"
	"github.com/alexeiaccio/notion-forum/internal/content"
	"github.com/alexeiaccio/notion-forum/internal/gate"
	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/property"
	"github.com/alexeiaccio/notion-forum/internal/rbac"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

// Property names in the user and role databases.
const (
	propEmail         = "email"
	propEmailVerified = "emailVerified"
	propImage         = "image"
	propRole          = "role"
	propUsers         = "users"
)

const (
	avatarName = "avatar"
	hostedHost = "secure.notion-static.com"
)

func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	id = util.Compact(strings.TrimSpace(id))
	if id == "" {
		return User{}, precondition("user id is required")
	}
	raw, ok := s.retrievePage(ctx, id)
	if !ok || !s.isUserPage(raw) {
		return User{}, notFound("user", id)
	}

	var (
		props property.Properties
		role  *string
		group errgroup.Group
	)
	group.Go(func() error {
		props = s.props.Fetch(ctx, raw, property.Selection{Pick: []string{propName, propEmail, propEmailVerified, propImage}})
		return nil
	})
	group.Go(func() error {
		if r, err := s.GetRole(ctx, id); err == nil {
			role = &r.Role
		}
		return nil
	})
	_ = group.Wait()

	user := User{
		ID:    util.Compact(raw.ID),
		Name:  property.Text(props, propName, "title"),
		Email: property.Email(props, propEmail),
		Role:  role,
	}
	if verified := property.Number(props, propEmailVerified); verified != nil {
		user.EmailVerified = ptr(time.UnixMilli(int64(*verified)).UTC())
	}
	if files := property.Files(props, propImage); len(files) > 0 {
		user.Image = &files[0].URL
	}
	return user, nil
}

// GetUserInfo returns the public profile, cached at user/{id}.
func (s *Service) GetUserInfo(ctx context.Context, id string) (UserInfo, error) {
	id = util.Compact(strings.TrimSpace(id))
	if id == "" {
		return UserInfo{}, precondition("user id is required")
	}
	return cache.Cached(s.cache, cache.UserPath(id), cache.TagUser, func(ctx context.Context) (UserInfo, error) {
		return s.assembleUserInfo(ctx, id)
	})(ctx)
}

func (s *Service) assembleUserInfo(ctx context.Context, id string) (UserInfo, error) {
	var (
		raw         notion.Page
		found       bool
		children    content.ContentAndComments
		hasChildren bool
		group       errgroup.Group
	)
	group.Go(func() error {
		raw, found = s.retrievePage(ctx, id)
		return nil
	})
	group.Go(func() error {
		children, hasChildren = s.children(ctx, id)
		return nil
	})
	_ = group.Wait()

	if !found {
		return UserInfo{}, notFound("user", id)
	}
	if !s.isUserPage(raw) {
		return UserInfo{}, notFound("user", id)
	}
	if !hasChildren {
		return UserInfo{}, upstreamFailed("list bio of user", id)
	}

	props := s.props.Fetch(ctx, raw, property.Selection{Pick: []string{propName, propImage}})
	info := UserInfo{
		ID:   util.Compact(raw.ID),
		Name: property.Text(props, propName, "title"),
		Bio:  children.Content,
	}
	if files := property.Files(props, propImage); len(files) > 0 {
		info.Image = imageRef(files[0].URL)
	}
	return info, nil
}

// isUserPage checks that raw has a name and, when the user database is
// configured, that it lives there.
func (s *Service) isUserPage(raw notion.Page) bool {
	if _, ok := raw.Properties[propName]; !ok {
		return false
	}
	return s.dbs.Users == "" || util.Compact(raw.Parent.DatabaseID) == util.Compact(s.dbs.Users)
}

// imageRef strips the signature from workspace-hosted file urls, which
// expire, leaving the object path. External urls are returned as is.
func imageRef(raw string) *string {
	if !strings.Contains(raw, hostedHost) && !strings.Contains(raw, "amazonaws.com") {
		return &raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Path == "" {
		return nil
	}
	return &parsed.Path
}

func (s *Service) UpdateUserName(ctx context.Context, session Session, id, name string) (string, error) {
	id, err := s.checkUserEdit(session, id)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", precondition("name is required")
	}

	updated, ok := gate.Call(ctx, s.gate, "pages.update", func(ctx context.Context) (notion.Page, error) {
		return s.upstream.UpdatePage(ctx, util.Canonical(id), notion.UpdatePageRequest{
			Properties: map[string]notion.PropertyValue{propName: notion.TitleValue(name)},
		})
	})
	if !ok {
		return "", upstreamFailed("update name of user", id)
	}
	s.cache.Revalidate(ctx, cache.UserPath(id))

	props := s.props.Fetch(ctx, updated, property.Selection{Pick: []string{propName}})
	if stored := property.Text(props, propName, "title"); stored != nil {
		return *stored, nil
	}
	return name, nil
}

// UpdateUserImage points the avatar at url. Workspace-hosted uploads are
// stored as files, anything else as an external link.
func (s *Service) UpdateUserImage(ctx context.Context, session Session, id, imageURL string) (string, error) {
	id, err := s.checkUserEdit(session, id)
	if err != nil {
		return "", err
	}
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", precondition("image url is required")
	}

	value := notion.FilesValue(avatarName, imageURL, strings.Contains(imageURL, hostedHost))
	updated, ok := gate.Call(ctx, s.gate, "pages.update", func(ctx context.Context) (notion.Page, error) {
		return s.upstream.UpdatePage(ctx, util.Canonical(id), notion.UpdatePageRequest{
			Properties: map[string]notion.PropertyValue{propImage: value},
		})
	})
	if !ok {
		return "", upstreamFailed("update image of user", id)
	}
	s.cache.Revalidate(ctx, cache.UserPath(id))

	props := s.props.Fetch(ctx, updated, property.Selection{Pick: []string{propImage}})
	if files := property.Files(props, propImage); len(files) > 0 {
		return files[0].URL, nil
	}
	return imageURL, nil
}

// UpdateUserInfo rewrites the bio in place: existing blocks are updated by
// position, extra blocks are appended and blocks beyond the new length are
// archived. It returns the parsed blocks the upstream accepted.
func (s *Service) UpdateUserInfo(ctx context.Context, session Session, id string, blocks []content.Block) ([]content.Block, error) {
	id, err := s.checkUserEdit(session, id)
	if err != nil {
		return nil, err
	}
	if err := content.Validate(blocks); err != nil {
		return nil, precondition("bio: %v", err)
	}

	existing, err := s.assembleUserInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	requests := content.ToRequest(blocks)
	shared := min(len(existing.Bio), len(requests))

	written := make([]*notion.Block, len(requests))
	var group errgroup.Group
	for i := 0; i < shared; i++ {
		group.Go(func() error {
			block, ok := gate.Call(ctx, s.gate, "blocks.update", func(ctx context.Context) (notion.Block, error) {
				return s.upstream.UpdateBlock(ctx, util.Canonical(existing.Bio[i].ID), requests[i])
			})
			if ok {
				written[i] = &block
			}
			return nil
		})
	}
	if len(requests) > shared {
		group.Go(func() error {
			list, ok := gate.Call(ctx, s.gate, "blocks.children.append", func(ctx context.Context) (notion.BlockList, error) {
				return s.upstream.AppendBlockChildren(ctx, util.Canonical(id), requests[shared:])
			})
			if !ok {
				return nil
			}
			for j := range list.Results {
				if shared+j < len(written) {
					written[shared+j] = &list.Results[j]
				}
			}
			return nil
		})
	}
	for _, surplus := range existing.Bio[shared:] {
		group.Go(func() error {
			gate.Call(ctx, s.gate, "blocks.update", func(ctx context.Context) (notion.Block, error) {
				return s.upstream.UpdateBlock(ctx, util.Canonical(surplus.ID), notion.Block{Archived: true})
			})
			return nil
		})
	}
	_ = group.Wait()

	s.cache.Revalidate(ctx, cache.UserPath(id))

	accepted := make([]notion.Block, 0, len(written))
	for _, block := range written {
		if block != nil {
			accepted = append(accepted, *block)
		}
	}
	if len(accepted) == 0 {
		return nil, upstreamFailed("update bio of user", id)
	}
	return content.ParseBlocks(accepted).Content, nil
}

func (s *Service) checkUserEdit(session Session, id string) (string, error) {
	if err := authorize(session, rbac.ActionRead); err != nil {
		return "", err
	}
	id = util.Compact(strings.TrimSpace(id))
	if id == "" {
		return "", precondition("user id is required")
	}
	if !canActAs(session, id) {
		return "", fmt.Errorf("edit profile of %s: %w", id, ErrForbidden)
	}
	return id, nil
}

// GetRole reads the role entry whose users relation contains userID.
func (s *Service) GetRole(ctx context.Context, userID string) (Role, error) {
	userID = util.Compact(strings.TrimSpace(userID))
	if userID == "" {
		return Role{}, precondition("user id is required")
	}
	if s.dbs.Roles == "" {
		return Role{}, notFound("role of user", userID)
	}
	req := notion.QueryRequest{Filter: &notion.Filter{And: []notion.Filter{
		{Property: propUsers, Relation: &notion.RelationFilter{Contains: util.Canonical(userID)}},
	}}}
	list, ok := gate.Call(ctx, s.gate, "databases.query", func(ctx context.Context) (notion.PageList, error) {
		return s.upstream.QueryDatabase(ctx, util.Canonical(s.dbs.Roles), req)
	})
	if !ok {
		return Role{}, upstreamFailed("query roles of user", userID)
	}
	if len(list.Results) == 0 {
		return Role{}, notFound("role of user", userID)
	}

	entry := list.Results[0]
	props := s.props.Fetch(ctx, entry, property.Selection{Pick: []string{propRole}})
	name := property.Text(props, propRole, "title")
	if name == nil {
		return Role{}, notFound("role of user", userID)
	}
	return Role{ID: util.Compact(entry.ID), Role: *name}, nil
}
