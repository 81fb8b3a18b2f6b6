// Package app assembles forum pages, comment threads and user profiles from
// the Notion workspace, writes comments, profile edits, drafts and votes back
// to it, and serves all of it over HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexeiaccio/notion-forum/internal/auth"
	"github.com/alexeiaccio/notion-forum/internal/cache"
	"github.com/alexeiaccio/notion-forum/internal/gate"
	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/property"
	"github.com/alexeiaccio/notion-forum/internal/rbac"
	"github.com/alexeiaccio/notion-forum/internal/search"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

// Upstream is the subset of the Notion API the forum uses. *notion.Client
// implements it.
type Upstream interface {
	RetrievePage(ctx context.Context, pageID string) (notion.Page, error)
	UpdatePage(ctx context.Context, pageID string, req notion.UpdatePageRequest) (notion.Page, error)
	CreatePage(ctx context.Context, req notion.CreatePageRequest) (notion.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req notion.QueryRequest) (notion.PageList, error)
	RetrieveBlock(ctx context.Context, blockID string) (notion.Block, error)
	ListBlockChildren(ctx context.Context, blockID string) (notion.BlockList, error)
	AppendBlockChildren(ctx context.Context, blockID string, children []notion.Block) (notion.BlockList, error)
	UpdateBlock(ctx context.Context, blockID string, block notion.Block) (notion.Block, error)
	RetrievePageProperty(ctx context.Context, pageID, propertyID string) (notion.PropertyItem, error)
	RetrievePagePropertyFrom(ctx context.Context, pageID, propertyID, cursor string) (notion.PropertyItem, error)
}

// Searcher receives index updates and answers searches. *search.Service
// implements it, including as a nil pointer.
type Searcher interface {
	IndexPage(search.PageRecord)
	IndexComment(search.CommentRecord)
	DeletePage(id string)
	Search(search.Query) search.Response
}

// Databases names the Notion databases behind pages, users and roles.
type Databases struct {
	Pages string
	Users string
	Roles string
}

type Deps struct {
	Upstream    Upstream
	Gate        *gate.Gate
	Cache       *cache.Cache
	Search      Searcher
	Databases   Databases
	TokenSecret []byte
	// Ping reports cache backend health for the readiness probe. Optional.
	Ping   func(context.Context) error
	Logger zerolog.Logger
}

type Service struct {
	upstream Upstream
	gate     *gate.Gate
	cache    *cache.Cache
	props    *property.Fetcher
	search   Searcher
	dbs      Databases
	secret   []byte
	ping     func(context.Context) error
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(deps Deps) *Service {
	return &Service{
		upstream: deps.Upstream,
		gate:     deps.Gate,
		cache:    deps.Cache,
		props:    property.NewFetcher(deps.Upstream, deps.Gate),
		search:   deps.Search,
		dbs:      deps.Databases,
		secret:   deps.TokenSecret,
		ping:     deps.Ping,
		logger:   deps.Logger.With().Str("component", "app").Logger(),
		now:      time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Service) GateStats() gate.Stats {
	return s.gate.Stats()
}

// SessionFromToken verifies a bearer token. The role is taken from the
// token; it was looked up in the role database when the token was issued.
func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken(s.secret, token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID: util.Compact(claims.Sub),
		Name:   claims.Name,
		Role:   rbac.Normalize(claims.Role),
	}, nil
}

// IssueToken signs a session token for a user, looking up the role in the
// role database. Users without a role entry become readers.
func (s *Service) IssueToken(ctx context.Context, userID, name string, ttl time.Duration) (string, Session, error) {
	userID = util.Compact(strings.TrimSpace(userID))
	if userID == "" {
		return "", Session{}, precondition("user id is required")
	}
	session := Session{UserID: userID, Name: name, Role: rbac.RoleReader}
	role, err := s.GetRole(ctx, userID)
	switch {
	case err == nil:
		session.Role = rbac.Normalize(role.Role)
	case !errors.Is(err, ErrNotFound):
		return "", Session{}, err
	}
	token, err := auth.IssueToken(s.secret, auth.NewClaims(session.UserID, session.Name, string(session.Role), ttl, s.now()))
	if err != nil {
		return "", Session{}, fmt.Errorf("issue token: %w", err)
	}
	return token, session, nil
}

func authorize(session Session, action rbac.Action) error {
	if !session.Authenticated() {
		return precondition("session is required")
	}
	if !rbac.Can(session.Role, action) {
		return fmt.Errorf("%s may not %s: %w", session.Role, action, ErrForbidden)
	}
	return nil
}

// canActAs reports whether session may change data owned by userID.
func canActAs(session Session, userID string) bool {
	return session.UserID == util.Compact(userID) || session.Role == rbac.RoleAdmin
}

// Search runs a full-text query. It returns an empty response when search
// is not configured.
func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// Revalidate drops cache entries on behalf of an admin.
func (s *Service) Revalidate(ctx context.Context, session Session, paths []string) ([]string, error) {
	if err := authorize(session, rbac.ActionAdmin); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, precondition("paths are required")
	}
	for _, path := range paths {
		if !strings.HasPrefix(path, "page/") && !strings.HasPrefix(path, "user/") {
			return nil, precondition("path %q is not a cache path", path)
		}
	}
	s.cache.Revalidate(ctx, paths...)
	return paths, nil
}

// normalizeTrail compacts every id of a breadcrumb and rejects blanks.
func normalizeTrail(trail []string) ([]string, error) {
	if len(trail) == 0 {
		return nil, precondition("breadcrumb is empty")
	}
	out := make([]string, len(trail))
	for i, id := range trail {
		id = util.Compact(strings.TrimSpace(id))
		if id == "" {
			return nil, precondition("breadcrumb element %d is empty", i)
		}
		out[i] = id
	}
	return out, nil
}

func ptr[T any](v T) *T {
	return &v
}
