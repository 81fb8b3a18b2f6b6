package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexeiaccio/notion-forum/internal/auth"
	"github.com/alexeiaccio/notion-forum/internal/notion"
)

func newTestHandler(t *testing.T, up *fakeUpstream) (http.Handler, *Service) {
	t.Helper()
	svc, _ := newTestService(t, up)
	return NewHTTPServer(svc, "*", zerolog.Nop()).Handler(), svc
}

func serve(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, newFakeUpstream())

	rec := serve(h, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h, _ := newTestHandler(t, newFakeUpstream())
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h, _ := newTestHandler(t, newFakeUpstream())

	rec := serve(h, http.MethodGet, "/api/nope", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["code"])

	rec = serve(h, http.MethodDelete, "/api/health", "", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decode(t, rec)["code"])

	rec = serve(h, http.MethodOptions, "/api/pages", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPageRoutes(t *testing.T) {
	up := newFakeUpstream()
	seedForum(up)
	h, _ := newTestHandler(t, up)

	rec := serve(h, http.MethodGet, "/api/pages/"+pageID, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Hello forum", body["title"])
	assert.Len(t, body["comments"], 1)

	rec = serve(h, http.MethodGet, "/api/pages/bbbbbbbbbbbbbbbbbbbbbbbbbbbbbb99", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["code"])
}

func TestCommentRouteSplitsTrail(t *testing.T) {
	up := newFakeUpstream()
	seedForum(up)
	h, _ := newTestHandler(t, up)

	rec := serve(h, http.MethodGet, fmt.Sprintf("/api/pages/%s/comments/%s/%s", pageID, comment1, comment2), "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, comment2, decode(t, rec)["id"])

	rec = serve(h, http.MethodGet, fmt.Sprintf("/api/pages/%s/breadcrumbs/%s/%s", pageID, comment1, comment2), "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	comments, ok := decode(t, rec)["comments"].([]any)
	require.True(t, ok)
	require.Len(t, comments, 2)
	assert.Equal(t, comment1, comments[0].(map[string]any)["id"])
}

func TestPostCommentNeedsSession(t *testing.T) {
	up := newFakeUpstream()
	seedForum(up)
	h, svc := newTestHandler(t, up)
	body := `{"content":[{"type":"paragraph","rich_text":[{"type":"text","text":{"content":"hi"}}]}]}`
	path := "/api/pages/" + pageID + "/comments"

	rec := serve(h, http.MethodPost, path, "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodPost, path, "not.valid", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, up.total("blocks.children.append"))

	svc.now = time.Now
	token, _, err := svc.IssueToken(t.Context(), userAda, "Ada", time.Hour)
	require.NoError(t, err)

	rec = serve(h, http.MethodPost, path, token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["comments"], 1)

	rec = serve(h, http.MethodPost, path, token, `{"content":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PRECONDITION_FAILED", decode(t, rec)["code"])

	rec = serve(h, http.MethodPost, path, token, `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_BODY", decode(t, rec)["code"])
}

func TestRelationsRejectsTooManyIDs(t *testing.T) {
	h, _ := newTestHandler(t, newFakeUpstream())
	ids := make([]string, maxRelationIDs+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("%032d", i)
	}
	payload, err := json.Marshal(map[string][]string{"ids": ids})
	require.NoError(t, err)

	rec := serve(h, http.MethodPost, "/api/relations", "", string(payload))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TOO_MANY_IDS", decode(t, rec)["code"])
}

func TestSessionRoute(t *testing.T) {
	h, svc := newTestHandler(t, newFakeUpstream())

	rec := serve(h, http.MethodGet, "/api/session", "", "")
	assert.Equal(t, false, decode(t, rec)["authenticated"])

	token, err := auth.IssueToken(svc.secret, auth.NewClaims(userBob, "Bob", "admin", time.Hour, time.Now()))
	require.NoError(t, err)
	rec = serve(h, http.MethodGet, "/api/session", token, "")
	body := decode(t, rec)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, userBob, body["userId"])
	assert.Equal(t, "admin", body["role"])
}

func TestPostLikeRoute(t *testing.T) {
	up := newFakeUpstream()
	seedForum(up)
	up.updatePageFn = func(string, notion.UpdatePageRequest) (notion.Page, error) { return notion.Page{}, nil }
	h, svc := newTestHandler(t, up)
	token, err := auth.IssueToken(svc.secret, auth.NewClaims(userAda, "Ada", "reader", time.Hour, time.Now()))
	require.NoError(t, err)

	rec := serve(h, http.MethodPost, "/api/pages/"+pageID+"/likes", token, `{"vote":"dislikes"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["likes"])
	assert.Equal(t, float64(1), body["dislikes"])
	assert.Equal(t, "dislikes", body["vote"])
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{notFound("page", "p"), http.StatusNotFound, "NOT_FOUND"},
		{precondition("session is required"), http.StatusBadRequest, "PRECONDITION_FAILED"},
		{fmt.Errorf("x: %w", ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{upstreamFailed("list", "p"), http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{auth.ErrExpiredToken, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domainError(http.StatusTeapot, "TEAPOT", "short and stout", nil), http.StatusTeapot, "TEAPOT"},
		{fmt.Errorf("anything else"), http.StatusInternalServerError, "SERVER_ERROR"},
	}
	for _, tc := range cases {
		status, code, _, _ := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}
