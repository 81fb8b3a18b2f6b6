package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/alexeiaccio/notion-forum/internal/auth"
	"github.com/alexeiaccio/notion-forum/internal/content"
	"github.com/alexeiaccio/notion-forum/internal/search"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

const maxRelationIDs = 100

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     zerolog.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		logger:     logger.With().Str("component", "http").Logger(),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	api := router.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = router.NotFoundHandler
	api.MethodNotAllowedHandler = router.MethodNotAllowedHandler

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet, http.MethodHead)

	api.HandleFunc("/pages", s.handlePagesList).Methods(http.MethodGet)
	api.HandleFunc("/pages/{id}", s.handlePage).Methods(http.MethodGet)
	api.HandleFunc("/pages/{id}/likes", s.handleGetLikes).Methods(http.MethodGet)
	api.HandleFunc("/pages/{id}/likes", s.handlePostLike).Methods(http.MethodPost)
	api.HandleFunc("/pages/{page}/breadcrumbs", s.handleBreadcrumbs).Methods(http.MethodGet)
	api.HandleFunc("/pages/{page}/breadcrumbs/{trail:.+}", s.handleBreadcrumbs).Methods(http.MethodGet)
	api.HandleFunc("/pages/{page}/comments", s.handlePostComment).Methods(http.MethodPost)
	api.HandleFunc("/pages/{page}/comments/{trail:.+}", s.handleComment).Methods(http.MethodGet)
	api.HandleFunc("/pages/{page}/comments/{trail:.+}", s.handlePostComment).Methods(http.MethodPost)
	api.HandleFunc("/blocks/{id}/children", s.handleBlockChildren).Methods(http.MethodGet)
	api.HandleFunc("/relations", s.handleRelations).Methods(http.MethodPost)

	api.HandleFunc("/users/{id}", s.handleUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/info", s.handleUserInfo).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/info", s.handleUpdateUserInfo).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}/name", s.handleUpdateUserName).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}/image", s.handleUpdateUserImage).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}/role", s.handleUserRole).Methods(http.MethodGet)

	api.HandleFunc("/drafts", s.handleDraftsList).Methods(http.MethodGet)
	api.HandleFunc("/drafts", s.handleCreateDraft).Methods(http.MethodPost)
	api.HandleFunc("/drafts/{id}", s.handleDraft).Methods(http.MethodGet)
	api.HandleFunc("/drafts/{id}/publish", s.handlePublishDraft).Methods(http.MethodPost)

	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/cache/revalidate", s.handleRevalidate).Methods(http.MethodPost)

	return s.withMiddleware(router)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	stats := s.service.GateStats()
	checks := map[string]any{
		"cache":    map[string]any{"status": "ok"},
		"upstream": map[string]any{"admitted": stats.Admitted, "failed": stats.Failed},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["cache"] = map[string]any{"status": "error", "error": err.Error()}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handlePagesList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	list, err := s.service.GetPagesList(r.Context(), query.Get("cursor"), query.Get("author"))
	respond(w, list, err)
}

func (s *HTTPServer) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.GetPage(r.Context(), mux.Vars(r)["id"])
	respond(w, page, err)
}

func (s *HTTPServer) handleBlockChildren(w http.ResponseWriter, r *http.Request) {
	children, err := s.service.GetBlockChildren(r.Context(), mux.Vars(r)["id"])
	respond(w, children, err)
}

func (s *HTTPServer) handleComment(w http.ResponseWriter, r *http.Request) {
	comment, err := s.service.GetComment(r.Context(), trailFromVars(r))
	respond(w, comment, err)
}

func (s *HTTPServer) handleBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	crumbs, err := s.service.GetBreadcrumbs(r.Context(), trailFromVars(r))
	respond(w, crumbs, err)
}

func (s *HTTPServer) handlePostComment(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Content []content.Block `json:"content"`
	}
	if !readBody(w, r, &body) {
		return
	}
	posted, err := s.service.PostComment(r.Context(), session, trailFromVars(r), body.Content)
	respondStatus(w, http.StatusCreated, posted, err)
}

func (s *HTTPServer) handleRelations(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if !readBody(w, r, &body) {
		return
	}
	if len(body.IDs) > maxRelationIDs {
		respond(w, nil, domainError(http.StatusBadRequest, "TOO_MANY_IDS", fmt.Sprintf("At most %d ids per request", maxRelationIDs), map[string]int{"count": len(body.IDs)}))
		return
	}
	writeJSON(w, http.StatusOK, s.service.GetRelations(r.Context(), body.IDs))
}

func (s *HTTPServer) handleGetLikes(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	likes, err := s.service.GetLikes(r.Context(), session, mux.Vars(r)["id"])
	respond(w, likes, err)
}

func (s *HTTPServer) handlePostLike(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Vote string `json:"vote"`
	}
	if !readBody(w, r, &body) {
		return
	}
	likes, err := s.service.PostLike(r.Context(), session, mux.Vars(r)["id"], body.Vote)
	respond(w, likes, err)
}

func (s *HTTPServer) handleUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.GetUser(r.Context(), mux.Vars(r)["id"])
	respond(w, user, err)
}

func (s *HTTPServer) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetUserInfo(r.Context(), mux.Vars(r)["id"])
	respond(w, info, err)
}

func (s *HTTPServer) handleUserRole(w http.ResponseWriter, r *http.Request) {
	role, err := s.service.GetRole(r.Context(), mux.Vars(r)["id"])
	respond(w, role, err)
}

func (s *HTTPServer) handleUpdateUserInfo(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Info []content.Block `json:"info"`
	}
	if !readBody(w, r, &body) {
		return
	}
	bio, err := s.service.UpdateUserInfo(r.Context(), session, mux.Vars(r)["id"], body.Info)
	respond(w, bio, err)
}

func (s *HTTPServer) handleUpdateUserName(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if !readBody(w, r, &body) {
		return
	}
	name, err := s.service.UpdateUserName(r.Context(), session, mux.Vars(r)["id"], body.Name)
	respond(w, map[string]string{"name": name}, err)
}

func (s *HTTPServer) handleUpdateUserImage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var body struct {
		URL string `json:"url"`
	}
	if !readBody(w, r, &body) {
		return
	}
	image, err := s.service.UpdateUserImage(r.Context(), session, mux.Vars(r)["id"], body.URL)
	respond(w, map[string]string{"image": image}, err)
}

func (s *HTTPServer) handleDraftsList(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	list, err := s.service.GetDraftsList(r.Context(), session, r.URL.Query().Get("cursor"))
	respond(w, list, err)
}

func (s *HTTPServer) handleDraft(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	draft, err := s.service.GetDraft(r.Context(), session, mux.Vars(r)["id"])
	respond(w, draft, err)
}

func (s *HTTPServer) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Title   string          `json:"title"`
		Content []content.Block `json:"content"`
	}
	if !readBody(w, r, &body) {
		return
	}
	page, err := s.service.CreateDraft(r.Context(), session, body.Title, body.Content)
	respondStatus(w, http.StatusCreated, page, err)
}

func (s *HTTPServer) handlePublishDraft(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	published, err := s.service.PublishDraft(r.Context(), session, mux.Vars(r)["id"])
	respond(w, map[string]string{"published": published}, err)
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"userId":        session.UserID,
		"name":          session.Name,
		"role":          session.Role,
	})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := search.Query{
		Text:         strings.TrimSpace(query.Get("q")),
		FilterType:   search.ResultType(query.Get("type")),
		FilterPageID: util.Compact(query.Get("page")),
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		q.Limit = min(limit, 100)
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil && offset > 0 {
		q.Offset = offset
	}
	writeJSON(w, http.StatusOK, s.service.Search(q))
}

func (s *HTTPServer) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Paths []string `json:"paths"`
	}
	if !readBody(w, r, &body) {
		return
	}
	paths, err := s.service.Revalidate(r.Context(), session, body.Paths)
	respond(w, map[string]any{"revalidated": paths}, err)
}

// trailFromVars builds [page, c1, ..., cn] from the {page} and {trail}
// route variables.
func trailFromVars(r *http.Request) []string {
	vars := mux.Vars(r)
	trail := []string{vars["page"]}
	return append(trail, splitPath(vars["trail"])...)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusNoContent)
		} else {
			next.ServeHTTP(writer, r)
		}

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func methodNotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func respond(w http.ResponseWriter, payload any, err error) {
	respondStatus(w, http.StatusOK, payload, err)
}

func respondStatus(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		code, errCode, message, details := mapError(err)
		writeError(w, code, errCode, message, details)
		return
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func readBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	return true
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, ErrPrecondition):
		return http.StatusBadRequest, "PRECONDITION_FAILED", err.Error(), nil
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "Forbidden", nil
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Upstream unavailable", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
