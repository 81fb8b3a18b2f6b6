package search

import "github.com/rs/zerolog"

// Service is the facade the application talks to. A nil *Service, or one
// without a Meili backend, is valid: indexing is a no-op and searches come
// back empty.
type Service struct {
	meili  *Meili
	logger zerolog.Logger
}

func NewService(meili *Meili, logger zerolog.Logger) *Service {
	return &Service{meili: meili, logger: logger.With().Str("component", "search").Logger()}
}

func (s *Service) available() bool {
	return s != nil && s.meili != nil && s.meili.Healthy()
}

func (s *Service) Search(q Query) Response {
	if !s.available() {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.meili.Search(q)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", q.Text).Msg("search failed")
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPage indexes a page (fire-and-forget).
func (s *Service) IndexPage(page PageRecord) {
	if !s.available() {
		return
	}
	go func() {
		if err := s.meili.IndexPage(page); err != nil {
			s.logger.Warn().Err(err).Str("page", page.ID).Msg("index page")
		}
	}()
}

// IndexComment indexes a comment (fire-and-forget).
func (s *Service) IndexComment(comment CommentRecord) {
	if !s.available() {
		return
	}
	go func() {
		if err := s.meili.IndexComment(comment); err != nil {
			s.logger.Warn().Err(err).Str("comment", comment.ID).Msg("index comment")
		}
	}()
}

// DeletePage removes an unpublished page from the index (fire-and-forget).
func (s *Service) DeletePage(id string) {
	if !s.available() {
		return
	}
	go func() {
		if err := s.meili.DeletePage(id); err != nil {
			s.logger.Warn().Err(err).Str("page", id).Msg("delete page")
		}
	}()
}

func (s *Service) Close() {
	if s != nil && s.meili != nil {
		s.meili.Close()
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
