package app

import (
	"time"

	"github.com/alexeiaccio/notion-forum/internal/content"
	"github.com/alexeiaccio/notion-forum/internal/rbac"
)

// Relation is a resolved relation target. A target that could not be
// fetched has a nil ID; one whose name lookup failed has a nil Name.
type Relation struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

type Page struct {
	ID        string     `json:"id"`
	Title     *string    `json:"title"`
	Authors   []Relation `json:"authors"`
	Tags      []Relation `json:"tags"`
	Created   string     `json:"created"`
	Updated   string     `json:"updated"`
	Published *string    `json:"published,omitempty"`
	Likes     int        `json:"likes"`
	Dislikes  int        `json:"dislikes"`
}

// PageDetail is a page merged with the parse of its direct children.
type PageDetail struct {
	Page
	content.ContentAndComments
}

// CommentDetail is one comment toggle merged with the parse of its children.
type CommentDetail struct {
	content.Comment
	content.ContentAndComments
}

// Breadcrumbs holds a page's metadata and the headers of the comments along
// a trail, in trail order. A comment that could not be loaded is nil.
type Breadcrumbs struct {
	Page     Page               `json:"page"`
	Comments []*content.Comment `json:"comments"`
}

type PagesList struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"hasMore"`
	NextCursor *string `json:"nextCursor"`
}

type User struct {
	ID            string     `json:"id"`
	Name          *string    `json:"name"`
	Email         *string    `json:"email"`
	EmailVerified *time.Time `json:"emailVerified"`
	Image         *string    `json:"image"`
	Role          *string    `json:"role"`
}

// UserInfo is the public profile; the bio is the user page's content.
type UserInfo struct {
	ID    string          `json:"id"`
	Name  *string         `json:"name"`
	Image *string         `json:"image"`
	Bio   []content.Block `json:"bio"`
}

type Role struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

const (
	VoteLike    = "likes"
	VoteDislike = "dislikes"
)

// Likes tallies a page's votes. Vote is the caller's current vote, if any.
type Likes struct {
	Likes    int     `json:"likes"`
	Dislikes int     `json:"dislikes"`
	Vote     *string `json:"vote"`
}

// Session identifies the caller. The zero Session is anonymous.
type Session struct {
	UserID string    `json:"userId"`
	Name   string    `json:"name,omitempty"`
	Role   rbac.Role `json:"role"`
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}
