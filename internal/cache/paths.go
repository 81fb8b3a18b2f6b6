package cache

import "strings"

const (
	TagPage    = "page"
	TagComment = "comment"
	TagUser    = "user"
)

func PagePath(pageID string) string {
	return "page/" + pageID
}

// CommentPath addresses a comment by its breadcrumb
// [pageID, c1, ..., cn] as page/{pageID}/comments/{c1}/.../{cn}.
func CommentPath(trail []string) string {
	if len(trail) < 2 {
		return ""
	}
	return "page/" + trail[0] + "/comments/" + strings.Join(trail[1:], "/")
}

// TrailPaths lists the page path followed by every comment prefix path of
// trail, shortest first.
func TrailPaths(trail []string) []string {
	if len(trail) == 0 {
		return nil
	}
	paths := []string{PagePath(trail[0])}
	for i := 2; i <= len(trail); i++ {
		paths = append(paths, CommentPath(trail[:i]))
	}
	return paths
}

func UserPath(userID string) string {
	return "user/" + userID
}
