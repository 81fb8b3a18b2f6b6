package rbac

import "strings"

type Role string
type Action string

// Roles come from the role database; users without an entry are readers.
const (
	RoleReader Role = "reader"
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionComment Action = "comment"
	ActionWrite   Action = "write"
	ActionPublish Action = "publish"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleAuthor:
		return action == ActionRead || action == ActionComment || action == ActionWrite || action == ActionPublish
	case RoleReader:
		return action == ActionRead || action == ActionComment
	default:
		return action == ActionRead
	}
}

func Normalize(role string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(role))); r {
	case RoleReader, RoleAuthor, RoleAdmin:
		return r
	default:
		return RoleReader
	}
}
