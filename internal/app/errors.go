package app

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing root object: the page, comment block or
	// user page a request is addressed to.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition is returned before any upstream write when the session
	// or a required input is missing.
	ErrPrecondition = errors.New("precondition failed")
	ErrForbidden    = errors.New("forbidden")
	// ErrUpstream means a call the result cannot do without was swallowed by
	// the call gate.
	ErrUpstream = errors.New("upstream unavailable")
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

func precondition(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrPrecondition)
}

func upstreamFailed(op, id string) error {
	return fmt.Errorf("%s %s: %w", op, id, ErrUpstream)
}
