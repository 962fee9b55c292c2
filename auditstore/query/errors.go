package query

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedQuery     = errors.New("malformed query")
	ErrNilRepository      = errors.New("repository must not be nil")
	ErrNilIdentityFactory = errors.New("identity factory must not be nil")
	ErrNilTypeResolver    = errors.New("type resolver must not be nil")
)

const reasonNotSupported = "is not supported"

// MalformedQueryError reports a query that can not be run. It is raised before the repository is called.
type MalformedQueryError struct {
	Operation string
	Query     string
	Reason    string
}

func newMalformedQueryError(operation string, q Query, reason string) *MalformedQueryError {
	return &MalformedQueryError{Operation: operation, Query: q.String(), Reason: reason}
}

func (e *MalformedQueryError) Error() string {
	return fmt.Sprintf("%s: %s: %s %s", ErrMalformedQuery, e.Operation, e.Query, e.Reason)
}

// Unwrap makes errors.Is(err, ErrMalformedQuery) work.
func (e *MalformedQueryError) Unwrap() error {
	return ErrMalformedQuery
}
