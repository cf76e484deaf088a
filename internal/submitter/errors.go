package submitter

import (
	"errors"
	"sort"
	"strings"
)

// Error variables
var (
	ErrSubmissionInProgress = errors.New("submission already in progress")
	ErrAlreadySucceeded     = errors.New("login already succeeded")
	ErrUnmounted            = errors.New("form is unmounted")
	ErrNoSession            = errors.New("authenticator returned no session")
	ErrCollaboratorPanic    = errors.New("authenticator panicked")
)

// ValidationError lists the fields that blocked a submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
