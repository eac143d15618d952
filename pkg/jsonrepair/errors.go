package jsonrepair

import (
	"errors"
	"fmt"
)

var (
	// ErrNoJSON means the text contains no '{' or '[' at all.
	ErrNoJSON = errors.New("jsonrepair: no JSON-like content found")

	// ErrUnrepairable means JSON-like content was found but could not be
	// turned into a parseable value.
	ErrUnrepairable = errors.New("jsonrepair: content found but unrepairable")
)

// ParseError describes a SafeParse failure.
type ParseError struct {
	Kind      error  // ErrNoJSON or ErrUnrepairable
	Candidate string // text after closure repair
	Cause     error  // last parse error, if any
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	}
	return e.Kind.Error()
}

// Unwrap exposes the sentinel kind for errors.Is.
func (e *ParseError) Unwrap() error { return e.Kind }
