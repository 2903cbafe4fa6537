// Package apperr defines the error kinds shared across resnum packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNotLocated = errors.New("not located")
	ErrParse      = errors.New("parse error")
	ErrInvalid    = errors.New("invalid input")
)

// ParseError reports a structural problem in a FASTA file. It aborts the run.
type ParseError struct {
	Line   int // 1-based
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Is makes errors.Is(err, ErrParse) true for every *ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
