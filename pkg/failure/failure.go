// Package failure defines the error taxonomy shared by every secretshield package.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how far it is allowed to propagate.
type Kind string

const (
	// KindConfig marks a malformed ruleset or pattern. Always fatal.
	KindConfig Kind = "CONFIG_ERROR"
	// KindIO marks an unreadable file. Absorbed per file.
	KindIO Kind = "IO_ERROR"
	// KindParse marks a tokenizer or template AST failure. Absorbed locally.
	KindParse Kind = "PARSE_ERROR"
	// KindPipeline marks a rule pipeline stage failure for one candidate.
	KindPipeline Kind = "PIPELINE_ERROR"
	// KindScan marks a directory enumeration failure. Always fatal.
	KindScan Kind = "SCAN_ERROR"
)

// Sentinels for errors.Is checks against a Kind.
var (
	ErrConfig   = &Error{Kind: KindConfig}
	ErrIO       = &Error{Kind: KindIO}
	ErrParse    = &Error{Kind: KindParse}
	ErrPipeline = &Error{Kind: KindPipeline}
	ErrScan     = &Error{Kind: KindScan}
)

// Error is a classified error.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// New wraps err with a kind, an operation name and an optional path.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsFatal reports whether err must propagate to the caller of a scan.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindConfig, KindScan:
		return true
	}
	return false
}
