//go:build !cgo

package tokenizer

import "errors"

// ErrScriptUnsupported is returned when the binary was built without cgo
// and has no script parser.
var ErrScriptUnsupported = errors.New("script parsing requires cgo")

// ScriptStrings always fails without cgo; callers fall back to lines.
func ScriptStrings(src []byte) ([]string, error) {
	return nil, parseError("script", ErrScriptUnsupported)
}
