//go:build !cgo

package template

import (
	"github.com/security-cli/secretshield/pkg/failure"
	"github.com/security-cli/secretshield/pkg/tokenizer"
)

// Analyze always fails without cgo.
func (a *Analyzer) Analyze(src []byte) ([]Violation, error) {
	return nil, failure.New(failure.KindParse, "analyze template", "", tokenizer.ErrScriptUnsupported)
}
