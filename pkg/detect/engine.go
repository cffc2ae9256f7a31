// Package detect evaluates a single candidate string against a ruleset:
// ordered preprocess transforms, independent detectors, ordered postprocess
// suppression.
package detect

import (
	"fmt"
	"sync"

	regexp "github.com/wasilibs/go-re2"

	"github.com/security-cli/secretshield/pkg/entropy"
	"github.com/security-cli/secretshield/pkg/failure"
	"github.com/security-cli/secretshield/pkg/rules"
)

// Stage identifies the pipeline stage that failed.
type Stage string

const (
	PreprocessFailed  Stage = "PREPROCESS_FAILED"
	DetectFailed      Stage = "DETECT_FAILED"
	PostprocessFailed Stage = "POSTPROCESS_FAILED"
)

// StageError reports a failed evaluation of one candidate. It matches
// failure.ErrPipeline under errors.Is.
type StageError struct {
	Stage Stage
	Rule  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: rule %q: %v", e.Stage, e.Rule, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Is(target error) bool {
	return target == failure.ErrPipeline
}

// Engine evaluates candidates against one ruleset. It is safe for
// concurrent use; compiled patterns and word lists are cached.
type Engine struct {
	rules   rules.Ruleset
	table   entropy.Table
	regexes sync.Map // pattern -> *regexp.Regexp
	words   wordLists
}

// Option configures an Engine.
type Option func(*Engine)

// WithTable overrides the embedded entropy threshold table.
func WithTable(t entropy.Table) Option {
	return func(e *Engine) {
		e.table = t
	}
}

// New returns an Engine for r. r must not be modified afterwards.
func New(r rules.Ruleset, opts ...Option) (*Engine, error) {
	e := &Engine{rules: r}
	for _, opt := range opts {
		opt(e)
	}
	if e.table == nil {
		t, err := entropy.Default()
		if err != nil {
			return nil, failure.New(failure.KindConfig, "load entropy table", "", err)
		}
		e.table = t
	}
	return e, nil
}

// Rules returns the ruleset the engine evaluates.
func (e *Engine) Rules() rules.Ruleset {
	return e.rules
}

// Evaluate runs the full pipeline over input and returns the names of the
// rules that fired. An empty result means the candidate is clean.
func (e *Engine) Evaluate(input string) ([]string, error) {
	candidate, err := e.preprocess(input)
	if err != nil {
		return nil, err
	}
	if candidate == "" {
		return nil, nil
	}

	fired, err := e.detect(candidate)
	if err != nil {
		return nil, err
	}

	return e.postprocess(fired)
}

func (e *Engine) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := e.regexes.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := e.regexes.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}
