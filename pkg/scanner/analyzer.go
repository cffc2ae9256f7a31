package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	regexp "github.com/wasilibs/go-re2"
	"golang.org/x/sync/errgroup"

	"github.com/security-cli/secretshield/pkg/detect"
	"github.com/security-cli/secretshield/pkg/failure"
	"github.com/security-cli/secretshield/pkg/logging"
	"github.com/security-cli/secretshield/pkg/rules"
	"github.com/security-cli/secretshield/pkg/template"
	"github.com/security-cli/secretshield/pkg/tokenizer"
	"github.com/security-cli/secretshield/pkg/utils"
)

// benignSuffixes mark single-token candidates that are file names.
var benignSuffixes = []string{
	".js", ".geojson", ".jpg", ".mbtiles", ".png", ".tgz", ".md", ".pbf", ".zip", ".txt",
}

// Size and line limits never apply to minified or bundled files.
var unlimitedSuffixes = []string{".min.js", "bundle.js"}

const templateSuffix = ".template.js"

// Analyzer runs the detection pipeline over the candidates of one file.
type Analyzer struct {
	engine  *detect.Engine
	special rules.Special
	ignore  []*regexp.Regexp
	tpl     *template.Analyzer

	candidates     atomic.Int64
	pipelineErrors atomic.Int64
}

// NewAnalyzer prepares the ignore patterns and template checks of the
// engine's ruleset.
func NewAnalyzer(engine *detect.Engine) (*Analyzer, error) {
	special := engine.Rules().Special
	a := &Analyzer{engine: engine, special: special}

	for _, p := range special.IgnoreFiles {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, failure.New(failure.KindConfig, "compile IgnoreFiles pattern", p, err)
		}
		a.ignore = append(a.ignore, re)
	}

	tpl, err := template.New(special.CFTemplateSecureParameters)
	if err != nil {
		return nil, err
	}
	a.tpl = tpl
	return a, nil
}

// Special returns the scanning policy of the engine's ruleset.
func (a *Analyzer) Special() rules.Special {
	return a.special
}

// Ignored reports whether path matches an IgnoreFiles pattern.
func (a *Analyzer) Ignored(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, re := range a.ignore {
		if re.MatchString(slashed) {
			return true
		}
	}
	return false
}

// AnalyzeFile returns the findings of one file. Unreadable files carry an
// IO_ERROR; ineligible files carry a skip reason.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (result FileResult) {
	start := time.Now()
	result.Path = path
	defer func() { result.ScanTime = time.Since(start) }()

	if a.Ignored(path) {
		result.Skipped = "ignored"
		return result
	}

	info, err := os.Stat(path)
	if err != nil {
		result.Error = failure.New(failure.KindIO, "stat file", path, err)
		return result
	}
	if reason := a.overSize(path, info.Size()); reason != "" {
		logging.Info().Str("file", path).Str("reason", reason).Msg("skipping file")
		result.Skipped = reason
		return result
	}

	content, err := os.ReadFile(path)
	if err != nil {
		result.Error = failure.New(failure.KindIO, "read file", path, err)
		return result
	}
	if reason := a.overLines(path, content); reason != "" {
		logging.Info().Str("file", path).Str("reason", reason).Msg("skipping file")
		result.Skipped = reason
		return result
	}

	var findings []Finding
	if strings.HasSuffix(path, templateSuffix) {
		findings = append(findings, a.templateFindings(path, content)...)
	}

	found, err := a.evaluate(ctx, path, a.extract(path, content))
	if err != nil {
		result.Error = err
		return result
	}
	result.Findings = dedupe(append(findings, shape(found)...))
	return result
}

// AnalyzeTemplate runs only the template parameter checks on path.
func (a *Analyzer) AnalyzeTemplate(path string) ([]Finding, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.New(failure.KindIO, "read template", path, err)
	}
	violations, err := a.tpl.Analyze(content)
	if err != nil {
		return nil, err
	}
	return violationFindings(path, violations), nil
}

// AnalyzeLines runs the pipeline over raw lines of path, bypassing the
// tokenizers. Ignored paths yield no findings.
func (a *Analyzer) AnalyzeLines(ctx context.Context, path string, lines []string) ([]Finding, error) {
	if a.Ignored(path) {
		return nil, nil
	}
	found, err := a.evaluate(ctx, path, lines)
	if err != nil {
		return nil, err
	}
	return dedupe(shape(found)), nil
}

func (a *Analyzer) templateFindings(path string, content []byte) []Finding {
	violations, err := a.tpl.Analyze(content)
	if err != nil {
		logging.Warn().Err(err).Str("file", path).Msg("template analysis failed")
		return nil
	}
	return violationFindings(path, violations)
}

func violationFindings(path string, violations []template.Violation) []Finding {
	out := make([]Finding, 0, len(violations))
	for _, v := range violations {
		out = append(out, Finding{File: path, String: v.Parameter, Rules: []string{v.Message}})
	}
	return out
}

func unlimited(path string) bool {
	for _, s := range unlimitedSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// overSize applies FileSizeRestrictionInMB before the file is read.
func (a *Analyzer) overSize(path string, size int64) string {
	limit := a.special.FileSizeRestrictionInMB
	if limit == nil || unlimited(path) {
		return ""
	}
	if mb := float64(size) / (1024 * 1024); mb >= *limit {
		return fmt.Sprintf("size %s exceeds %v MB", utils.FormatSize(size), *limit)
	}
	return ""
}

// overLines applies NumberOfLinesRestriction.
func (a *Analyzer) overLines(path string, content []byte) string {
	limit := a.special.NumberOfLinesRestriction
	if limit == nil || unlimited(path) {
		return ""
	}
	if n := countLines(content); n >= *limit {
		return fmt.Sprintf("%d lines exceeds %d", n, *limit)
	}
	return ""
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte("\n"))
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// extract returns the strings to evaluate from content.
func (a *Analyzer) extract(path string, content []byte) []string {
	kind := tokenizer.KindFor(path)
	out, err := tokenizer.Tokenize(kind, content)
	if err == nil {
		return out
	}
	if kind == tokenizer.Script {
		logging.Debug().Err(err).Str("file", path).Msg("script parse failed, scanning lines")
		return tokenizer.Lines(content)
	}
	logging.Warn().Err(err).Str("file", path).Str("format", kind.String()).Msg("tokenize failed")
	return nil
}

// evaluate runs the pipeline over every candidate concurrently. A pipeline
// failure drops that candidate only.
func (a *Analyzer) evaluate(ctx context.Context, path string, candidates []string) ([]Finding, error) {
	matched := make([][]string, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			names, err := a.engine.Evaluate(c)
			if err != nil {
				a.pipelineErrors.Add(1)
				logging.Warn().Err(err).Str("file", path).Msg("candidate evaluation failed")
				return nil
			}
			matched[i] = names
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.candidates.Add(int64(len(candidates)))

	var out []Finding
	for i, names := range matched {
		if len(names) > 0 {
			out = append(out, Finding{File: path, String: candidates[i], Rules: names})
		}
	}
	return out, nil
}

// shape drops file-name and blank candidates and trims the rest.
func shape(in []Finding) []Finding {
	out := in[:0]
	for _, f := range in {
		if len(f.Rules) == 0 || IsFalsePositive(f.String) {
			continue
		}
		f.String = strings.TrimSpace(f.String)
		if f.String == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func dedupe(in []Finding) []Finding {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, f := range in {
		k := f.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

// IsFalsePositive reports whether s is a single whitespace-free token that
// ends in a known benign file extension.
func IsFalsePositive(s string) bool {
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	for _, suffix := range benignSuffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// Stats is a snapshot of analyzer counters.
type Stats struct {
	Candidates     int64 `json:"candidates"`
	PipelineErrors int64 `json:"pipeline_errors"`
}

// Stats returns the analyzer counters.
func (a *Analyzer) Stats() Stats {
	return Stats{
		Candidates:     a.candidates.Load(),
		PipelineErrors: a.pipelineErrors.Load(),
	}
}
