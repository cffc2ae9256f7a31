// Package precommit scans the lines added since the last commit, for use
// as a git pre-commit hook.
package precommit

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fatih/semgroup"

	"github.com/security-cli/secretshield/pkg/failure"
	"github.com/security-cli/secretshield/pkg/logging"
	"github.com/security-cli/secretshield/pkg/scanner"
)

// DefaultConcurrency bounds the number of files diffed at once.
const DefaultConcurrency = 8

// BlockMessage is shown when a commit is rejected.
const BlockMessage = "Your commit was blocked because potential secrets were found. " +
	"Please review the findings above. To commit anyway, run git commit with --no-verify"

// Result is the outcome of one pre-commit scan.
type Result struct {
	Baseline string            `json:"baseline"`
	Files    []string          `json:"files"`
	Skipped  []string          `json:"skipped,omitempty"`
	Findings []scanner.Finding `json:"findings"`
}

// Scanner evaluates staged changes against a ruleset.
type Scanner struct {
	analyzer    *scanner.Analyzer
	git         Git
	concurrency int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithGit replaces the git runner.
func WithGit(g Git) Option {
	return func(s *Scanner) {
		s.git = g
	}
}

// WithConcurrency sets how many files are diffed concurrently.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New returns a Scanner that evaluates added lines with analyzer.
func New(analyzer *scanner.Analyzer, opts ...Option) *Scanner {
	s := &Scanner{analyzer: analyzer, git: ExecGit{}, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan diffs the repository containing dir against HEAD and runs every
// added line through the pipeline. Files with GitHookNumberOfChangesRestriction
// or more added lines are skipped. Any git failure fails the whole scan.
func (s *Scanner) Scan(ctx context.Context, dir string) (Result, error) {
	top, err := toplevel(ctx, s.git, dir)
	if err != nil {
		return Result{}, failure.New(failure.KindScan, "not a git repository", dir, err)
	}
	against := baseline(ctx, s.git, top)

	files, err := changedFiles(ctx, s.git, top, against)
	if err != nil {
		return Result{}, failure.New(failure.KindScan, "list changed files", top, err)
	}
	result := Result{Baseline: against, Files: files}
	if len(files) == 0 {
		logging.Debug().Str("repo", top).Msg("no changes to scan")
		return result, nil
	}

	limit := s.analyzer.Special().GitHookNumberOfChangesRestriction

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) error {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		return err
	}

	g := semgroup.NewGroup(ctx, int64(s.concurrency))
	for _, file := range files {
		g.Go(func() error {
			lines, err := addedLines(ctx, s.git, top, against, file)
			if err != nil {
				return fail(failure.New(failure.KindScan, "diff file", file, err))
			}
			if limit != nil && len(lines) >= *limit {
				logging.Info().Str("file", file).Int("changes", len(lines)).Msg("skipping file with too many changes")
				mu.Lock()
				result.Skipped = append(result.Skipped, file)
				mu.Unlock()
				return nil
			}

			findings, err := s.analyzer.AnalyzeLines(ctx, filepath.ToSlash(file), lines)
			if err != nil {
				return fail(err)
			}
			mu.Lock()
			result.Findings = append(result.Findings, findings...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if firstErr != nil {
			return Result{}, firstErr
		}
		return Result{}, err
	}

	sort.Strings(result.Skipped)
	sort.SliceStable(result.Findings, func(i, j int) bool {
		return result.Findings[i].File < result.Findings[j].File
	})
	return result, nil
}
