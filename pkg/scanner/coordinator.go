package scanner

import (
	"context"
	"os"
	"time"

	"github.com/security-cli/secretshield/pkg/detect"
	"github.com/security-cli/secretshield/pkg/failure"
	"github.com/security-cli/secretshield/pkg/logging"
	"github.com/security-cli/secretshield/pkg/rules"
	"github.com/security-cli/secretshield/pkg/utils"
)

// DefaultWorkers caps concurrent file analyses in a directory scan.
const DefaultWorkers = 10

// Scanner is the entry point for string, file, template and directory
// scans against one ruleset.
type Scanner struct {
	engine     *detect.Engine
	analyzer   *Analyzer
	workers    int
	skipBinary bool
	follow     bool
	onResult   func(FileResult)
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers sets the number of files analyzed concurrently.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSkipBinary skips files with binary extensions during directory walks.
func WithSkipBinary(skip bool) Option {
	return func(s *Scanner) {
		s.skipBinary = skip
	}
}

// WithFollowSymlinks includes symlinks to regular files in directory walks.
// Symlinked directories are never descended into.
func WithFollowSymlinks(follow bool) Option {
	return func(s *Scanner) {
		s.follow = follow
	}
}

// WithResultHook is called once per analyzed file, from a single goroutine.
func WithResultHook(fn func(FileResult)) Option {
	return func(s *Scanner) {
		s.onResult = fn
	}
}

// New builds a Scanner. The ruleset is not validated here; use
// rules.Ruleset.Validate or rules.Load for that.
func New(r rules.Ruleset, opts ...Option) (*Scanner, error) {
	engine, err := detect.New(r)
	if err != nil {
		return nil, err
	}
	return NewWithEngine(engine, opts...)
}

// NewWithEngine builds a Scanner around an existing engine.
func NewWithEngine(engine *detect.Engine, opts ...Option) (*Scanner, error) {
	analyzer, err := NewAnalyzer(engine)
	if err != nil {
		return nil, err
	}
	s := &Scanner{engine: engine, analyzer: analyzer, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Analyzer returns the file analyzer.
func (s *Scanner) Analyzer() *Analyzer {
	return s.analyzer
}

// ScanString evaluates a single string and returns the fired rule names.
func (s *Scanner) ScanString(input string) ([]string, error) {
	return s.engine.Evaluate(input)
}

// ScanFile analyzes one file. Unlike a directory scan, a read failure is
// returned to the caller.
func (s *Scanner) ScanFile(ctx context.Context, path string) ([]Finding, error) {
	result := s.analyzer.AnalyzeFile(ctx, path)
	return result.Findings, result.Error
}

// ScanTemplate runs only the template parameter checks on path.
func (s *Scanner) ScanTemplate(path string) ([]Finding, error) {
	return s.analyzer.AnalyzeTemplate(path)
}

// Collect lists the eligible files under root.
func (s *Scanner) Collect(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, failure.New(failure.KindScan, "stat root", root, err)
	}
	if !info.IsDir() {
		return nil, failure.New(failure.KindScan, "scan root is not a directory", root, nil)
	}

	walker := utils.NewFileWalker(
		utils.WithExclude(s.analyzer.ignore),
		utils.WithSkipBinary(s.skipBinary),
		utils.WithFollowSymlinks(s.follow),
	)
	return walker.Walk(root)
}

// Scan analyzes files through the worker pool and returns one result per
// file, in completion order.
func (s *Scanner) Scan(ctx context.Context, files []string) ([]FileResult, Summary) {
	start := time.Now()
	resultChan := make(chan FileResult, s.workers)
	s.ScanAsync(ctx, files, resultChan)

	results := make([]FileResult, 0, len(files))
	for result := range resultChan {
		if result.Error != nil {
			logging.Warn().Err(result.Error).Str("file", result.Path).Msg("file analysis failed")
		}
		if s.onResult != nil {
			s.onResult(result)
		}
		results = append(results, result)
	}

	summary := CalculateSummary(results, start)
	summary.PipelineErrors = s.analyzer.Stats().PipelineErrors
	return results, summary
}

// ScanAsync analyzes files in the background and closes resultChan when
// every file is done.
func (s *Scanner) ScanAsync(ctx context.Context, files []string, resultChan chan<- FileResult) {
	pool := NewWorkerPool(ctx, s.workers, s.analyzer)
	pool.Start()

	go func() {
		for result := range pool.Results() {
			resultChan <- result
		}
		stats := pool.Stats()
		logging.Debug().
			Int("workers", stats.Workers).
			Int64("processed", stats.ProcessedJobs).
			Int64("skipped", stats.SkippedJobs).
			Int64("errors", stats.Errors).
			Msg("worker pool drained")
		close(resultChan)
	}()

	go func() {
		for _, f := range files {
			if !pool.Submit(Job{Path: f}) {
				break
			}
		}
		pool.Close()
	}()
}

// ScanDirectory walks root and analyzes every eligible file. Only a
// directory read failure fails the scan; per-file failures count as zero
// findings.
func (s *Scanner) ScanDirectory(ctx context.Context, root string) ([]Finding, Summary, error) {
	files, err := s.Collect(root)
	if err != nil {
		return nil, Summary{}, err
	}
	logging.Debug().Str("root", root).Int("files", len(files)).Msg("collected files")

	results, summary := s.Scan(ctx, files)
	return Flatten(results), summary, nil
}
