package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/security-cli/secretshield/pkg/report"
	"github.com/security-cli/secretshield/pkg/rules"
	"github.com/security-cli/secretshield/pkg/scanner"
	"github.com/security-cli/secretshield/pkg/utils"
)

func (a *app) scanCmd() *cobra.Command {
	var (
		repo         string
		timeout      time.Duration
		showProgress bool
		skipBinary   bool
		follow       bool
	)

	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Scan a directory tree for secrets",
		Long: `Scan every file under a directory (default ".") for secrets.

Files matching the ruleset's IgnoreFiles patterns are never read, and
excluded directories are never descended into. JavaScript, JSON and YAML
files are scanned literal by literal; everything else line by line.

Output Formats:
  table     - Terminal table of file, string and fired rules (default)
  json      - One JSON object per finding
  json-blob - A single JSON document with results and run metadata
  markdown  - Markdown table
  sarif     - SARIF 2.1.0 for code scanning

Exit codes: 0 no secrets, 1 secrets found, 2 the scan failed.

Examples:
  # Basic scan
  secretshield scan .

  # Scan a checkout and report paths relative to it
  secretshield scan --repo ./service -f json-blob --run-id nightly-42

  # Redact findings to their first 6 characters
  secretshield scan . --redact 6`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			if repo != "" {
				root = repo
			}
			return a.runScan(cmd.Context(), root, scanOptions{
				relative:     repo != "",
				timeout:      timeout,
				showProgress: showProgress,
				skipBinary:   skipBinary,
				follow:       follow,
			})
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "Scan a cloned repository and report paths relative to it")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Scan timeout (0 for none)")
	cmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress bar")
	cmd.Flags().BoolVar(&skipBinary, "skip-binary", false, "Skip files with binary extensions")
	cmd.Flags().BoolVar(&follow, "follow-symlinks", false, "Scan files reached through symlinks (linked directories are never entered)")
	return cmd
}

type scanOptions struct {
	relative     bool
	timeout      time.Duration
	showProgress bool
	skipBinary   bool
	follow       bool
}

func (a *app) runScan(parent context.Context, root string, opts scanOptions) error {
	r, err := a.ruleset()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(parent, opts.timeout)
	defer stop()

	if !a.quiet && a.settings.Format == string(report.FormatTable) {
		fmt.Fprintln(a.stderr, getBanner())
	}

	var progress *utils.Progress
	s, err := scanner.New(r,
		scanner.WithWorkers(a.settings.Workers),
		scanner.WithSkipBinary(opts.skipBinary || a.settings.SkipBinary),
		scanner.WithFollowSymlinks(opts.follow),
		scanner.WithResultHook(func(res scanner.FileResult) {
			progress.Observe(len(res.Findings), res.Skipped != "")
		}),
	)
	if err != nil {
		return err
	}

	files, err := s.Collect(root)
	if err != nil {
		return err
	}
	if !a.quiet {
		color.New(color.FgGreen).Fprintf(a.stderr, "Found %d files to scan\n\n", len(files))
	}

	var bar io.Writer
	if opts.showProgress && !a.quiet {
		bar = a.stderr
	}
	progress = utils.NewProgress(len(files), bar)

	results, summary := s.Scan(ctx, files)
	progress.Finish()
	if err := ctx.Err(); err != nil {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("scan aborted: %w", err)}
	}
	if !a.quiet {
		printProgress(a.stderr, progress)
	}

	findings := scanner.Flatten(results)
	target := ""
	if opts.relative {
		findings = relativeTo(root, findings)
		target = root
	}
	return a.emit(r, findings, &summary, target)
}

func (a *app) fileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file <path>",
		Short: "Scan a single file for secrets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.ruleset()
			if err != nil {
				return err
			}
			s, err := scanner.New(r)
			if err != nil {
				return err
			}
			findings, err := s.ScanFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(r, findings, nil, args[0])
		},
	}
}

func (a *app) templateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <path>",
		Short: "Check an infrastructure template's parameter declarations",
		Long: `Check the Parameters of a JavaScript infrastructure template.

A parameter whose name matches a CFTemplateSecureParameters pattern must be
a String, carry a "[secure]" description and have no default value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.ruleset()
			if err != nil {
				return err
			}
			s, err := scanner.New(r)
			if err != nil {
				return err
			}
			findings, err := s.ScanTemplate(args[0])
			if err != nil {
				return err
			}
			return a.emit(r, findings, nil, args[0])
		},
	}
}

func (a *app) stringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "string <text>",
		Short: "Check a single string for secrets",
		Long:  "Run one string through the rule pipeline and print the names of the rules it fires, one per line.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.ruleset()
			if err != nil {
				return err
			}
			s, err := scanner.New(r)
			if err != nil {
				return err
			}
			names, err := s.ScanString(args[0])
			if err != nil {
				return err
			}

			if a.settings.Format != string(report.FormatTable) {
				var findings []scanner.Finding
				if len(names) > 0 {
					findings = []scanner.Finding{{String: args[0], Rules: names}}
				}
				return a.emit(r, findings, nil, "")
			}
			for _, name := range names {
				fmt.Fprintln(a.stdout, name)
			}
			if len(names) > 0 {
				return errFound
			}
			if !a.quiet {
				color.New(color.FgGreen).Fprintln(a.stdout, "No secrets found.")
			}
			return nil
		},
	}
}

// printProgress writes the one-line tally of a finished directory scan.
func printProgress(w io.Writer, p *utils.Progress) {
	color.New(color.FgCyan).Fprintf(w, "Scanned %d/%d files (%.0f%%), %d skipped, %d finding(s), %.1f files/s\n",
		p.Done(), p.Total(), p.Percentage(), p.Skipped(), p.Findings(), p.Rate())
}

// emit writes findings in the configured format and maps them to an exit
// status.
func (a *app) emit(r rules.Ruleset, findings []scanner.Finding, summary *scanner.Summary, target string) error {
	format, err := report.ParseFormat(a.settings.Format)
	if err != nil {
		return err
	}

	res := report.Results{
		Findings: report.Redact(findings, a.settings.Redact),
		Summary:  summary,
		Meta: report.Meta{
			RulesInfo: r.Info,
			RulesUser: r.User,
			Date:      time.Now().UTC(),
			Target:    target,
			RunID:     a.settings.RunID,
		},
	}

	var out io.Writer = a.stdout
	if a.settings.Output != "" {
		f, err := os.Create(a.settings.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	reporter := report.GetReporter(format, report.Options{
		Color:   !a.noColor,
		Verbose: a.verbose,
		Pretty:  a.settings.Output != "",
	})
	if err := reporter.Report(out, res); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if a.settings.Output != "" && !a.quiet {
		color.New(color.FgGreen).Fprintf(a.stderr, "Report saved to %s\n", a.settings.Output)
	}
	if len(findings) > 0 {
		return errFound
	}
	return nil
}

// relativeTo rewrites finding paths relative to root.
func relativeTo(root string, findings []scanner.Finding) []scanner.Finding {
	out := make([]scanner.Finding, len(findings))
	for i, f := range findings {
		if rel, err := filepath.Rel(root, f.File); err == nil && !strings.HasPrefix(rel, "..") {
			f.File = filepath.ToSlash(rel)
		}
		out[i] = f
	}
	return out
}

// signalContext cancels on SIGINT and, when timeout is positive, after
// timeout.
func signalContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
