// Package report provides output formatters for scan results.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/security-cli/secretshield/pkg/scanner"
)

// Format represents the output format type.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatJSONBlob Format = "json-blob"
	FormatSARIF    Format = "sarif"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatJSON, FormatJSONBlob, FormatMarkdown, FormatSARIF}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Meta describes the run that produced a set of findings.
type Meta struct {
	RulesInfo any       `json:"rules_info,omitempty"`
	RulesUser any       `json:"rules_user,omitempty"`
	Date      time.Time `json:"date"`
	Target    string    `json:"target"`
	RunID     string    `json:"runId,omitempty"`
}

// Results is everything a reporter renders.
type Results struct {
	Findings []scanner.Finding
	Summary  *scanner.Summary
	Meta     Meta
}

// Reporter is the interface for result reporters.
type Reporter interface {
	Report(w io.Writer, res Results) error
	Format() Format
}

// Redacted is appended to redacted finding strings.
const Redacted = "[REDACTED]"

// Redact returns copies of findings whose strings keep only their first n
// characters. A negative n leaves findings unchanged.
func Redact(findings []scanner.Finding, n int) []scanner.Finding {
	if n < 0 {
		return findings
	}
	out := make([]scanner.Finding, len(findings))
	for i, f := range findings {
		s := strings.TrimSpace(f.String)
		if utf8.RuneCountInString(s) > n {
			s = string([]rune(s)[:n])
		}
		f.String = s + Redacted
		out[i] = f
	}
	return out
}

// TableReporter outputs results in a formatted table.
type TableReporter struct {
	colorEnabled bool
	verbose      bool
}

// NewTableReporter creates a new table reporter.
func NewTableReporter(colorEnabled, verbose bool) *TableReporter {
	return &TableReporter{
		colorEnabled: colorEnabled,
		verbose:      verbose,
	}
}

// Format returns the reporter's format type.
func (r *TableReporter) Format() Format {
	return FormatTable
}

// Report outputs the findings as a table of file, string and rules.
func (r *TableReporter) Report(w io.Writer, res Results) error {
	red := color.New(color.FgRed, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)
	white := color.New(color.FgWhite, color.Bold)
	magenta := color.New(color.FgMagenta)

	if !r.colorEnabled {
		color.NoColor = true
	}

	if r.verbose {
		fmt.Fprintln(w)
		white.Fprintln(w, "╔══════════════════════════════════════════════════════════════════════════════╗")
		white.Fprintln(w, "║                         SECRETSHIELD REPORT                                  ║")
		white.Fprintln(w, "╚══════════════════════════════════════════════════════════════════════════════╝")
		fmt.Fprintln(w)
	}

	if s := res.Summary; s != nil && r.verbose {
		cyan.Fprintln(w, "SCAN SUMMARY")
		fmt.Fprintln(w, strings.Repeat("─", 80))
		if res.Meta.Target != "" {
			fmt.Fprintf(w, "  %-25s %s\n", "Target:", res.Meta.Target)
		}
		fmt.Fprintf(w, "  %-25s %s\n", "Scan Duration:", s.Duration.Round(time.Millisecond))
		fmt.Fprintf(w, "  %-25s %d\n", "Files Scanned:", s.ScannedFiles)
		fmt.Fprintf(w, "  %-25s %d\n", "Files Skipped:", s.SkippedFiles)
		fmt.Fprintf(w, "  %-25s %d\n", "Files Failed:", s.FailedFiles)
		if s.PipelineErrors > 0 {
			red.Fprintf(w, "  %-25s %d\n", "Rule Errors:", s.PipelineErrors)
		}
		fmt.Fprintf(w, "  %-25s %d\n", "Total Findings:", len(res.Findings))
		fmt.Fprintln(w)
	}

	if len(res.Findings) == 0 {
		green.Fprintln(w, "No secrets found.")
		return nil
	}

	const fileWidth, stringWidth = 30, 50
	white.Fprintf(w, "%-*s  %-*s  %s\n", fileWidth, "FILE", stringWidth, "STRING", "FINDING")
	fmt.Fprintln(w, strings.Repeat("─", 110))
	for _, f := range res.Findings {
		for i, rule := range f.Rules {
			file, str := "", ""
			if i == 0 {
				file = truncate(f.File, fileWidth)
				str = truncate(f.String, stringWidth)
			}
			fmt.Fprintf(w, "%-*s  %-*s  ", fileWidth, file, stringWidth, str)
			magenta.Fprintln(w, rule)
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", 110))
	red.Fprintf(w, "%d potential secret(s) found.\n", len(res.Findings))
	return nil
}

// truncate shortens s to max runes with an ellipsis and folds newlines.
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

type jsonLine struct {
	Result scanner.Finding `json:"result"`
	Meta   Meta            `json:"meta"`
}

// JSONReporter writes one JSON object per finding, each carrying the run
// metadata.
type JSONReporter struct{}

// Format returns the reporter's format type.
func (r *JSONReporter) Format() Format {
	return FormatJSON
}

// Report outputs one line per finding.
func (r *JSONReporter) Report(w io.Writer, res Results) error {
	encoder := json.NewEncoder(w)
	for _, f := range res.Findings {
		if err := encoder.Encode(jsonLine{Result: f, Meta: res.Meta}); err != nil {
			return err
		}
	}
	return nil
}

// Blob is the single document written by the json-blob format.
type Blob struct {
	Results []scanner.Finding `json:"results"`
	Summary *scanner.Summary  `json:"summary,omitempty"`
	Meta    Meta              `json:"meta"`
}

// BlobReporter writes every finding in a single JSON document.
type BlobReporter struct {
	pretty bool
}

// NewBlobReporter creates a new json-blob reporter.
func NewBlobReporter(pretty bool) *BlobReporter {
	return &BlobReporter{pretty: pretty}
}

// Format returns the reporter's format type.
func (r *BlobReporter) Format() Format {
	return FormatJSONBlob
}

// Report outputs the findings as one JSON document.
func (r *BlobReporter) Report(w io.Writer, res Results) error {
	findings := res.Findings
	if findings == nil {
		findings = []scanner.Finding{}
	}
	encoder := json.NewEncoder(w)
	if r.pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(Blob{Results: findings, Summary: res.Summary, Meta: res.Meta})
}

// MarkdownReporter outputs results in Markdown format.
type MarkdownReporter struct{}

// Format returns the reporter's format type.
func (r *MarkdownReporter) Format() Format {
	return FormatMarkdown
}

// Report outputs the findings as a Markdown table.
func (r *MarkdownReporter) Report(w io.Writer, res Results) error {
	fmt.Fprintln(w, "# Secret Scan Report")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "**Scan Date:** %s\n\n", res.Meta.Date.Format(time.RFC3339))
	if res.Meta.Target != "" {
		fmt.Fprintf(w, "**Target:** `%s`\n\n", res.Meta.Target)
	}

	if s := res.Summary; s != nil {
		fmt.Fprintln(w, "## Summary")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Metric | Value |")
		fmt.Fprintln(w, "|--------|-------|")
		fmt.Fprintf(w, "| Duration | %s |\n", s.Duration.Round(time.Millisecond))
		fmt.Fprintf(w, "| Files Scanned | %d |\n", s.ScannedFiles)
		fmt.Fprintf(w, "| Files Skipped | %d |\n", s.SkippedFiles)
		fmt.Fprintf(w, "| Files Failed | %d |\n", s.FailedFiles)
		fmt.Fprintf(w, "| Total Findings | %d |\n", len(res.Findings))
		fmt.Fprintln(w)
	}

	if len(res.Findings) == 0 {
		fmt.Fprintln(w, "**No secrets found.**")
		return nil
	}

	fmt.Fprintln(w, "## Findings")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| File | String | Finding |")
	fmt.Fprintln(w, "|------|--------|---------|")
	for _, f := range res.Findings {
		fmt.Fprintf(w, "| `%s` | `%s` | %s |\n",
			escapeCell(f.File), escapeCell(f.String), escapeCell(strings.ReplaceAll(f.RuleList(), "\n", "<br>")))
	}
	return nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "`", "'")
	return strings.ReplaceAll(s, "\n", " ")
}

// Options configure GetReporter.
type Options struct {
	Color   bool
	Verbose bool
	Pretty  bool
}

// GetReporter returns the appropriate reporter for the given format.
func GetReporter(format Format, opts Options) Reporter {
	switch format {
	case FormatJSON:
		return &JSONReporter{}
	case FormatJSONBlob:
		return NewBlobReporter(opts.Pretty)
	case FormatMarkdown:
		return &MarkdownReporter{}
	case FormatSARIF:
		return NewSARIFReporter()
	default:
		return NewTableReporter(opts.Color, opts.Verbose)
	}
}
