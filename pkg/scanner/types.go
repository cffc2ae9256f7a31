// Package scanner analyzes files and directory trees for secrets.
package scanner

import (
	"strings"
	"time"
)

// Finding is one candidate string in one file that fired one or more rules.
type Finding struct {
	File   string   `json:"file" yaml:"file"`
	String string   `json:"string" yaml:"string"`
	Rules  []string `json:"finding" yaml:"finding"`
}

// RuleList joins the fired rule names one per line.
func (f Finding) RuleList() string {
	return strings.Join(f.Rules, "\n")
}

func (f Finding) key() string {
	return f.File + "\x00" + f.String + "\x00" + strings.Join(f.Rules, "\x00")
}

// FileResult is the outcome of analyzing one file.
type FileResult struct {
	Path     string        `json:"path" yaml:"path"`
	Findings []Finding     `json:"findings" yaml:"findings"`
	Skipped  string        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	ScanTime time.Duration `json:"scan_time" yaml:"scan_time"`
	Error    error         `json:"-" yaml:"-"`
}

// Summary provides aggregate statistics for a scan.
type Summary struct {
	TotalFiles     int           `json:"total_files" yaml:"total_files"`
	ScannedFiles   int           `json:"scanned_files" yaml:"scanned_files"`
	SkippedFiles   int           `json:"skipped_files" yaml:"skipped_files"`
	FailedFiles    int           `json:"failed_files" yaml:"failed_files"`
	PipelineErrors int64         `json:"pipeline_errors" yaml:"pipeline_errors"`
	TotalFindings  int           `json:"total_findings" yaml:"total_findings"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
	StartTime      time.Time     `json:"start_time" yaml:"start_time"`
	EndTime        time.Time     `json:"end_time" yaml:"end_time"`
}

// CalculateSummary generates summary statistics from file results.
func CalculateSummary(results []FileResult, startTime time.Time) Summary {
	summary := Summary{
		TotalFiles: len(results),
		StartTime:  startTime,
		EndTime:    time.Now(),
	}
	summary.Duration = summary.EndTime.Sub(summary.StartTime)

	for _, result := range results {
		switch {
		case result.Error != nil:
			summary.FailedFiles++
		case result.Skipped != "":
			summary.SkippedFiles++
		default:
			summary.ScannedFiles++
		}
		summary.TotalFindings += len(result.Findings)
	}

	return summary
}

// Flatten concatenates the findings of every result.
func Flatten(results []FileResult) []Finding {
	var out []Finding
	for _, r := range results {
		out = append(out, r.Findings...)
	}
	return out
}
