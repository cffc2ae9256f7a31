package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/security-cli/secretshield/pkg/scanner"
)

const toolURI = "https://github.com/security-cli/secretshield"

// ToolVersion is reported as the SARIF driver version.
var ToolVersion = "dev"

// SARIFReporter outputs results in SARIF format. Each fired rule of a
// finding becomes one SARIF result.
type SARIFReporter struct {
	toolName    string
	toolVersion string
}

// NewSARIFReporter creates a new SARIF reporter.
func NewSARIFReporter() *SARIFReporter {
	return &SARIFReporter{
		toolName:    "secretshield",
		toolVersion: ToolVersion,
	}
}

// Format returns the reporter's format type.
func (r *SARIFReporter) Format() Format {
	return FormatSARIF
}

// Report outputs the findings in SARIF format.
func (r *SARIFReporter) Report(w io.Writer, res Results) error {
	report, err := r.Build(res)
	if err != nil {
		return err
	}
	return report.PrettyWrite(w)
}

// Build converts res into a SARIF document.
func (r *SARIFReporter) Build(res Results) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(r.toolName, toolURI)
	run.Tool.Driver.WithVersion(r.toolVersion)
	run.Tool.Driver.WithFullName("secretshield secret detector")

	seen := make(map[string]bool)
	for _, f := range res.Findings {
		for _, name := range f.Rules {
			if seen[name] {
				continue
			}
			seen[name] = true
			run.AddRule(name).
				WithName(name).
				WithDescription(name).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: "error"})
		}
	}

	for _, f := range res.Findings {
		for _, name := range f.Rules {
			region := sarif.NewRegion().WithSnippet(sarif.NewArtifactContent().WithText(f.String))
			location := sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewSimpleArtifactLocation(strings.ReplaceAll(f.File, "\\", "/"))).
					WithRegion(region),
			)

			run.CreateResultForRule(name).
				WithMessage(sarif.NewTextMessage(fmt.Sprintf("%s in %s", name, f.File))).
				WithLevel("error").
				WithLocations([]*sarif.Location{location}).
				WithFingerPrints(map[string]interface{}{
					"secretshield/v1": fingerprint(f, name),
				})
		}
	}

	if s := res.Summary; s != nil {
		run.Invocations = append(run.Invocations, sarif.NewInvocation().
			WithExecutionSuccess(true).
			WithStartTimeUTC(s.StartTime).
			WithEndTimeUTC(s.EndTime))
	}

	report.AddRun(run)
	return report, nil
}

func fingerprint(f scanner.Finding, rule string) string {
	sum := sha256.Sum256([]byte(f.File + "\x00" + f.String + "\x00" + rule))
	return hex.EncodeToString(sum[:16])
}

// ValidateSARIF checks that data parses as a SARIF document.
func ValidateSARIF(data []byte) error {
	_, err := sarif.FromBytes(data)
	return err
}
