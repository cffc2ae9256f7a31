// Package cli provides the command line interface for secretshield.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/security-cli/secretshield/pkg/failure"
	"github.com/security-cli/secretshield/pkg/logging"
	"github.com/security-cli/secretshield/pkg/report"
)

var (
	// Version information
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Exit codes.
const (
	ExitClean   = 0
	ExitFound   = 1
	ExitFailure = 2
)

// SetVersionInfo sets the version information from build flags.
func SetVersionInfo(version, commit, buildDate string) {
	Version = version
	Commit = commit
	BuildDate = buildDate
	report.ToolVersion = version
}

// ExitError carries a process exit code through cobra.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// errFound signals a successful scan that found secrets.
var errFound = &ExitError{Code: ExitFound}

// app holds the state shared by every subcommand of one invocation.
type app struct {
	v          *viper.Viper
	settings   Settings
	configFile string
	noColor    bool
	quiet      bool
	verbose    bool

	stdout io.Writer
	stderr io.Writer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), stdout: os.Stdout, stderr: os.Stderr}

	rootCmd := &cobra.Command{
		Use:   "secretshield",
		Short: "secretshield - find secrets in files, repositories and commits",
		Long: getBanner() + `
secretshield finds accidentally committed secrets (API keys, tokens,
credentials) in source trees, single files, free-form strings and
infrastructure templates, and can block commits that add them.

Detection is driven by a ruleset: preprocess transforms, regex, fuzzy and
entropy detectors, and postprocess suppressions. Two rulesets are built in
(minimal, deep); any JSON or YAML ruleset file can be used instead.

Examples:
  # Scan the current directory
  secretshield scan .

  # Scan a checkout with the deep ruleset and report relative paths
  secretshield scan --repo ./service --ruleset deep

  # Check a single string
  secretshield string "password = 'wbhnjvknttsogcdncgvo'"

  # Block commits that add secrets
  secretshield hook install`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stdout = cmd.OutOrStdout()
			a.stderr = cmd.ErrOrStderr()
			if err := a.loadSettings(cmd); err != nil {
				return err
			}
			if a.noColor {
				color.NoColor = true
			}
			logging.Init(a.stderr, a.settings.LogLevel, a.settings.LogJSON)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "Settings file (default .secretshield.yaml)")
	flags.StringP("ruleset", "r", "", "Builtin ruleset name or path to a JSON/YAML ruleset")
	flags.StringSlice("enable", nil, "Enable rules by name")
	flags.StringSlice("disable", nil, "Disable rules by name")
	flags.StringP("format", "f", "table", "Output format: table, json, json-blob, markdown, sarif")
	flags.StringP("output", "o", "", "Output file path")
	flags.Int("redact", -1, "Keep only the first N characters of each finding")
	flags.String("run-id", "", "Run identifier added to json and json-blob output")
	flags.IntP("workers", "w", 0, "Number of files scanned in parallel")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Show the report header and summary")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress all output except results and errors")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		a.scanCmd(),
		a.fileCmd(),
		a.stringCmd(),
		a.templateCmd(),
		a.preCommitCmd(),
		a.hookCmd(),
		a.rulesCmd(),
		a.initConfigCmd(),
		versionCmd(),
	)
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:])
}

func run(rootCmd *cobra.Command, args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return ExitClean
	}

	var exit *ExitError
	if errors.As(err, &exit) {
		if exit.Err != nil {
			color.New(color.FgRed).Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", exit.Err)
		}
		return exit.Code
	}

	color.New(color.FgRed).Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	if kind := failure.KindOf(err); kind != "" {
		logging.Debug().Str("kind", string(kind)).Msg("command failed")
	}
	return ExitFailure
}

// getBanner returns the ASCII art banner.
func getBanner() string {
	cyan := color.New(color.FgCyan).SprintFunc()
	return cyan(`
                         _         _     _      _     _
  ___  ___  ___ _ __ ___| |_   ___| |__ (_) ___| | __| |
 / __|/ _ \/ __| '__/ _ \ __| / __| '_ \| |/ _ \ |/ _`+"`"+` |
 \__ \  __/ (__| | |  __/ |_  \__ \ | | | |  __/ | (_| |
 |___/\___|\___|_|  \___|\__| |___/_| |_|_|\___|_|\__,_|
`) + "  Secret detection v" + Version + "\n"
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "secretshield %s\n", Version)
			fmt.Fprintf(w, "  Commit:     %s\n", Commit)
			fmt.Fprintf(w, "  Build Date: %s\n", BuildDate)
			fmt.Fprintf(w, "  Go Version: %s\n", runtime.Version())
			fmt.Fprintf(w, "  Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
