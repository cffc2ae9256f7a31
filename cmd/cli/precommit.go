package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/security-cli/secretshield/pkg/detect"
	"github.com/security-cli/secretshield/pkg/logging"
	"github.com/security-cli/secretshield/pkg/precommit"
	"github.com/security-cli/secretshield/pkg/report"
	"github.com/security-cli/secretshield/pkg/scanner"
	"github.com/security-cli/secretshield/pkg/utils"
)

func (a *app) preCommitCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "pre-commit",
		Short: "Scan the lines added since the last commit",
		Long: `Scan every line added to tracked files since HEAD (or since the empty
tree in a repository without commits) and block the commit when a secret
is found. Files with GitHookNumberOfChangesRestriction or more added lines
are skipped.

Errors that are not about secrets, such as running outside a repository,
do not block the commit unless --strict is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.runPreCommit(cmd)
			if err == nil || err == errFound || strict {
				return err
			}
			logging.Warn().Err(err).Msg("pre-commit check did not run")
			if !a.quiet {
				color.New(color.FgYellow).Fprintf(a.stderr, "secretshield: pre-commit check skipped: %v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Block the commit when the check itself fails")
	return cmd
}

func (a *app) runPreCommit(cmd *cobra.Command) error {
	r, err := a.ruleset()
	if err != nil {
		return err
	}
	engine, err := detect.New(r)
	if err != nil {
		return err
	}
	analyzer, err := scanner.NewAnalyzer(engine)
	if err != nil {
		return err
	}

	var spinner *utils.Spinner
	if !a.quiet {
		spinner = utils.NewSpinner("Checking staged changes for secrets", a.stderr)
		spinner.Start()
	}
	res, err := precommit.New(analyzer).Scan(cmd.Context(), ".")
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	for _, file := range res.Skipped {
		color.New(color.FgYellow).Fprintf(a.stderr, "Skipping %s because it contains too many changes.\n", file)
	}
	if len(res.Findings) == 0 {
		if !a.quiet {
			color.New(color.FgGreen).Fprintln(a.stderr, "No secrets were found.")
		}
		return nil
	}

	findings := report.Redact(res.Findings, a.settings.Redact)
	reporter := report.NewTableReporter(!a.noColor, false)
	if err := reporter.Report(a.stderr, report.Results{Findings: findings}); err != nil {
		return err
	}
	color.New(color.FgRed, color.Bold).Fprintln(a.stderr, precommit.BlockMessage)
	return errFound
}

func (a *app) hookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage the git pre-commit hook of the current repository",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "install",
			Short: "Install a pre-commit hook that runs secretshield pre-commit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := precommit.InstallHook(cmd.Context(), precommit.ExecGit{}, ".")
				if err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintf(a.stdout, "Installed pre-commit hook in %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Remove the pre-commit hook installed by secretshield",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := precommit.UninstallHook(cmd.Context(), precommit.ExecGit{}, ".")
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Removed pre-commit hook %s\n", path)
				return nil
			},
		},
	)
	return cmd
}
