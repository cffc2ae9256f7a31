package precommit

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/gitleaks/go-gitdiff/gitdiff"
)

// EmptyTree is the hash of git's empty tree, the baseline of a repository
// without commits.
const EmptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Git runs git subcommands in a working directory.
type Git interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// ExecGit runs the git binary found on PATH.
type ExecGit struct{}

// Run executes git with args in dir and returns its stdout.
func (ExecGit) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		sub := subcommand(args)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("git %s: %w: %s", sub, err, msg)
		}
		return nil, fmt.Errorf("git %s: %w", sub, err)
	}
	return out, nil
}

// subcommand skips global options such as --literal-pathspecs.
func subcommand(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return ""
}

func toplevel(ctx context.Context, git Git, dir string) (string, error) {
	out, err := git.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// baseline returns HEAD, or the empty tree before the first commit.
func baseline(ctx context.Context, git Git, top string) string {
	out, err := git.Run(ctx, top, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return EmptyTree
	}
	return strings.TrimSpace(string(out))
}

// changedFiles lists paths added or modified since against. The -z output
// keeps paths unquoted, as alternating status and path fields.
func changedFiles(ctx context.Context, git Git, top, against string) ([]string, error) {
	out, err := git.Run(ctx, top, "diff-index", "-z", "--name-status", against)
	if err != nil {
		return nil, err
	}
	fields := strings.Split(strings.TrimSuffix(string(out), "\x00"), "\x00")
	var files []string
	for i := 0; i+1 < len(fields); i += 2 {
		status, path := fields[i], fields[i+1]
		if status == "" || path == "" {
			continue
		}
		if status[0] == 'A' || status[0] == 'M' {
			files = append(files, path)
		}
	}
	return files, nil
}

// addedLines returns the lines file gained since against.
func addedLines(ctx context.Context, git Git, top, against, file string) ([]string, error) {
	out, err := git.Run(ctx, top, "--literal-pathspecs", "diff", "--unified=0", against, "--", file)
	if err != nil {
		return nil, err
	}
	files, err := gitdiff.Parse(bytes.NewReader(out))
	if err != nil {
		return nil, err
	}

	var lines []string
	for f := range files {
		if f.IsBinary || f.IsDelete {
			continue
		}
		for _, frag := range f.TextFragments {
			for _, l := range frag.Lines {
				if l.Op == gitdiff.OpAdd {
					lines = append(lines, strings.TrimSuffix(l.Line, "\n"))
				}
			}
		}
	}
	return lines, nil
}
