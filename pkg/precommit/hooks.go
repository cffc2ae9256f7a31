package precommit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/security-cli/secretshield/pkg/failure"
)

// HookScript is the pre-commit hook written by InstallHook.
const HookScript = `#!/bin/sh
# installed by secretshield
exec secretshield pre-commit
`

// Errors returned by InstallHook and UninstallHook.
var (
	ErrHookExists  = errors.New("a pre-commit hook already exists")
	ErrHookMissing = errors.New("no pre-commit hook installed")
	ErrForeignHook = errors.New("pre-commit hook was not installed by secretshield")
)

// HookPath returns the pre-commit hook location of the repository that
// contains dir.
func HookPath(ctx context.Context, git Git, dir string) (string, error) {
	top, err := toplevel(ctx, git, dir)
	if err != nil {
		return "", failure.New(failure.KindScan, "not a git repository", dir, err)
	}
	out, err := git.Run(ctx, top, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", failure.New(failure.KindScan, "locate hooks directory", top, err)
	}
	hooks := strings.TrimSpace(string(out))
	if !filepath.IsAbs(hooks) {
		hooks = filepath.Join(top, hooks)
	}
	return filepath.Join(hooks, "pre-commit"), nil
}

// InstallHook writes HookScript into the repository containing dir. An
// existing hook is never overwritten.
func InstallHook(ctx context.Context, git Git, dir string) (string, error) {
	path, err := HookPath(ctx, git, dir)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, failure.New(failure.KindIO, "install hook", path, ErrHookExists)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, failure.New(failure.KindIO, "create hooks directory", path, err)
	}
	if err := os.WriteFile(path, []byte(HookScript), 0o755); err != nil {
		return path, failure.New(failure.KindIO, "write hook", path, err)
	}
	return path, nil
}

// UninstallHook removes a hook previously written by InstallHook.
func UninstallHook(ctx context.Context, git Git, dir string) (string, error) {
	path, err := HookPath(ctx, git, dir)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return path, failure.New(failure.KindIO, "uninstall hook", path, ErrHookMissing)
	}
	if err != nil {
		return path, failure.New(failure.KindIO, "read hook", path, err)
	}
	if string(data) != HookScript {
		return path, failure.New(failure.KindIO, "uninstall hook", path,
			fmt.Errorf("%w: remove it manually", ErrForeignHook))
	}
	if err := os.Remove(path); err != nil {
		return path, failure.New(failure.KindIO, "remove hook", path, err)
	}
	return path, nil
}
