// Package git provides Git operations for pgbranch.
package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
)

const (
	// GitCommandTimeout is the default timeout for git commands.
	GitCommandTimeout = 10 * time.Second

	// hookMarker identifies hooks written by pgbranch so uninstall never
	// touches a user's own hooks.
	hookMarker = "pgbranch auto-generated hook"
)

// hookNames are the hooks pgbranch installs.
var hookNames = []string{"post-checkout", "post-merge"}

// Client defines the Git operations pgbranch consumes.
type Client interface {
	IsRepository(ctx context.Context) bool
	CurrentBranch(ctx context.Context) (string, error)
	DetectMainBranch(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, branch string) (bool, error)
	InstallHooks(ctx context.Context) error
	UninstallHooks(ctx context.Context) error
	HooksInstalled(ctx context.Context) (bool, error)
}

// DefaultClient implements Client using exec.CommandContext.
type DefaultClient struct {
	// workDir is the working directory for git commands.
	// If empty, uses the current directory.
	workDir string
}

// NewClient creates a new DefaultClient.
func NewClient() *DefaultClient {
	return &DefaultClient{}
}

// NewClientWithWorkDir creates a new DefaultClient with a specific working directory.
func NewClientWithWorkDir(workDir string) *DefaultClient {
	return &DefaultClient{workDir: workDir}
}

// run executes a git command and returns its trimmed stdout.
func (c *DefaultClient) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, GitCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if c.workDir != "" {
		cmd.Dir = c.workDir
	}

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", apperrors.NewTimeoutError(ctx.Err())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", apperrors.NewGitError(err, string(exitErr.Stderr))
		}
		return "", apperrors.NewGitError(err, "")
	}
	return strings.TrimSpace(string(output)), nil
}

// IsRepository reports whether the working directory is inside a git
// work tree.
func (c *DefaultClient) IsRepository(ctx context.Context) bool {
	out, err := c.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// CurrentBranch returns the name of the checked-out branch. A detached
// HEAD or a missing repository yields "" without an error so that callers
// can fail open.
func (c *DefaultClient) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		if !c.IsRepository(ctx) {
			return "", nil
		}
		return "", err
	}
	if out == "HEAD" {
		// Detached HEAD: no branch.
		return "", nil
	}
	return out, nil
}

// DetectMainBranch guesses the repository's main branch: the remote HEAD
// of origin when set, else a local "main", else a local "master". Returns
// "" when nothing matches.
func (c *DefaultClient) DetectMainBranch(ctx context.Context) (string, error) {
	if out, err := c.run(ctx, "symbolic-ref", "--short", "refs/remotes/origin/HEAD"); err == nil {
		return strings.TrimPrefix(out, "origin/"), nil
	}

	for _, candidate := range []string{"main", "master"} {
		exists, err := c.BranchExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if exists {
			return candidate, nil
		}
	}
	return "", nil
}

// BranchExists reports whether a local branch exists.
func (c *DefaultClient) BranchExists(ctx context.Context, branch string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, GitCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	if c.workDir != "" {
		cmd.Dir = c.workDir
	}

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return false, apperrors.NewTimeoutError(ctx.Err())
		}
		// Exit code 1 means the ref does not exist.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, apperrors.NewGitError(err, "")
	}
	return true, nil
}

// hooksDir returns the repository's hooks directory.
func (c *DefaultClient) hooksDir(ctx context.Context) (string, error) {
	gitDir, err := c.run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", err
	}
	return filepath.Join(gitDir, "hooks"), nil
}

// InstallHooks writes the post-checkout and post-merge hooks that invoke
// `pgbranch git-hook` on branch changes.
func (c *DefaultClient) InstallHooks(ctx context.Context) error {
	dir, err := c.hooksDir(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to create hooks directory")
	}

	for _, name := range hookNames {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(hookScript), 0o755); err != nil {
			return apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to write "+name+" hook")
		}
	}
	return nil
}

// UninstallHooks removes pgbranch's hooks, leaving foreign hooks alone.
func (c *DefaultClient) UninstallHooks(ctx context.Context) error {
	dir, err := c.hooksDir(ctx)
	if err != nil {
		return err
	}

	for _, name := range hookNames {
		path := filepath.Join(dir, name)
		ours, err := IsPgbranchHook(path)
		if err != nil {
			return err
		}
		if !ours {
			continue
		}
		if err := os.Remove(path); err != nil {
			return apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to remove "+name+" hook")
		}
	}
	return nil
}

// HooksInstalled reports whether at least one pgbranch hook is present.
func (c *DefaultClient) HooksInstalled(ctx context.Context) (bool, error) {
	dir, err := c.hooksDir(ctx)
	if err != nil {
		return false, err
	}

	for _, name := range hookNames {
		ours, err := IsPgbranchHook(filepath.Join(dir, name))
		if err != nil {
			return false, err
		}
		if ours {
			return true, nil
		}
	}
	return false, nil
}

// IsPgbranchHook reports whether the file at path is a hook written by
// pgbranch. A missing file is simply not ours.
func IsPgbranchHook(path string) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to read hook file").WithContext("path", path)
	}
	return strings.Contains(string(content), hookMarker), nil
}

// hookScript is installed as both post-checkout and post-merge. It skips
// file checkouts and same-branch checkouts before delegating to
// `pgbranch git-hook`.
const hookScript = `#!/bin/sh
# ` + hookMarker + `
# This hook keeps PostgreSQL branch databases in sync with Git branches.

# For post-checkout: $1=previous HEAD, $2=new HEAD, $3=checkout type
# (1=branch, 0=file). Skip file checkouts.
if [ "$3" = "0" ]; then
    exit 0
fi

PREV_BRANCH=` + "`git reflog | awk 'NR==1{ print $6; exit }'`" + `
NEW_BRANCH=` + "`git reflog | awk 'NR==1{ print $8; exit }'`" + `

if [ "$PREV_BRANCH" = "$NEW_BRANCH" ]; then
    exit 0
fi

if command -v pgbranch >/dev/null 2>&1; then
    pgbranch git-hook
else
    echo "pgbranch not found in PATH, skipping database branch sync"
fi
`
