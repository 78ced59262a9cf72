// Package repostate answers "is this inside a git worktree" style questions.
package repostate

import (
	"context"
	"os/exec"
	"strings"

	"whence/internal/errors"
)

// IsGitRepository reports whether dir is inside a git working tree.
func IsGitRepository(ctx context.Context, dir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(output)) == "true"
}

// FindRoot returns the top-level directory of the worktree containing dir.
// Returns a NotVersionControlled error when dir is outside any worktree.
func FindRoot(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", errors.New(errors.NotVersionControlled,
			"not inside a git working tree", err).WithDetails(map[string]interface{}{
			"dir": dir,
		})
	}
	return strings.TrimSpace(string(output)), nil
}

// HeadCommit returns the current HEAD commit hash, or "" for an empty repo.
func HeadCommit(ctx context.Context, repoRoot string) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = repoRoot
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
