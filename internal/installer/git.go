package installer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// cloneShallow shallow-clones (depth 1) url into destDir, optionally
// pinned to branch. No git-clone library appears anywhere in the
// retrieved corpus, so this shells out the same way the bundler wraps
// the esbuild binary: CommandContext plus explicit stderr capture on
// failure.
func cloneShallow(ctx context.Context, url, branch, destDir string) error {
	args := []string{"clone", "--depth", "1"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, destDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git clone %s: %w: %s", url, err, stderr.String())
	}
	return nil
}
