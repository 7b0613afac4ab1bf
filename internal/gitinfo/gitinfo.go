// Package gitinfo captures the git context a note is written in. Outside a
// repository everything is empty; notes still save.
package gitinfo

import (
	"context"
	"os/exec"
	"strings"
)

// Info is the git context at capture time.
type Info struct {
	Commit      string
	Branch      string
	ProjectPath string
}

// Detect returns the current commit, branch and repository root. Missing git
// or a non-repo directory yields a zero Info, never an error.
func Detect(ctx context.Context) Info {
	return Info{
		Commit:      run(ctx, "rev-parse", "HEAD"),
		Branch:      run(ctx, "rev-parse", "--abbrev-ref", "HEAD"),
		ProjectPath: run(ctx, "rev-parse", "--show-toplevel"),
	}
}

func run(ctx context.Context, args ...string) string {
	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
