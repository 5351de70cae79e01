// Package git reports which repository the user is reviewing.
package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const probeTimeout = 5 * time.Second

// Repo identifies a working tree.
type Repo struct {
	// Name is the base name of the top-level directory.
	Name string

	// Branch is the checked out branch. Empty for a detached HEAD or
	// outside a repository.
	Branch string
}

// String renders the repo as "name (branch)", or just the name.
func (r Repo) String() string {
	if r.Branch == "" {
		return r.Name
	}
	return r.Name + " (" + r.Branch + ")"
}

// Detect inspects dir (the working directory when empty). Outside a git
// repository, or when git is not installed, Name falls back to the base name
// of dir.
func Detect(ctx context.Context, dir string) Repo {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Repo{}
		}
		dir = wd
	}

	repo := Repo{Name: filepath.Base(dir)}

	if top := run(ctx, dir, "rev-parse", "--show-toplevel"); top != "" {
		repo.Name = filepath.Base(top)
	} else {
		return repo
	}

	if branch := run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"); branch != "HEAD" {
		repo.Branch = branch
	}

	return repo
}

func run(ctx context.Context, dir string, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
