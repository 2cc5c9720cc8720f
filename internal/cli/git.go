package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imyousuf/csmigrate/internal/gitutil"
)

// gitOptions narrow or guard a run by the state of the git working tree.
type gitOptions struct {
	// since keeps only files changed since this revision.
	since string
	// requireClean refuses to rewrite files with uncommitted changes.
	requireClean bool
}

func (g gitOptions) active() bool { return g.since != "" || g.requireClean }

// apply filters files by g. The repository is the one containing the first
// root.
func (g gitOptions) apply(ctx context.Context, root string, files []string) ([]string, error) {
	if !g.active() {
		return files, nil
	}
	dir := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		dir = filepath.Dir(root)
	}
	repo, err := gitutil.Open(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("--since and --require-clean need a git repository: %w", err)
	}

	if g.since != "" {
		changed, err := repo.ChangedSince(ctx, g.since)
		if err != nil {
			return nil, err
		}
		files = intersect(files, changed)
	}

	if g.requireClean {
		dirty, err := repo.Dirty(ctx)
		if err != nil {
			return nil, err
		}
		if blocked := intersect(files, dirty); len(blocked) > 0 {
			return nil, fmt.Errorf("%d file(s) have uncommitted changes; commit or stash them first:\n  %s",
				len(blocked), strings.Join(blocked, "\n  "))
		}
	}
	return files, nil
}

// intersect returns the files that are also in set, in the order of files.
// Paths are compared after resolving symlinks.
func intersect(files, set []string) []string {
	keep := make(map[string]bool, len(set))
	for _, p := range set {
		keep[realPath(p)] = true
	}
	var out []string
	for _, f := range files {
		if keep[realPath(f)] {
			out = append(out, f)
		}
	}
	return out
}

func realPath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return filepath.Clean(p)
}
