// Package gitutil answers the git questions a migration run asks: which
// files changed since a revision and which have uncommitted changes.
package gitutil

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Repo is a git working tree.
type Repo struct {
	// Root is the absolute path of the top-level directory.
	Root string
}

// Open returns the repository containing dir. It fails when dir is not
// inside a git working tree or git is not installed.
func Open(ctx context.Context, dir string) (*Repo, error) {
	root, err := runGit(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}
	return &Repo{Root: root}, nil
}

// ChangedSince returns the absolute paths of files that differ from rev:
// committed, staged and unstaged changes plus untracked files. Deleted files
// are left out.
func (r *Repo) ChangedSince(ctx context.Context, rev string) ([]string, error) {
	if _, err := runGit(ctx, r.Root, "rev-parse", "--verify", "--quiet", rev+"^{commit}"); err != nil {
		return nil, fmt.Errorf("unknown revision %q", rev)
	}
	diff, err := runGit(ctx, r.Root, "diff", "--name-status", "--no-renames", rev)
	if err != nil {
		return nil, err
	}
	untracked, err := runGit(ctx, r.Root, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}

	var out []string
	for path, status := range parseNameStatus(diff) {
		if status != "deleted" {
			out = append(out, r.abs(path))
		}
	}
	for _, line := range strings.Split(untracked, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, r.abs(line))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Dirty returns the absolute paths of files with uncommitted changes,
// untracked files included.
func (r *Repo) Dirty(ctx context.Context) ([]string, error) {
	output, err := runGit(ctx, r.Root, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, path := range parsePorcelain(output) {
		out = append(out, r.abs(path))
	}
	return out, nil
}

func (r *Repo) abs(rel string) string {
	return filepath.Join(r.Root, filepath.FromSlash(rel))
}

// parseNameStatus parses "git diff --name-status" output into a map of path -> status.
func parseNameStatus(output string) map[string]string {
	result := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		statusCode := parts[0]
		path := parts[len(parts)-1]

		switch {
		case strings.HasPrefix(statusCode, "A"):
			result[path] = "added"
		case strings.HasPrefix(statusCode, "D"):
			result[path] = "deleted"
		default:
			result[path] = "modified"
		}
	}
	return result
}

// parsePorcelain returns the paths of "git status --porcelain" output. For
// renames the new path is returned.
func parsePorcelain(output string) []string {
	var paths []string
	for _, line := range strings.Split(output, "\n") {
		if len(line) < 4 {
			continue
		}
		path := line[3:]
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+len(" -> "):]
		}
		paths = append(paths, strings.Trim(path, `"`))
	}
	return paths
}

// runGit executes a git command in the given directory and returns trimmed stdout.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimRight(string(output), "\n"), nil
}
