// Package engine runs migration rules over C# files. Each file is parsed
// once and the rules are folded over it left to right, every rule taking the
// tree produced by the previous one.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/imyousuf/csmigrate/internal/matcher"
	"github.com/imyousuf/csmigrate/internal/rules"
	"github.com/imyousuf/csmigrate/internal/symbols"
	"github.com/imyousuf/csmigrate/internal/syntax"
	"github.com/imyousuf/csmigrate/internal/transform"
)

// Options configures a Runner.
type Options struct {
	// DryRun computes changes and diffs without writing files.
	DryRun bool
	// Parallelism bounds how many files are migrated at once. Zero means
	// runtime.NumCPU().
	Parallelism int
	// Prefilter skips files that contain none of the rules' identifiers
	// without parsing them.
	Prefilter bool
	// Resolver enables semantic matching of invocations. Nil runs in purely
	// syntactic mode.
	Resolver symbols.Resolver
	Logger   *slog.Logger
}

// Runner applies rule lists to files.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{opts: opts, logger: logger}
}

// FileResult is the migration of one file.
type FileResult struct {
	Path string
	// Output is the rewritten content, with the original byte order mark and
	// line endings. It is nil when no rule changed the file.
	Output  []byte
	Applied []string
	Errors  []string
	// Skipped is set when the prefilter ruled the file out.
	Skipped bool
	// Diff is filled in dry runs for changed files.
	Diff string
}

// Changed reports whether any rule rewrote the file.
func (r FileResult) Changed() bool { return r.Output != nil }

// Run migrates files with rs and aggregates the outcome. Files are processed
// concurrently and merged in input order. Errors in one file or rule never
// stop the others; the returned error is only set when ctx is cancelled, in
// which case the outcome covers the files finished so far.
func (r *Runner) Run(ctx context.Context, files []string, rs []rules.Rule) (*Outcome, error) {
	out := &Outcome{
		DryRun:        r.opts.DryRun,
		ModifiedFiles: []string{},
		AppliedRules:  []string{},
		Errors:        []string{},
	}
	switch {
	case len(rs) == 0:
		out.Success = true
		out.Summary = "No migration rules to apply"
		return out, nil
	case len(files) == 0:
		out.Success = true
		out.Summary = "No target files to process"
		return out, nil
	}

	results := make([]*FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallelism)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.MigrateFile(gctx, path, rs)
			results[i] = &res
			return nil
		})
	}
	err := g.Wait()

	applied := make(map[string]bool)
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Skipped {
			out.FilesSkipped++
		} else {
			out.FilesScanned++
		}
		out.Errors = append(out.Errors, res.Errors...)
		if !res.Changed() {
			continue
		}
		out.ModifiedFiles = append(out.ModifiedFiles, res.Path)
		for _, name := range res.Applied {
			applied[name] = true
		}
		if res.Diff != "" {
			out.Changes = append(out.Changes, FileChange{Path: res.Path, Diff: res.Diff})
		}
	}
	for _, rule := range rs {
		if applied[rule.Name] {
			out.AppliedRules = append(out.AppliedRules, rule.Name)
			delete(applied, rule.Name)
		}
	}
	out.Success = len(out.Errors) == 0
	out.Summary = summarize(out)

	r.logger.Info("migration finished",
		"files", len(files),
		"modified", len(out.ModifiedFiles),
		"skipped", out.FilesSkipped,
		"errors", len(out.Errors),
		"dry_run", r.opts.DryRun)
	return out, err
}

// MigrateFile reads path, migrates it and writes it back unless the run is a
// dry run. Read and write failures are recorded in the result.
func (r *Runner) MigrateFile(ctx context.Context, path string, rs []rules.Rule) FileResult {
	info, err := os.Stat(path)
	if err != nil {
		return FileResult{Path: path, Errors: []string{fileError(path, err)}}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Errors: []string{fileError(path, err)}}
	}

	res := r.Migrate(ctx, path, src, rs)
	if !res.Changed() {
		return res
	}
	if r.opts.DryRun {
		res.Diff = unifiedDiff(path, src, res.Output)
		return res
	}
	if err := os.WriteFile(path, res.Output, info.Mode().Perm()); err != nil {
		res.Errors = append(res.Errors, fileError(path, fmt.Errorf("writing file: %w", err)))
		res.Output = nil
		res.Applied = nil
		return res
	}
	r.logger.Debug("file migrated", "path", path, "rules", res.Applied)
	return res
}

// Migrate applies rs to src in memory. path is only used in error messages.
func (r *Runner) Migrate(ctx context.Context, path string, src []byte, rs []rules.Rule) FileResult {
	res := FileResult{Path: path}
	if r.opts.Prefilter && !mayMatch(src, rs) {
		r.logger.Debug("file skipped by prefilter", "path", path)
		res.Skipped = true
		return res
	}

	bom, body := splitBOM(src)
	tree, err := syntax.Parse(ctx, body)
	if err != nil {
		res.Errors = append(res.Errors, fileError(path, err))
		return res
	}

	cur := tree
	for _, rule := range rs {
		var changed bool
		cur, changed = r.applyRule(cur, path, rule, &res)
		if changed {
			res.Applied = append(res.Applied, rule.Name)
		}
	}
	if bytes.Equal(cur.Bytes(), body) {
		return res
	}
	out := normalizeLineEndings(cur.Bytes(), syntax.LineBreak(body))
	res.Output = append(append([]byte{}, bom...), out...)
	return res
}

// applyRule tries every target of rule against t. A panic leaves the tree as
// it was before the rule and is recorded as an error.
func (r *Runner) applyRule(t *syntax.Tree, path string, rule rules.Rule, res *FileResult) (next *syntax.Tree, changed bool) {
	defer func() {
		if p := recover(); p != nil {
			res.Errors = append(res.Errors, ruleError(path, rule.Name, fmt.Errorf("panic: %v", p)))
			next, changed = t, false
		}
	}()

	next = t
	for _, target := range rule.Targets {
		nodes, errs := matcher.Find(next, target, r.opts.Resolver)
		for _, err := range errs {
			res.Errors = append(res.Errors, ruleError(path, rule.Name, err))
		}
		out, ok, errs := transform.Dispatch(next, target, nodes, rule.Action, r.opts.Resolver)
		for _, err := range errs {
			res.Errors = append(res.Errors, ruleError(path, rule.Name, err))
		}
		if ok {
			next, changed = out, true
		}
	}
	return next, changed
}

// mayMatch reports whether src contains at least one of the identifiers the
// rules look for. Names match case-insensitively, so the search does too.
func mayMatch(src []byte, rs []rules.Rule) bool {
	terms, ok := rules.SearchTerms(rs)
	if !ok {
		return true
	}
	lower := bytes.ToLower(src)
	for _, term := range terms {
		if bytes.Contains(lower, bytes.ToLower([]byte(term))) {
			return true
		}
	}
	return false
}
