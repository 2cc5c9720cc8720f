package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/imyousuf/csmigrate/internal/config"
	"github.com/imyousuf/csmigrate/internal/discover"
	"github.com/imyousuf/csmigrate/internal/engine"
	"github.com/imyousuf/csmigrate/internal/report"
	"github.com/imyousuf/csmigrate/internal/rules"
	"github.com/imyousuf/csmigrate/internal/symbols"
)

// newLogger writes structured logs to w at the configured level, or at
// debug level when verbose is set.
func newLogger(w io.Writer, cfg *config.Config, verbose bool) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// loadConfig loads the configuration without validating it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// loadRules reads a rule file and fails on validation errors. Warnings are
// logged.
func loadRules(path string, logger *slog.Logger) (*rules.RuleSet, error) {
	set, err := rules.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	var failures []string
	for _, issue := range set.Validate() {
		if issue.Severity == rules.SeverityError {
			failures = append(failures, issue.String())
			continue
		}
		logger.Warn("rule file issue", "rule", issue.Rule, "issue", issue.Message)
	}
	if len(failures) > 0 {
		return nil, fmt.Errorf("invalid rule file %s:\n  %s", path, strings.Join(failures, "\n  "))
	}
	return set, nil
}

// session is the state shared by one-shot and watch runs: the selected
// rules, the file selector and the runner with its resolver.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	rules    []rules.Rule
	selector *discover.Selector
	runner   *engine.Runner
	index    *symbols.Index
	cache    *symbols.BadgerCache
}

func openSession(ctx context.Context, cfg *config.Config, roots []string, logger *slog.Logger) (*session, error) {
	set, err := loadRules(cfg.RulesFile, logger)
	if err != nil {
		return nil, err
	}
	rs, err := set.Select(cfg.Package.Name, cfg.Package.From, cfg.Package.To)
	if err != nil {
		return nil, fmt.Errorf("select migrations: %w", err)
	}
	logger.Debug("rules selected", "count", len(rs), "package", cfg.Package.Name)

	selector, err := discover.NewSelector(roots, discover.Options{
		Include:          cfg.Include,
		Exclude:          cfg.Exclude,
		RespectGitignore: cfg.RespectGitignore,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, rules: rs, selector: selector}
	opts := engine.Options{
		DryRun:      cfg.DryRun,
		Parallelism: cfg.Parallelism,
		Prefilter:   cfg.Prefilter,
		Logger:      logger,
	}
	if cfg.Semantic {
		if err := s.openIndex(ctx); err != nil {
			s.Close()
			return nil, err
		}
		opts.Resolver = s.index
	}
	s.runner = engine.New(opts)
	return s, nil
}

// openIndex builds the symbol index from the run files and the reference
// paths.
func (s *session) openIndex(ctx context.Context) error {
	if dir := s.cfg.Cache.Dir; dir != "" {
		c, err := symbols.OpenBadgerCache(dir)
		if err != nil {
			return fmt.Errorf("open declaration cache: %w", err)
		}
		s.cache = c
	}

	files, err := s.selector.Files(ctx)
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}
	if len(s.cfg.ReferencePaths) > 0 {
		refs, err := discover.NewSelector(s.cfg.ReferencePaths, discover.Options{Logger: s.logger})
		if err != nil {
			return err
		}
		refFiles, err := refs.Files(ctx)
		if err != nil {
			return fmt.Errorf("discover reference files: %w", err)
		}
		files = append(files, refFiles...)
	}

	s.index = symbols.NewIndex()
	start := time.Now()
	if err := s.index.Build(ctx, files, s.indexCache(), s.logger); err != nil {
		return fmt.Errorf("index declarations: %w", err)
	}
	s.logger.Debug("symbol index ready", "files", len(files), "types", len(s.index.Types()), "elapsed", time.Since(start))
	return nil
}

// indexCache returns the declaration cache, or nil when it is disabled.
func (s *session) indexCache() symbols.Cache {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// migrate runs the rules over files and returns the outcome with run stats.
func (s *session) migrate(ctx context.Context, files []string) (*engine.Outcome, report.Stats, error) {
	start := time.Now()
	var size uint64
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			size += uint64(info.Size())
		}
	}
	out, err := s.runner.Run(ctx, files, s.rules)
	return out, report.Stats{Elapsed: time.Since(start), Bytes: size}, err
}

// Close releases the declaration cache.
func (s *session) Close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("closing declaration cache", "error", err)
		}
		s.cache = nil
	}
}

// finish reports o and turns a failed outcome into an ExitError.
func finish(cmd *cobra.Command, o *engine.Outcome, format report.Format, stats report.Stats) error {
	if err := report.Write(cmd.OutOrStdout(), o, format, stats); err != nil {
		return err
	}
	if code := engine.ExitCode(o); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// isCancelled reports whether err only means the run was interrupted.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
