package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"

	"github.com/imyousuf/csmigrate/internal/report"
	"github.com/imyousuf/csmigrate/internal/watcher"
)

// ownWrites remembers the content hash of files the migration just wrote,
// so the change events those writes cause do not trigger another run.
type ownWrites map[string]uint64

func (w ownWrites) record(paths []string) {
	for _, p := range paths {
		if src, err := os.ReadFile(p); err == nil {
			w[p] = xxhash.Sum64(src)
		}
	}
}

// filter drops paths whose content is still what the migration wrote.
func (w ownWrites) filter(paths []string) []string {
	var out []string
	for _, p := range paths {
		if sum, ok := w[p]; ok {
			src, err := os.ReadFile(p)
			if err == nil && xxhash.Sum64(src) == sum {
				continue
			}
			delete(w, p)
		}
		out = append(out, p)
	}
	return out
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	flags := &runFlags{}
	var (
		initial  bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-run the migration whenever C# files change",
		Long: `Watch the given paths (default: the current directory) and apply the
migration rules to every selected C# file that is created or modified.

Changes are batched until the tree has been quiet for the debounce interval
(watch.debounce). Files rewritten by the migration itself are not migrated
again until their content changes. Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := flags.reportFormat()
			if err != nil {
				return err
			}
			cfg, err := prepare(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debounce") {
				cfg.Watch.Debounce = debounce
			}
			logger, err := newLogger(os.Stderr, cfg, opts.verbose)
			if err != nil {
				return err
			}

			// Set up signal handling.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
					cancel()
				case <-ctx.Done():
				}
			}()

			s, err := openSession(ctx, cfg, rootsOf(args), logger)
			if err != nil {
				return err
			}
			defer s.Close()

			written := ownWrites{}
			var runs, failed int
			migrate := func(files []string) error {
				out, stats, err := s.migrate(ctx, files)
				if err != nil {
					return err
				}
				runs++
				if !out.Success {
					failed++
				}
				if !cfg.DryRun {
					written.record(out.ModifiedFiles)
				}
				return report.Write(cmd.OutOrStdout(), out, format, stats)
			}

			if initial {
				files, err := s.selector.Files(ctx)
				if err != nil {
					return fmt.Errorf("discover files: %w", err)
				}
				if err := migrate(files); err != nil {
					return ignoreCancel(err)
				}
			}

			w := watcher.New(watcher.Config{
				Roots:    s.selector.Roots(),
				Filter:   s.selector,
				Debounce: cfg.Watch.Debounce,
				Logger:   logger,
			})
			defer w.Close()
			batches, err := w.Start(ctx)
			if err != nil {
				return fmt.Errorf("watcher: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %d path(s)...\n", len(s.selector.Roots()))
			for _, root := range s.selector.Roots() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", root)
			}

			for batch := range batches {
				files := written.filter(batch)
				if len(files) == 0 {
					logger.Debug("ignoring changes made by the migration", "files", len(batch))
					continue
				}
				if s.index != nil {
					if err := s.index.Build(ctx, files, s.indexCache(), logger); err != nil {
						break
					}
				}
				logger.Info("files changed", "files", len(files))
				if err := migrate(files); err != nil {
					if isCancelled(err) {
						break
					}
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nFinal stats:\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  Runs:        %d\n", runs)
			if failed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  With errors: %d\n", failed)
				return &ExitError{Code: 1}
			}
			return nil
		},
	}

	flags.register(cmd)
	flags.registerFormat(cmd)
	cmd.Flags().BoolVar(&initial, "initial", true, "migrate every selected file before watching")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before a re-run (overrides watch.debounce)")
	return cmd
}

func ignoreCancel(err error) error {
	if isCancelled(err) {
		return nil
	}
	return err
}
