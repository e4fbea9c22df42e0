package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/baltrad/bdb-go/cli/internal/ui"
	"github.com/baltrad/bdb-go/cli/internal/watch"
	"github.com/baltrad/bdb-go/internal/debug"
	"github.com/baltrad/bdb-go/runtime/client"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

func newImportCommand(a *app) *cobra.Command {
	var (
		watchDir string
		pattern  string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "import [FILE...]",
		Short: "Archive metadata dumps",
		Long: `Archive one or more files described by YAML metadata dumps. Each
stored file prints its UUID. With --watch the command keeps running and
archives every matching file written to the directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && watchDir == "" {
				return fmt.Errorf("nothing to import, pass files or --watch")
			}
			return a.withDatabase(cmd.Context(), func(db *client.Database) error {
				for _, path := range args {
					if err := importFile(cmd.Context(), db, path, quiet); err != nil {
						return err
					}
				}
				if watchDir == "" {
					return nil
				}
				return watchImports(cmd.Context(), db, watchDir, pattern, quiet)
			})
		},
	}

	cmd.Flags().StringVar(&watchDir, "watch", "", "archive files written to this directory until interrupted")
	cmd.Flags().StringVar(&pattern, "pattern", "*.yaml", "file name pattern for --watch")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the UUIDs")
	return cmd
}

func importFile(ctx context.Context, db *client.Database, path string, quiet bool) error {
	meta, content, err := readDump(path)
	if err != nil {
		return err
	}
	entry, err := db.StoreFile(ctx, meta, content)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if quiet {
		fmt.Fprintln(ui.Output(), entry.UUID)
		return nil
	}
	ui.PrintSuccess("%s stored as %s (%s)", path, entry.UUID, entry.Source)
	return nil
}

func watchImports(ctx context.Context, db *client.Database, dir, pattern string, quiet bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watch.NewWatcher(dir, pattern, func(path string) error {
		if !quiet {
			ui.ColorPrint(ui.Faint, "%s ", time.Now().Format("15:04:05"))
		}
		err := importFile(ctx, db, path, quiet)
		if dberr.IsDuplicate(err) {
			ui.PrintWarning("%v", err)
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	w.Start()
	ui.PrintInfo("Watching %s for %s, press Ctrl+C to stop", ui.Highlight.Sprint(dir), pattern)
	debug.Info("watching", "dir", dir, "pattern", pattern)

	<-ctx.Done()
	return w.Stop()
}
