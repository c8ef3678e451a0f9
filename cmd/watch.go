package cmd

import (
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <file-or-@alias>",
	Short: "Re-run a check whenever the log file changes",
	Long: `Run a check continuously, re-evaluating it whenever the log file is
written, created, or rotated. Each run resumes from the position the previous
one persisted, exactly as repeated 'check' invocations would, so this is the
fastest way to tune patterns and thresholds against live traffic.

The result of every run is printed as a styled line instead of the
plugin-protocol output, and the process exit code is not a check state.
Stop with Ctrl-C.

Examples:
  checklog watch /var/log/app.log -p ERROR -w 1
  checklog watch @app-errors`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "Minimum delay between re-runs")
	// Watch shares the full check flag set.
	watchCmd.Flags().AddFlagSet(checkCmd.Flags())
}

func runWatch(cmd *cobra.Command, args []string) error {
	spec, err := resolveSpec(cmd, args[0])
	if err != nil {
		return err
	}
	plan, err := buildPlan(spec)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: rotation replaces the inode and a
	// directory watch survives it. The file may not exist yet either.
	dir := filepath.Dir(spec.File)
	if spec.GlobSuffix == "" {
		if resolved, err := plan.ref.Resolve(); err == nil {
			dir = filepath.Dir(resolved)
		}
	}
	if err := watcher.Add(dir); err != nil {
		return err
	}
	render.Status("watching %s (Ctrl-C to stop)", dir)

	runOnce := func() {
		out := executeCheck(ctx, plan)
		line := out.Message
		if out.Summary != nil {
			line += " (" + out.Summary.File + ")"
		}
		render.StateLine(out.State.String(), line)
	}

	runOnce()

	// Debounce: log writers emit bursts of events; coalesce them and re-run
	// at most once per interval.
	var timer *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			render.Status("stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchInterval)
				pending = timer.C
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			render.Warning("watch: %v", err)
		case <-pending:
			timer = nil
			pending = nil
			runOnce()
		}
	}
}
