package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reflexhq/reflex/internal/action"
	"github.com/reflexhq/reflex/internal/engine"
	"github.com/reflexhq/reflex/internal/playbook"
)

// playbookSaver is the slice of the store importPlaybooks needs.
type playbookSaver interface {
	SavePlaybook(ctx context.Context, pb playbook.Playbook, now time.Time) error
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database     string
	PlaybooksDir string

	// Backends allows overriding the action backends (for testing).
	// If nil, defaults to log-backed backends plus the HTTP webhook caller.
	Backends *action.Backends
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the playbook engine",
		Long: `Start the playbook engine.

The engine loads playbook definitions from the database (seeding builtins
on first run) and optionally from a directory of CUE files, then reads
activity events as JSON lines from stdin. A minute ticker drives cron
triggers, so the engine is useful even with no event feed attached.

Example:
  reflex run --db ./reflex.db
  reflex run --db ./reflex.db --playbooks ./playbooks --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.PlaybooksDir, "playbooks", "", "directory of CUE playbook definitions")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := loadConfig(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	if opts.PlaybooksDir != "" {
		cfg.PlaybooksDir = opts.PlaybooksDir
	}

	loc, err := cfg.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve timezone", err)
	}
	clock := engine.SystemClock{Location: loc}

	// Open database (create if not exists)
	slog.Info("opening database", "path", cfg.Database, "tenant", cfg.Tenant)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// Reconcile records orphaned by a previous crash before anything runs.
	if err := engine.SweepStale(cmd.Context(), st, clock.Now(), cfg.StaleGrace); err != nil {
		return WrapExitError(ExitCommandError, "failed to sweep stale executions", err)
	}

	// Builtins are seeded disabled; users opt in with the enable command.
	if err := st.SeedBuiltins(cmd.Context(), playbook.Builtins(), clock.Now()); err != nil {
		return WrapExitError(ExitCommandError, "failed to seed builtin playbooks", err)
	}

	// CUE-defined playbooks are upserted into the store, so the database
	// remains the single definition source the engine loads from.
	if cfg.PlaybooksDir != "" {
		if err := importPlaybooks(cmd.Context(), st, cfg.PlaybooksDir, clock.Now()); err != nil {
			return err
		}
	}

	defs, err := st.ListEnabled(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load playbooks", err)
	}
	slog.Info("playbooks loaded", "enabled", len(defs))

	backends := action.Defaults(cfg.WebhookTimeout)
	if opts.Backends != nil {
		backends = *opts.Backends
	}

	eng := engine.New(
		engine.NewRecorder(st),
		engine.NewExecutor(backends),
		defs,
		engine.WithClock(clock),
	)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	// Minute ticker for cron triggers.
	go eng.RunTicker(ctx)

	// Event feed: one JSON event per stdin line. EOF just ends the feed;
	// the ticker keeps time triggers alive.
	go feedEvents(ctx, eng, cmd, clock)

	fmt.Fprintln(cmd.OutOrStdout(), "Engine started. Reading events from stdin...")
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	slog.Info("engine stopped gracefully")
	return nil
}

// importPlaybooks loads CUE definitions and upserts them into the store.
func importPlaybooks(ctx context.Context, st playbookSaver, dir string, now time.Time) error {
	loadResult, loadErrors := LoadPlaybooks(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to load playbook definitions", loadErrors[0])
	}

	for _, w := range loadResult.Warnings {
		slog.Warn("playbook lint", "finding", w)
	}

	for _, pb := range loadResult.Playbooks {
		if err := st.SavePlaybook(ctx, pb, now); err != nil {
			return WrapExitError(ExitCommandError, "failed to store playbook "+pb.ID, err)
		}
	}

	slog.Info("playbook definitions imported", "count", len(loadResult.Playbooks), "dir", dir)
	return nil
}

// feedEvents reads JSON events line by line and enqueues them.
// Malformed lines are logged and skipped; the feed never stops the engine.
func feedEvents(ctx context.Context, eng *engine.Engine, cmd *cobra.Command, clock engine.Clock) {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		ev, err := engine.ParseEvent(line, clock.Now())
		if err != nil {
			slog.Warn("skipping malformed event", "error", err)
			continue
		}
		if !eng.Enqueue(ev) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		slog.Error("event feed read failed", "error", err)
	}
}
