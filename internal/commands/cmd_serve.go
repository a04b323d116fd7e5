package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskflow/internal/core/state"
	"github.com/colonyops/taskflow/internal/core/sweep"
	"github.com/colonyops/taskflow/internal/core/timer"
	"github.com/colonyops/taskflow/internal/data/db"
	"github.com/colonyops/taskflow/internal/data/stores"
	"github.com/colonyops/taskflow/internal/sync/github"
	"github.com/colonyops/taskflow/internal/taskflow"
	"github.com/colonyops/taskflow/internal/web"
)

// journalRetention is how long sync journal entries are kept.
const journalRetention = 90 * 24 * time.Hour

type ServeCmd struct {
	flags *Flags
	addr  string
}

// NewServeCmd creates a new serve command.
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application.
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "serve",
		Usage:       "Run the taskflow API server",
		UsageText:   "taskflow serve [options]",
		Description: "Starts the state engine and serves the HTTP API: timer ticks, the overdue sweep, debounced snapshot persistence, and background GitHub sync all run until interrupted.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (overrides config)",
				Destination: &cmd.addr,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap := stores.NewSnapshotStore(cfg.DataDir)
	st, found, err := snap.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !found {
		st = state.Default(time.Now())
	}
	store := state.NewStore(st)

	debouncer := stores.NewDebouncer(snap, cfg.Persist.Debounce)
	store.OnCommit(debouncer.Notify)
	defer debouncer.Close()

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	journal := stores.NewJournalStore(database)
	if n, err := journal.Prune(ctx, time.Now().Add(-journalRetention)); err != nil {
		log.Warn().Err(err).Msg("journal prune failed")
	} else if n > 0 {
		log.Debug().Int64("pruned", n).Msg("journal pruned")
	}

	syncer := github.NewSyncer(store, journal, cfg.Sync, nil)

	engine := timer.New(store, nil)
	go engine.Run(ctx)
	go sweep.Start(ctx, store, cfg.Sweep.Interval, time.Now)

	if cfg.Persist.WatchSnapshot {
		watcher, err := stores.NewSnapshotWatcher(snap.Path())
		if err != nil {
			log.Warn().Err(err).Msg("snapshot watcher unavailable")
		} else {
			defer func() { _ = watcher.Close() }()
			go cmd.reloadOnChange(ctx, watcher, snap, store)
		}
	}

	svc := taskflow.NewService(store, engine, syncer, nil)
	server := web.NewServer(svc, syncer, journal)

	addr := cfg.Server.Addr
	if cmd.addr != "" {
		addr = cmd.addr
	}

	log.Info().Str("addr", addr).Str("data_dir", cfg.DataDir).Msg("taskflow serving")

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return nil
	}
}

// reloadOnChange replaces in-memory state when another process rewrites the
// snapshot. Our own debounced writes come back through the watcher too; the
// equality check keeps them from ping-ponging into an endless reload/save
// cycle.
func (cmd *ServeCmd) reloadOnChange(ctx context.Context, watcher *stores.SnapshotWatcher, snap *stores.SnapshotStore, store *state.Store) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-watcher.Events():
			if !ok {
				return
			}

			st, found, err := snap.Load()
			if err != nil || !found {
				continue
			}
			if reflect.DeepEqual(st, store.State()) {
				continue
			}

			store.Dispatch(state.LoadState{State: st})
			log.Info().Msg("snapshot changed on disk, state reloaded")
		}
	}
}
