package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskflow/internal/core/state"
	"github.com/colonyops/taskflow/internal/data/db"
	"github.com/colonyops/taskflow/internal/data/stores"
	"github.com/colonyops/taskflow/internal/sync/github"
)

type SyncCmd struct {
	flags   *Flags
	history bool
	limit   int
}

// NewSyncCmd creates a new sync command.
func NewSyncCmd(flags *Flags) *SyncCmd {
	return &SyncCmd{flags: flags}
}

// Register adds the sync command to the application.
func (cmd *SyncCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "sync",
		Usage:       "Upload the local snapshot to the connected repository",
		UsageText:   "taskflow sync [options]",
		Description: "Pushes the current state to the selected GitHub repository as a one-shot upload. Requires a prior connect and repository selection.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "history",
				Usage:       "show recent sync attempts instead of uploading",
				Destination: &cmd.history,
			},
			&cli.IntFlag{
				Name:        "limit",
				Usage:       "number of history entries to show",
				Value:       20,
				Destination: &cmd.limit,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SyncCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	journal := stores.NewJournalStore(database)

	if cmd.history {
		return cmd.showHistory(ctx, c, journal)
	}

	snap := stores.NewSnapshotStore(cfg.DataDir)
	st, found, err := snap.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !found {
		return fmt.Errorf("no local data to sync")
	}

	store := state.NewStore(st)
	syncer := github.NewSyncer(store, journal, cfg.Sync, func(msg string) {
		fmt.Fprintln(c.Root().Writer, msg)
	})

	if err := syncer.Upload(ctx, true); err != nil {
		return err
	}

	// LastSync landed in state; persist it.
	return snap.Save(store.State())
}

func (cmd *SyncCmd) showHistory(ctx context.Context, c *cli.Command, journal *stores.JournalStore) error {
	entries, err := journal.List(ctx, cmd.limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.Root().Writer, "No sync attempts recorded")
		return nil
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %-8s %-12s %s",
			e.CreatedAt.Format(time.DateTime), e.Kind, e.Outcome, e.Repo)
		if e.Detail != "" {
			line += "  (" + e.Detail + ")"
		}
		fmt.Fprintln(c.Root().Writer, line)
	}
	return nil
}
