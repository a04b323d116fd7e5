package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskflow/internal/core/state"
	"github.com/colonyops/taskflow/internal/core/task"
	"github.com/colonyops/taskflow/internal/data/stores"
)

type ImportCmd struct {
	flags *Flags
}

// NewImportCmd creates a new import command.
func NewImportCmd(flags *Flags) *ImportCmd {
	return &ImportCmd{flags: flags}
}

// Register adds the import command to the application.
func (cmd *ImportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "import",
		Usage:       "Import tasks and projects from an export file",
		UsageText:   "taskflow import <file>",
		Description: "Replaces the task and project collections from a previously exported JSON file. The file must contain both collections or it is rejected wholesale; timer and connection state are untouched.",
		Action:      cmd.run,
	})

	return app
}

func (cmd *ImportCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	payload, err := stores.ParseImport(data)
	if err != nil {
		return err
	}

	snap := stores.NewSnapshotStore(cmd.flags.Config.DataDir)
	st, found, err := snap.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !found {
		st = state.Default(time.Now())
	}

	store := state.NewStore(st)
	store.Dispatch(state.ImportData{Tasks: payload.Tasks, Projects: payload.Projects})

	if err := snap.Save(store.State()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	fmt.Fprintf(c.Root().Writer, "Imported %d tasks and %d projects from %s\n",
		task.Count(payload.Tasks), len(payload.Projects), path)
	return nil
}
