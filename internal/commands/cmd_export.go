package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskflow/internal/core/state"
	"github.com/colonyops/taskflow/internal/data/stores"
)

type ExportCmd struct {
	flags  *Flags
	output string
}

// NewExportCmd creates a new export command.
func NewExportCmd(flags *Flags) *ExportCmd {
	return &ExportCmd{flags: flags}
}

// Register adds the export command to the application.
func (cmd *ExportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "export",
		Usage:       "Export all data to a JSON file",
		UsageText:   "taskflow export [options]",
		Description: "Writes the full application state, tasks, projects, timer, and connection settings included, to a dated JSON file.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output file path (defaults to taskflow-export-<date>.json)",
				Destination: &cmd.output,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ExportCmd) run(ctx context.Context, c *cli.Command) error {
	snap := stores.NewSnapshotStore(cmd.flags.Config.DataDir)
	st, found, err := snap.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !found {
		st = state.Default(time.Now())
	}

	data, err := stores.Export(st)
	if err != nil {
		return err
	}

	out := cmd.output
	if out == "" {
		out = stores.ExportFilename(time.Now())
	}

	if err := os.WriteFile(out, data, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	fmt.Fprintf(c.Root().Writer, "Exported %d bytes to %s\n", len(data), out)
	return nil
}
