package commands

import (
	"github.com/spf13/cobra"

	"github.com/baltrad/bdb-go/cli/internal/config"
	"github.com/baltrad/bdb-go/cli/internal/ui"
	"github.com/baltrad/bdb-go/runtime/client"
)

func newInitCommand(a *app) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the archive tables",
		Long: `Create the archive tables in the configured database and record the
schema version. Running init on an initialized archive changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureSQLiteDir(a.cfg.DatabaseURL); err != nil {
				return err
			}
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.CreateSchema(cmd.Context()); err != nil {
				return err
			}
			ui.PrintSuccess("Archive schema %s ready at %s", client.SchemaVersion, a.cfg.DatabaseURL)

			if save {
				path, err := config.SaveConfig(a.cfg, "")
				if err != nil {
					return err
				}
				ui.PrintInfo("Configuration written to %s", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "write the effective configuration to ~/.config/bdb/.bdb.yaml")
	return cmd
}
