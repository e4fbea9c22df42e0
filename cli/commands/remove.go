package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/baltrad/bdb-go/cli/internal/ui"
	"github.com/baltrad/bdb-go/runtime/client"
)

func newRemoveCommand(a *app) *cobra.Command {
	var (
		all bool
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "remove [UUID...]",
		Short: "Remove archived files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("pass file UUIDs or --all")
			}
			if !yes {
				what := fmt.Sprintf("Remove %d file(s)?", len(args))
				if all {
					what = "Remove every archived file?"
				}
				ok := false
				if err := survey.AskOne(&survey.Confirm{Message: what}, &ok); err != nil {
					return err
				}
				if !ok {
					ui.PrintInfo("Nothing removed")
					return nil
				}
			}

			return a.withDatabase(cmd.Context(), func(db *client.Database) error {
				if all {
					n, err := db.RemoveAllFiles(cmd.Context())
					if err != nil {
						return err
					}
					ui.PrintSuccess("Removed %d file(s)", n)
					return nil
				}
				for _, id := range args {
					removed, err := db.RemoveFile(cmd.Context(), id)
					if err != nil {
						return err
					}
					if removed {
						ui.PrintSuccess("Removed %s", id)
					} else {
						ui.PrintWarning("No file %s", id)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "remove every archived file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
