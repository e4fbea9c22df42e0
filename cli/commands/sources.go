package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/baltrad/bdb-go/cli/internal/ui"
	"github.com/baltrad/bdb-go/oh5"
	"github.com/baltrad/bdb-go/runtime/client"
)

func newSourcesCommand(a *app) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the known radar and product sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDatabase(cmd.Context(), func(db *client.Database) error {
				sources, err := db.Sources(cmd.Context())
				if err != nil {
					return err
				}
				if plain {
					for _, src := range sources {
						fmt.Fprintf(ui.Output(), "%s\t%s\n", src.Name, src)
					}
					return nil
				}
				rows := make([][]string, 0, len(sources))
				for _, src := range sources {
					rows = append(rows, []string{src.Name, src.String()})
				}
				return ui.PrintTable([]string{"NAME", "VALUES"}, rows)
			})
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print tab separated rows without a header")
	cmd.AddCommand(newRemoveSourceCommand(a))
	return cmd
}

func newAddSourceCommand(a *app) *cobra.Command {
	var update bool

	cmd := &cobra.Command{
		Use:   "add-source NAME KEY=VALUE...",
		Short: "Register a source",
		Long: `Register a source under NAME with its identifying ODIM keys, e.g.

  bdb add-source seang WMO=02606 RAD=SE50 PLC=Angelholm`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseKeyValues(args[1:])
			if err != nil {
				return err
			}
			src := oh5.Source{Name: args[0], Values: values}

			return a.withDatabase(cmd.Context(), func(db *client.Database) error {
				if update {
					if err := db.UpdateSource(cmd.Context(), src); err != nil {
						return err
					}
					ui.PrintSuccess("Updated source %s (%s)", src.Name, src)
					return nil
				}
				if _, err := db.AddSource(cmd.Context(), src); err != nil {
					return err
				}
				ui.PrintSuccess("Added source %s (%s)", src.Name, src)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "replace the values of an existing source")
	return cmd
}

func newRemoveSourceCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a source no file refers to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok := false
				if err := survey.AskOne(&survey.Confirm{Message: "Remove source " + args[0] + "?"}, &ok); err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			return a.withDatabase(cmd.Context(), func(db *client.Database) error {
				removed, err := db.RemoveSource(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					ui.PrintWarning("No source %s", args[0])
					return nil
				}
				ui.PrintSuccess("Removed source %s", args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
