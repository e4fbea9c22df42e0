package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baltrad/bdb-go/cli/internal/ui"
	"github.com/baltrad/bdb-go/cli/internal/version"
)

func newVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if short {
				fmt.Fprintln(ui.Output(), info.String())
				return nil
			}
			ui.PrintKeyValues(info.Pairs())
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print a single line")
	return cmd
}
