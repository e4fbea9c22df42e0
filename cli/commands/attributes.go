package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baltrad/bdb-go/cli/internal/ui"
	"github.com/baltrad/bdb-go/query/resolver"
)

func newAttributesCommand(a *app) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "attributes",
		Short: "List the attributes stored in dedicated columns",
		Long: `List the attribute names the query language resolves to dedicated
columns. Any other path is looked up in the generic attribute tables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := mappingsMarkdown(resolver.DefaultMappings())
			if plain {
				_, err := fmt.Fprint(ui.Output(), doc)
				return err
			}
			return ui.PrintMarkdown(doc)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print raw markdown")
	return cmd
}

func mappingsMarkdown(t *resolver.MappingTable) string {
	var b strings.Builder
	b.WriteString("# Attributes\n\n")
	b.WriteString("| Name | Type | Column |\n")
	b.WriteString("|------|------|--------|\n")
	for _, m := range t.All() {
		fmt.Fprintf(&b, "| `%s` | %s | %s.%s |\n", m.Name, m.Type, m.Table, m.Column)
	}
	return b.String()
}
