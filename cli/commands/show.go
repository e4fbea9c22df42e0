package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/baltrad/bdb-go/cli/internal/ui"
	"github.com/baltrad/bdb-go/oh5"
	"github.com/baltrad/bdb-go/runtime/client"
	"github.com/baltrad/bdb-go/runtime/types"
)

func newShowCommand(a *app) *cobra.Command {
	var (
		content bool
		asYAML  bool
	)

	cmd := &cobra.Command{
		Use:   "show UUID",
		Short: "Show an archived file",
		Long: `Show the entry of an archived file and its attribute tree. --yaml
prints the tree as a metadata dump, --content prints the stored bytes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if content && asYAML {
				return fmt.Errorf("--content and --yaml are exclusive")
			}
			return a.withDatabase(cmd.Context(), func(db *client.Database) error {
				if content {
					data, err := db.FileContent(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					_, err = ui.Output().Write(data)
					return err
				}

				entry, err := db.FileEntry(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				tree, err := db.Tree(cmd.Context(), entry)
				if err != nil {
					return err
				}
				if err := tree.LoadAll(cmd.Context()); err != nil {
					return err
				}
				meta := tree.Metadata()

				if asYAML {
					out, err := meta.EncodeYAML()
					if err != nil {
						return err
					}
					_, err = ui.Output().Write(out)
					return err
				}

				ui.PrintSection("File " + entry.UUID)
				ui.PrintKeyValues([][2]string{
					{"Object", entry.Object},
					{"Date", entry.Date.String()},
					{"Time", entry.Time.String()},
					{"Nominal", types.Combine(entry.Date, entry.Time).Format(time.RFC3339)},
					{"Source", entry.Source},
					{"What source", entry.WhatSource},
					{"Hash", entry.Hash},
					{"Size", strconv.FormatInt(entry.Size, 10)},
					{"Stored at", entry.StoredAt.Format(types.DateTimeLayout)},
				})
				return ui.PrintTable([]string{"PATH", "KIND", "VALUE"}, treeRows(meta))
			})
		},
	}

	cmd.Flags().BoolVar(&content, "content", false, "print the stored file content")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the attribute tree as YAML")
	return cmd
}

func treeRows(meta *oh5.Metadata) [][]string {
	var rows [][]string
	_ = meta.Walk(func(h oh5.Handle, n oh5.Node) error {
		value := ""
		if n.Kind == oh5.Attribute {
			value = n.Value.ToString()
		}
		rows = append(rows, []string{meta.Path(h), n.Kind.String(), value})
		return nil
	})
	return rows
}
