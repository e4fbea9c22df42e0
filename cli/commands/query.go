package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baltrad/bdb-go/cli/internal/ui"
	"github.com/baltrad/bdb-go/query/builder"
	"github.com/baltrad/bdb-go/query/parse"
	"github.com/baltrad/bdb-go/runtime/client"
)

func addQueryFlags(cmd *cobra.Command, o *queryOptions) {
	cmd.Flags().StringVarP(&o.filter, "filter", "f", "", `filter expression, e.g. "what/object = 'PVOL' and where/elangle > 0.5"`)
	cmd.Flags().StringArrayVar(&o.order, "order", nil, `order term, e.g. "what/date desc" (repeatable)`)
	cmd.Flags().Int64Var(&o.limit, "limit", 0, "maximum number of rows")
	cmd.Flags().Int64Var(&o.offset, "offset", 0, "rows to skip")
}

func newQueryFileCommand(a *app) *cobra.Command {
	var (
		opts     queryOptions
		uuidOnly bool
	)

	cmd := &cobra.Command{
		Use:   "query-file",
		Short: "List archived files matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := fileQuery(parse.New(nil), &opts)
			if err != nil {
				return err
			}
			return a.withDatabase(cmd.Context(), func(db *client.Database) error {
				entries, err := db.ExecuteFileQuery(cmd.Context(), q)
				if err != nil {
					return err
				}
				if uuidOnly {
					for _, e := range entries {
						fmt.Fprintln(ui.Output(), e.UUID)
					}
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, entryRow(e))
				}
				return ui.PrintTable(entryHeaders, rows)
			})
		},
	}

	addQueryFlags(cmd, &opts)
	cmd.Flags().BoolVar(&uuidOnly, "uuid-only", false, "print one UUID per line")
	return cmd
}

func newQueryAttrCommand(a *app) *cobra.Command {
	var (
		opts     queryOptions
		fetch    []string
		group    []string
		distinct bool
		plain    bool
	)

	cmd := &cobra.Command{
		Use:   "query-attr",
		Short: "Fetch attribute values across archived files",
		Long: `Fetch labeled attribute values, optionally grouped and aggregated.

  bdb query-attr --fetch src=what/source:_name --fetch n="count(file:id)" --group what/source:_name`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := attributeQuery(parse.New(nil), &opts, fetch, group, distinct)
			if err != nil {
				return err
			}
			return a.withDatabase(cmd.Context(), func(db *client.Database) error {
				res, err := db.ExecuteAttributeQuery(cmd.Context(), q)
				if err != nil {
					return err
				}
				var rows [][]string
				for res.Next() {
					values, err := res.Row()
					if err != nil {
						return err
					}
					row := make([]string, len(values))
					for i, v := range values {
						row[i] = v.ToString()
					}
					rows = append(rows, row)
				}
				if plain {
					for _, row := range rows {
						fmt.Fprintln(ui.Output(), strings.Join(row, "\t"))
					}
					return nil
				}
				return ui.PrintTable(q.Labels(), rows)
			})
		},
	}

	addQueryFlags(cmd, &opts)
	cmd.Flags().StringArrayVar(&fetch, "fetch", nil, "LABEL=EXPR result column (repeatable, required)")
	cmd.Flags().StringArrayVar(&group, "group", nil, "group by expression (repeatable)")
	cmd.Flags().BoolVar(&distinct, "distinct", false, "drop duplicate rows")
	cmd.Flags().BoolVar(&plain, "plain", false, "print tab separated rows without a header")
	_ = cmd.MarkFlagRequired("fetch")
	return cmd
}

func attributeQuery(p *parse.Parser, o *queryOptions, fetch, group []string, distinct bool) (*builder.AttributeQuery, error) {
	q := builder.NewAttributeQuery()
	for _, f := range fetch {
		label, x, err := p.Fetch(f)
		if err != nil {
			return nil, err
		}
		q.Fetch(label, x)
	}
	if o.filter != "" {
		x, err := p.Filter(o.filter)
		if err != nil {
			return nil, err
		}
		q.Filter(x)
	}
	for _, g := range group {
		x, _, err := p.Order(g)
		if err != nil {
			return nil, err
		}
		q.GroupBy(x)
	}
	if err := o.orderTerms(p, func(t builder.OrderTerm) { q.OrderBy(t.Expr, t.Direction) }); err != nil {
		return nil, err
	}
	if o.limit > 0 {
		q.Limit(o.limit)
	}
	if o.offset > 0 {
		q.Offset(o.offset)
	}
	q.Distinct(distinct)
	return q, nil
}
