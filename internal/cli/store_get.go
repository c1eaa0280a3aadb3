package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bwplan/internal/store"
	"github.com/danieljhkim/bwplan/internal/wire"
)

func newStoreGetCmd(g *globalOptions, opts *storeOptions) *cobra.Command {
	var (
		out      string
		describe bool
	)

	cmd := &cobra.Command{
		Use:   "get <plan-id>",
		Short: "Retrieve an archived plan",
		Long: `Print an archived plan as wire text, or write it to --out.

With --describe the archive record is shown instead of the plan.`,
		Example: `  bwplan store get swap-2 -o swap_plan.json
  bwplan store get cache-1735689600123 --describe`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			var (
				doc wire.Document
				rec store.Record
			)
			err = withStore(a, opts, func(s store.Store) error {
				doc, rec, err = s.Get(cmd.Context(), args[0])
				return err
			})
			if err != nil {
				return err
			}

			if describe {
				if g.json {
					return a.out.JSON(rec)
				}
				printRecord(a.out, rec)
				return nil
			}

			if err := a.emit(doc, out); err != nil {
				return err
			}
			if out != "" && !g.json {
				a.out.Success(fmt.Sprintf("Wrote %s plan %s to %s", doc.Family, doc.PlanID(), out))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the plan to this file instead of stdout")
	cmd.Flags().BoolVar(&describe, "describe", false, "Show the archive record instead of the plan")
	return cmd
}

func printRecord(p *printer, rec store.Record) {
	p.Section(fmt.Sprintf("Plan %s", rec.PlanID))
	p.LabelValue("ID", rec.ID)
	p.LabelValue("Family", string(rec.Family))
	p.LabelValue("Schema", rec.SchemaVersion)
	p.LabelValue("Digest", string(rec.Digest))
	p.LabelValue("Size", formatBytes(rec.Size))
	p.LabelValue("Ops", formatCount(rec.Ops, "op", "ops"))
	p.LabelValue("Bytes", formatBytes(rec.TotalBytes))
	p.LabelValue("Archived", rec.CreatedAt.Format("2006-01-02 15:04:05 MST"))
}
