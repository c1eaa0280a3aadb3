package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bwplan/internal/store"
)

func newStoreLsCmd(g *globalOptions, opts *storeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List archived plans",
		Long:  `Display all archived plans, oldest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			var records []store.Record
			err = withStore(a, opts, func(s store.Store) error {
				records, err = s.List(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}

			if g.json {
				if records == nil {
					records = []store.Record{}
				}
				return a.out.JSON(records)
			}

			if len(records) == 0 {
				a.out.Section("Plans")
				a.out.EmptyState("No plans archived")
				return nil
			}

			a.out.Section("Archived Plans")
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.PlanID,
					string(rec.Family),
					strconv.Itoa(rec.Ops),
					formatBytes(rec.TotalBytes),
					rec.CreatedAt.Format(time.RFC3339),
				})
			}
			a.out.Table([]string{"Plan", "Family", "Ops", "Bytes", "Archived"}, rows)
			return nil
		},
	}
}
