package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bwplan/internal/store"
)

// storeOptions holds flags shared by the store subcommands.
type storeOptions struct {
	backend string
}

func newStoreCmd(g *globalOptions) *cobra.Command {
	opts := &storeOptions{}

	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Archive plans by plan id",
		Long: `Archive encoded plans by plan id.

The file backend keeps each plan as its wire text under ~/.bwplan/plans; the
sqlite backend keeps them in ~/.bwplan/archive.db. Every read verifies the
plan against the digest recorded when it was archived.`,
	}
	storeCmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "Store backend: file or sqlite (default from BWPLAN_STORE_BACKEND)")

	storeCmd.AddCommand(
		newStorePutCmd(g, opts),
		newStoreLsCmd(g, opts),
		newStoreGetCmd(g, opts),
		newStoreRmCmd(g, opts),
	)
	return storeCmd
}

// withStore opens the selected backend for the duration of fn.
func withStore(a *app, opts *storeOptions, fn func(store.Store) error) error {
	s, err := a.openStore(opts.backend)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(s)
}

func newStorePutCmd(g *globalOptions, opts *storeOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "put <plan-file>...",
		Short:   "Archive plan files",
		Example: `  bwplan store put cache_plan.json swap_plan.json`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			records := make([]store.Record, 0, len(args))
			err = withStore(a, opts, func(s store.Store) error {
				for _, path := range args {
					doc, err := loadPlan(a, path)
					if err != nil {
						return err
					}
					rec, err := s.Put(cmd.Context(), doc)
					if err != nil {
						return fmt.Errorf("failed to archive %s: %w", path, err)
					}
					records = append(records, rec)
				}
				return nil
			})
			if err != nil {
				return err
			}

			if g.json {
				return a.out.JSON(records)
			}
			for _, rec := range records {
				a.out.Success(fmt.Sprintf("Archived %s plan %s", rec.Family, rec.PlanID))
				a.out.LabelValue("Digest", string(rec.Digest))
			}
			return nil
		},
	}
}
