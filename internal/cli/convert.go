package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bwplan/internal/convert"
	"github.com/danieljhkim/bwplan/internal/store"
	"github.com/danieljhkim/bwplan/internal/wire"
)

type outputOptions struct {
	out     string
	archive bool
	backend string
}

func (o *outputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Write the plan to this file instead of stdout")
	cmd.Flags().BoolVar(&o.archive, "archive", false, "Also archive the plan in the plan store")
	cmd.Flags().StringVar(&o.backend, "backend", "", "Archive backend: file or sqlite (default from BWPLAN_STORE_BACKEND)")
}

func newConvertCmd(g *globalOptions) *cobra.Command {
	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert planner output into a transfer plan",
		Long:  `Convert the tabular output of an external planner into a canonical transfer plan.`,
	}
	convertCmd.AddCommand(newConvertCacheCmd(g), newConvertSwapCmd(g))
	return convertCmd
}

func newConvertCacheCmd(g *globalOptions) *cobra.Command {
	var (
		rowsPath       string
		admissionsPath string
		evictionsPath  string
		planID         string
		output         outputOptions
	)

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Build a cache plan from cache planner rows",
		Long: `Build a cache plan from the rows of one scheduling window.

--rows holds the proposed tier transfers; --admissions and --evictions hold the
page streams that become the plan's prefetch and evict lists. Each file is a
JSON array of records; missing columns take their defaults.`,
		Example: `  bwplan convert cache --rows plan.json --admissions adm.json --evictions ev.json -o cache_plan.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			rows, err := readInput(a, rowsPath, convert.ReadPlanRows)
			if err != nil {
				return err
			}
			admissions, err := readInput(a, admissionsPath, convert.ReadPageRows)
			if err != nil {
				return err
			}
			evictions, err := readInput(a, evictionsPath, convert.ReadPageRows)
			if err != nil {
				return err
			}

			p, err := convert.NewCacheConverter(a.convertOptions()).Convert(planID, rows, admissions, evictions)
			if err != nil {
				return fmt.Errorf("failed to convert cache plan: %w", err)
			}
			return finishConvert(cmd.Context(), a, g, wire.CacheDocument(p), output)
		},
	}
	cmd.Flags().StringVar(&rowsPath, "rows", "", "Cache planner rows (JSON array)")
	cmd.Flags().StringVar(&admissionsPath, "admissions", "", "Admission page rows (JSON array)")
	cmd.Flags().StringVar(&evictionsPath, "evictions", "", "Eviction page rows (JSON array)")
	cmd.Flags().StringVar(&planID, "plan-id", "", "Plan id (default cache-<unix ms>)")
	_ = cmd.MarkFlagRequired("rows")
	output.bind(cmd)
	return cmd
}

func newConvertSwapCmd(g *globalOptions) *cobra.Command {
	var (
		fromPath    string
		toPath      string
		bucketsPath string
		deadlineNs  int64
		output      outputOptions
	)

	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Build a swap plan from checkpoint manifests and buckets",
		Long: `Build a swap plan from two raw checkpoint manifests and the differ's buckets.

Every bucket item becomes one storage-to-host op staged at device://bucket/<id>.
The plan id is swap-<target version>; the window starts now and ends at
--deadline-ns, or after BWPLAN_SWAP_GRACE when no deadline is given.`,
		Example: `  bwplan convert swap --from prev.json --to next.json --buckets buckets.json -o swap_plan.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			from, err := readManifest(a, fromPath)
			if err != nil {
				return err
			}
			to, err := readManifest(a, toPath)
			if err != nil {
				return err
			}
			buckets, err := readInput(a, bucketsPath, convert.ReadBuckets)
			if err != nil {
				return err
			}

			var deadline *int64
			if cmd.Flags().Changed("deadline-ns") {
				deadline = &deadlineNs
			}

			p, err := convert.NewSwapConverter(a.convertOptions()).Convert(from, to, buckets, deadline)
			if err != nil {
				return fmt.Errorf("failed to convert swap plan: %w", err)
			}
			if err := p.Window.Validate(); err != nil {
				a.logger.Warn("swap window deadline precedes start", "plan_id", p.PlanID)
			}
			return finishConvert(cmd.Context(), a, g, wire.SwapDocument(p), output)
		},
	}
	cmd.Flags().StringVar(&fromPath, "from", "", "Raw manifest of the current version (JSON)")
	cmd.Flags().StringVar(&toPath, "to", "", "Raw manifest of the incoming version (JSON)")
	cmd.Flags().StringVar(&bucketsPath, "buckets", "", "Differ buckets (JSON array or {\"buckets\": [...]})")
	cmd.Flags().Int64Var(&deadlineNs, "deadline-ns", 0, "Window deadline in unix nanoseconds")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("buckets")
	output.bind(cmd)
	return cmd
}

// readInput decodes an optional input file; an empty path yields no rows.
func readInput[T any](a *app, path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	if path == "" {
		return []T{}, nil
	}
	r, err := a.readFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// readManifest decodes an optional raw manifest; an empty path yields an
// empty manifest.
func readManifest(a *app, path string) (convert.RawManifest, error) {
	if path == "" {
		return convert.RawManifest{}, nil
	}
	r, err := a.readFile(path)
	if err != nil {
		return convert.RawManifest{}, err
	}
	m, err := convert.ReadRawManifest(r)
	if err != nil {
		return convert.RawManifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// finishConvert archives the plan when asked, then writes it to the output
// file with a summary, or to stdout as wire text.
func finishConvert(ctx context.Context, a *app, g *globalOptions, doc wire.Document, o outputOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var rec *store.Record
	if o.archive {
		s, err := a.openStore(o.backend)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		r, err := s.Put(ctx, doc)
		if err != nil {
			return fmt.Errorf("failed to archive plan: %w", err)
		}
		rec = &r
	}

	// Without --out the plan text itself is the output.
	if o.out == "" {
		return a.emit(doc, "")
	}
	if err := a.emit(doc, o.out); err != nil {
		return err
	}

	if g.json {
		summary := summarize(doc)
		summary.Path = o.out
		summary.Archived = rec
		return a.out.JSON(summary)
	}

	a.out.Success(fmt.Sprintf("Wrote %s plan %s to %s", doc.Family, doc.PlanID(), o.out))
	a.out.LabelValue("Ops", formatCount(doc.OpCount(), "op", "ops"))
	a.out.LabelValue("Bytes", formatBytes(doc.TotalBytes()))
	if rec != nil {
		a.out.LabelValue("Archived", string(rec.Digest))
	}
	return nil
}
