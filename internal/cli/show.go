package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bwplan/internal/plan"
	"github.com/danieljhkim/bwplan/internal/wire"
)

// kindBreakdown totals the ops of one transfer kind.
type kindBreakdown struct {
	Kind  plan.TransferKind `json:"kind"`
	Ops   int               `json:"ops"`
	Bytes int64             `json:"bytes"`
}

// breakdown groups ops by kind in declaration order, skipping absent kinds.
func breakdown(ops []plan.TransferOp) []kindBreakdown {
	byKind := make(map[plan.TransferKind]*kindBreakdown)
	for _, op := range ops {
		b, ok := byKind[op.Kind]
		if !ok {
			b = &kindBreakdown{Kind: op.Kind}
			byKind[op.Kind] = b
		}
		b.Ops++
		b.Bytes += op.Length
	}

	out := make([]kindBreakdown, 0, len(byKind))
	for _, k := range plan.Kinds() {
		if b, ok := byKind[k]; ok {
			out = append(out, *b)
		}
	}
	return out
}

// loadPlan reads and decodes a plan file of either family.
func loadPlan(a *app, path string) (wire.Document, error) {
	doc, err := wire.Load(a.fs, path)
	if err != nil {
		return wire.Document{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return doc, nil
}

func newShowCmd(g *globalOptions) *cobra.Command {
	var showOps bool

	cmd := &cobra.Command{
		Use:   "show <plan-file>",
		Short: "Summarize a transfer plan",
		Long: `Display a summary of a cache or swap plan: op counts and bytes per transfer
kind, page lists for cache plans, versions and window for swap plans.`,
		Example: `  bwplan show cache_plan.json
  bwplan show swap_plan.json --ops`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			doc, err := loadPlan(a, args[0])
			if err != nil {
				return err
			}

			if g.json {
				return a.out.JSON(summarize(doc))
			}
			printSummary(a.out, doc)
			if showOps {
				printOps(a.out, doc)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showOps, "ops", false, "List every op")
	return cmd
}

func printSummary(p *printer, doc wire.Document) {
	s := summarize(doc)

	p.Section(fmt.Sprintf("%s plan %s", doc.Family, s.PlanID))
	p.LabelValue("Ops", formatCount(s.Ops, "op", "ops"))
	p.LabelValue("Bytes", formatBytes(s.TotalBytes))

	switch doc.Family {
	case wire.FamilyCache:
		p.LabelValue("Prefetch", formatCount(*s.Prefetch, "page", "pages"))
		p.LabelValue("Evict", formatCount(*s.Evict, "page", "pages"))
	case wire.FamilySwap:
		sw := doc.Swap
		p.LabelValue("From", fmt.Sprintf("%s@%s (%s)", sw.From.ModelID, sw.From.Version, formatCount(len(sw.From.Files), "chunk", "chunks")))
		p.LabelValue("To", fmt.Sprintf("%s@%s (%s)", sw.To.ModelID, sw.To.Version, formatCount(len(sw.To.Files), "chunk", "chunks")))
		p.LabelValue("Window", sw.Window.Budget().String())
		if err := sw.Window.Validate(); err != nil {
			p.Warning("deadline precedes window start")
		}
	}

	if len(s.Kinds) == 0 {
		return
	}
	p.Section("By Kind")
	rows := make([][]string, 0, len(s.Kinds))
	for _, k := range s.Kinds {
		rows = append(rows, []string{k.Kind.String(), strconv.Itoa(k.Ops), formatBytes(k.Bytes)})
	}
	p.Table([]string{"Kind", "Ops", "Bytes"}, rows)
}

func printOps(p *printer, doc wire.Document) {
	ops := doc.Cache.Ops
	if doc.Family == wire.FamilySwap {
		ops = doc.Swap.Ops
	}

	p.Section("Ops")
	if len(ops) == 0 {
		p.EmptyState("No ops")
		return
	}
	rows := make([][]string, 0, len(ops))
	for i, op := range ops {
		rows = append(rows, []string{
			strconv.Itoa(i),
			op.Kind.String(),
			op.Src,
			op.Dst,
			strconv.FormatInt(op.Length, 10),
			strconv.Itoa(len(op.KvRefs)),
			op.NoteText(),
		})
	}
	p.Table([]string{"#", "Kind", "Src", "Dst", "Length", "Pages", "Note"}, rows)
}
