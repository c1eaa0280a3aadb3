package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bwplan/internal/convert"
)

func newBucketsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "buckets <buckets-file>",
		Short: "Summarize checkpoint differ buckets",
		Long: `Print the id, item count and declared size of every bucket in a differ
output file. The file is a JSON array of buckets or an object with a
"buckets" array.`,
		Example: `  bwplan buckets buckets.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			buckets, err := readInput(a, args[0], convert.ReadBuckets)
			if err != nil {
				return err
			}

			stats := convert.BucketSummary(buckets)
			if g.json {
				return a.out.JSON(stats)
			}

			a.out.Section("Buckets")
			if len(stats) == 0 {
				a.out.EmptyState("No buckets")
				return nil
			}

			var items int
			var total int64
			rows := make([][]string, 0, len(stats))
			for _, s := range stats {
				items += s.Items
				total += s.Bytes
				rows = append(rows, []string{
					strconv.FormatInt(s.BucketID, 10),
					strconv.Itoa(s.Items),
					formatBytes(s.Bytes),
				})
			}
			a.out.Table([]string{"Bucket", "Items", "Size"}, rows)
			a.out.Section("Total")
			a.out.LabelValue("Buckets", formatCount(len(stats), "bucket", "buckets"))
			a.out.LabelValue("Items", formatCount(items, "item", "items"))
			a.out.LabelValue("Size", formatBytes(total))
			return nil
		},
	}
}
