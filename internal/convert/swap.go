package convert

import (
	"fmt"
	"strings"

	"github.com/danieljhkim/bwplan/internal/clock"
	"github.com/danieljhkim/bwplan/internal/lenient"
	"github.com/danieljhkim/bwplan/internal/plan"
)

const fileScheme = "file://"

// BucketAddress returns the device staging address of a bucket.
func BucketAddress(bucketID int64) string {
	return fmt.Sprintf("device://bucket/%d", bucketID)
}

// SwapPlanID returns the id of a swap plan targeting version.
func SwapPlanID(version string) string {
	return "swap-" + version
}

// TranslateManifest flattens a raw manifest's tensors and shards into file
// chunks. Each shard becomes one whole-file chunk at offset 0; a file://
// prefix is stripped from its uri.
func TranslateManifest(raw RawManifest) (plan.WeightManifest, error) {
	var files []plan.FileChunk
	for _, tensor := range raw.Tensors {
		for i, shard := range tensor.Shards {
			path := strings.TrimPrefix(lenient.StringOr(shard.URI, ""), fileScheme)
			chunk, err := plan.NewFileChunk(path, 0, lenient.IntOr(shard.Bytes, 0), lenient.StringOr(shard.Hash, ""))
			if err != nil {
				return plan.WeightManifest{}, fmt.Errorf("tensor %q shard %d: %w", string(tensor.Name), i, err)
			}
			files = append(files, chunk)
		}
	}
	return plan.NewWeightManifest(
		lenient.StringOr(raw.ModelID, DefaultModelID),
		lenient.StringOr(raw.Version, DefaultVersion),
		files,
	), nil
}

// BucketStat summarizes one bucket.
type BucketStat struct {
	BucketID int64 `json:"bucket_id"`
	Items    int   `json:"items"`
	Bytes    int64 `json:"bytes"`
}

// BucketSummary reports id, item count and declared size per bucket.
func BucketSummary(buckets []Bucket) []BucketStat {
	out := make([]BucketStat, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, BucketStat{
			BucketID: lenient.IntOr(b.BucketID, 0),
			Items:    len(b.Items),
			Bytes:    lenient.IntOr(b.Size, 0),
		})
	}
	return out
}

// SwapConverter builds swap plans from checkpoint differ output.
type SwapConverter struct {
	opts Options
}

// NewSwapConverter creates a SwapConverter.
func NewSwapConverter(opts Options) *SwapConverter {
	return &SwapConverter{opts: opts.withDefaults()}
}

// Convert builds a SwapPlan moving every bucket item from storage into its
// bucket's staging address. The plan id is swap-<to version>. The window
// starts now; the deadline is deadlineNs when given, else start plus the
// configured grace.
func (c *SwapConverter) Convert(from, to RawManifest, buckets []Bucket, deadlineNs *int64) (plan.SwapPlan, error) {
	fromManifest, err := TranslateManifest(from)
	if err != nil {
		return plan.SwapPlan{}, fmt.Errorf("manifest %q: %w", lenient.StringOr(from.Version, DefaultVersion), err)
	}
	toManifest, err := TranslateManifest(to)
	if err != nil {
		return plan.SwapPlan{}, fmt.Errorf("manifest %q: %w", lenient.StringOr(to.Version, DefaultVersion), err)
	}

	startNs := clock.UnixNanos(c.opts.Clock)
	deadline := startNs + c.opts.Grace.Nanoseconds()
	if deadlineNs != nil {
		deadline = *deadlineNs
	}

	var ops []plan.TransferOp
	for bi, bucket := range buckets {
		bucketID := lenient.IntOr(bucket.BucketID, 0)
		for ii, item := range bucket.Items {
			op, err := c.convertItem(bucketID, item)
			if err != nil {
				return plan.SwapPlan{}, fmt.Errorf("bucket %d item %d: %w", bi, ii, err)
			}
			ops = append(ops, op)
		}
	}

	p := plan.NewSwapPlan(SwapPlanID(toManifest.Version), fromManifest, toManifest, ops, plan.NewSwapWindow(startNs, deadline))
	c.opts.Logger.Info("swap plan converted",
		"plan_id", p.PlanID,
		"from", p.From.Version,
		"to", p.To.Version,
		"buckets", len(buckets),
		"ops", len(p.Ops),
		"bytes", p.TotalBytes(),
		"budget", p.Window.Budget(),
	)
	return p, nil
}

func (c *SwapConverter) convertItem(bucketID int64, item BucketItem) (plan.TransferOp, error) {
	offset := lenient.IntOr(item.Offset, 0)
	tensor := lenient.StringOr(item.Tensor, DefaultSwapTensor)
	shard := lenient.IntOr(item.ShardRank, 0)
	return plan.NewTransferOp(
		plan.KindStorage2H,
		lenient.StringOr(item.URI, ""),
		BucketAddress(bucketID),
		lenient.IntOr(item.NBytes, 0),
		plan.WithOffsets(offset, offset),
		plan.WithNote(fmt.Sprintf("tensor=%s shard=%d bucket=%d offset=%d", tensor, shard, bucketID, offset)),
	)
}
