package convert

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/danieljhkim/bwplan/internal/clock"
	"github.com/danieljhkim/bwplan/internal/lenient"
	"github.com/danieljhkim/bwplan/internal/plan"
)

// InferKind derives the movement direction from tier indices: a source tier
// below the destination is H2D, above it is D2H, and a same-tier move is P2P.
func InferKind(tierSrc, tierDst int64) plan.TransferKind {
	switch {
	case tierSrc < tierDst:
		return plan.KindH2D
	case tierSrc > tierDst:
		return plan.KindD2H
	default:
		return plan.KindP2P
	}
}

// TierAddress returns the address of a tier on a node.
func TierAddress(node string, tier int64) string {
	return fmt.Sprintf("tier://%s/tier%d", node, tier)
}

// CachePlanID returns the default id of a cache plan built at unixMillis.
func CachePlanID(unixMillis int64) string {
	return fmt.Sprintf("cache-%d", unixMillis)
}

// CacheConverter builds cache plans from cache planner output.
type CacheConverter struct {
	opts Options
}

// NewCacheConverter creates a CacheConverter.
func NewCacheConverter(opts Options) *CacheConverter {
	return &CacheConverter{opts: opts.withDefaults()}
}

// Convert builds a CachePlan. An empty planID is replaced by cache-<now ms>.
//
// Each row becomes one op whose kv_refs cover pages start_pid..end_pid
// inclusive; a row whose end precedes its start carries no refs. Rows whose
// byte offset overflows int64 or whose range exceeds Options.MaxPagesPerRow
// fail with ErrInvalidInput. Admissions
// become prefetch refs and evictions become evict refs, in order.
func (c *CacheConverter) Convert(planID string, rows []PlanRow, admissions, evictions []PageRow) (plan.CachePlan, error) {
	if planID == "" {
		planID = CachePlanID(clock.UnixMillis(c.opts.Clock))
	}

	ops := make([]plan.TransferOp, 0, len(rows))
	for i, row := range rows {
		op, err := c.convertRow(row.Resolve(c.opts))
		if err != nil {
			return plan.CachePlan{}, fmt.Errorf("row %d: %w", i, err)
		}
		ops = append(ops, op)
	}

	prefetch, err := c.pageRefs("admissions", admissions)
	if err != nil {
		return plan.CachePlan{}, err
	}
	evict, err := c.pageRefs("evictions", evictions)
	if err != nil {
		return plan.CachePlan{}, err
	}

	p := plan.NewCachePlan(planID, ops, prefetch, evict)
	c.opts.Logger.Info("cache plan converted",
		"plan_id", p.PlanID,
		"ops", len(p.Ops),
		"prefetch", len(p.Prefetch),
		"evict", len(p.Evict),
		"bytes", p.TotalBytes(),
		"backend", c.opts.Backend,
	)
	return p, nil
}

func (c *CacheConverter) convertRow(r ResolvedRow) (plan.TransferOp, error) {
	if r.StartPID < 0 || r.PageBytes < 0 {
		return plan.TransferOp{}, fmt.Errorf("%w: start_pid=%d page_bytes=%d", plan.ErrNegativeField, r.StartPID, r.PageBytes)
	}

	hi, lo := bits.Mul64(uint64(r.StartPID), uint64(r.PageBytes))
	if hi != 0 || lo > math.MaxInt64 {
		return plan.TransferOp{}, fmt.Errorf("%w: offset start_pid=%d * page_bytes=%d overflows int64", ErrInvalidInput, r.StartPID, r.PageBytes)
	}
	offset := int64(lo)

	var refs []plan.KvPageRef
	if r.EndPID >= r.StartPID {
		// start is non-negative here, so the span cannot overflow.
		span := r.EndPID - r.StartPID
		if span >= c.opts.MaxPagesPerRow {
			return plan.TransferOp{}, fmt.Errorf("%w: page range %d..%d exceeds %d pages", ErrInvalidInput, r.StartPID, r.EndPID, c.opts.MaxPagesPerRow)
		}
		refs = make([]plan.KvPageRef, 0, span+1)
		for i := int64(0); i <= span; i++ {
			refs = append(refs, plan.KvPageRef{Tensor: c.opts.Tensor, Page: r.StartPID + i, Head: 0, Layer: r.Layer})
		}
	}

	return plan.NewTransferOp(
		InferKind(r.TierSrc, r.TierDst),
		TierAddress(r.Node, r.TierSrc),
		TierAddress(r.Node, r.TierDst),
		r.Bytes,
		plan.WithOffsets(offset, offset),
		plan.WithKvRefs(refs...),
		plan.WithNote(fmt.Sprintf("cluster=%d fanout=%d overlap=%d", r.PCluster, r.Fanout, r.Overlap)),
	)
}

func (c *CacheConverter) pageRefs(stream string, rows []PageRow) ([]plan.KvPageRef, error) {
	refs := make([]plan.KvPageRef, 0, len(rows))
	for i, row := range rows {
		ref, err := plan.NewKvPageRef(c.opts.Tensor, lenient.IntOr(row.PageID, 0), 0, lenient.IntOr(row.Layer, 0))
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", stream, i, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
