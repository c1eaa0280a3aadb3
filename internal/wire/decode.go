package wire

import (
	"encoding/json"
	"fmt"

	"github.com/danieljhkim/bwplan/internal/plan"
)

// DecodeCachePlan reconstructs a CachePlan from wire text.
func DecodeCachePlan(data []byte) (plan.CachePlan, error) {
	var in *cachePlanIn
	if err := unmarshal(data, &in); err != nil {
		return plan.CachePlan{}, err
	}
	if in == nil {
		return plan.CachePlan{}, fmt.Errorf("%w: document is null", ErrMalformed)
	}

	ops, err := decodeOps(in.Ops)
	if err != nil {
		return plan.CachePlan{}, err
	}
	return plan.NewCachePlan(string(in.PlanID), ops, decodeRefs(in.Prefetch), decodeRefs(in.Evict)), nil
}

// DecodeSwapPlan reconstructs a SwapPlan from wire text.
func DecodeSwapPlan(data []byte) (plan.SwapPlan, error) {
	var in *swapPlanIn
	if err := unmarshal(data, &in); err != nil {
		return plan.SwapPlan{}, err
	}
	if in == nil {
		return plan.SwapPlan{}, fmt.Errorf("%w: document is null", ErrMalformed)
	}

	ops, err := decodeOps(in.Ops)
	if err != nil {
		return plan.SwapPlan{}, err
	}
	window := plan.NewSwapWindow(in.Window.startNs(), in.Window.deadlineNs())
	return plan.NewSwapPlan(string(in.PlanID), decodeManifest(in.from()), decodeManifest(in.to()), ops, window), nil
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// decodeOps builds ops directly rather than through the plan builders so
// negative numbers survive decoding; the plan Validate methods report them.
func decodeOps(in []transferOpIn) ([]plan.TransferOp, error) {
	ops := make([]plan.TransferOp, 0, len(in))
	for i, raw := range in {
		kind, err := plan.ParseTransferKind(string(raw.Kind))
		if err != nil {
			return nil, fmt.Errorf("ops[%d]: %w", i, err)
		}
		op := plan.TransferOp{
			Kind:      kind,
			Src:       string(raw.Src),
			Dst:       string(raw.Dst),
			Length:    raw.Length.Int64(),
			SrcOffset: raw.SrcOffset.Int64(),
			DstOffset: raw.DstOffset.Int64(),
			KvRefs:    decodeRefs(raw.KvRefs),
		}
		if raw.Note != nil {
			note := string(*raw.Note)
			op.Note = &note
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func decodeRefs(in []kvRefIn) []plan.KvPageRef {
	refs := make([]plan.KvPageRef, 0, len(in))
	for _, raw := range in {
		refs = append(refs, plan.KvPageRef{
			Tensor: string(raw.Tensor),
			Page:   raw.Page.Int64(),
			Head:   raw.Head.Int64(),
			Layer:  raw.Layer.Int64(),
		})
	}
	return refs
}

func decodeManifest(in *manifestIn) plan.WeightManifest {
	if in == nil {
		return plan.NewWeightManifest("", "", nil)
	}
	files := make([]plan.FileChunk, 0, len(in.Files))
	for _, raw := range in.Files {
		files = append(files, plan.FileChunk{
			Path:   string(raw.Path),
			Offset: raw.Offset.Int64(),
			Length: raw.Length.Int64(),
			SHA256: string(raw.SHA256),
		})
	}
	return plan.NewWeightManifest(string(in.ModelID), string(in.Version), files)
}
