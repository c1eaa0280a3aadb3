package plan

import "slices"

// Equal reports field-wise equality. Nil and empty slices compare equal, and
// notes compare by value.
func (op TransferOp) Equal(other TransferOp) bool {
	if op.Kind != other.Kind || op.Src != other.Src || op.Dst != other.Dst ||
		op.Length != other.Length || op.SrcOffset != other.SrcOffset || op.DstOffset != other.DstOffset {
		return false
	}
	if (op.Note == nil) != (other.Note == nil) {
		return false
	}
	if op.Note != nil && *op.Note != *other.Note {
		return false
	}
	return slices.Equal(op.KvRefs, other.KvRefs)
}

// Equal reports field-wise equality.
func (m WeightManifest) Equal(other WeightManifest) bool {
	return m.ModelID == other.ModelID && m.Version == other.Version && slices.Equal(m.Files, other.Files)
}

// Equal reports field-wise equality.
func (p CachePlan) Equal(other CachePlan) bool {
	return p.PlanID == other.PlanID &&
		opsEqual(p.Ops, other.Ops) &&
		slices.Equal(p.Prefetch, other.Prefetch) &&
		slices.Equal(p.Evict, other.Evict)
}

// Equal reports field-wise equality.
func (p SwapPlan) Equal(other SwapPlan) bool {
	return p.PlanID == other.PlanID &&
		p.From.Equal(other.From) &&
		p.To.Equal(other.To) &&
		opsEqual(p.Ops, other.Ops) &&
		p.Window == other.Window
}

func opsEqual(a, b []TransferOp) bool {
	return slices.EqualFunc(a, b, TransferOp.Equal)
}
