package plan

import "fmt"

// OpOption configures optional TransferOp fields.
type OpOption func(*TransferOp)

// WithOffsets sets the source and destination byte offsets.
func WithOffsets(src, dst int64) OpOption {
	return func(op *TransferOp) {
		op.SrcOffset = src
		op.DstOffset = dst
	}
}

// WithKvRefs attaches KV page references. The slice is copied.
func WithKvRefs(refs ...KvPageRef) OpOption {
	return func(op *TransferOp) {
		op.KvRefs = append(op.KvRefs, refs...)
	}
}

// WithNote attaches a free-text annotation.
func WithNote(note string) OpOption {
	return func(op *TransferOp) {
		op.Note = &note
	}
}

// NewKvPageRef builds a KvPageRef.
func NewKvPageRef(tensor string, page, head, layer int64) (KvPageRef, error) {
	ref := KvPageRef{Tensor: tensor, Page: page, Head: head, Layer: layer}
	if err := ref.Validate(); err != nil {
		return KvPageRef{}, err
	}
	return ref, nil
}

// NewTransferOp builds a TransferOp of a declared kind.
func NewTransferOp(kind TransferKind, src, dst string, length int64, opts ...OpOption) (TransferOp, error) {
	if !kind.Valid() {
		return TransferOp{}, fmt.Errorf("%w: %q", ErrUnknownTransferKind, string(kind))
	}
	op := TransferOp{
		Kind:   kind,
		Src:    src,
		Dst:    dst,
		Length: length,
		KvRefs: []KvPageRef{},
	}
	for _, opt := range opts {
		opt(&op)
	}
	if err := op.Validate(); err != nil {
		return TransferOp{}, err
	}
	return op, nil
}

// ParseTransferOp is NewTransferOp with the kind given as a label.
func ParseTransferOp(label, src, dst string, length int64, opts ...OpOption) (TransferOp, error) {
	kind, err := ParseTransferKind(label)
	if err != nil {
		return TransferOp{}, err
	}
	return NewTransferOp(kind, src, dst, length, opts...)
}

// NewFileChunk builds a FileChunk.
func NewFileChunk(path string, offset, length int64, sha256 string) (FileChunk, error) {
	chunk := FileChunk{Path: path, Offset: offset, Length: length, SHA256: sha256}
	if err := chunk.Validate(); err != nil {
		return FileChunk{}, err
	}
	return chunk, nil
}

// NewWeightManifest builds a WeightManifest owning a copy of files.
func NewWeightManifest(modelID, version string, files []FileChunk) WeightManifest {
	return WeightManifest{
		ModelID: modelID,
		Version: version,
		Files:   append([]FileChunk{}, files...),
	}
}

// NewSwapWindow builds a SwapWindow. The deadline is not checked against the
// start; see SwapWindow.Validate.
func NewSwapWindow(startNs, deadlineNs int64) SwapWindow {
	return SwapWindow{StartNs: startNs, DeadlineNs: deadlineNs}
}

// NewCachePlan builds a CachePlan owning copies of the given slices.
func NewCachePlan(planID string, ops []TransferOp, prefetch, evict []KvPageRef) CachePlan {
	return CachePlan{
		PlanID:   planID,
		Ops:      cloneOps(ops),
		Prefetch: append([]KvPageRef{}, prefetch...),
		Evict:    append([]KvPageRef{}, evict...),
	}
}

// NewSwapPlan builds a SwapPlan owning copies of the given slices.
func NewSwapPlan(planID string, from, to WeightManifest, ops []TransferOp, window SwapWindow) SwapPlan {
	return SwapPlan{
		PlanID: planID,
		From:   NewWeightManifest(from.ModelID, from.Version, from.Files),
		To:     NewWeightManifest(to.ModelID, to.Version, to.Files),
		Ops:    cloneOps(ops),
		Window: window,
	}
}

func cloneOps(ops []TransferOp) []TransferOp {
	out := make([]TransferOp, len(ops))
	for i, op := range ops {
		op.KvRefs = append([]KvPageRef{}, op.KvRefs...)
		if op.Note != nil {
			note := *op.Note
			op.Note = &note
		}
		out[i] = op
	}
	return out
}
