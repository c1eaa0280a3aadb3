package plan

import "time"

// KvPageRef addresses one page of a KV-cache tensor.
type KvPageRef struct {
	// Tensor is the name of the KV tensor
	Tensor string

	// Page is the page index within the tensor
	Page int64

	// Head is the attention head index
	Head int64

	// Layer is the model layer index
	Layer int64
}

// TransferOp is one atomic movement of bytes between two addresses.
type TransferOp struct {
	// Kind is the movement direction
	Kind TransferKind

	// Src is the opaque source address (URI-like)
	Src string

	// Dst is the opaque destination address (URI-like)
	Dst string

	// Length is the number of bytes moved
	Length int64

	// SrcOffset is the byte offset at the source (default 0)
	SrcOffset int64

	// DstOffset is the byte offset at the destination (default 0)
	DstOffset int64

	// KvRefs lists the KV pages carried by this op, empty for non-KV transfers
	KvRefs []KvPageRef

	// Note is an optional free-text annotation for diagnostics
	Note *string
}

// NoteText returns the annotation, or "" when absent.
func (op TransferOp) NoteText() string {
	if op.Note == nil {
		return ""
	}
	return *op.Note
}

// FileChunk is a contiguous byte range inside a checkpoint file.
type FileChunk struct {
	Path   string
	Offset int64
	Length int64

	// SHA256 is the hex-encoded content hash of the range
	SHA256 string
}

// WeightManifest is the recorded content inventory of one model version.
type WeightManifest struct {
	ModelID string
	Version string
	Files   []FileChunk
}

// TotalBytes returns the summed length of all chunks.
func (m WeightManifest) TotalBytes() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Length
	}
	return total
}

// SwapWindow bounds a swap in nanosecond timestamps. The deadline is
// descriptive metadata for a downstream executor and is not enforced here.
type SwapWindow struct {
	StartNs    int64
	DeadlineNs int64
}

// Budget returns the time between start and deadline. It is negative for
// windows that fail Validate.
func (w SwapWindow) Budget() time.Duration {
	return time.Duration(w.DeadlineNs - w.StartNs)
}

// Validate reports ErrInvalidWindow when the deadline precedes the start.
// Builders and decoders never call it; callers that need the guarantee do.
func (w SwapWindow) Validate() error {
	if w.DeadlineNs < w.StartNs {
		return ErrInvalidWindow
	}
	return nil
}

// CachePlan holds one scheduling window's KV-cache decisions.
type CachePlan struct {
	// PlanID should be unique within a deployment
	PlanID string

	// Ops is the proposed (not enforced) execution order
	Ops []TransferOp

	// Prefetch lists pages admitted by the planner
	Prefetch []KvPageRef

	// Evict lists pages evicted by the planner
	Evict []KvPageRef
}

// TotalBytes returns the summed length of all ops.
func (p CachePlan) TotalBytes() int64 {
	return totalBytes(p.Ops)
}

// SwapPlan holds the operations of one checkpoint swap.
type SwapPlan struct {
	PlanID string

	// From is the manifest of the version being replaced
	From WeightManifest

	// To is the manifest of the incoming version
	To WeightManifest

	Ops    []TransferOp
	Window SwapWindow
}

// TotalBytes returns the summed length of all ops.
func (p SwapPlan) TotalBytes() int64 {
	return totalBytes(p.Ops)
}

func totalBytes(ops []TransferOp) int64 {
	var total int64
	for _, op := range ops {
		total += op.Length
	}
	return total
}
