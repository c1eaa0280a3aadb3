package wire

import "github.com/danieljhkim/bwplan/internal/lenient"

// FormatVersion is the semantic version of the wire format written by this
// package. Readers accept any document compatible with ^FormatVersion.
const FormatVersion = "1.0.0"

// Indent is the indentation used by the encoder.
const Indent = "  "

// Output key set. Field order is the on-wire key order.

type kvRefV1 struct {
	Tensor string `json:"tensor"`
	Page   int64  `json:"page"`
	Head   int64  `json:"head"`
	Layer  int64  `json:"layer"`
}

type transferOpV1 struct {
	Kind      string    `json:"kind"`
	Src       string    `json:"src"`
	Dst       string    `json:"dst"`
	Length    int64     `json:"length"`
	SrcOffset int64     `json:"src_offset"`
	DstOffset int64     `json:"dst_offset"`
	KvRefs    []kvRefV1 `json:"kv_refs"`
	Note      *string   `json:"note"`
}

type fileChunkV1 struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
	Length int64  `json:"length"`
	SHA256 string `json:"sha256"`
}

type manifestV1 struct {
	ModelID string        `json:"model_id"`
	Version string        `json:"version"`
	Files   []fileChunkV1 `json:"files"`
}

type windowV1 struct {
	TStartNs    int64 `json:"t_start_ns"`
	TDeadlineNs int64 `json:"t_deadline_ns"`
}

type cachePlanV1 struct {
	PlanID   string         `json:"plan_id"`
	Ops      []transferOpV1 `json:"ops"`
	Prefetch []kvRefV1      `json:"prefetch"`
	Evict    []kvRefV1      `json:"evict"`
}

type swapPlanV1 struct {
	PlanID       string         `json:"plan_id"`
	ManifestFrom manifestV1     `json:"manifest_from"`
	ManifestTo   manifestV1     `json:"manifest_to"`
	Ops          []transferOpV1 `json:"ops"`
	Window       windowV1       `json:"window"`
}

// Input key sets. Every field is optional.

type kvRefIn struct {
	Tensor lenient.String `json:"tensor"`
	Page   lenient.Int    `json:"page"`
	Head   lenient.Int    `json:"head"`
	Layer  lenient.Int    `json:"layer"`
}

type transferOpIn struct {
	Kind      lenient.String  `json:"kind"`
	Src       lenient.String  `json:"src"`
	Dst       lenient.String  `json:"dst"`
	Length    lenient.Int     `json:"length"`
	SrcOffset lenient.Int     `json:"src_offset"`
	DstOffset lenient.Int     `json:"dst_offset"`
	KvRefs    []kvRefIn       `json:"kv_refs"`
	Note      *lenient.String `json:"note"`
}

type fileChunkIn struct {
	Path   lenient.String `json:"path"`
	Offset lenient.Int    `json:"offset"`
	Length lenient.Int    `json:"length"`
	SHA256 lenient.String `json:"sha256"`
}

type manifestIn struct {
	ModelID lenient.String `json:"model_id"`
	Version lenient.String `json:"version"`
	Files   []fileChunkIn  `json:"files"`
}

// windowIn accepts the canonical {t_start_ns, t_deadline_ns} key set and the
// legacy {start_ns, deadline_ns} key set. Canonical keys win when both appear.
type windowIn struct {
	TStartNs    *lenient.Int `json:"t_start_ns"`
	TDeadlineNs *lenient.Int `json:"t_deadline_ns"`

	LegacyStartNs    *lenient.Int `json:"start_ns"`
	LegacyDeadlineNs *lenient.Int `json:"deadline_ns"`
}

func (w *windowIn) startNs() int64 {
	if w == nil {
		return 0
	}
	if w.TStartNs != nil {
		return w.TStartNs.Int64()
	}
	return lenient.IntOr(w.LegacyStartNs, 0)
}

func (w *windowIn) deadlineNs() int64 {
	if w == nil {
		return 0
	}
	if w.TDeadlineNs != nil {
		return w.TDeadlineNs.Int64()
	}
	return lenient.IntOr(w.LegacyDeadlineNs, 0)
}

type cachePlanIn struct {
	PlanID   lenient.String `json:"plan_id"`
	Ops      []transferOpIn `json:"ops"`
	Prefetch []kvRefIn      `json:"prefetch"`
	Evict    []kvRefIn      `json:"evict"`
}

// swapPlanIn accepts the canonical {manifest_from, manifest_to} key set and
// the legacy {from, to} key set. Canonical keys win when both appear.
type swapPlanIn struct {
	PlanID       lenient.String `json:"plan_id"`
	ManifestFrom *manifestIn    `json:"manifest_from"`
	ManifestTo   *manifestIn    `json:"manifest_to"`
	Ops          []transferOpIn `json:"ops"`
	Window       *windowIn      `json:"window"`

	LegacyFrom *manifestIn `json:"from"`
	LegacyTo   *manifestIn `json:"to"`
}

func (s *swapPlanIn) from() *manifestIn {
	if s.ManifestFrom != nil {
		return s.ManifestFrom
	}
	return s.LegacyFrom
}

func (s *swapPlanIn) to() *manifestIn {
	if s.ManifestTo != nil {
		return s.ManifestTo
	}
	return s.LegacyTo
}

// swapKeys are top-level keys that only a swap plan carries.
var swapKeys = []string{"manifest_from", "manifest_to", "window", "from", "to"}
