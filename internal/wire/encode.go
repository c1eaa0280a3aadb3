package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/danieljhkim/bwplan/internal/plan"
)

// EncodeCachePlan encodes p to its wire text. Strings that are not valid
// UTF-8 fail with ErrInvalidText.
func EncodeCachePlan(p plan.CachePlan) ([]byte, error) {
	if err := checkText(textField{"plan_id", p.PlanID}); err != nil {
		return nil, err
	}
	ops, err := encodeOps(p.Ops)
	if err != nil {
		return nil, err
	}
	prefetch, err := encodeRefs("prefetch", p.Prefetch)
	if err != nil {
		return nil, err
	}
	evict, err := encodeRefs("evict", p.Evict)
	if err != nil {
		return nil, err
	}
	return marshal(cachePlanV1{
		PlanID:   p.PlanID,
		Ops:      ops,
		Prefetch: prefetch,
		Evict:    evict,
	})
}

// EncodeSwapPlan encodes p to its wire text. Strings that are not valid UTF-8
// fail with ErrInvalidText.
func EncodeSwapPlan(p plan.SwapPlan) ([]byte, error) {
	if err := checkText(textField{"plan_id", p.PlanID}); err != nil {
		return nil, err
	}
	from, err := encodeManifest(p.From)
	if err != nil {
		return nil, fmt.Errorf("manifest_from.%w", err)
	}
	to, err := encodeManifest(p.To)
	if err != nil {
		return nil, fmt.Errorf("manifest_to.%w", err)
	}
	ops, err := encodeOps(p.Ops)
	if err != nil {
		return nil, err
	}
	return marshal(swapPlanV1{
		PlanID:       p.PlanID,
		ManifestFrom: from,
		ManifestTo:   to,
		Ops:          ops,
		Window: windowV1{
			TStartNs:    p.Window.StartNs,
			TDeadlineNs: p.Window.DeadlineNs,
		},
	})
}

// EncodeManifest encodes m in the form it takes inside a swap plan.
func EncodeManifest(m plan.WeightManifest) ([]byte, error) {
	out, err := encodeManifest(m)
	if err != nil {
		return nil, err
	}
	return marshal(out)
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", Indent)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func encodeOps(ops []plan.TransferOp) ([]transferOpV1, error) {
	out := make([]transferOpV1, 0, len(ops))
	for i, op := range ops {
		if !op.Kind.Valid() {
			return nil, fmt.Errorf("ops[%d]: %w: %q", i, plan.ErrUnknownTransferKind, string(op.Kind))
		}
		if err := checkText(textField{"src", op.Src}, textField{"dst", op.Dst}, textField{"note", op.NoteText()}); err != nil {
			return nil, fmt.Errorf("ops[%d]: %w", i, err)
		}
		refs, err := encodeRefs(fmt.Sprintf("ops[%d].kv_refs", i), op.KvRefs)
		if err != nil {
			return nil, err
		}
		var note *string
		if op.Note != nil {
			n := *op.Note
			note = &n
		}
		out = append(out, transferOpV1{
			Kind:      op.Kind.String(),
			Src:       op.Src,
			Dst:       op.Dst,
			Length:    op.Length,
			SrcOffset: op.SrcOffset,
			DstOffset: op.DstOffset,
			KvRefs:    refs,
			Note:      note,
		})
	}
	return out, nil
}

func encodeRefs(field string, refs []plan.KvPageRef) ([]kvRefV1, error) {
	out := make([]kvRefV1, 0, len(refs))
	for i, r := range refs {
		if err := checkText(textField{"tensor", r.Tensor}); err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out = append(out, kvRefV1{Tensor: r.Tensor, Page: r.Page, Head: r.Head, Layer: r.Layer})
	}
	return out, nil
}

func encodeManifest(m plan.WeightManifest) (manifestV1, error) {
	if err := checkText(textField{"model_id", m.ModelID}, textField{"version", m.Version}); err != nil {
		return manifestV1{}, err
	}
	files := make([]fileChunkV1, 0, len(m.Files))
	for i, f := range m.Files {
		if err := checkText(textField{"path", f.Path}, textField{"sha256", f.SHA256}); err != nil {
			return manifestV1{}, fmt.Errorf("files[%d]: %w", i, err)
		}
		files = append(files, fileChunkV1{Path: f.Path, Offset: f.Offset, Length: f.Length, SHA256: f.SHA256})
	}
	return manifestV1{ModelID: m.ModelID, Version: m.Version, Files: files}, nil
}

type textField struct {
	name  string
	value string
}

func checkText(fields ...textField) error {
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w: %s=%q", ErrInvalidText, f.name, f.value)
		}
	}
	return nil
}
