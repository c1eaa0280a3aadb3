package plan

import "fmt"

// Validate reports a negative page, head or layer index.
func (r KvPageRef) Validate() error {
	return nonNegative(intField{"page", r.Page}, intField{"head", r.Head}, intField{"layer", r.Layer})
}

// Validate reports an unknown kind, a negative length or offset, or an
// invalid KV ref.
func (op TransferOp) Validate() error {
	if !op.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTransferKind, string(op.Kind))
	}
	if err := nonNegative(intField{"length", op.Length}, intField{"src_offset", op.SrcOffset}, intField{"dst_offset", op.DstOffset}); err != nil {
		return err
	}
	return validateRefs("kv_refs", op.KvRefs)
}

// Validate reports a negative offset or length.
func (c FileChunk) Validate() error {
	return nonNegative(intField{"offset", c.Offset}, intField{"length", c.Length})
}

// Validate checks every file chunk of m.
func (m WeightManifest) Validate() error {
	for i, f := range m.Files {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("files[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks every op and page reference of p.
func (p CachePlan) Validate() error {
	if err := validateOps(p.Ops); err != nil {
		return err
	}
	if err := validateRefs("prefetch", p.Prefetch); err != nil {
		return err
	}
	return validateRefs("evict", p.Evict)
}

// Validate checks both manifests and every op of p. The window is checked
// separately by SwapWindow.Validate.
func (p SwapPlan) Validate() error {
	if err := p.From.Validate(); err != nil {
		return fmt.Errorf("manifest_from.%w", err)
	}
	if err := p.To.Validate(); err != nil {
		return fmt.Errorf("manifest_to.%w", err)
	}
	return validateOps(p.Ops)
}

func validateOps(ops []TransferOp) error {
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("ops[%d]: %w", i, err)
		}
	}
	return nil
}

func validateRefs(field string, refs []KvPageRef) error {
	for i, r := range refs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s[%d]: %w", field, i, err)
		}
	}
	return nil
}

type intField struct {
	name  string
	value int64
}

func nonNegative(fields ...intField) error {
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%w: %s=%d", ErrNegativeField, f.name, f.value)
		}
	}
	return nil
}
