package wire

import (
	"encoding/json"
	"fmt"

	"github.com/danieljhkim/bwplan/internal/plan"
)

// Family identifies which plan family a document holds.
type Family string

const (
	FamilyCache Family = "cache"
	FamilySwap  Family = "swap"
)

// Document holds exactly one plan of either family.
type Document struct {
	Family Family
	Cache  plan.CachePlan
	Swap   plan.SwapPlan
}

// CacheDocument wraps a CachePlan.
func CacheDocument(p plan.CachePlan) Document {
	return Document{Family: FamilyCache, Cache: p}
}

// SwapDocument wraps a SwapPlan.
func SwapDocument(p plan.SwapPlan) Document {
	return Document{Family: FamilySwap, Swap: p}
}

// PlanID returns the id of the held plan.
func (d Document) PlanID() string {
	if d.Family == FamilySwap {
		return d.Swap.PlanID
	}
	return d.Cache.PlanID
}

// OpCount returns the number of ops in the held plan.
func (d Document) OpCount() int {
	if d.Family == FamilySwap {
		return len(d.Swap.Ops)
	}
	return len(d.Cache.Ops)
}

// TotalBytes returns the summed op length of the held plan.
func (d Document) TotalBytes() int64 {
	if d.Family == FamilySwap {
		return d.Swap.TotalBytes()
	}
	return d.Cache.TotalBytes()
}

// Validate checks the held plan for unknown kinds and negative numbers.
func (d Document) Validate() error {
	if d.Family == FamilySwap {
		return d.Swap.Validate()
	}
	return d.Cache.Validate()
}

// DetectFamily inspects the top-level keys of a wire document. Any
// swap-only key, canonical or legacy, marks a swap plan; everything else is
// treated as a cache plan.
func DetectFamily(data []byte) (Family, error) {
	var top map[string]json.RawMessage
	if err := unmarshal(data, &top); err != nil {
		return "", err
	}
	if top == nil {
		return "", fmt.Errorf("%w: document is null", ErrMalformed)
	}
	for _, key := range swapKeys {
		if _, ok := top[key]; ok {
			return FamilySwap, nil
		}
	}
	return FamilyCache, nil
}

// Decode detects the family of a wire document and decodes it.
func Decode(data []byte) (Document, error) {
	family, err := DetectFamily(data)
	if err != nil {
		return Document{}, err
	}
	if family == FamilySwap {
		p, err := DecodeSwapPlan(data)
		if err != nil {
			return Document{}, err
		}
		return SwapDocument(p), nil
	}
	p, err := DecodeCachePlan(data)
	if err != nil {
		return Document{}, err
	}
	return CacheDocument(p), nil
}

// Encode encodes the held plan.
func Encode(d Document) ([]byte, error) {
	switch d.Family {
	case FamilyCache:
		return EncodeCachePlan(d.Cache)
	case FamilySwap:
		return EncodeSwapPlan(d.Swap)
	default:
		return nil, fmt.Errorf("unknown plan family %q", d.Family)
	}
}
