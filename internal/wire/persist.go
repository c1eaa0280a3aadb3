package wire

import (
	"fmt"

	"github.com/danieljhkim/bwplan/internal/fsops"
	"github.com/danieljhkim/bwplan/internal/plan"
)

// Persist encodes doc and writes the text to path, overwriting any existing
// content. It returns the bytes written. The write is not atomic; callers that
// need atomic replacement must write elsewhere and rename.
func Persist(fs fsops.FS, path string, doc Document) ([]byte, error) {
	data, err := Encode(doc)
	if err != nil {
		return nil, err
	}
	if err := fs.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to persist plan %q: %w", doc.PlanID(), err)
	}
	return data, nil
}

// PersistCachePlan is Persist for a CachePlan.
func PersistCachePlan(fs fsops.FS, path string, p plan.CachePlan) ([]byte, error) {
	return Persist(fs, path, CacheDocument(p))
}

// PersistSwapPlan is Persist for a SwapPlan.
func PersistSwapPlan(fs fsops.FS, path string, p plan.SwapPlan) ([]byte, error) {
	return Persist(fs, path, SwapDocument(p))
}

// Load reads and decodes a plan document of either family.
func Load(fs fsops.FS, path string) (Document, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read plan: %w", err)
	}
	return Decode(data)
}

// LoadCachePlan reads and decodes a CachePlan.
func LoadCachePlan(fs fsops.FS, path string) (plan.CachePlan, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return plan.CachePlan{}, fmt.Errorf("failed to read plan: %w", err)
	}
	return DecodeCachePlan(data)
}

// LoadSwapPlan reads and decodes a SwapPlan.
func LoadSwapPlan(fs fsops.FS, path string) (plan.SwapPlan, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return plan.SwapPlan{}, fmt.Errorf("failed to read plan: %w", err)
	}
	return DecodeSwapPlan(data)
}
