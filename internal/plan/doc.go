// Package plan defines the canonical transfer plan schema.
//
// A plan is a tree of plain values: plans own ordered lists of TransferOps,
// ops own their KvPageRefs, and swap plans own two WeightManifests and a
// SwapWindow. Nothing in the tree is shared or cyclic, so plans can be copied,
// compared and serialized without aliasing concerns.
//
// Two plan families exist:
//   - CachePlan: one scheduling window of KV-cache staging and eviction
//   - SwapPlan: one checkpoint swap bound to a deadline
//
// Values should be assembled through the New* builders, which enforce the
// structural invariants (non-negative lengths, offsets and indices) and take
// ownership of the slices they are given. Once built, a plan is treated as
// immutable.
package plan
