// Package wire serializes transfer plans to and from their textual wire form.
//
// The wire form is indented JSON (two spaces) whose key order follows the
// schema declaration order:
//
//	cache plan: plan_id, ops, prefetch, evict
//	swap plan:  plan_id, manifest_from, manifest_to, ops, window
//
// Encoding goes through the *V1 structs in format.go. Decoding goes through
// the *In structs, which declare every accepted key set explicitly: the
// canonical keys plus the legacy spellings still produced by older writers
// ({start_ns, deadline_ns} for windows, {from, to} for manifests). Absent
// fields decode to zero values; an absent or empty kind decodes to STORAGE2H.
// The only field-level hard failure is an unrecognized kind label. Negative
// numbers decode as written and are reported by Document.Validate.
//
// Decoding always yields fresh values, and for any plan p assembled with the
// plan builders Decode(Encode(p)) equals p. Encoding refuses strings that are
// not valid UTF-8 (ErrInvalidText) rather than replacing the bad bytes.
package wire
