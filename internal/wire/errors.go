package wire

import "errors"

// ErrMalformed indicates text that is not a valid wire document. No partial
// plan is recovered from malformed input.
var ErrMalformed = errors.New("malformed plan document")

// ErrInvalidText indicates a string field that is not valid UTF-8. Encoding
// would replace the bad bytes, so the round trip could not reproduce the plan.
var ErrInvalidText = errors.New("string field is not valid UTF-8")
