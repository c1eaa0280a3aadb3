package wire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxExactFloat is the largest integer a float64 holds exactly (2^53).
const maxExactFloat = 1 << 53

// MarshalEnvelope encodes doc as a protobuf google.protobuf.Struct carrying
// the same mapping as the text form.
//
// Struct numbers are float64, so integers beyond 2^53 (nanosecond
// timestamps) are carried as decimal strings. The tolerant decoder reads
// them back unchanged.
func MarshalEnvelope(doc Document) ([]byte, error) {
	text, err := Encode(doc)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to build envelope: %w", err)
	}

	s, err := structpb.NewStruct(toStructValues(fields).(map[string]any))
	if err != nil {
		return nil, fmt.Errorf("failed to build envelope: %w", err)
	}
	return proto.Marshal(s)
}

// UnmarshalEnvelope decodes a document written by MarshalEnvelope.
func UnmarshalEnvelope(blob []byte) (Document, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(blob, &s); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	text, err := json.Marshal(s.AsMap())
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Decode(text)
}

func toStructValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = toStructValues(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = toStructValues(item)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			if n > maxExactFloat || n < -maxExactFloat {
				return t.String()
			}
			return float64(n)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return t
	}
}
