// Package lenient provides JSON scalar types that tolerate the loose typing of
// upstream planner output.
//
// Upstream producers are dataframe-backed and routinely emit integers as
// floats ("4096.0") or as strings ("4096"). Int and String accept those
// spellings and reject anything structurally wrong (objects, arrays). Fields
// declared as *Int or *String stay nil when the key is absent or null, so the
// caller can apply its own default once with IntOr and StringOr.
package lenient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Int is an int64 that decodes from JSON numbers or numeric strings.
// Fractional values are truncated toward zero.
type Int int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Int) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
	}
	v, err := ParseInt(text)
	if err != nil {
		return err
	}
	*n = Int(v)
	return nil
}

// Int64 returns n as an int64.
func (n Int) Int64() int64 {
	return int64(n)
}

// ParseInt parses an integer, accepting integral float spellings such as
// "1e+06" and "4096.0".
func ParseInt(text string) (int64, error) {
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a valid integer", text)
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%q overflows int64", text)
	}
	return int64(f), nil
}

// String is a string that also decodes from JSON numbers and booleans,
// keeping their literal text.
type String string

// UnmarshalJSON implements json.Unmarshaler.
func (s *String) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = String(v)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("expected a scalar, got %s", data[:1])
	default:
		*s = String(data)
	}
	return nil
}

// IntOr returns *p, or def when p is nil.
func IntOr(p *Int, def int64) int64 {
	if p == nil {
		return def
	}
	return int64(*p)
}

// StringOr returns *p, or def when p is nil.
func StringOr(p *String, def string) string {
	if p == nil {
		return def
	}
	return string(*p)
}
