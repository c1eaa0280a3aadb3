package plan

import (
	"fmt"
	"strings"
)

// TransferKind is the direction of a movement between memory and storage tiers.
type TransferKind string

// Transfer kinds. The label is the wire representation.
const (
	KindH2D       TransferKind = "H2D"
	KindD2H       TransferKind = "D2H"
	KindP2P       TransferKind = "P2P"
	KindStorage2H TransferKind = "STORAGE2H"
)

// DefaultKind is used when a kind label is empty or absent.
const DefaultKind = KindStorage2H

var kindsByLabel = map[string]TransferKind{
	string(KindH2D):       KindH2D,
	string(KindD2H):       KindD2H,
	string(KindP2P):       KindP2P,
	string(KindStorage2H): KindStorage2H,
}

// Kinds returns every TransferKind in declaration order.
func Kinds() []TransferKind {
	return []TransferKind{KindH2D, KindD2H, KindP2P, KindStorage2H}
}

// ParseTransferKind parses a kind label.
//
// The label is matched exactly first and then upper-cased. An empty label
// yields DefaultKind. Anything else fails with ErrUnknownTransferKind, since
// assuming a direction for an unknown label is unsafe.
func ParseTransferKind(label string) (TransferKind, error) {
	if label == "" {
		return DefaultKind, nil
	}
	if k, ok := kindsByLabel[label]; ok {
		return k, nil
	}
	if k, ok := kindsByLabel[strings.ToUpper(label)]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTransferKind, label)
}

// MustParseTransferKind is like ParseTransferKind but panics on error.
func MustParseTransferKind(label string) TransferKind {
	k, err := ParseTransferKind(label)
	if err != nil {
		panic(err)
	}
	return k
}

// Valid reports whether k is one of the declared kinds.
func (k TransferKind) Valid() bool {
	_, ok := kindsByLabel[string(k)]
	return ok
}

func (k TransferKind) String() string {
	return string(k)
}

// MarshalText implements encoding.TextMarshaler.
func (k TransferKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransferKind, string(k))
	}
	return []byte(k), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseTransferKind.
func (k *TransferKind) UnmarshalText(text []byte) error {
	parsed, err := ParseTransferKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
