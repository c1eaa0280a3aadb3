package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransferKind(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		want    TransferKind
		wantErr bool
	}{
		{name: "exact H2D", label: "H2D", want: KindH2D},
		{name: "exact D2H", label: "D2H", want: KindD2H},
		{name: "exact P2P", label: "P2P", want: KindP2P},
		{name: "exact STORAGE2H", label: "STORAGE2H", want: KindStorage2H},
		{name: "lowercase retried upper-cased", label: "h2d", want: KindH2D},
		{name: "mixed case", label: "Storage2h", want: KindStorage2H},
		{name: "empty defaults to STORAGE2H", label: "", want: KindStorage2H},
		{name: "unknown label", label: "bogus", wantErr: true},
		{name: "whitespace is not trimmed", label: " H2D", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTransferKind(tt.label)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownTransferKind))
				assert.Contains(t, err.Error(), tt.label)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMustParseTransferKind(t *testing.T) {
	assert.Equal(t, KindP2P, MustParseTransferKind("p2p"))
	assert.Panics(t, func() { MustParseTransferKind("sideways") })
}

func TestTransferKind_Text(t *testing.T) {
	for _, k := range Kinds() {
		text, err := k.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, k.String(), string(text))

		var back TransferKind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}

	_, err := TransferKind("UP").MarshalText()
	assert.ErrorIs(t, err, ErrUnknownTransferKind)

	var k TransferKind
	assert.ErrorIs(t, k.UnmarshalText([]byte("nope")), ErrUnknownTransferKind)
	require.NoError(t, k.UnmarshalText(nil))
	assert.Equal(t, KindStorage2H, k)
}
