package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	good := TransferOp{Kind: KindH2D, Length: 4, KvRefs: []KvPageRef{{Tensor: "kv", Page: 1}}}

	tests := []struct {
		name    string
		err     error
		wantErr error
		wantMsg string
	}{
		{name: "valid cache plan", err: NewCachePlan("p", []TransferOp{good}, []KvPageRef{{Page: 2}}, nil).Validate()},
		{
			name:    "negative op length",
			err:     CachePlan{Ops: []TransferOp{good, {Kind: KindD2H, Length: -1}}}.Validate(),
			wantErr: ErrNegativeField,
			wantMsg: "ops[1]: negative field value: length=-1",
		},
		{
			name:    "negative dst offset",
			err:     TransferOp{Kind: KindP2P, DstOffset: -8}.Validate(),
			wantErr: ErrNegativeField,
			wantMsg: "dst_offset=-8",
		},
		{
			name:    "negative nested ref",
			err:     TransferOp{Kind: KindP2P, KvRefs: []KvPageRef{{}, {Head: -1}}}.Validate(),
			wantErr: ErrNegativeField,
			wantMsg: "kv_refs[1]",
		},
		{
			name:    "negative evict layer",
			err:     CachePlan{Evict: []KvPageRef{{Layer: -3}}}.Validate(),
			wantErr: ErrNegativeField,
			wantMsg: "evict[0]",
		},
		{
			name:    "unknown kind",
			err:     TransferOp{Kind: "SIDEWAYS"}.Validate(),
			wantErr: ErrUnknownTransferKind,
		},
		{
			name:    "negative manifest chunk",
			err:     SwapPlan{To: WeightManifest{Files: []FileChunk{{Length: 1}, {Offset: -4}}}}.Validate(),
			wantErr: ErrNegativeField,
			wantMsg: "manifest_to.files[1]: negative field value: offset=-4",
		},
		{
			name: "inverted window is not a field error",
			err:  SwapPlan{Window: NewSwapWindow(20, 10)}.Validate(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr == nil {
				assert.NoError(t, tt.err)
				return
			}
			assert.ErrorIs(t, tt.err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, tt.err.Error(), tt.wantMsg)
			}
		})
	}
}
