package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransferOp_Equal(t *testing.T) {
	note := "x"
	other := "x"
	base := TransferOp{Kind: KindH2D, Src: "a", Dst: "b", Length: 1, Note: &note}

	tests := []struct {
		name   string
		mutate func(op TransferOp) TransferOp
		want   bool
	}{
		{name: "identical", mutate: func(op TransferOp) TransferOp { return op }, want: true},
		{name: "note by value", mutate: func(op TransferOp) TransferOp { op.Note = &other; return op }, want: true},
		{name: "nil vs empty kv refs", mutate: func(op TransferOp) TransferOp { op.KvRefs = []KvPageRef{}; return op }, want: true},
		{name: "absent note", mutate: func(op TransferOp) TransferOp { op.Note = nil; return op }, want: false},
		{name: "kind differs", mutate: func(op TransferOp) TransferOp { op.Kind = KindD2H; return op }, want: false},
		{name: "offset differs", mutate: func(op TransferOp) TransferOp { op.DstOffset = 3; return op }, want: false},
		{name: "kv refs differ", mutate: func(op TransferOp) TransferOp { op.KvRefs = []KvPageRef{{Page: 1}}; return op }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equal(tt.mutate(base)))
		})
	}
}

func TestPlans_Equal(t *testing.T) {
	op, _ := NewTransferOp(KindStorage2H, "file://a", "hbm://0", 16)
	m := NewWeightManifest("m", "v0", []FileChunk{{Path: "a", Length: 16, SHA256: "00"}})

	a := NewSwapPlan("swap-1", m, m, []TransferOp{op}, NewSwapWindow(0, 5))
	b := NewSwapPlan("swap-1", m, m, []TransferOp{op}, NewSwapWindow(0, 5))
	assert.True(t, a.Equal(b))

	b.Window.DeadlineNs = 6
	assert.False(t, a.Equal(b))

	c1 := NewCachePlan("p1", nil, nil, nil)
	c2 := CachePlan{PlanID: "p1"}
	assert.True(t, c1.Equal(c2))
	c2.Evict = []KvPageRef{{Tensor: "kv"}}
	assert.False(t, c1.Equal(c2))
}
