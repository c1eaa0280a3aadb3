package integration

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/danieljhkim/bwplan/internal/convert"
	"github.com/danieljhkim/bwplan/internal/hash"
	"github.com/danieljhkim/bwplan/internal/integrity"
	"github.com/danieljhkim/bwplan/internal/plan"
	"github.com/danieljhkim/bwplan/internal/store"
	"github.com/danieljhkim/bwplan/internal/wire"
)

func TestCachePipeline_ConvertPersistArchive(t *testing.T) {
	memFS, st, opts, clk := setupPipeline(t)
	ctx := context.Background()

	rows, err := convert.ReadPlanRows(strings.NewReader(`[
		{"tier_src": 0, "tier_dst": 1, "start_pid": 2, "end_pid": 3, "bytes": 524288, "layer": 1},
		{"tier_src": 1, "tier_dst": 1, "node": "node-4", "start_pid": 8, "bytes": 262144, "pcluster": 5}
	]`))
	if err != nil {
		t.Fatalf("ReadPlanRows failed: %v", err)
	}
	adm, err := convert.ReadPageRows(strings.NewReader(`[{"page_id": 2, "layer": 1}, {"page_id": 3, "layer": 1}]`))
	if err != nil {
		t.Fatalf("ReadPageRows failed: %v", err)
	}

	p, err := convert.NewCacheConverter(opts).Convert("", rows, adm, nil)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if p.PlanID != "cache-1735689600000" {
		t.Errorf("PlanID = %q, want id derived from the clock", p.PlanID)
	}
	if p.Ops[0].Kind != plan.KindH2D || p.Ops[1].Kind != plan.KindP2P {
		t.Errorf("kinds = %s, %s", p.Ops[0].Kind, p.Ops[1].Kind)
	}

	// Persist, reload and compare.
	if _, err := wire.PersistCachePlan(memFS, "/work/cache_plan.json", p); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	loaded, err := wire.LoadCachePlan(memFS, "/work/cache_plan.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.Equal(p) {
		t.Errorf("reloaded plan differs:\n got %+v\nwant %+v", loaded, p)
	}

	// Archive twice; the second put must be rejected.
	rec, err := st.Put(ctx, wire.CacheDocument(loaded))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !rec.CreatedAt.Equal(clk.Now()) || rec.TotalBytes != 786432 || rec.Ops != 2 {
		t.Errorf("unexpected record %+v", rec)
	}
	if _, err := st.Put(ctx, wire.CacheDocument(loaded)); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("second Put error = %v, want ErrAlreadyExists", err)
	}

	doc, got, err := st.Get(ctx, p.PlanID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Digest != rec.Digest || !doc.Cache.Equal(p) {
		t.Errorf("archived plan does not round-trip")
	}

	records, err := st.List(ctx)
	if err != nil || len(records) != 1 {
		t.Fatalf("List = %v, %v; want one record", records, err)
	}
}

func TestSwapPipeline_ConvertVerifyArchive(t *testing.T) {
	memFS, st, opts, _ := setupPipeline(t)
	ctx := context.Background()

	to, err := convert.ReadRawManifest(strings.NewReader(`{
		"model_id": "llama", "version": "9",
		"tensors": [
			{"name": "embed", "shards": [{"uri": "file:///ckpt/embed.bin", "bytes": 4096, "hash": "aa"}]},
			{"name": "head", "shards": [{"uri": "/ckpt/head.bin", "bytes": 2048, "hash": "bb"}]}
		]
	}`))
	if err != nil {
		t.Fatalf("ReadRawManifest failed: %v", err)
	}
	buckets, err := convert.ReadBuckets(strings.NewReader(`[
		{"bucket_id": 0, "size": 4096, "items": [{"uri": "/ckpt/embed.bin", "nbytes": 4096, "tensor": "embed"}]},
		{"bucket_id": 1, "size": 2048, "items": [{"uri": "/ckpt/head.bin", "nbytes": 2048, "offset": 0, "tensor": "head", "shard_rank": 1}]}
	]`))
	if err != nil {
		t.Fatalf("ReadBuckets failed: %v", err)
	}

	opts.Grace = 2 * time.Second
	p, err := convert.NewSwapConverter(opts).Convert(convert.RawManifest{}, to, buckets, nil)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if p.PlanID != "swap-9" || len(p.Ops) != 2 {
		t.Fatalf("unexpected plan %s with %d ops", p.PlanID, len(p.Ops))
	}
	if p.Window.Budget() != 2*time.Second {
		t.Errorf("Budget() = %v, want 2s", p.Window.Budget())
	}
	if got := p.Ops[1].NoteText(); got != "tensor=head shard=1 bucket=1 offset=0" {
		t.Errorf("Note = %q", got)
	}

	// Checkpoint hashes come from a fake hasher; one chunk is stale.
	hasher := hash.NewFakeHasher()
	hasher.SetHash("/ckpt/embed.bin", strings.Repeat("a", 64))
	hasher.SetHash("/ckpt/head.bin", strings.Repeat("0", 64))
	p.To.Files[0].SHA256 = strings.Repeat("a", 64)
	p.To.Files[1].SHA256 = "sha256:" + strings.Repeat("b", 64)

	report, err := integrity.NewVerifier("", hasher, slog.Default()).Verify(ctx, p.To)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if report.Checked != 2 || len(report.Mismatches) != 1 || report.Mismatches[0].Reason != integrity.ReasonHashMismatch {
		t.Errorf("unexpected report %+v", report)
	}

	if _, err := wire.PersistSwapPlan(memFS, "/work/swap_plan.json", p); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	doc, err := wire.Load(memFS, "/work/swap_plan.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Family != wire.FamilySwap || !doc.Swap.Equal(p) {
		t.Fatalf("reloaded document differs")
	}
	if _, err := st.Put(ctx, doc); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
}

func TestPipeline_TamperedArchiveRejected(t *testing.T) {
	memFS, st, _, _ := setupPipeline(t)
	ctx := context.Background()

	p := plan.NewCachePlan("window-1", nil, nil, nil)
	if _, err := st.Put(ctx, wire.CacheDocument(p)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	path := "/archive/plans/text/window-1.json"
	memFS.files[path] = append(memFS.files[path], ' ')
	if _, _, err := st.Get(ctx, "window-1"); !errors.Is(err, store.ErrDigestMismatch) {
		t.Errorf("Get error = %v, want ErrDigestMismatch", err)
	}
}

func TestPipeline_WriteFailure(t *testing.T) {
	memFS, st, _, _ := setupPipeline(t)
	memFS.failWrites = true

	p := plan.NewCachePlan("window-2", nil, nil, nil)
	if _, err := wire.PersistCachePlan(memFS, "/work/plan.json", p); !errors.Is(err, errInjected) {
		t.Errorf("Persist error = %v, want injected failure", err)
	}
	if _, err := st.Put(context.Background(), wire.CacheDocument(p)); !errors.Is(err, errInjected) {
		t.Errorf("Put error = %v, want injected failure", err)
	}
	if _, _, err := st.Get(context.Background(), "window-2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after failed Put error = %v, want ErrNotFound", err)
	}
}
