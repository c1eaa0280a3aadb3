package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/bwplan/internal/clock"
	"github.com/danieljhkim/bwplan/internal/fsops"
	"github.com/danieljhkim/bwplan/internal/plan"
	"github.com/danieljhkim/bwplan/internal/wire"
)

var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func cacheDoc(t *testing.T, id string) wire.Document {
	t.Helper()
	op, err := plan.NewTransferOp(plan.KindH2D, "tier://node-0/tier0", "tier://node-0/tier1", 4096,
		plan.WithKvRefs(plan.KvPageRef{Tensor: "kv", Page: 1}), plan.WithNote("cluster=0 fanout=1 overlap=1"))
	require.NoError(t, err)
	return wire.CacheDocument(plan.NewCachePlan(id, []plan.TransferOp{op}, nil, nil))
}

func swapDoc(t *testing.T, id string) wire.Document {
	t.Helper()
	op, err := plan.NewTransferOp(plan.KindStorage2H, "file:///ckpt/a.bin", "device://bucket/0", 100)
	require.NoError(t, err)
	to := plan.NewWeightManifest("demo", "v2", []plan.FileChunk{{Path: "/ckpt/a.bin", Length: 100, SHA256: "ab"}})
	return wire.SwapDocument(plan.NewSwapPlan(id, plan.WeightManifest{}, to, []plan.TransferOp{op},
		plan.NewSwapWindow(1735689600123456789, 1735689605123456789)))
}

type backend struct {
	name string
	open func(t *testing.T, c clock.Clock) Store
}

func backends() []backend {
	return []backend{
		{
			name: "file",
			open: func(t *testing.T, c clock.Clock) Store {
				return NewFileStore(fsops.NewRealFS(), filepath.Join(t.TempDir(), "plans"), WithClock(c))
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T, c clock.Clock) Store {
				s, err := OpenSQLite(filepath.Join(t.TempDir(), "archive.db"), WithClock(c))
				require.NoError(t, err)
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
	}
}

func TestStore_Contract(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			c := clock.NewFake(testStart)
			c.AutoAdvance(time.Second)
			s := b.open(t, c)

			records, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, records)

			cache := cacheDoc(t, "cache-1735689600000")
			rec, err := s.Put(ctx, cache)
			require.NoError(t, err)
			assert.Equal(t, "cache-1735689600000", rec.PlanID)
			assert.Equal(t, wire.FamilyCache, rec.Family)
			assert.Equal(t, wire.FormatVersion, rec.SchemaVersion)
			assert.Equal(t, 1, rec.Ops)
			assert.Equal(t, int64(4096), rec.TotalBytes)
			assert.Equal(t, testStart, rec.CreatedAt)
			assert.Len(t, rec.ID, 36)

			text, err := wire.Encode(cache)
			require.NoError(t, err)
			assert.Equal(t, int64(len(text)), rec.Size)
			assert.NoError(t, rec.Digest.Validate())

			swap := swapDoc(t, "swap-v2")
			_, err = s.Put(ctx, swap)
			require.NoError(t, err)

			_, err = s.Put(ctx, cacheDoc(t, "cache-1735689600000"))
			assert.ErrorIs(t, err, ErrAlreadyExists)

			got, gotRec, err := s.Get(ctx, "swap-v2")
			require.NoError(t, err)
			assert.Equal(t, swap, got)
			assert.Equal(t, wire.FamilySwap, gotRec.Family)

			got, gotRec, err = s.Get(ctx, "cache-1735689600000")
			require.NoError(t, err)
			assert.Equal(t, cache, got)
			assert.Equal(t, rec, gotRec)

			records, err = s.List(ctx)
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "cache-1735689600000", records[0].PlanID)
			assert.Equal(t, "swap-v2", records[1].PlanID)

			require.NoError(t, s.Delete(ctx, "cache-1735689600000"))
			_, _, err = s.Get(ctx, "cache-1735689600000")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "cache-1735689600000"), ErrNotFound)

			records, err = s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, records, 1)

			_, _, err = s.Get(ctx, "never-stored")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = s.Put(ctx, cacheDoc(t, ""))
			assert.Error(t, err)

			require.NoError(t, s.Close())
		})
	}
}

func TestStore_SuffixedPlanIDs(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t, clock.NewFake(testStart))

			ids := []string{"x", "x.meta", "x.json", "x.meta.json"}
			for _, id := range ids {
				_, err := s.Put(ctx, cacheDoc(t, id))
				require.NoError(t, err, "Put(%q)", id)
			}

			for _, id := range ids {
				doc, rec, err := s.Get(ctx, id)
				require.NoError(t, err, "Get(%q)", id)
				assert.Equal(t, id, doc.PlanID())
				assert.Equal(t, id, rec.PlanID)
			}

			records, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, records, len(ids))

			require.NoError(t, s.Delete(ctx, "x.meta"))
			_, _, err = s.Get(ctx, "x")
			assert.NoError(t, err)
		})
	}
}

func TestFileStore_Tampered(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "plans")
	s := NewFileStore(fsops.NewRealFS(), dir, WithClock(clock.NewFake(testStart)))

	_, err := s.Put(ctx, cacheDoc(t, "p1"))
	require.NoError(t, err)
	_, err = s.Put(ctx, cacheDoc(t, "p2"))
	require.NoError(t, err)

	t.Run("content changed", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "text", "p1.json"), []byte(`{"plan_id": "p1"}`), 0644))
		_, _, err := s.Get(ctx, "p1")
		assert.ErrorIs(t, err, ErrDigestMismatch)
	})

	t.Run("newer schema", func(t *testing.T) {
		metaPath := filepath.Join(dir, "records", "p2.json")
		data, err := os.ReadFile(metaPath)
		require.NoError(t, err)
		var rec Record
		require.NoError(t, json.Unmarshal(data, &rec))
		rec.SchemaVersion = "2.0.0"
		data, err = json.Marshal(rec)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(metaPath, data, 0644))

		_, _, err = s.Get(ctx, "p2")
		assert.ErrorIs(t, err, ErrIncompatibleSchema)
	})

	t.Run("path traversal rejected", func(t *testing.T) {
		_, _, err := s.Get(ctx, "../p1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestSQLiteStore_Tampered(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Put(ctx, swapDoc(t, "swap-v2"))
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, "UPDATE plans SET digest=? WHERE plan_id=?;", "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", "swap-v2")
	require.NoError(t, err)
	_, _, err = s.Get(ctx, "swap-v2")
	assert.ErrorIs(t, err, ErrDigestMismatch)

	_, err = s.db.ExecContext(ctx, "UPDATE plans SET schema_version='0.9.0' WHERE plan_id=?;", "swap-v2")
	require.NoError(t, err)
	_, _, err = s.Get(ctx, "swap-v2")
	assert.ErrorIs(t, err, ErrIncompatibleSchema)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.Put(ctx, cacheDoc(t, "p1"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	doc, _, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, cacheDoc(t, "p1"), doc)
}

func TestSQLiteStore_DuplicateFromSecondHandle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.db")

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	defer first.Close()
	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	want, err := first.Put(ctx, cacheDoc(t, "p1"))
	require.NoError(t, err)

	_, err = second.Put(ctx, swapDoc(t, "p1"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	doc, rec, err := second.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, wire.FamilyCache, doc.Family)
	assert.Equal(t, want.ID, rec.ID)
}

func TestCheckCompatible(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{version: "1.0.0"},
		{version: "1.4.2"},
		{version: "2.0.0", wantErr: true},
		{version: "0.9.0", wantErr: true},
		{version: "", wantErr: true},
		{version: "latest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := CheckCompatible(tt.version)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIncompatibleSchema)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
