package integrity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/bwplan/internal/hash"
	"github.com/danieljhkim/bwplan/internal/plan"
)

func sha256Hex(data []byte) string {
	return digest.SHA256.FromBytes(data).Encoded()
}

// countingHasher records which Hasher method served each chunk.
type countingHasher struct {
	hash.Hasher
	files  []string
	ranges []string
}

func (h *countingHasher) HashFile(path string) (string, error) {
	h.files = append(h.files, filepath.Base(path))
	return h.Hasher.HashFile(path)
}

func (h *countingHasher) HashRange(path string, offset, length int64) (string, error) {
	h.ranges = append(h.ranges, filepath.Base(path))
	return h.Hasher.HashRange(path, offset, length)
}

func TestVerifier_Verify(t *testing.T) {
	root := t.TempDir()
	content := []byte("next-embedding-v1\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "embedding.bin"), content, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "layer1.bin"), []byte("layer1-stage\n"), 0644))

	good := sha256Hex(content)
	absPath := filepath.Join(root, "embedding.bin")

	m := plan.NewWeightManifest("demo", "next", []plan.FileChunk{
		{Path: "embedding.bin", Length: int64(len(content)), SHA256: good},
		{Path: absPath, Length: int64(len(content)), SHA256: "sha256:" + good},
		{Path: "embedding.bin", Offset: 5, Length: 9, SHA256: sha256Hex(content[5:14])},
		{Path: "layer1.bin", Length: 13, SHA256: good},
		{Path: "gone.bin", Length: 1, SHA256: good},
		{Path: "layer1.bin", Length: 100, SHA256: good},
		{Path: "layer1.bin", Length: 13, SHA256: "not-a-digest"},
	})

	hasher := &countingHasher{Hasher: hash.NewSHA256Hasher()}
	report, err := NewVerifier(root, hasher, nil).Verify(context.Background(), m)
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, 7, report.Checked)
	assert.Equal(t, []string{"embedding.bin", "embedding.bin", "layer1.bin"}, hasher.files)
	assert.Equal(t, []string{"embedding.bin", "gone.bin", "layer1.bin"}, hasher.ranges)
	assert.Equal(t, int64(2*len(content)+9), report.Bytes)

	reasons := make([]string, 0, len(report.Mismatches))
	for _, mm := range report.Mismatches {
		reasons = append(reasons, mm.Reason)
	}
	assert.Equal(t, []string{ReasonHashMismatch, ReasonMissing, ReasonShortRead, ReasonInvalidDigest}, reasons)
	assert.Equal(t, sha256Hex([]byte("layer1-stage\n")), report.Mismatches[0].Got)
}

func TestVerifier_AllMatch(t *testing.T) {
	hasher := hash.NewFakeHasher()
	sum := sha256Hex([]byte("x"))
	hasher.SetHash("/ckpt/a.bin", sum)

	m := plan.NewWeightManifest("m", "v1", []plan.FileChunk{{Path: "a.bin", Length: 1, SHA256: sum}})
	report, err := NewVerifier("/ckpt", hasher, nil).Verify(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Checked)
	assert.NotNil(t, report.Mismatches)
}

func TestVerifier_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := plan.NewWeightManifest("m", "v1", []plan.FileChunk{{Path: "a.bin"}})
	_, err := NewVerifier("", hash.NewFakeHasher(), nil).Verify(ctx, m)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeDigest(t *testing.T) {
	hex := sha256Hex(nil)

	got, err := normalizeDigest(hex)
	require.NoError(t, err)
	assert.Equal(t, hex, got)

	got, err = normalizeDigest("sha256:" + hex)
	require.NoError(t, err)
	assert.Equal(t, hex, got)

	_, err = normalizeDigest("sha512:" + hex + hex)
	assert.Error(t, err)

	_, err = normalizeDigest("")
	assert.Error(t, err)
}
