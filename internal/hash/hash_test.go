package hash

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
)

const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func sha256Hex(data []byte) string {
	return digest.SHA256.FromBytes(data).Encoded()
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestSHA256Hasher_HashFile(t *testing.T) {
	tmpDir := t.TempDir()
	hasher := NewSHA256Hasher()

	t.Run("matches in-memory hash", func(t *testing.T) {
		content := []byte("next-embedding-v1\n")
		path := writeFile(t, tmpDir, "embedding.bin", content)

		got, err := hasher.HashFile(path)
		if err != nil {
			t.Fatalf("HashFile failed: %v", err)
		}
		if got != sha256Hex(content) {
			t.Errorf("HashFile = %s, want %s", got, sha256Hex(content))
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, tmpDir, "empty.bin", nil)

		got, err := hasher.HashFile(path)
		if err != nil {
			t.Fatalf("HashFile failed: %v", err)
		}
		if got != emptySHA256 {
			t.Errorf("Empty file hash incorrect: got %s, want %s", got, emptySHA256)
		}
	})

	t.Run("non-existent file returns error", func(t *testing.T) {
		if _, err := hasher.HashFile(filepath.Join(tmpDir, "missing.bin")); err == nil {
			t.Error("Expected error for non-existent file, got nil")
		}
	})
}

func TestSHA256Hasher_HashRange(t *testing.T) {
	tmpDir := t.TempDir()
	hasher := NewSHA256Hasher()
	path := writeFile(t, tmpDir, "shard.bin", []byte("0123456789abcdef"))

	tests := []struct {
		name      string
		offset    int64
		length    int64
		want      string
		wantShort bool
		wantErr   bool
	}{
		{name: "whole file", offset: 0, length: 16, want: sha256Hex([]byte("0123456789abcdef"))},
		{name: "middle range", offset: 4, length: 6, want: sha256Hex([]byte("456789"))},
		{name: "empty range", offset: 16, length: 0, want: emptySHA256},
		{name: "past end", offset: 10, length: 10, wantShort: true},
		{name: "negative offset", offset: -1, length: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hasher.HashRange(path, tt.offset, tt.length)
			switch {
			case tt.wantShort:
				if !errors.Is(err, ErrShortRead) {
					t.Errorf("HashRange error = %v, want ErrShortRead", err)
				}
			case tt.wantErr:
				if err == nil {
					t.Error("HashRange should fail")
				}
			default:
				if err != nil {
					t.Fatalf("HashRange failed: %v", err)
				}
				if got != tt.want {
					t.Errorf("HashRange = %s, want %s", got, tt.want)
				}
			}
		})
	}
}

func TestValidateHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: emptySHA256},
		{name: "empty", input: "", wantErr: true},
		{name: "too short", input: "abc123", wantErr: true},
		{name: "uppercase", input: "E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855", wantErr: true},
		{name: "non hex", input: "zzb0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHex(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHex(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestFakeHasher(t *testing.T) {
	hasher := NewFakeHasher()

	t.Run("unknown path is missing", func(t *testing.T) {
		_, err := hasher.HashFile("/some/path")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("FakeHasher error = %v, want os.ErrNotExist", err)
		}
	})

	t.Run("configured hash is returned for any range", func(t *testing.T) {
		hasher.SetHash("/ckpt/a.bin", "custom-hash-123")

		got, err := hasher.HashFile("/ckpt/a.bin")
		if err != nil || got != "custom-hash-123" {
			t.Errorf("HashFile = %q, %v", got, err)
		}
		got, err = hasher.HashRange("/ckpt/a.bin", 10, 20)
		if err != nil || got != "custom-hash-123" {
			t.Errorf("HashRange = %q, %v", got, err)
		}
	})
}
