// Package hash computes SHA-256 content hashes of checkpoint files.
//
// Weight manifests record one hex-encoded SHA-256 per file chunk. The package
// hashes whole files and byte ranges through go-digest so hashes are
// validated with the same rules OCI content uses, and provides a fake for
// tests that must not touch disk.
package hash

import (
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"
)

// ErrShortRead is returned when a range extends past the end of the file.
var ErrShortRead = errors.New("short read")

// Hasher provides an abstraction for file hashing operations.
type Hasher interface {
	// HashFile computes the hex hash of the whole file at path.
	HashFile(path string) (string, error)

	// HashRange computes the hex hash of length bytes starting at offset.
	HashRange(path string, offset, length int64) (string, error)
}

// SHA256Hasher implements Hasher using SHA-256.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a new SHA256Hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// HashFile computes the SHA-256 hash of the file at the given path.
func (h *SHA256Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	d, err := digest.SHA256.FromReader(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return d.Encoded(), nil
}

// HashRange computes the SHA-256 hash of a byte range. A range that runs past
// the end of the file fails with ErrShortRead.
func (h *SHA256Hasher) HashRange(path string, offset, length int64) (string, error) {
	if offset < 0 || length < 0 {
		return "", fmt.Errorf("invalid range offset=%d length=%d", offset, length)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	digester := digest.SHA256.Digester()
	n, err := io.Copy(digester.Hash(), io.NewSectionReader(file, offset, length))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if n != length {
		return "", fmt.Errorf("%w: %s: want %d bytes at offset %d, got %d", ErrShortRead, path, length, offset, n)
	}
	return digester.Digest().Encoded(), nil
}

// ValidateHex reports whether s is a well-formed hex SHA-256 (64 lowercase
// hex characters).
func ValidateHex(s string) error {
	return digest.NewDigestFromEncoded(digest.SHA256, s).Validate()
}

// FakeHasher implements Hasher with deterministic hashes for testing.
type FakeHasher struct {
	hashes map[string]string
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{
		hashes: make(map[string]string),
	}
}

// SetHash sets the hash returned for path, whatever range is requested.
func (h *FakeHasher) SetHash(path, hash string) {
	h.hashes[path] = hash
}

// HashFile returns the predetermined hash for the given path.
func (h *FakeHasher) HashFile(path string) (string, error) {
	if hash, ok := h.hashes[path]; ok {
		return hash, nil
	}
	return "", fmt.Errorf("failed to open file: %w", os.ErrNotExist)
}

// HashRange returns the predetermined hash for the given path.
func (h *FakeHasher) HashRange(path string, _, _ int64) (string, error) {
	return h.HashFile(path)
}
