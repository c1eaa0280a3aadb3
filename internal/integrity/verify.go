// Package integrity checks a weight manifest against checkpoint files on disk.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/danieljhkim/bwplan/internal/hash"
	"github.com/danieljhkim/bwplan/internal/plan"
)

// Reasons a chunk fails verification.
const (
	ReasonInvalidDigest = "invalid digest"
	ReasonMissing       = "missing"
	ReasonShortRead     = "short read"
	ReasonHashMismatch  = "hash mismatch"
)

// Mismatch describes one chunk that failed verification.
type Mismatch struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
	Length int64  `json:"length"`
	Reason string `json:"reason"`
	Want   string `json:"want,omitempty"`
	Got    string `json:"got,omitempty"`
}

// Report is the outcome of verifying one manifest.
type Report struct {
	ModelID    string     `json:"model_id"`
	Version    string     `json:"version"`
	Checked    int        `json:"checked"`
	Bytes      int64      `json:"bytes"`
	Mismatches []Mismatch `json:"mismatches"`
}

// OK reports whether every chunk matched.
func (r Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Verifier hashes manifest chunks under a root directory.
type Verifier struct {
	root   string
	hasher hash.Hasher
	logger *slog.Logger
}

// NewVerifier creates a Verifier. Relative chunk paths resolve against root.
func NewVerifier(root string, hasher hash.Hasher, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Verifier{root: root, hasher: hasher, logger: logger}
}

// Verify hashes every chunk of m and compares it with the recorded SHA-256.
// Per-chunk failures are collected in the report; only I/O errors other than
// a missing file or short read, and context cancellation, abort the run.
func (v *Verifier) Verify(ctx context.Context, m plan.WeightManifest) (Report, error) {
	report := Report{ModelID: m.ModelID, Version: m.Version, Mismatches: []Mismatch{}}

	for _, chunk := range m.Files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		mismatch := Mismatch{Path: chunk.Path, Offset: chunk.Offset, Length: chunk.Length, Want: chunk.SHA256}
		want, err := normalizeDigest(chunk.SHA256)
		if err != nil {
			mismatch.Reason = ReasonInvalidDigest
			report.Mismatches = append(report.Mismatches, mismatch)
			continue
		}

		got, err := v.hashChunk(v.resolve(chunk.Path), chunk)
		switch {
		case errors.Is(err, os.ErrNotExist):
			mismatch.Reason = ReasonMissing
		case errors.Is(err, hash.ErrShortRead):
			mismatch.Reason = ReasonShortRead
		case err != nil:
			return report, fmt.Errorf("failed to verify %s: %w", chunk.Path, err)
		case got != want:
			mismatch.Reason = ReasonHashMismatch
			mismatch.Got = got
		default:
			report.Bytes += chunk.Length
			continue
		}
		v.logger.Warn("chunk failed verification", "path", chunk.Path, "reason", mismatch.Reason)
		report.Mismatches = append(report.Mismatches, mismatch)
	}

	v.logger.Info("manifest verified",
		"model_id", m.ModelID,
		"version", m.Version,
		"checked", report.Checked,
		"mismatches", len(report.Mismatches),
	)
	return report, nil
}

// hashChunk hashes the whole file when the chunk spans all of it, and only
// the chunk's range otherwise.
func (v *Verifier) hashChunk(path string, chunk plan.FileChunk) (string, error) {
	if chunk.Offset == 0 {
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() && info.Size() == chunk.Length {
			return v.hasher.HashFile(path)
		}
	}
	return v.hasher.HashRange(path, chunk.Offset, chunk.Length)
}

func (v *Verifier) resolve(path string) string {
	if filepath.IsAbs(path) || v.root == "" {
		return path
	}
	return filepath.Join(v.root, path)
}

// normalizeDigest accepts a bare hex SHA-256 or an algorithm-prefixed
// "sha256:<hex>" digest and returns the hex part.
func normalizeDigest(s string) (string, error) {
	if strings.Contains(s, ":") {
		d, err := digest.Parse(s)
		if err != nil {
			return "", err
		}
		if d.Algorithm() != digest.SHA256 {
			return "", fmt.Errorf("unsupported digest algorithm %q", d.Algorithm())
		}
		return d.Encoded(), nil
	}
	if err := hash.ValidateHex(s); err != nil {
		return "", err
	}
	return s, nil
}
