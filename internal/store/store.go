// Package store archives encoded plans.
//
// Two backends implement Store. FileStore keeps each plan as its wire text
// in a directory apart from its JSON metadata record; SQLiteStore keeps the protobuf envelope and
// metadata in a single table. Both key plans by plan id, reject duplicates,
// record the wire format version a plan was written with, and verify a
// content digest of the wire text on every read.
package store

import (
	"context"
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/danieljhkim/bwplan/internal/clock"
	"github.com/danieljhkim/bwplan/internal/wire"
)

var (
	// ErrNotFound is returned when no plan has the requested id.
	ErrNotFound = errors.New("plan not found")

	// ErrAlreadyExists is returned when a plan id is already archived.
	ErrAlreadyExists = errors.New("plan already exists")

	// ErrIncompatibleSchema is returned for plans written with a wire format
	// this build cannot read.
	ErrIncompatibleSchema = errors.New("incompatible plan schema")

	// ErrDigestMismatch is returned when archived content no longer matches
	// its recorded digest.
	ErrDigestMismatch = errors.New("plan digest mismatch")
)

// Record describes one archived plan.
type Record struct {
	ID            string        `json:"id"`
	PlanID        string        `json:"plan_id"`
	Family        wire.Family   `json:"family"`
	SchemaVersion string        `json:"schema_version"`
	Digest        digest.Digest `json:"digest"`
	Size          int64         `json:"size"`
	Ops           int           `json:"ops"`
	TotalBytes    int64         `json:"total_bytes"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Store archives plans by plan id.
type Store interface {
	// Put archives doc. It fails with ErrAlreadyExists if the plan id is taken.
	Put(ctx context.Context, doc wire.Document) (Record, error)

	// Get returns the archived plan and its record.
	Get(ctx context.Context, planID string) (wire.Document, Record, error)

	// List returns all records, oldest first.
	List(ctx context.Context) ([]Record, error)

	// Delete removes an archived plan.
	Delete(ctx context.Context, planID string) error

	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	clock  clock.Clock
	logger *slog.Logger
}

// WithClock sets the clock used to stamp records.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	o.clock = clock.OrReal(o.clock)
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// newRecord describes doc, whose wire text is text.
func newRecord(doc wire.Document, text []byte, now time.Time) Record {
	return Record{
		ID:            uuid.NewString(),
		PlanID:        doc.PlanID(),
		Family:        doc.Family,
		SchemaVersion: wire.FormatVersion,
		Digest:        digest.FromBytes(text),
		Size:          int64(len(text)),
		Ops:           doc.OpCount(),
		TotalBytes:    doc.TotalBytes(),
		CreatedAt:     now.UTC(),
	}
}

// CheckCompatible reports ErrIncompatibleSchema unless version satisfies
// ^wire.FormatVersion.
func CheckCompatible(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: version %q: %v", ErrIncompatibleSchema, version, err)
	}
	c, err := semver.NewConstraint("^" + wire.FormatVersion)
	if err != nil {
		return fmt.Errorf("invalid format constraint: %w", err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: version %s, want ^%s", ErrIncompatibleSchema, version, wire.FormatVersion)
	}
	return nil
}

// verifyContent checks text against the record's digest.
func verifyContent(rec Record, text []byte) error {
	if err := rec.Digest.Validate(); err != nil {
		return fmt.Errorf("%w: plan %q: %v", ErrDigestMismatch, rec.PlanID, err)
	}
	if got := rec.Digest.Algorithm().FromBytes(text); got != rec.Digest {
		return fmt.Errorf("%w: plan %q: recorded %s, content %s", ErrDigestMismatch, rec.PlanID, rec.Digest, got)
	}
	return nil
}
