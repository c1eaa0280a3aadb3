package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"
	_ "modernc.org/sqlite"

	"github.com/danieljhkim/bwplan/internal/wire"
)

// SQLiteStore implements Store on a single SQLite database file. Plans are
// stored as protobuf envelopes; the digest covers their wire text.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// OpenSQLite opens or creates the archive database at path.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan archive: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteStore{db: db, opts: buildOptions(opts)}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate plan archive: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS plans (
  id TEXT PRIMARY KEY,
  plan_id TEXT NOT NULL UNIQUE,
  family TEXT NOT NULL,
  schema_version TEXT NOT NULL,
  digest TEXT NOT NULL,
  size INTEGER NOT NULL DEFAULT 0,
  ops INTEGER NOT NULL DEFAULT 0,
  total_bytes INTEGER NOT NULL DEFAULT 0,
  created_at_ns INTEGER NOT NULL,
  envelope BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS plans_created_at ON plans(created_at_ns);
`)
	return err
}

// Put archives doc. A plan id already in the archive fails with
// ErrAlreadyExists, including when another writer inserts it first.
func (s *SQLiteStore) Put(ctx context.Context, doc wire.Document) (Record, error) {
	planID := doc.PlanID()
	if planID == "" {
		return Record{}, fmt.Errorf("invalid plan id: empty")
	}

	text, err := wire.Encode(doc)
	if err != nil {
		return Record{}, err
	}
	blob, err := wire.MarshalEnvelope(doc)
	if err != nil {
		return Record{}, err
	}
	rec := newRecord(doc, text, s.opts.clock.Now())

	res, err := s.db.ExecContext(ctx, `
INSERT INTO plans(id, plan_id, family, schema_version, digest, size, ops, total_bytes, created_at_ns, envelope)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(plan_id) DO NOTHING;
`, rec.ID, rec.PlanID, string(rec.Family), rec.SchemaVersion, rec.Digest.String(), rec.Size, rec.Ops, rec.TotalBytes, rec.CreatedAt.UnixNano(), blob)
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert plan %q: %w", planID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert plan %q: %w", planID, err)
	}
	if n == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrAlreadyExists, planID)
	}

	s.opts.logger.Debug("plan archived", "plan_id", planID, "digest", rec.Digest, "backend", "sqlite")
	return rec, nil
}

const recordColumns = "id, plan_id, family, schema_version, digest, size, ops, total_bytes, created_at_ns"

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, extra ...any) (Record, error) {
	var (
		rec       Record
		family    string
		dgst      string
		createdNs int64
	)
	dest := append([]any{&rec.ID, &rec.PlanID, &family, &rec.SchemaVersion, &dgst, &rec.Size, &rec.Ops, &rec.TotalBytes, &createdNs}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Record{}, err
	}
	rec.Family = wire.Family(family)
	rec.Digest = digest.Digest(dgst)
	rec.CreatedAt = time.Unix(0, createdNs).UTC()
	return rec, nil
}

// Get returns the archived plan and its record.
func (s *SQLiteStore) Get(ctx context.Context, planID string) (wire.Document, Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+", envelope FROM plans WHERE plan_id=?;", planID)

	var blob []byte
	rec, err := scanRecord(row, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return wire.Document{}, Record{}, fmt.Errorf("%w: %s", ErrNotFound, planID)
	}
	if err != nil {
		return wire.Document{}, Record{}, fmt.Errorf("failed to read plan %q: %w", planID, err)
	}
	if err := CheckCompatible(rec.SchemaVersion); err != nil {
		return wire.Document{}, Record{}, err
	}

	doc, err := wire.UnmarshalEnvelope(blob)
	if err != nil {
		return wire.Document{}, Record{}, err
	}
	text, err := wire.Encode(doc)
	if err != nil {
		return wire.Document{}, Record{}, err
	}
	if err := verifyContent(rec, text); err != nil {
		return wire.Document{}, Record{}, err
	}
	return doc, rec, nil
}

// List returns all records, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM plans ORDER BY created_at_ns ASC, plan_id ASC;")
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return out, nil
}

// Delete removes an archived plan.
func (s *SQLiteStore) Delete(ctx context.Context, planID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM plans WHERE plan_id=?;", planID)
	if err != nil {
		return fmt.Errorf("failed to delete plan %q: %w", planID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete plan %q: %w", planID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, planID)
	}

	s.opts.logger.Debug("plan deleted", "plan_id", planID, "backend", "sqlite")
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
