package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danieljhkim/bwplan/internal/fsops"
	"github.com/danieljhkim/bwplan/internal/wire"
)

const (
	textDir   = "text"
	recordDir = "records"
	fileExt   = ".json"
)

// FileStore implements Store using two sibling directories under dir:
// text/<plan id>.json holds the wire text and records/<plan id>.json the
// Record. Keeping them apart means no plan id can name another plan's record.
type FileStore struct {
	fs   fsops.FS
	dir  string
	opts options
}

// NewFileStore creates a new FileStore rooted at dir.
func NewFileStore(fs fsops.FS, dir string, opts ...Option) *FileStore {
	return &FileStore{
		fs:   fs,
		dir:  dir,
		opts: buildOptions(opts),
	}
}

func (s *FileStore) planPath(planID string) string {
	return filepath.Join(s.dir, textDir, planID+fileExt)
}

func (s *FileStore) recordPath(planID string) string {
	return filepath.Join(s.dir, recordDir, planID+fileExt)
}

// Put archives doc. The plan text is written before its record, so a
// crash between the two leaves an unlisted plan rather than a dangling record.
func (s *FileStore) Put(ctx context.Context, doc wire.Document) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	planID := doc.PlanID()
	if err := s.fs.ValidateIdentifier(planID); err != nil {
		return Record{}, fmt.Errorf("invalid plan id %q: %w", planID, err)
	}

	exists, err := s.fs.Exists(s.recordPath(planID))
	if err != nil {
		return Record{}, fmt.Errorf("failed to check plan %q: %w", planID, err)
	}
	if exists {
		return Record{}, fmt.Errorf("%w: %s", ErrAlreadyExists, planID)
	}

	text, err := wire.Encode(doc)
	if err != nil {
		return Record{}, err
	}
	rec := newRecord(doc, text, s.opts.clock.Now())

	meta, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal plan record: %w", err)
	}
	if err := s.fs.AtomicWrite(s.planPath(planID), text, 0644); err != nil {
		return Record{}, fmt.Errorf("failed to write plan: %w", err)
	}
	if err := s.fs.AtomicWrite(s.recordPath(planID), meta, 0644); err != nil {
		return Record{}, fmt.Errorf("failed to write plan record: %w", err)
	}

	s.opts.logger.Debug("plan archived", "plan_id", planID, "digest", rec.Digest, "backend", "file")
	return rec, nil
}

// Get returns the archived plan and its record.
func (s *FileStore) Get(ctx context.Context, planID string) (wire.Document, Record, error) {
	if err := ctx.Err(); err != nil {
		return wire.Document{}, Record{}, err
	}
	if err := s.fs.ValidateIdentifier(planID); err != nil {
		return wire.Document{}, Record{}, fmt.Errorf("invalid plan id %q: %w", planID, err)
	}

	rec, err := s.loadRecord(s.recordPath(planID))
	if err != nil {
		if os.IsNotExist(err) {
			return wire.Document{}, Record{}, fmt.Errorf("%w: %s", ErrNotFound, planID)
		}
		return wire.Document{}, Record{}, err
	}
	if err := CheckCompatible(rec.SchemaVersion); err != nil {
		return wire.Document{}, Record{}, err
	}

	text, err := s.fs.ReadFile(s.planPath(planID))
	if err != nil {
		return wire.Document{}, Record{}, fmt.Errorf("failed to read plan: %w", err)
	}
	if err := verifyContent(rec, text); err != nil {
		return wire.Document{}, Record{}, err
	}

	doc, err := wire.Decode(text)
	if err != nil {
		return wire.Document{}, Record{}, err
	}
	return doc, rec, nil
}

// List returns all records, oldest first.
func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.fs.ReadDir(filepath.Join(s.dir, recordDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	records := []Record{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		rec, err := s.loadRecord(filepath.Join(s.dir, recordDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].PlanID < records[j].PlanID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// Delete removes an archived plan and its record.
func (s *FileStore) Delete(ctx context.Context, planID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.ValidateIdentifier(planID); err != nil {
		return fmt.Errorf("invalid plan id %q: %w", planID, err)
	}

	if err := s.fs.Remove(s.recordPath(planID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, planID)
		}
		return fmt.Errorf("failed to delete plan record: %w", err)
	}
	if err := s.fs.Remove(s.planPath(planID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete plan: %w", err)
	}

	s.opts.logger.Debug("plan deleted", "plan_id", planID, "backend", "file")
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) loadRecord(path string) (Record, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("failed to read plan record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal plan record %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}
