package cli

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bwplan/internal/clock"
	"github.com/danieljhkim/bwplan/internal/config"
	"github.com/danieljhkim/bwplan/internal/convert"
	"github.com/danieljhkim/bwplan/internal/fsops"
	"github.com/danieljhkim/bwplan/internal/store"
	"github.com/danieljhkim/bwplan/internal/wire"
)

// app bundles the real implementations every command runs against.
type app struct {
	paths    *config.Paths
	settings config.Settings
	fs       fsops.FS
	clock    clock.Clock
	logger   *slog.Logger
	out      *printer
}

// newApp resolves paths and settings and builds the logger. Log lines go to
// the command's stderr so stdout stays parseable.
func newApp(cmd *cobra.Command) (*app, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}

	settings, err := config.LoadSettings(paths.Env, ".env")
	if err != nil {
		return nil, err
	}
	level, err := settings.Level()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return &app{
		paths:    paths,
		settings: settings,
		fs:       fsops.NewRealFS(),
		clock:    clock.Real{},
		logger:   logger,
		out:      newPrinter(cmd.OutOrStdout()),
	}, nil
}

// convertOptions maps settings onto converter options.
func (a *app) convertOptions() convert.Options {
	return convert.Options{
		Tensor:           a.settings.KVTensor,
		DefaultNode:      a.settings.DefaultNode,
		DefaultPageBytes: a.settings.PageBytes,
		MaxPagesPerRow:   a.settings.MaxPagesPerRow,
		Backend:          a.settings.PlannerBackend,
		Grace:            a.settings.SwapGrace,
		Clock:            a.clock,
		Logger:           a.logger,
	}
}

// openStore opens the archive backend. An empty backend selects the one
// configured in settings.
func (a *app) openStore(backend string) (store.Store, error) {
	if backend == "" {
		backend = a.settings.StoreBackend
	}
	opts := []store.Option{store.WithClock(a.clock), store.WithLogger(a.logger)}

	switch backend {
	case config.BackendFile:
		return store.NewFileStore(a.fs, a.paths.Plans, opts...), nil
	case config.BackendSQLite:
		if err := a.paths.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("failed to ensure directories: %w", err)
		}
		return store.OpenSQLite(a.paths.Archive, opts...)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want %q or %q)", backend, config.BackendFile, config.BackendSQLite)
	}
}

// readFile reads an input file through the app filesystem.
func (a *app) readFile(path string) (*bytes.Reader, error) {
	data, err := a.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return bytes.NewReader(data), nil
}

// emit writes a plan to path, or its wire text to stdout when path is empty.
func (a *app) emit(doc wire.Document, path string) error {
	if path == "" {
		text, err := wire.Encode(doc)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.out.out, string(text))
		return err
	}
	_, err := wire.Persist(a.fs, path, doc)
	return err
}

// planSummary is the --json rendering of a plan.
type planSummary struct {
	PlanID     string          `json:"plan_id"`
	Family     wire.Family     `json:"family"`
	Ops        int             `json:"ops"`
	TotalBytes int64           `json:"total_bytes"`
	Kinds      []kindBreakdown `json:"kinds"`
	Prefetch   *int            `json:"prefetch,omitempty"`
	Evict      *int            `json:"evict,omitempty"`
	From       string          `json:"from,omitempty"`
	To         string          `json:"to,omitempty"`
	StartNs    *int64          `json:"t_start_ns,omitempty"`
	DeadlineNs *int64          `json:"t_deadline_ns,omitempty"`
	Path       string          `json:"path,omitempty"`
	Archived   *store.Record   `json:"archived,omitempty"`
}

func summarize(doc wire.Document) planSummary {
	s := planSummary{
		PlanID:     doc.PlanID(),
		Family:     doc.Family,
		Ops:        doc.OpCount(),
		TotalBytes: doc.TotalBytes(),
	}
	if doc.Family == wire.FamilySwap {
		s.Kinds = breakdown(doc.Swap.Ops)
		s.From = doc.Swap.From.Version
		s.To = doc.Swap.To.Version
		start, deadline := doc.Swap.Window.StartNs, doc.Swap.Window.DeadlineNs
		s.StartNs, s.DeadlineNs = &start, &deadline
		return s
	}
	s.Kinds = breakdown(doc.Cache.Ops)
	prefetch, evict := len(doc.Cache.Prefetch), len(doc.Cache.Evict)
	s.Prefetch, s.Evict = &prefetch, &evict
	return s
}
