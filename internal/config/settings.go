package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Settings holds runtime options read from the environment.
type Settings struct {
	LogLevel     string
	StoreBackend string

	// PageBytes is the KV page size assumed for rows without page_bytes
	PageBytes int64

	// DefaultNode is the node assumed for rows without a node column
	DefaultNode string

	// MaxPagesPerRow caps the page range one cache row may expand to
	MaxPagesPerRow int64

	KVTensor  string
	SwapGrace time.Duration

	// PlannerBackend labels the upstream planner backend in logs
	PlannerBackend string
}

// LoadSettings reads settings from the environment. Each dotenv file that
// exists is loaded first; variables already set in the process environment
// take precedence over file values.
func LoadSettings(envFiles ...string) (Settings, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	pageBytes, err := envInt("BWPLAN_PAGE_BYTES", 256*1024)
	collect(err)
	maxPages, err := envInt("BWPLAN_MAX_PAGES_PER_ROW", 1<<16)
	collect(err)
	grace, err := envDuration("BWPLAN_SWAP_GRACE", 5*time.Second)
	collect(err)

	s := Settings{
		LogLevel:       envStr("BWPLAN_LOG_LEVEL", "info"),
		StoreBackend:   envStr("BWPLAN_STORE_BACKEND", BackendFile),
		PageBytes:      pageBytes,
		DefaultNode:    envStr("BWPLAN_DEFAULT_NODE", "node-0"),
		MaxPagesPerRow: maxPages,
		KVTensor:       envStr("BWPLAN_KV_TENSOR", "kv"),
		SwapGrace:      grace,
		PlannerBackend: envStr("BWPLAN_PLANNER_BACKEND", ""),
	}
	if len(errs) > 0 {
		return Settings{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks that every setting is usable.
func (s Settings) Validate() error {
	if _, err := s.Level(); err != nil {
		return err
	}
	switch s.StoreBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("config: BWPLAN_STORE_BACKEND must be %q or %q, got %q", BackendFile, BackendSQLite, s.StoreBackend)
	}
	if s.PageBytes <= 0 {
		return fmt.Errorf("config: BWPLAN_PAGE_BYTES must be positive")
	}
	if s.MaxPagesPerRow <= 0 {
		return fmt.Errorf("config: BWPLAN_MAX_PAGES_PER_ROW must be positive")
	}
	if s.SwapGrace <= 0 {
		return fmt.Errorf("config: BWPLAN_SWAP_GRACE must be positive")
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: BWPLAN_LOG_LEVEL=%q is not a valid level", s.LogLevel)
	}
	return level, nil
}

func envStr(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
