// Package config manages bwplan configuration and filesystem paths.
//
// Paths locate the plan archive. The default root is ~/.bwplan/ containing
// plans/ (file backend), archive.db (SQLite backend) and an optional .env
// file. Settings are read from the environment; see LoadSettings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the filesystem paths used by bwplan.
type Paths struct {
	// Root is the base directory for all bwplan data (default: ~/.bwplan)
	Root string

	// Plans is the directory used by the file archive backend
	Plans string

	// Archive is the SQLite archive database
	Archive string

	// Env is the optional dotenv file read before the process environment
	Env string
}

// DefaultPaths returns the default paths for bwplan.
// Paths can be overridden with environment variables:
// - BWPLAN_ROOT: Override the root directory
func DefaultPaths() (*Paths, error) {
	root := os.Getenv("BWPLAN_ROOT")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".bwplan")
	}
	return PathsAt(root), nil
}

// PathsAt returns the paths rooted at root.
func PathsAt(root string) *Paths {
	return &Paths{
		Root:    root,
		Plans:   filepath.Join(root, "plans"),
		Archive: filepath.Join(root, "archive.db"),
		Env:     filepath.Join(root, ".env"),
	}
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.Root, p.Plans} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
