package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	t.Run("returns paths based on home directory", func(t *testing.T) {
		t.Setenv("BWPLAN_ROOT", "")

		paths, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths failed: %v", err)
		}

		if filepath.Base(paths.Root) != ".bwplan" {
			t.Errorf("Root should end with .bwplan, got: %s", paths.Root)
		}
		if paths.Plans != filepath.Join(paths.Root, "plans") {
			t.Errorf("Plans path incorrect: got %s", paths.Plans)
		}
		if paths.Archive != filepath.Join(paths.Root, "archive.db") {
			t.Errorf("Archive path incorrect: got %s", paths.Archive)
		}
		if paths.Env != filepath.Join(paths.Root, ".env") {
			t.Errorf("Env path incorrect: got %s", paths.Env)
		}
	})

	t.Run("respects BWPLAN_ROOT environment variable", func(t *testing.T) {
		customRoot := "/custom/bwplan/path"
		t.Setenv("BWPLAN_ROOT", customRoot)

		paths, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths failed: %v", err)
		}

		if paths.Root != customRoot {
			t.Errorf("Expected root %s, got %s", customRoot, paths.Root)
		}
		if paths.Plans != filepath.Join(customRoot, "plans") {
			t.Errorf("Plans should be under custom root, got: %s", paths.Plans)
		}
	})
}

func TestPaths_EnsureDirectories(t *testing.T) {
	paths := PathsAt(filepath.Join(t.TempDir(), "root"))

	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{paths.Root, paths.Plans} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("directory %s not created: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	// Idempotent.
	if err := paths.EnsureDirectories(); err != nil {
		t.Errorf("second EnsureDirectories failed: %v", err)
	}
}
