package integration

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/danieljhkim/bwplan/internal/clock"
	"github.com/danieljhkim/bwplan/internal/convert"
	"github.com/danieljhkim/bwplan/internal/fsops"
	"github.com/danieljhkim/bwplan/internal/store"
)

// testNow is the fixed instant every fake clock starts at.
var testNow = time.Unix(1735689600, 0)

// errInjected is returned by testFS writes once failWrites is set.
var errInjected = errors.New("injected write failure")

// testFS is a filesystem implementation that tracks files in memory for testing
type testFS struct {
	files      map[string][]byte
	dirs       map[string]bool
	failWrites bool
}

var _ fsops.FS = (*testFS)(nil)

func newTestFS() *testFS {
	return &testFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (fs *testFS) ReadFile(path string) ([]byte, error) {
	if content, ok := fs.files[path]; ok {
		return append([]byte(nil), content...), nil
	}
	return nil, os.ErrNotExist
}

func (fs *testFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	if fs.failWrites {
		return errInjected
	}
	fs.files[path] = append([]byte(nil), data...)
	return nil
}

func (fs *testFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fs.WriteFile(path, data, perm)
}

func (fs *testFS) MkdirAll(path string, perm os.FileMode) error {
	for p := path; p != "." && p != string(filepath.Separator); p = filepath.Dir(p) {
		fs.dirs[p] = true
	}
	return nil
}

func (fs *testFS) Remove(path string) error {
	if _, ok := fs.files[path]; !ok {
		return os.ErrNotExist
	}
	delete(fs.files, path)
	return nil
}

func (fs *testFS) ReadDir(path string) ([]os.DirEntry, error) {
	if !fs.dirs[path] {
		return nil, os.ErrNotExist
	}
	prefix := path + string(filepath.Separator)
	var entries []os.DirEntry
	for p, content := range fs.files {
		if strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], string(filepath.Separator)) {
			entries = append(entries, iofs.FileInfoToDirEntry(&mockFileInfo{name: filepath.Base(p), size: int64(len(content))}))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (fs *testFS) Exists(path string) (bool, error) {
	_, hasFile := fs.files[path]
	return hasFile || fs.dirs[path], nil
}

func (fs *testFS) ValidateIdentifier(id string) error {
	return fsops.NewRealFS().ValidateIdentifier(id)
}

// mockFileInfo implements os.FileInfo
type mockFileInfo struct {
	name string
	size int64
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() os.FileMode  { return 0644 }
func (m *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m *mockFileInfo) IsDir() bool        { return false }
func (m *mockFileInfo) Sys() interface{}   { return nil }

// setupPipeline returns an in-memory filesystem, a file-backed store on it,
// converter options and the fake clock they share.
func setupPipeline(t *testing.T) (*testFS, *store.FileStore, convert.Options, *clock.Fake) {
	t.Helper()
	memFS := newTestFS()
	clk := clock.NewFake(testNow)
	st := store.NewFileStore(memFS, "/archive/plans", store.WithClock(clk))
	t.Cleanup(func() { _ = st.Close() })
	return memFS, st, convert.Options{Clock: clk}, clk
}
