// Package fsops performs the filesystem side effects of the install hook.
//
// Every operation goes through an afero.Fs so tests can run against an
// in-memory filesystem; production uses afero.NewOsFs().
package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/artpar/stackhooks/internal/core/layout"
	"github.com/spf13/afero"
)

var (
	ErrScriptsDirMissing = errors.New("scripts directory does not exist")
	ErrNoScripts         = errors.New("no scripts matched")
	ErrNotDirectory      = errors.New("path exists but is not a directory")
)

// FS wraps an afero filesystem with the hook operations.
type FS struct {
	fs afero.Fs
}

// New returns an FS over fsys. A nil fsys means the host filesystem.
func New(fsys afero.Fs) *FS {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FS{fs: fsys}
}

// Afero exposes the underlying filesystem.
func (f *FS) Afero() afero.Fs {
	return f.fs
}

// RequireDir fails unless path exists and is a directory.
func (f *FS) RequireDir(path string) error {
	info, err := f.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
	return nil
}

// MakeScriptsExecutable adds the execute bits to every regular file
// matching the layout's scripts glob and returns the changed paths.
// Files already executable are left alone and not reported.
func (f *FS) MakeScriptsExecutable(app layout.App) ([]string, error) {
	dir := app.ScriptsDir()
	if err := f.RequireDir(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrScriptsDirMissing)
		}
		return nil, err
	}

	matches, err := afero.Glob(f.fs, app.ScriptsPattern())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", app.ScriptsPattern(), err)
	}
	sort.Strings(matches)

	var changed []string
	scripts := 0
	for _, path := range matches {
		info, err := f.fs.Stat(path)
		if err != nil {
			return changed, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		scripts++
		if layout.IsExecutable(info.Mode()) {
			continue
		}
		if err := f.fs.Chmod(path, layout.Executable(info.Mode().Perm())); err != nil {
			return changed, fmt.Errorf("chmod %s: %w", path, err)
		}
		changed = append(changed, path)
	}

	if scripts == 0 {
		return nil, fmt.Errorf("%s: %w", app.ScriptsPattern(), ErrNoScripts)
	}
	return changed, nil
}

// EnsureWorkDirs creates the layout's work directories. Existing
// directories are not an error; the returned slice lists the ones created.
func (f *FS) EnsureWorkDirs(app layout.App) ([]string, error) {
	var created []string
	for _, dir := range app.WorkDirPaths() {
		info, err := f.fs.Stat(dir)
		switch {
		case err == nil && info.IsDir():
			continue
		case err == nil:
			return created, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
		case !errors.Is(err, fs.ErrNotExist):
			return created, fmt.Errorf("stat %s: %w", dir, err)
		}

		if err := f.fs.MkdirAll(dir, app.DirMode); err != nil {
			return created, fmt.Errorf("mkdir %s: %w", dir, err)
		}
		created = append(created, dir)
	}
	return created, nil
}

// ReadFile reads name, resolving it against dir when relative.
func (f *FS) ReadFile(dir, name string) ([]byte, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Environ returns the process environment as a map for descriptor
// interpolation.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
