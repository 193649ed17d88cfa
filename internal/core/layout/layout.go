// Package layout describes the on-disk shape of an installed application.
// This is part of the Functional Core - all functions are pure with no I/O.
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	DefaultRoot        = "/opt/app"
	DefaultScriptsGlob = "scripts/*.sh"
	DefaultDirMode     = fs.FileMode(0o755)

	// ExecBits is the permission set added to every matched script.
	ExecBits = fs.FileMode(0o111)
)

// DefaultWorkDirs are created under the root after install.
var DefaultWorkDirs = []string{"logs", "temp"}

var ErrInvalidLayout = errors.New("invalid application layout")

// =============================================================================
// App
// =============================================================================

// App is the application root and everything the install hook touches
// beneath it. Relative paths are resolved against Root.
type App struct {
	Root        string
	ScriptsGlob string
	WorkDirs    []string
	DirMode     fs.FileMode
}

// Default returns the stock layout.
func Default() App {
	return App{
		Root:        DefaultRoot,
		ScriptsGlob: DefaultScriptsGlob,
		WorkDirs:    append([]string(nil), DefaultWorkDirs...),
		DirMode:     DefaultDirMode,
	}
}

// Validate checks the layout for paths that would escape the root.
func (a App) Validate() error {
	if strings.TrimSpace(a.Root) == "" {
		return fmt.Errorf("%w: root is empty", ErrInvalidLayout)
	}
	if a.ScriptsGlob == "" {
		return fmt.Errorf("%w: scripts glob is empty", ErrInvalidLayout)
	}
	if err := checkRelative("scripts glob", a.ScriptsGlob); err != nil {
		return err
	}
	if _, err := path.Match(filepath.ToSlash(a.ScriptsGlob), ""); err != nil {
		return fmt.Errorf("%w: scripts glob %q: %v", ErrInvalidLayout, a.ScriptsGlob, err)
	}
	for _, d := range a.WorkDirs {
		if d == "" {
			return fmt.Errorf("%w: empty work dir", ErrInvalidLayout)
		}
		if err := checkRelative("work dir", d); err != nil {
			return err
		}
	}
	if a.DirMode&0o700 != 0o700 {
		return fmt.Errorf("%w: dir mode %#o must grant the owner rwx", ErrInvalidLayout, a.DirMode)
	}
	return nil
}

func checkRelative(what, p string) error {
	if filepath.IsAbs(p) {
		return fmt.Errorf("%w: %s %q must be relative to the root", ErrInvalidLayout, what, p)
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s %q escapes the root", ErrInvalidLayout, what, p)
	}
	return nil
}

// ScriptsPattern is the absolute glob for deployment scripts.
func (a App) ScriptsPattern() string {
	return filepath.Join(a.Root, a.ScriptsGlob)
}

// ScriptsDir is the directory part of the scripts glob.
func (a App) ScriptsDir() string {
	return filepath.Dir(a.ScriptsPattern())
}

// WorkDirPaths returns absolute work directory paths in declaration order.
func (a App) WorkDirPaths() []string {
	paths := make([]string, 0, len(a.WorkDirs))
	for _, d := range a.WorkDirs {
		paths = append(paths, filepath.Join(a.Root, d))
	}
	return paths
}

// Executable returns mode with every execute bit set. Type bits are kept.
func Executable(mode fs.FileMode) fs.FileMode {
	return mode | ExecBits
}

// IsExecutable reports whether all execute bits are set.
func IsExecutable(mode fs.FileMode) bool {
	return mode.Perm()&ExecBits == ExecBits
}
