// Package scope validates paths against the allowed-roots policy. Every
// file operation and command working directory passes through the guard
// before any I/O happens.
package scope

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/agentbox/agentbox/pkg/types"
)

// Guard checks paths against a fixed set of allowed roots. The roots are
// canonicalized once at construction and never change.
type Guard struct {
	roots []string
}

// NewGuard creates a guard for the given absolute root directories.
// Symlinked roots (e.g. /tmp on macOS) are resolved so containment
// checks compare canonical paths.
func NewGuard(roots []string) *Guard {
	g := &Guard{}
	for _, r := range roots {
		resolved, err := filepath.EvalSymlinks(r)
		if err != nil {
			resolved = filepath.Clean(r)
		}
		g.roots = append(g.roots, resolved)
	}
	return g
}

// Roots returns the canonical allowed roots.
func (g *Guard) Roots() []string {
	return append([]string(nil), g.roots...)
}

// Resolve canonicalizes path and verifies it lies under an allowed root.
// The path itself need not exist; the deepest existing ancestor is
// resolved so `..` and symlink tricks cannot escape the roots.
func (g *Guard) Resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", types.NewError(types.KindNotAbsolute, "path must be absolute: %s", path)
	}

	resolved := canonicalize(filepath.Clean(path))
	if !g.contains(resolved) {
		return "", types.NewError(types.KindOutsideScope, "path %s is outside the allowed roots", path)
	}
	return resolved, nil
}

// ResolveDir resolves a path that must be an existing directory.
func (g *Guard) ResolveDir(path string) (string, error) {
	resolved, err := g.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", types.NewError(types.KindNotFound, "directory does not exist: %s", path)
	}
	if !info.IsDir() {
		return "", types.NewError(types.KindNotAFile, "path is not a directory: %s", path)
	}
	return resolved, nil
}

// ResolveFile resolves a path that must be an existing regular file.
func (g *Guard) ResolveFile(path string) (string, error) {
	resolved, err := g.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", types.NewError(types.KindNotFound, "file does not exist: %s", path)
	}
	if info.IsDir() {
		return "", types.NewError(types.KindNotAFile, "path is a directory, not a file: %s", path)
	}
	return resolved, nil
}

// ResolveForWrite resolves a path that will be created or overwritten.
// The file may not exist yet, but its parent directory must.
func (g *Guard) ResolveForWrite(path string) (string, error) {
	resolved, err := g.Resolve(path)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(resolved); err == nil {
		if info.IsDir() {
			return "", types.NewError(types.KindNotAFile, "path is a directory, not a file: %s", path)
		}
		return resolved, nil
	}

	parent := filepath.Dir(resolved)
	info, err := os.Stat(parent)
	if err != nil || !info.IsDir() {
		return "", types.NewError(types.KindParentMissing, "parent directory does not exist: %s", parent)
	}
	return resolved, nil
}

// canonicalize resolves symlinks on the deepest existing prefix of path
// and re-joins the non-existing remainder.
func canonicalize(path string) string {
	remainder := ""
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(resolved, remainder)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Join(current, remainder)
		}
		remainder = filepath.Join(filepath.Base(current), remainder)
		current = parent
	}
}

func (g *Guard) contains(path string) bool {
	for _, root := range g.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
