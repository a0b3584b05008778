package extract

// resolve.go — maps a File Entry to its destination under the output root.
//
// root/path/name.suffix, or root/name.suffix when path is empty. The suffix
// is joined with a literal dot and never normalized.
//
// Containment: the cleaned destination must stay under the root, and so must
// the nearest existing ancestor once symlinks are resolved. Both are checked
// before any directory is created, so a refused entry leaves no trace.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"projextract/internal/archive"
)

// Resolver computes and prepares destination paths under one output root.
type Resolver struct {
	root     string // as given by the caller; returned paths keep this form
	absRoot  string
	realRoot string // absRoot with symlinks resolved
	deny     func(rel string) bool
}

// NewResolver binds a Resolver to root, which must already exist. deny may be
// nil; otherwise it is consulted with each slash-separated root-relative path.
func NewResolver(root string, deny func(rel string) bool) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return &Resolver{root: root, absRoot: abs, realRoot: resolved, deny: deny}, nil
}

// Root returns the root as given to NewResolver.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns the destination for e and creates its parent directories.
// Errors wrap ErrOutsideRoot or ErrDenied when the entry is refused.
func (r *Resolver) Resolve(e archive.FileEntry) (string, error) {
	rel := filepath.FromSlash(e.Path)
	target := filepath.Join(r.absRoot, rel, e.Filename())

	relToRoot, err := filepath.Rel(r.absRoot, target)
	if err != nil || escapes(relToRoot) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, filepath.Join(rel, e.Filename()))
	}
	if r.deny != nil && r.deny(filepath.ToSlash(relToRoot)) {
		return "", fmt.Errorf("%w: %s", ErrDenied, filepath.ToSlash(relToRoot))
	}

	parent := filepath.Dir(target)
	if err := r.checkReal(nearestExisting(parent)); err != nil {
		return "", err
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", parent, err)
	}
	// An existing symlink at the destination would be followed by the write.
	if info, err := os.Lstat(target); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := r.checkReal(target); err != nil {
			return "", err
		}
	}
	return filepath.Join(r.root, relToRoot), nil
}

// checkReal resolves symlinks in p and rejects results outside the root.
func (r *Resolver) checkReal(p string) error {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Dangling link: nothing to follow yet, the write will fail on its own.
			return nil
		}
		return err
	}
	if !hasPathPrefix(resolved, r.realRoot) {
		return fmt.Errorf("%w: %s resolves to %s", ErrOutsideRoot, p, resolved)
	}
	return nil
}

// nearestExisting walks up from p to the first path that exists.
func nearestExisting(p string) string {
	for {
		if _, err := os.Lstat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel)
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}
