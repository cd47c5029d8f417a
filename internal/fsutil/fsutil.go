package fsutil

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// ErrEscape is returned when a path canonicalizes to somewhere outside the root.
var ErrEscape = errors.New("path escape")

// NormalizePrefix takes a mount prefix like "", "/", "files", "/files//" and
// returns a slash-based prefix that starts and ends with "/".
func NormalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p) // force absolute for stable cleaning
	if p == "/" {
		return p
	}
	return p + "/"
}

// Realpath returns the canonical absolute form of p with every symlink
// resolved. Unlike filepath.EvalSymlinks it accepts paths whose final
// components do not exist yet: the longest existing ancestor is resolved and
// the missing tail is appended verbatim.
func Realpath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs, nil
	}
	rp, err := Realpath(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(rp, filepath.Base(abs)), nil
}

// WithinRoot reports whether p equals root or lies beneath it. Both must be
// canonical (see Realpath).
func WithinRoot(root, p string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// JoinWithinRoot joins a slash-separated relative path onto rootAbs,
// canonicalizes the result and rejects anything that ends up outside the
// root, whether through ".." segments or symlinks.
func JoinWithinRoot(rootAbs string, rel string) (string, error) {
	if strings.Contains(rel, "\x00") {
		return "", errors.New("invalid path")
	}
	return CanonicalWithinRoot(rootAbs, filepath.Join(rootAbs, filepath.FromSlash(rel)))
}

// CanonicalWithinRoot canonicalizes an already joined path and checks it
// against rootAbs.
func CanonicalWithinRoot(rootAbs string, p string) (string, error) {
	canon, err := Realpath(p)
	if err != nil {
		return "", err
	}
	if !WithinRoot(rootAbs, canon) {
		return "", ErrEscape
	}
	return canon, nil
}
