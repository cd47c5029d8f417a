package staticdir

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"webdir/internal/fsutil"
)

// ErrNotFound is what every resolution failure collapses to: absent paths,
// permission errors, traversal attempts and unsupported entry types alike.
var ErrNotFound = errors.New("not found")

// Kind classifies a resolved target.
type Kind int

const (
	Missing Kind = iota
	File
	Directory
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "missing"
	}
}

// Target is the outcome of resolving one request path. Path is canonical and
// always inside the root unless Kind is Missing.
type Target struct {
	Kind Kind
	Path string
	Info fs.FileInfo
}

// htmlExts are tried before the implicit-extension list, in this order.
var htmlExts = []string{".html", ".htm"}

// Resolve maps a mount-relative, slash-separated path to a file or directory
// under the root. A leading "/" means the request had a doubled slash and is
// never resolved.
func (d *Dir) Resolve(rel string) Target {
	if strings.HasPrefix(rel, "/") {
		return Target{}
	}
	p, err := fsutil.JoinWithinRoot(d.root, rel)
	if err != nil {
		return Target{}
	}
	if _, err := os.Stat(p); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || strings.HasSuffix(rel, "/") {
			return Target{}
		}
		if p, err = d.implicitMatch(p); err != nil {
			return Target{}
		}
	}
	t, ok := d.classify(p)
	if !ok {
		return Target{}
	}
	return t
}

// implicitMatch looks for "<name>.html", "<name>.htm" and then any sibling
// named "<name><ext>" with ext in the implicit-extension set, taking the
// first one in directory order.
func (d *Dir) implicitMatch(p string) (string, error) {
	parent, name := filepath.Dir(p), filepath.Base(p)
	if st, err := os.Stat(parent); err != nil || !st.IsDir() {
		return "", ErrNotFound
	}
	for _, ext := range htmlExts {
		cand := p + ext
		if st, err := os.Stat(cand); err == nil && st.Mode().IsRegular() {
			return cand, nil
		}
	}
	ents, err := os.ReadDir(parent)
	if err != nil {
		return "", err
	}
	for _, e := range ents {
		ext, ok := strings.CutPrefix(e.Name(), name)
		if !ok || !strings.HasPrefix(ext, ".") {
			continue
		}
		if _, ok := d.implicitExts[ext]; ok {
			return filepath.Join(parent, e.Name()), nil
		}
	}
	return "", ErrNotFound
}

// classify canonicalizes p again, re-checks containment and stats it.
// Anything that is neither a regular file nor a directory is not served.
func (d *Dir) classify(p string) (Target, bool) {
	canon, err := fsutil.CanonicalWithinRoot(d.root, p)
	if err != nil {
		return Target{}, false
	}
	info, err := os.Lstat(canon)
	if err != nil {
		return Target{}, false
	}
	switch {
	case info.Mode().IsRegular():
		return Target{Kind: File, Path: canon, Info: info}, true
	case info.IsDir():
		return Target{Kind: Directory, Path: canon, Info: info}, true
	default:
		return Target{}, false
	}
}

// regularFile returns p as a File target if it canonicalizes inside the root
// and is a regular file.
func (d *Dir) regularFile(p string) (Target, bool) {
	t, ok := d.classify(p)
	if !ok || t.Kind != File {
		return Target{}, false
	}
	return t, true
}
