package staticdir

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one row of a directory listing. Link is percent-encoded, Label is
// not.
type Entry struct {
	Link  string
	Label string
}

// Listing is the data handed to the listing template as "title" and "files".
type Listing struct {
	Title string
	Files []Entry
}

// nolistSentinel marks a directory as private to listings.
const nolistSentinel = ".nolist"

// DefaultHidden hides dotfiles (except a ".well-known" directory), asset
// sidecar directories ending in "_files", directories holding a ".nolist"
// file and anything that is neither a regular file nor a directory.
func DefaultHidden(parent string, entry fs.DirEntry) bool {
	isDir, isFile := entryKind(parent, entry)
	if !isDir && !isFile {
		return true
	}
	name := entry.Name()
	if strings.HasPrefix(name, ".") && !(isDir && name == ".well-known") {
		return true
	}
	if isDir {
		if strings.HasSuffix(name, "_files") {
			return true
		}
		if st, err := os.Stat(filepath.Join(parent, name, nolistSentinel)); err == nil && st.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// entryKind follows symlinks, the same way a listing click would.
func entryKind(parent string, entry fs.DirEntry) (isDir, isFile bool) {
	mode := entry.Type()
	if mode&fs.ModeSymlink != 0 {
		st, err := os.Stat(filepath.Join(parent, entry.Name()))
		if err != nil {
			return false, false
		}
		mode = st.Mode().Type()
	}
	return mode.IsDir(), mode.IsRegular()
}

// List builds the listing for dirPath. title is used as is. The first entry
// always points at the parent directory.
func (d *Dir) List(ctx context.Context, dirPath, title string) (*Listing, error) {
	ents, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}
	files := make([]Entry, 0, len(ents)+1)
	files = append(files, Entry{Link: "../", Label: "../"})
	for _, e := range ents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.hidden(dirPath, e) {
			continue
		}
		name := e.Name()
		if isDir, _ := entryKind(dirPath, e); isDir {
			name += "/"
		} else {
			name = trimHTMLExt(name)
		}
		files = append(files, Entry{Link: escapeLink(name), Label: name})
	}
	return &Listing{Title: title, Files: files}, nil
}

func trimHTMLExt(name string) string {
	for _, ext := range htmlExts {
		if s, ok := strings.CutSuffix(name, ext); ok && s != "" {
			return s
		}
	}
	return name
}

func isHTML(name string) bool {
	ext := filepath.Ext(name)
	for _, h := range htmlExts {
		if ext == h {
			return true
		}
	}
	return false
}

// escapeLink percent-encodes a relative link. A leading "./" is added by
// url.URL when the first segment contains a colon, so names like "a:b" are
// not mistaken for a scheme.
func escapeLink(name string) string {
	u := url.URL{Path: name}
	return u.String()
}
