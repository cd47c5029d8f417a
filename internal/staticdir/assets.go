package staticdir

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// sidecarSuffix names the directory a browser's "save page" writes next to
// an HTML file.
const sidecarSuffix = "_files"

// pushHeaders are copied from the triggering request onto every promised
// request so the client can revalidate pushed resources the same way.
var pushHeaders = []string{
	"Accept-Encoding",
	"Accept-Language",
	"Cache-Control",
	"Pragma",
	"User-Agent",
}

// Push is one promised request to issue before the primary response.
type Push struct {
	Target string
	Header http.Header
}

// Dependencies returns the entries of the "<stem>_files" directory next to
// an HTML file. Anything else, or a missing or unreadable sidecar, yields
// nil.
func (d *Dir) Dependencies(t Target) []string {
	if t.Kind != File || !isHTML(t.Path) {
		return nil
	}
	base := filepath.Base(t.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	sidecar := filepath.Join(filepath.Dir(t.Path), stem+sidecarSuffix)
	ents, err := os.ReadDir(sidecar)
	if err != nil {
		return nil
	}
	deps := make([]string, 0, len(ents))
	for _, e := range ents {
		deps = append(deps, filepath.Join(sidecar, e.Name()))
	}
	return deps
}

// pushTargets turns dependency paths into root-relative, percent-encoded
// URLs under the mount prefix.
func (d *Dir) pushTargets(deps []string, reqHeader http.Header) []Push {
	if len(deps) == 0 {
		return nil
	}
	hdr := make(http.Header)
	for _, k := range pushHeaders {
		if v := reqHeader.Values(k); len(v) > 0 {
			hdr[k] = append([]string(nil), v...)
		}
	}
	pushes := make([]Push, 0, len(deps))
	for _, dep := range deps {
		rel, err := filepath.Rel(d.root, dep)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		u := url.URL{Path: d.prefix + filepath.ToSlash(rel)}
		pushes = append(pushes, Push{Target: u.EscapedPath(), Header: hdr.Clone()})
	}
	return pushes
}
