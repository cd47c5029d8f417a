// Package staticdir serves a directory tree over HTTP with extension-free
// URLs, generated directory listings, conditional GET handling and HTTP/2
// push of "<page>_files" asset directories.
//
// The engine is split in two layers. Dir.Handle turns a method and a
// mount-relative path into a Response descriptor without touching the
// connection; Dir.ServeHTTP is the net/http host that serializes it.
package staticdir

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"

	"webdir/internal/fsutil"
)

//go:embed templates/list_dir.html
var bundledTemplates embed.FS

// DefaultTemplateFile is the listing template name looked up in the template
// directory (or in the bundled templates when no directory is configured).
const DefaultTemplateFile = "list_dir.html"

// DefaultImplicitExts are the extensions eligible for extension-free
// resolution. ".html" and ".htm" are always tried first regardless of this
// list.
var DefaultImplicitExts = []string{
	// basic text markup
	".html", ".htm", ".txt", ".md",
	// office files
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	// other documents
	".pdf", ".csv", ".json", ".xml", ".yaml", ".yml",
	// images
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".ico", ".bmp", ".webp", ".tif", ".tiff", ".dng",
	// audio
	".mp3", ".wav", ".ogg", ".flac", ".aac", ".wma", ".m4a", ".aiff", ".ape", ".alac",
	// video
	".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".vob", ".ogv", ".3gp", ".3g2", ".m4v",
	// archives
	".zip", ".rar", ".7z", ".tar", ".gz", ".bz2", ".xz", ".lz", ".lzma", ".lzo", ".zst", ".zstd",
}

// HiddenFunc decides whether a directory entry is left out of listings.
// parent is the canonical path of the directory being listed.
type HiddenFunc func(parent string, entry fs.DirEntry) bool

// Options configures a Dir. Only Root is required.
type Options struct {
	// Root is the directory to serve. It must exist and be a directory.
	Root string

	// DisableListing turns directory requests into 404s.
	DisableListing bool

	// TemplateDir holds the listing template. Empty means the bundled one.
	TemplateDir string
	// TemplateFile is the template name inside TemplateDir.
	// Default: DefaultTemplateFile.
	TemplateFile string

	// ImplicitExts overrides DefaultImplicitExts. Matching is case-sensitive.
	ImplicitExts []string

	// Hidden overrides DefaultHidden.
	Hidden HiddenFunc

	// Renderer turns Markdown files into HTML. Default: NewMarkdownRenderer().
	Renderer Renderer

	// Prefix is the URL path the tree is mounted at. Default "/".
	Prefix string
}

// ConfigError reports a construction-time problem. It is never returned
// per request.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("staticdir: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Dir is the resolution and serving engine for one root. It is immutable
// after New and safe for concurrent use.
type Dir struct {
	root         string
	listDirs     bool
	implicitExts map[string]struct{}
	hidden       HiddenFunc
	tmpl         *template.Template
	renderer     Renderer
	prefix       string
}

// New validates opts and builds a Dir.
func New(opts Options) (*Dir, error) {
	if opts.Root == "" {
		return nil, &ConfigError{Field: "root", Err: errors.New("required")}
	}
	root, err := fsutil.Realpath(opts.Root)
	if err != nil {
		return nil, &ConfigError{Field: "root", Err: err}
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, &ConfigError{Field: "root", Err: err}
	}
	if !st.IsDir() {
		return nil, &ConfigError{Field: "root", Err: fmt.Errorf("%s is not a directory", root)}
	}

	tmpl, err := loadTemplate(opts.TemplateDir, opts.TemplateFile)
	if err != nil {
		return nil, &ConfigError{Field: "template", Err: err}
	}

	exts := opts.ImplicitExts
	if exts == nil {
		exts = DefaultImplicitExts
	}
	extSet := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		extSet[e] = struct{}{}
	}

	d := &Dir{
		root:         root,
		listDirs:     !opts.DisableListing,
		implicitExts: extSet,
		hidden:       opts.Hidden,
		tmpl:         tmpl,
		renderer:     opts.Renderer,
		prefix:       fsutil.NormalizePrefix(opts.Prefix),
	}
	if d.hidden == nil {
		d.hidden = DefaultHidden
	}
	if d.renderer == nil {
		d.renderer = NewMarkdownRenderer()
	}
	return d, nil
}

// Root returns the canonical root directory.
func (d *Dir) Root() string { return d.root }

// Prefix returns the normalized mount prefix.
func (d *Dir) Prefix() string { return d.prefix }

func loadTemplate(dir, file string) (*template.Template, error) {
	if file == "" {
		file = DefaultTemplateFile
	}
	if dir == "" {
		return template.ParseFS(bundledTemplates, "templates/"+file)
	}
	p := filepath.Join(dir, file)
	st, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", p)
	}
	return template.ParseFiles(p)
}
