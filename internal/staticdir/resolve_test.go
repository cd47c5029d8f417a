package staticdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExactMatch(t *testing.T) {
	root := makeTree(t, map[string]string{
		"a.txt":       "a",
		"sub/b.txt":   "b",
		"report/":     "",
		"report.html": "<p>r</p>",
	})
	d := newTestDir(t, root)

	got := d.Resolve("")
	assert.Equal(t, Directory, got.Kind)
	assert.Equal(t, root, got.Path)

	got = d.Resolve("a.txt")
	assert.Equal(t, File, got.Kind)
	assert.Equal(t, filepath.Join(root, "a.txt"), got.Path)
	require.NotNil(t, got.Info)
	assert.EqualValues(t, 1, got.Info.Size())

	got = d.Resolve("sub/b.txt")
	assert.Equal(t, File, got.Kind)

	// exact directory beats report.html
	got = d.Resolve("report")
	assert.Equal(t, Directory, got.Kind)
	assert.Equal(t, filepath.Join(root, "report"), got.Path)

	assert.Equal(t, Missing, d.Resolve("report/x").Kind)
}

func TestResolveImplicitExtensions(t *testing.T) {
	root := makeTree(t, map[string]string{
		"doc.htm":       "htm",
		"doc.pdf":       "pdf",
		"page.html":     "html",
		"page.htm":      "htm",
		"slides.pptx":   "pptx",
		"tool.exe":      "exe",
		"backup.tar.gz": "gz",
		"photo.JPG":     "jpg",
	})
	d := newTestDir(t, root)

	tests := []struct {
		rel  string
		want string // "" means Missing
	}{
		{"doc", "doc.htm"},
		{"page", "page.html"},
		{"slides", "slides.pptx"},
		{"tool", ""},
		// ".tar.gz" is not a single allow-listed extension
		{"backup", ""},
		{"backup.tar", "backup.tar.gz"},
		// matching is case-sensitive
		{"photo", ""},
		{"nope", ""},
		// trailing slash disables implicit matching
		{"doc/", ""},
		{"missing/doc", ""},
	}
	for _, tt := range tests {
		got := d.Resolve(tt.rel)
		if tt.want == "" {
			assert.Equal(t, Missing, got.Kind, "Resolve(%q)", tt.rel)
			continue
		}
		assert.Equal(t, File, got.Kind, "Resolve(%q)", tt.rel)
		assert.Equal(t, filepath.Join(root, tt.want), got.Path, "Resolve(%q)", tt.rel)
	}
}

func TestResolveCustomImplicitExts(t *testing.T) {
	root := makeTree(t, map[string]string{
		"notes.pdf": "pdf",
		"notes.txt": "txt",
		"site.html": "html",
	})
	d := newTestDir(t, root, func(o *Options) { o.ImplicitExts = []string{".txt"} })

	got := d.Resolve("notes")
	require.Equal(t, File, got.Kind)
	assert.Equal(t, filepath.Join(root, "notes.txt"), got.Path)

	// HTML is always tried, allow-list or not
	assert.Equal(t, File, d.Resolve("site").Kind)
}

func TestResolveTraversal(t *testing.T) {
	outside := makeTree(t, map[string]string{
		"secret.txt": "s",
		"leak.html":  "l",
		"private/x":  "x",
	})
	root := makeTree(t, map[string]string{"ok.txt": "ok"})
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "secret.txt")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "private"), filepath.Join(root, "private")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "leak.html"), filepath.Join(root, "leak.html")))
	d := newTestDir(t, root)

	for _, rel := range []string{
		"../../etc/passwd",
		"..",
		"../" + filepath.Base(outside) + "/secret.txt",
		"secret.txt",
		"private",
		"private/x",
		"leak", // implicit match onto an outward symlink
		"/ok.txt",
		"//ok.txt",
	} {
		got := d.Resolve(rel)
		assert.Equal(t, Missing, got.Kind, "Resolve(%q)", rel)
	}

	assert.Equal(t, File, d.Resolve("ok.txt").Kind)
}

func TestResolveSymlinkInsideRoot(t *testing.T) {
	root := makeTree(t, map[string]string{"real/file.txt": "x"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))
	d := newTestDir(t, root)

	got := d.Resolve("alias/file.txt")
	require.Equal(t, File, got.Kind)
	assert.Equal(t, filepath.Join(root, "real", "file.txt"), got.Path)
}

func TestResolveIdempotent(t *testing.T) {
	root := makeTree(t, map[string]string{"doc.pdf": "pdf", "dir/": ""})
	d := newTestDir(t, root)

	for _, rel := range []string{"doc", "dir", "missing", ""} {
		first := d.Resolve(rel)
		for i := 0; i < 5; i++ {
			again := d.Resolve(rel)
			assert.Equal(t, first.Kind, again.Kind, rel)
			assert.Equal(t, first.Path, again.Path, rel)
		}
	}
}
