package staticdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeTree creates files under a fresh canonical temp dir. Keys ending in
// "/" become directories; everything else becomes a file with the value as
// content.
func makeTree(t *testing.T, entries map[string]string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for name, content := range entries {
		p := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func newTestDir(t *testing.T, root string, mod ...func(*Options)) *Dir {
	t.Helper()
	opts := Options{Root: root}
	for _, m := range mod {
		m(&opts)
	}
	d, err := New(opts)
	require.NoError(t, err)
	return d
}
