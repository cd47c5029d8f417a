package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir) // keep godotenv away from any real .env
	p := filepath.Join(dir, "webdir.json")
	require.NoError(t, os.WriteFile(p, []byte(`{
		"root": "/srv/www",
		"listDirs": false,
		"implicitExts": [".pdf"],
		"users": {"alice": {"bcrypt": "$2a$10$x"}}
	}`), 0o644))

	t.Setenv("WEBDIR_ADDR", ":9000")
	t.Setenv("WEBDIR_LIST_DIRS", "true")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "/srv/www", cfg.Root)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, []string{".pdf"}, cfg.ImplicitExts)
	assert.True(t, cfg.ListingEnabled(), "env overrides the file")
	assert.Equal(t, "$2a$10$x", cfg.Users["alice"].Bcrypt)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WEBDIR_ROOT=/from/dotenv\n"), 0o644))
	t.Setenv("WEBDIR_ROOT", "")
	os.Unsetenv("WEBDIR_ROOT")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.Root)
}

func TestLoadErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("/does/not/exist.json")
	assert.Error(t, err)

	p := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(p, []byte("{"), 0o644))
	_, err = Load(p)
	assert.ErrorContains(t, err, "parse config")
}

func TestDefaults(t *testing.T) {
	c := Config{Root: "/srv"}
	c.SetDefaults()
	assert.Equal(t, "0.0.0.0:8080", c.Addr)
	assert.Empty(t, c.RedirectAddr)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.True(t, c.ListingEnabled())

	c = Config{Root: "/srv", TLSCert: "c.pem", TLSKey: "k.pem"}
	c.SetDefaults()
	assert.Equal(t, "0.0.0.0:443", c.Addr)
	assert.Equal(t, "0.0.0.0:80", c.RedirectAddr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"ok", Config{Root: "/srv"}, true},
		{"missing root", Config{}, false},
		{"cert without key", Config{Root: "/srv", TLSCert: "c.pem"}, false},
		{"redirect without tls", Config{Root: "/srv", RedirectAddr: ":80"}, false},
		{"tls", Config{Root: "/srv", TLSCert: "c", TLSKey: "k", RedirectAddr: ":80"}, true},
		{"bad user", Config{Root: "/srv", Users: map[string]User{"a:b": {Bcrypt: "x"}}}, false},
		{"no hash", Config{Root: "/srv", Users: map[string]User{"a": {}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
