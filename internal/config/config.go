package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is JSON-friendly and mirrors the engine options plus the process
// wiring around them. If Users is empty, webdir runs without auth.
type Config struct {
	// Root is the directory served by webdir.
	Root string `json:"root"`

	// ListDirs enables generated listings for directories without an index
	// file. Default: true.
	ListDirs *bool `json:"listDirs,omitempty"`

	// TemplateDir/TemplateFile locate the listing template.
	// Default: the bundled list_dir.html.
	TemplateDir  string `json:"templateDir,omitempty"`
	TemplateFile string `json:"templateFile,omitempty"`

	// ImplicitExts overrides the built-in extension-free URL allow-list.
	ImplicitExts []string `json:"implicitExts,omitempty"`

	// Prefix is the URL path the tree is mounted at. Default "/".
	Prefix string `json:"prefix,omitempty"`

	// Addr is the main listen address.
	// Default: 0.0.0.0:443 with TLS, else 0.0.0.0:8080.
	Addr string `json:"addr,omitempty"`

	// RedirectAddr, when TLS is on, serves HTTP->HTTPS redirects.
	// Default: 0.0.0.0:80 with TLS; must be empty without TLS.
	RedirectAddr string `json:"redirectAddr,omitempty"`

	// TLSCert/TLSKey enable HTTPS (and HTTP/2 push). Both or neither.
	TLSCert string `json:"tlsCert,omitempty"`
	TLSKey  string `json:"tlsKey,omitempty"`

	// MetricsAddr serves Prometheus metrics on a separate listener.
	// Empty disables it.
	MetricsAddr string `json:"metricsAddr,omitempty"`

	LogLevel  string `json:"logLevel,omitempty"`  // debug, info, warn, error
	LogFormat string `json:"logFormat,omitempty"` // json, console

	// AuthOptional lets anonymous requests through when Users is set;
	// requests that do send credentials are still checked.
	AuthOptional bool `json:"authOptional,omitempty"`

	// Users is a map of username -> bcrypt hash.
	// Example:
	// "alice": {"bcrypt":"$2a$10$..."}
	Users map[string]User `json:"users,omitempty"`
}

type User struct {
	Bcrypt string `json:"bcrypt"`
}

// Load reads the optional JSON file at path, then overlays environment
// variables (a .env file in the working directory is honored).
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	_ = godotenv.Load()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Root = envOr("WEBDIR_ROOT", c.Root)
	c.Prefix = envOr("WEBDIR_PREFIX", c.Prefix)
	c.Addr = envOr("WEBDIR_ADDR", c.Addr)
	c.RedirectAddr = envOr("WEBDIR_REDIRECT_ADDR", c.RedirectAddr)
	c.TLSCert = envOr("WEBDIR_TLS_CERT", c.TLSCert)
	c.TLSKey = envOr("WEBDIR_TLS_KEY", c.TLSKey)
	c.MetricsAddr = envOr("WEBDIR_METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = envOr("WEBDIR_LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("WEBDIR_LOG_FORMAT", c.LogFormat)
	c.TemplateDir = envOr("WEBDIR_TEMPLATE_DIR", c.TemplateDir)
	if v, ok := envBool("WEBDIR_LIST_DIRS"); ok {
		c.ListDirs = &v
	}
}

// SetDefaults fills in everything left empty.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		if c.TLS() {
			c.Addr = "0.0.0.0:443"
		} else {
			c.Addr = "0.0.0.0:8080"
		}
	}
	if c.RedirectAddr == "" && c.TLS() {
		c.RedirectAddr = "0.0.0.0:80"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}

// Validate reports the first inconsistency.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return errors.New("config: root is required")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("config: both tlsCert and tlsKey must be provided to enable TLS")
	}
	if c.RedirectAddr != "" && !c.TLS() {
		return errors.New("config: redirectAddr requires TLS")
	}
	for name, u := range c.Users {
		if name == "" || strings.Contains(name, ":") {
			return fmt.Errorf("config: invalid username %q", name)
		}
		if u.Bcrypt == "" {
			return fmt.Errorf("config: user %q has no bcrypt hash", name)
		}
	}
	return nil
}

// TLS reports whether HTTPS is configured.
func (c Config) TLS() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// ListingEnabled resolves the ListDirs default.
func (c Config) ListingEnabled() bool {
	return c.ListDirs == nil || *c.ListDirs
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
