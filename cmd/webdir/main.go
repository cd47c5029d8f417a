package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"webdir/internal/auth"
	"webdir/internal/config"
	"webdir/internal/httpserver"
	"webdir/internal/logging"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "passwd" {
		passwdCmd(os.Args[2:])
		return
	}

	var (
		cfgPath      = flag.String("config", "", "path to config json (optional)")
		root         = flag.String("root", "", "directory to serve (required if the config has none)")
		addr         = flag.String("addr", "", "listen address (default 0.0.0.0:8080, or 0.0.0.0:443 with TLS)")
		prefix       = flag.String("prefix", "", "URL path the tree is mounted at (default /)")
		listDirs     = flag.Bool("list-dirs", true, "generate listings for directories without an index file")
		templateDir  = flag.String("template-dir", "", "directory holding the listing template (default: bundled)")
		templateFile = flag.String("template-file", "", "listing template file name (default list_dir.html)")
		certFile     = flag.String("certfile", "", "TLS certificate (enables HTTPS)")
		keyFile      = flag.String("keyfile", "", "TLS private key")
		redirectAddr = flag.String("redirect-addr", "", "HTTP->HTTPS redirect listener (default 0.0.0.0:80 with TLS)")
		metricsAddr  = flag.String("metrics-addr", "", "Prometheus metrics listen address (optional)")
		logLevel     = flag.String("log-level", "", "log level: debug, info, warn, error")
		logFormat    = flag.String("log-format", "", "log format: json, console")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// explicitly set flags win over file and env
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.Root = *root
		case "addr":
			cfg.Addr = *addr
		case "prefix":
			cfg.Prefix = *prefix
		case "list-dirs":
			cfg.ListDirs = listDirs
		case "template-dir":
			cfg.TemplateDir = *templateDir
		case "template-file":
			cfg.TemplateFile = *templateFile
		case "certfile":
			cfg.TLSCert = *certFile
		case "keyfile":
			cfg.TLSKey = *keyFile
		case "redirect-addr":
			cfg.RedirectAddr = *redirectAddr
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		}
	})
	cfg.SetDefaults()

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logging.Sync() }()

	if err := cfg.Validate(); err != nil {
		logging.Fatal("invalid configuration", zap.Error(err))
	}

	srv, err := httpserver.New(httpserver.Options{Config: cfg})
	if err != nil {
		logging.Fatal("server init", zap.Error(err))
	}
	if auth.HasAuth(cfg) {
		logging.Info("basic auth enabled",
			zap.Int("users", len(cfg.Users)),
			zap.Bool("optional", cfg.AuthOptional),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logging.Error("server stopped", zap.Error(err))
		_ = logging.Sync()
		os.Exit(1)
	}
	logging.Info("shutdown complete")
}

func passwdCmd(args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	var (
		password = fs.String("p", "", "password (required)")
		cost     = fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	)
	_ = fs.Parse(args)
	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: webdir passwd -p <password>")
		os.Exit(2)
	}
	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		fmt.Fprintf(os.Stderr, "invalid cost %d (min=%d max=%d)\n", *cost, bcrypt.MinCost, bcrypt.MaxCost)
		os.Exit(2)
	}
	h, err := auth.HashPassword(*password, *cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bcrypt: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(h)
}
