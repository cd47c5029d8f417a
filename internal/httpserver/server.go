package httpserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"webdir/internal/auth"
	"webdir/internal/config"
	"webdir/internal/logging"
	"webdir/internal/metrics"
	"webdir/internal/staticdir"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	Config config.Config
}

type Server struct {
	cfg config.Config
	dir *staticdir.Dir
}

func New(opts Options) (*Server, error) {
	cfg := opts.Config
	dir, err := staticdir.New(staticdir.Options{
		Root:           cfg.Root,
		DisableListing: !cfg.ListingEnabled(),
		TemplateDir:    cfg.TemplateDir,
		TemplateFile:   cfg.TemplateFile,
		ImplicitExts:   cfg.ImplicitExts,
		Prefix:         cfg.Prefix,
	})
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, dir: dir}, nil
}

// Dir returns the mounted engine.
func (s *Server) Dir() *staticdir.Dir { return s.dir }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})

	// the engine strips its own prefix and owns 404s outside it
	mux.Handle("/", s.dir)

	var h http.Handler = mux
	h = auth.RequireAuth(s.cfg, h)
	h = withHeaders(h)
	h = metrics.Middleware(h)
	h = logging.Middleware(h)
	return h
}

// withHeaders sets hardening headers and stamps X-Server-Time with the
// time spent before the response header went out.
func withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(&timingWriter{ResponseWriter: w, start: time.Now()}, r)
	})
}

type timingWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (tw *timingWriter) WriteHeader(code int) {
	if !tw.wroteHeader {
		tw.wroteHeader = true
		tw.Header().Set("X-Server-Time", strconv.FormatFloat(time.Since(tw.start).Seconds(), 'f', 6, 64))
	}
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timingWriter) Write(b []byte) (int, error) {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

func (tw *timingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

// RedirectHTTPS sends every request to the https:// form of the same URL.
// httpsPort is omitted from the Location when it is "443" or empty.
func RedirectHTTPS(httpsPort string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if httpsPort != "" && httpsPort != "443" {
			host = net.JoinHostPort(host, httpsPort)
		}
		u := url.URL{Scheme: "https", Host: host, Path: r.URL.Path, RawPath: r.URL.RawPath, RawQuery: r.URL.RawQuery}
		http.Redirect(w, r, u.String(), http.StatusPermanentRedirect)
	})
}

// Run serves until ctx is cancelled or a listener fails, then shuts every
// server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	var servers []*http.Server

	main := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	servers = append(servers, main)

	if s.cfg.TLS() {
		if err := http2.ConfigureServer(main, &http2.Server{}); err != nil {
			return err
		}
		g.Go(func() error {
			logging.Info("serving https", zap.String("addr", main.Addr), zap.String("root", s.dir.Root()))
			return ignoreClosed(main.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey))
		})
		if s.cfg.RedirectAddr != "" {
			_, port, _ := net.SplitHostPort(s.cfg.Addr)
			redirect := &http.Server{
				Addr:              s.cfg.RedirectAddr,
				Handler:           RedirectHTTPS(port),
				ReadHeaderTimeout: 10 * time.Second,
			}
			servers = append(servers, redirect)
			g.Go(func() error {
				logging.Info("serving https redirects", zap.String("addr", redirect.Addr))
				return ignoreClosed(redirect.ListenAndServe())
			})
		}
	} else {
		// cleartext HTTP/2 for clients with prior knowledge; no push there
		main.Handler = h2c.NewHandler(main.Handler, &http2.Server{})
		g.Go(func() error {
			logging.Info("serving http", zap.String("addr", main.Addr), zap.String("root", s.dir.Root()))
			return ignoreClosed(main.ListenAndServe())
		})
	}

	if s.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		ms := &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		servers = append(servers, ms)
		g.Go(func() error {
			logging.Info("serving metrics", zap.String("addr", ms.Addr))
			return ignoreClosed(ms.ListenAndServe())
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
