package staticdir

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"webdir/internal/logging"
	"webdir/internal/metrics"
)

// ServeHTTP makes Dir an http.Handler mounted at its prefix.
func (d *Dir) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel, ok := strings.CutPrefix(r.URL.Path, d.prefix)
	if !ok {
		if r.URL.Path+"/" == d.prefix {
			u := *r.URL
			u.Path = d.prefix
			http.Redirect(w, r, u.RequestURI(), http.StatusTemporaryRedirect)
			return
		}
		d.write(w, r, nil, d.notFound())
		return
	}

	pusher, canPush := pusherOf(w)
	resp, err := d.Handle(r.Context(), &Request{
		Method:   r.Method,
		Path:     rel,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header,
		CanPush:  canPush,
	})
	if err != nil {
		logging.WithContext(r.Context()).Debug("request abandoned", zap.Error(err))
		return
	}
	d.write(w, r, pusher, resp)
}

// pusherOf finds an http.Pusher through any middleware wrappers that expose
// Unwrap.
func pusherOf(w http.ResponseWriter) (http.Pusher, bool) {
	for {
		if p, ok := w.(http.Pusher); ok {
			return p, true
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return nil, false
		}
		w = u.Unwrap()
	}
}

func (d *Dir) write(w http.ResponseWriter, r *http.Request, pusher http.Pusher, resp *Response) {
	if pusher != nil && len(resp.Pushes) > 0 {
		push(r.Context(), pusher, resp.Pushes)
	}
	for k, v := range resp.Header {
		w.Header()[k] = v
	}

	switch b := resp.Body.(type) {
	case *FileBody:
		f, err := os.Open(b.Path)
		if err != nil {
			for k := range w.Header() {
				w.Header().Del(k)
			}
			w.WriteHeader(http.StatusNotFound)
			return
		}
		defer f.Close()
		if resp.Status == http.StatusOK {
			serveContent(w, r, b, f)
			return
		}
		w.Header().Set("Content-Length", strconv.FormatInt(b.Info.Size(), 10))
		w.WriteHeader(resp.Status)
		if r.Method != http.MethodHead {
			_, _ = io.Copy(w, f)
		}
	case *BytesBody:
		w.Header().Set("Content-Length", strconv.Itoa(len(b.Data)))
		w.WriteHeader(resp.Status)
		if r.Method != http.MethodHead {
			_, _ = w.Write(b.Data)
		}
	default:
		w.WriteHeader(resp.Status)
	}
}

// serveContent streams a file with Range support from net/http. The
// conditional headers were already evaluated by the dispatcher, so they are
// dropped here to keep that decision authoritative.
func serveContent(w http.ResponseWriter, r *http.Request, b *FileBody, f *os.File) {
	r = r.Clone(r.Context())
	r.Header.Del("If-None-Match")
	r.Header.Del("If-Modified-Since")
	http.ServeContent(w, r, b.Info.Name(), b.Info.ModTime(), f)
}

// push issues every promise concurrently and returns once all of them have
// been sent or failed. Failures never affect the primary response.
func push(ctx context.Context, p http.Pusher, pushes []Push) {
	log := logging.WithContext(ctx)
	var g errgroup.Group
	for _, pp := range pushes {
		g.Go(func() error {
			err := p.Push(pp.Target, &http.PushOptions{Method: http.MethodGet, Header: pp.Header})
			if err != nil {
				log.Debug("push failed", zap.String("target", pp.Target), zap.Error(err))
			}
			metrics.RecordPush(err == nil)
			return nil
		})
	}
	_ = g.Wait()
}
