package staticdir

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"webdir/internal/logging"
	"webdir/internal/metrics"
)

// Request is what the host hands the dispatcher.
type Request struct {
	Method   string
	Path     string // relative to the mount prefix, no leading slash
	RawQuery string
	Header   http.Header
	// CanPush is set when the transport supports push promises for this
	// request.
	CanPush bool
}

// Response describes what the host should send. Body is nil, *FileBody or
// *BytesBody. Pushes, if any, must be issued before the body.
type Response struct {
	Status int
	Header http.Header
	Body   Body
	Pushes []Push
}

// Body is the payload of a Response.
type Body interface {
	body()
}

// FileBody streams a file from disk.
type FileBody struct {
	Path string
	Info os.FileInfo
}

// BytesBody carries content produced in memory (rendered Markdown, listings).
type BytesBody struct {
	Data []byte
}

func (*FileBody) body()  {}
func (*BytesBody) body() {}

var (
	indexFiles    = []string{"index.html", "index.htm"}
	notFoundPages = []string{"404.html", "404.htm"}
)

// Handle resolves req and decides the response. The only error it returns is
// the context's, when the request was abandoned before a descriptor was
// ready.
func (d *Dir) Handle(ctx context.Context, req *Request) (*Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		h := make(http.Header)
		h.Set("Allow", "GET, HEAD")
		return &Response{Status: http.StatusMethodNotAllowed, Header: h}, nil
	}

	t := d.Resolve(req.Path)
	metrics.RecordResolution(t.Kind.String())
	logging.WithContext(ctx).Debug("resolved",
		zap.String("rel", req.Path),
		zap.Stringer("kind", t.Kind),
		zap.String("target", t.Path),
	)

	var resp *Response
	switch t.Kind {
	case File:
		resp = d.serveFile(ctx, req, t)
	case Directory:
		resp = d.serveDir(ctx, req, t)
	default:
		resp = d.notFound()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (d *Dir) serveDir(ctx context.Context, req *Request, t Target) *Response {
	if !d.listDirs {
		return d.notFound()
	}
	if req.Path != "" && !strings.HasSuffix(req.Path, "/") {
		u := url.URL{Path: d.prefix + req.Path + "/", RawQuery: req.RawQuery}
		h := make(http.Header)
		h.Set("Location", u.String())
		return &Response{Status: http.StatusTemporaryRedirect, Header: h}
	}
	for _, name := range indexFiles {
		if idx, ok := d.regularFile(filepath.Join(t.Path, name)); ok {
			return d.serveFile(ctx, req, idx)
		}
	}

	listing, err := d.List(ctx, t.Path, d.prefix+req.Path)
	if err != nil {
		return d.notFound()
	}
	var buf bytes.Buffer
	err = d.tmpl.Execute(&buf, map[string]any{
		"title": listing.Title,
		"files": listing.Files,
	})
	if err != nil {
		logging.WithContext(ctx).Error("render listing", zap.String("dir", t.Path), zap.Error(err))
		return &Response{Status: http.StatusInternalServerError, Header: make(http.Header)}
	}
	metrics.RecordListing(len(listing.Files))

	h := make(http.Header)
	h.Set("Content-Type", "text/html; charset=utf-8")
	return &Response{Status: http.StatusOK, Header: h, Body: &BytesBody{Data: buf.Bytes()}}
}

func (d *Dir) serveFile(ctx context.Context, req *Request, t Target) *Response {
	if isMarkdown(t.Path) {
		return d.serveMarkdown(ctx, t)
	}

	h := make(http.Header)
	if ct := contentTypeForName(t.Path); ct != "" {
		h.Set("Content-Type", ct)
	}
	h.Set("ETag", etagFor(t.Info))
	h.Set("Last-Modified", t.Info.ModTime().UTC().Format(http.TimeFormat))

	if IsNotModified(req.Header, h) {
		metrics.RecordNotModified()
		h.Del("Content-Type")
		return &Response{Status: http.StatusNotModified, Header: h}
	}

	resp := &Response{Status: http.StatusOK, Header: h, Body: &FileBody{Path: t.Path, Info: t.Info}}
	if req.CanPush {
		resp.Pushes = d.pushTargets(d.Dependencies(t), req.Header)
	}
	return resp
}

// serveMarkdown renders on every request; there is no cache of the output,
// so no validators are sent either.
func (d *Dir) serveMarkdown(ctx context.Context, t Target) *Response {
	src, err := os.ReadFile(t.Path)
	if err != nil {
		return d.notFound()
	}
	out, err := d.renderer.Render(src)
	if err != nil {
		logging.WithContext(ctx).Error("render markdown", zap.String("file", t.Path), zap.Error(err))
		return &Response{Status: http.StatusInternalServerError, Header: make(http.Header)}
	}
	metrics.RecordMarkdownRender()

	h := make(http.Header)
	h.Set("Content-Type", "text/html; charset=utf-8")
	return &Response{Status: http.StatusOK, Header: h, Body: &BytesBody{Data: out}}
}

// notFound serves "404.html" (or ".htm") from the root when present.
func (d *Dir) notFound() *Response {
	for _, name := range notFoundPages {
		if t, ok := d.regularFile(filepath.Join(d.root, name)); ok {
			h := make(http.Header)
			h.Set("Content-Type", contentTypeForName(name))
			return &Response{Status: http.StatusNotFound, Header: h, Body: &FileBody{Path: t.Path, Info: t.Info}}
		}
	}
	return &Response{Status: http.StatusNotFound, Header: make(http.Header)}
}
