package staticdir

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts lightweight markup into an HTML document body.
type Renderer interface {
	Render(src []byte) ([]byte, error)
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(src []byte) ([]byte, error)

func (f RendererFunc) Render(src []byte) ([]byte, error) { return f(src) }

// MarkdownRenderer renders GitHub-flavoured Markdown with goldmark.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (m *MarkdownRenderer) Render(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.md.Convert(src, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isMarkdown(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	default:
		return false
	}
}
