// Package markdown renders content pages written in GitHub-flavoured markdown
// with a YAML frontmatter block.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

type Parser struct {
	md goldmark.Markdown
}

func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			&frontmatter.Extender{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithXHTML(),
		),
	)

	return &Parser{md: md}
}

// Document is a rendered page and its frontmatter.
type Document struct {
	HTML []byte
	Meta map[string]any
}

// Render converts source to HTML. Frontmatter that fails to decode is ignored.
func (p *Parser) Render(source []byte) (*Document, error) {
	ctx := parser.NewContext()
	var buf bytes.Buffer

	err := p.md.Convert(source, &buf, parser.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	meta := make(map[string]any)
	data := frontmatter.Get(ctx)
	if data != nil {
		err = data.Decode(&meta)
		if err != nil {
			meta = make(map[string]any)
		}
	}

	return &Document{HTML: buf.Bytes(), Meta: meta}, nil
}

func (d *Document) String(key string) string {
	s, _ := d.Meta[key].(string)
	return s
}

// Int reads a numeric frontmatter value. YAML decoders disagree on the type.
func (d *Document) Int(key string) int {
	switch v := d.Meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
