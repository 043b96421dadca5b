// Package markdown renders Markdown documents to HTML with goldmark.
//
// A Renderer built with zero Options takes the fast path: plain CommonMark
// with no extensions. Setting any flag selects the full path, configured from
// the flags.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Options selects Markdown features.
type Options struct {
	// HardWraps renders soft line breaks as <br>.
	HardWraps bool
	// Typographer converts quotes, dashes and ellipses to typographic punctuation.
	Typographer bool
	// Unsafe passes raw HTML blocks and inline HTML through to the output.
	Unsafe bool
	// GitHub enables tables, strikethrough, autolinks and task lists.
	GitHub bool
	// Extra enables footnotes, definition lists and heading anchors.
	Extra bool
}

// Full reports whether any feature flag is set.
func (o Options) Full() bool {
	return o.HardWraps || o.Typographer || o.Unsafe || o.GitHub || o.Extra
}

// Renderer converts Markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md   goldmark.Markdown
	full bool
}

// New builds a Renderer for opts.
func New(opts Options) *Renderer {
	if !opts.Full() {
		return &Renderer{md: goldmark.New()}
	}

	var exts []goldmark.Extender
	var parserOpts []parser.Option
	var rendererOpts []renderer.Option

	if opts.GitHub {
		exts = append(exts, extension.GFM)
	}
	if opts.Extra {
		exts = append(exts, extension.Footnote, extension.DefinitionList)
		parserOpts = append(parserOpts, parser.WithAutoHeadingID())
	}
	if opts.Typographer {
		exts = append(exts, extension.Typographer)
	}
	if opts.HardWraps {
		rendererOpts = append(rendererOpts, html.WithHardWraps())
	}
	if opts.Unsafe {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parserOpts...),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &Renderer{md: md, full: true}
}

// FullPath reports whether the renderer was built with extensions.
func (r *Renderer) FullPath() bool { return r.full }

// Render converts src to HTML.
func (r *Renderer) Render(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src) + len(src)/2)
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}
