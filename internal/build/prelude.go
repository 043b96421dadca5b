package build

import (
	"bytes"
	"os"
	"path/filepath"

	"golang.org/x/net/html"

	"github.com/katattakd/katsite/internal/config"
	kserrors "github.com/katattakd/katsite/internal/errors"
)

const (
	doctypePrelude  = "<!doctype html>"
	viewportPrelude = `<meta name=viewport content="width=device-width,initial-scale=1">`

	// StylesheetName is the file html.custom_css is written to when
	// html.append_css_link is set. It lives at the root of the output directory.
	StylesheetName = "style.css"
)

// assemble prepends the configured boilerplate to rendered HTML, in order:
// doctype, viewport, stylesheet (a link to cssHref or an inline <style>
// block) and the custom header HTML. A document that already declares a
// doctype (raw HTML inlining) keeps its own, and the rest of the prelude is
// placed after it.
func assemble(body []byte, opts config.HTMLConfig, cssHref string) []byte {
	var prelude bytes.Buffer
	if opts.AppendViewport {
		prelude.WriteString(viewportPrelude)
	}
	switch {
	case opts.AppendCSSLink:
		prelude.WriteString(`<link rel=stylesheet href=`)
		prelude.WriteString(cssHref)
		prelude.WriteByte('>')
	case opts.CustomCSS != "":
		prelude.WriteString("<style>")
		prelude.WriteString(opts.CustomCSS)
		prelude.WriteString("</style>")
	}
	prelude.WriteString(opts.CustomHTML)

	if !opts.AppendDoctype && prelude.Len() == 0 {
		return body
	}

	existing, end := leadingDoctype(body)
	out := make([]byte, 0, len(doctypePrelude)+prelude.Len()+len(body))
	switch {
	case existing:
		out = append(out, body[:end]...)
		body = body[end:]
	case opts.AppendDoctype:
		out = append(out, doctypePrelude...)
	}
	out = append(out, prelude.Bytes()...)
	return append(out, body...)
}

// stylesheetHref returns the link target of the shared stylesheet as seen from
// output, so nested pages reach the file at the output root.
func stylesheetHref(outputDir, output string) string {
	rel, err := filepath.Rel(filepath.Dir(output), filepath.Join(outputDir, StylesheetName))
	if err != nil {
		return StylesheetName
	}
	return filepath.ToSlash(rel)
}

// writeStylesheet writes the custom CSS into outputDir when pages link to it.
func writeStylesheet(outputDir string, opts config.HTMLConfig) error {
	if !opts.AppendCSSLink || opts.CustomCSS == "" {
		return nil
	}
	path := filepath.Join(outputDir, StylesheetName)
	if err := os.WriteFile(path, []byte(opts.CustomCSS), 0o644); err != nil {
		return kserrors.OutputUncreatable(path, err)
	}
	return nil
}

// leadingDoctype reports whether b starts with a doctype declaration, ignoring
// leading whitespace and comments, and returns the offset just past it.
func leadingDoctype(b []byte) (bool, int) {
	z := html.NewTokenizer(bytes.NewReader(b))
	offset := 0
	for {
		tt := z.Next()
		raw := z.Raw()
		offset += len(raw)
		switch tt {
		case html.DoctypeToken:
			return true, offset
		case html.CommentToken:
			continue
		case html.TextToken:
			if len(bytes.TrimSpace(raw)) == 0 {
				continue
			}
			return false, 0
		default:
			return false, 0
		}
	}
}
