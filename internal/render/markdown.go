package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	CardWidth  = 1200
	CardHeight = 900
)

// hrLine stands in for <hr>, which foreignObject content does not draw reliably.
const hrLine = `<svg xmlns="http://www.w3.org/2000/svg" width="100%" height="1"><line x1="0" y1="0" x2="100%" y2="0" stroke="#ffffff" /></svg>`

var (
	//go:embed card.svg.tmpl
	cardSource string
	cardTmpl   = template.Must(template.New("card").Parse(cardSource))

	hrRe = regexp.MustCompile(`<hr\s*/?>`)
	// an ampersand that does not already start an XML-safe entity
	bareAmpRe = regexp.MustCompile(`&(amp|lt|gt|quot|apos|#[0-9]+|#[xX][0-9a-fA-F]+);|&`)

	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	policy = newPolicy()
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// GFM task list checkboxes
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	p.AllowAttrs("align").OnElements("th", "td")
	return p
}

// MarkdownToHTML converts GitHub-flavored Markdown into a sanitized XHTML fragment
// that can be placed inside an SVG foreignObject.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(stripXMLIllegal(src)), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	out := policy.Sanitize(buf.String())
	out = hrRe.ReplaceAllString(out, hrLine)
	return escapeAmpersands(out), nil
}

// stripXMLIllegal drops runes outside the XML 1.0 Char production, which no
// escaping can make legal inside the card.
func stripXMLIllegal(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20, r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
			return -1
		}
		return r
	}, s)
}

func escapeAmpersands(s string) string {
	return bareAmpRe.ReplaceAllStringFunc(s, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
}

type cardData struct {
	Width, Height, InnerWidth, ContentHeight int
	Body                                     string
}

// Card renders Markdown into the complete SVG card document.
func Card(markdown string) ([]byte, error) {
	body, err := MarkdownToHTML(markdown)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = cardTmpl.Execute(&buf, cardData{
		Width:         CardWidth,
		Height:        CardHeight,
		InnerWidth:    CardWidth - 60,
		ContentHeight: CardHeight - 60,
		Body:          body,
	})
	if err != nil {
		return nil, fmt.Errorf("render card: %w", err)
	}
	return buf.Bytes(), nil
}
