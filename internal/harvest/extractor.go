package harvest

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HTMLExtractor implements Extractor by stripping non-content elements and
// comments, then joining the remaining text nodes with single spaces.
type HTMLExtractor struct{}

// NewHTMLExtractor returns the default extractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// ExtractText converts raw markup to normalized plain text. Parsing is
// best-effort: malformed input yields whatever text is recoverable, and an
// empty string is a valid outcome.
func (e *HTMLExtractor) ExtractText(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	for _, node := range doc.Selection.Nodes {
		collectText(node, &b)
	}
	// Fields splits on every whitespace run, so rejoining collapses tabs,
	// newlines, and repeated spaces and trims both ends.
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
