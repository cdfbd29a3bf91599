package extract

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
)

// Document is the readable part of a markup page.
type Document struct {
	Title string
	Text  string
}

// FromHTML parses input and returns its title and visible text.
func FromHTML(input []byte) Document {
	node, err := nethtml.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return Document{}
	}
	return FromNode(node)
}

// FromNode extracts from an already parsed tree, preferring <main> or
// <article> and falling back to <body>. Scripts, styles and page chrome such
// as <nav> and <footer> never contribute text.
func FromNode(root *nethtml.Node) Document {
	title := ""
	if head := findFirst(root, "head"); head != nil {
		if t := findFirst(head, "title"); t != nil && t.FirstChild != nil {
			title = strings.TrimSpace(t.FirstChild.Data)
		}
	}
	content := findFirst(root, "main")
	if content == nil {
		content = findFirst(root, "article")
	}
	if content == nil {
		content = findFirst(root, "body")
	}
	var b strings.Builder
	if content != nil {
		collectText(&b, content)
	}
	return Document{Title: title, Text: normalizeWhitespace(b.String())}
}

var stripPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// StrippedMarkup removes every tag from raw markup, dropping the contents of
// script and style elements, and returns at most limit bytes of the result
// (cut on a rune boundary). A limit <= 0 means no limit.
func StrippedMarkup(input []byte, limit int) string {
	text := html.UnescapeString(string(stripPolicy.SanitizeBytes(input)))
	text = collapseSpaces(text)
	return Prefix(text, limit)
}

// Prefix returns at most n bytes of s without splitting a rune.
func Prefix(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func findFirst(n *nethtml.Node, tag string) *nethtml.Node {
	if n.Type == nethtml.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func collectText(b *strings.Builder, n *nethtml.Node) {
	if n.Type == nethtml.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe", "template":
			return
		case "br", "hr", "p", "div", "li", "tr", "time", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n")
		}
	}
	if n.Type == nethtml.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
	if n.Type == nethtml.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "div", "li", "tr", "time", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n")
		}
	}
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		collapsed := collapseSpaces(line)
		if collapsed == "" {
			continue
		}
		out = append(out, collapsed)
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}
