package model

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	htmlTag   = regexp.MustCompile(`(?i)</?[a-z][a-z0-9]*[^<>]*>`)
	htmlSpace = regexp.MustCompile(`[ \t\r\n\f]+`)

	snippetBase = &url.URL{Scheme: "https", Host: "mail.invalid"}
)

// blockTags end a line of text.
var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.Tr: true, atom.Table: true, atom.Blockquote: true, atom.Pre: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true, atom.Hr: true,
}

// PlainTextSnippet turns an HTML email body into readable text: one line per
// block element, link targets kept in parentheses. Snippets without markup
// and snippets that reduce to nothing are returned unchanged.
func PlainTextSnippet(s string) string {
	if !htmlTag.MatchString(s) {
		return s
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	full := renderText(doc)

	// Readability drops mail boilerplate, but on short bodies it can also
	// drop real content. Keep its result only when it retains most text.
	text := full
	if article, err := readability.FromReader(strings.NewReader(s), snippetBase); err == nil && article.Node != nil {
		if main := renderText(article.Node); len(main)*5 >= len(full)*4 {
			text = main
		}
	}
	if text == "" {
		return s
	}
	return text
}

func renderText(n *html.Node) string {
	var b strings.Builder
	writeText(&b, n)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(htmlSpace.ReplaceAllString(n.Data, " "))
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head, atom.Title:
			return
		case atom.Br:
			b.WriteByte('\n')
			return
		case atom.A:
			writeLink(b, n)
			return
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// writeLink writes the anchor text followed by its target, unless the text
// already is the target.
func writeLink(b *strings.Builder, n *html.Node) {
	var inner strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(&inner, c)
	}
	label := inner.String()
	b.WriteString(label)

	href := strings.TrimSpace(attr(n, "href"))
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return
	}
	// Relative links were resolved against snippetBase and lead nowhere.
	if u, err := url.Parse(href); err == nil && u.Host == snippetBase.Host {
		return
	}
	if strings.TrimSpace(label) == href {
		return
	}
	b.WriteString(" (" + href + ")")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
