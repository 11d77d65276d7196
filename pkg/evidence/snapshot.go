package evidence

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// MaxSnapshotBytes bounds the text and markup kept in a DOM snapshot.
const MaxSnapshotBytes = 256 << 10

// Snapshot is a reduced copy of a page's DOM: scripts, styles and other
// noise are dropped while the attributes used to target controls survive.
type Snapshot struct {
	Title     string
	HTML      string
	Truncated bool
}

var (
	droppedTags = map[string]bool{
		"script": true, "style": true, "noscript": true, "iframe": true,
		"embed": true, "object": true, "svg": true, "link": true, "meta": true,
	}
	blockTags = map[string]bool{
		"div": true, "p": true, "section": true, "article": true, "header": true,
		"footer": true, "nav": true, "main": true, "aside": true, "dialog": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"ul": true, "ol": true, "li": true, "table": true, "tr": true, "td": true,
		"th": true, "form": true, "fieldset": true, "label": true, "pre": true,
	}
	voidTags = map[string]bool{
		"area": true, "base": true, "br": true, "col": true, "hr": true, "img": true,
		"input": true, "param": true, "source": true, "track": true, "wbr": true,
	}
	keptAttrs = map[string]bool{
		"id": true, "class": true, "role": true, "name": true, "type": true,
		"href": true, "placeholder": true, "aria-label": true, "aria-modal": true,
		"aria-hidden": true, "disabled": true, "hidden": true, "action": true,
	}
)

// NewSnapshot parses raw and reduces it to at most limit bytes of content.
func NewSnapshot(raw string, limit int) (*Snapshot, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("evidence: parse page content: %w", err)
	}
	w := &snapshotWriter{limit: limit}
	w.node(doc, 0)
	return &Snapshot{
		Title:     pageTitle(doc),
		HTML:      w.b.String(),
		Truncated: w.full,
	}, nil
}

// Document renders the snapshot as a standalone HTML file annotated with
// the URL it was taken from.
func (s *Snapshot) Document(url string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- url: %s -->\n", url)
	if s.Title != "" {
		fmt.Fprintf(&b, "<!-- title: %s -->\n", s.Title)
	}
	if s.Truncated {
		b.WriteString("<!-- truncated -->\n")
	}
	b.WriteString(s.HTML)
	b.WriteByte('\n')
	return b.String()
}

type snapshotWriter struct {
	b     strings.Builder
	n     int
	limit int
	full  bool
}

func (w *snapshotWriter) node(n *html.Node, depth int) {
	if w.full {
		return
	}
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if droppedTags[tag] {
			return
		}
		w.element(n, tag, depth)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c, depth)
	}
}

func (w *snapshotWriter) text(data string) {
	text := strings.TrimSpace(data)
	if text == "" {
		return
	}
	if room := w.limit - w.n; len(text) > room {
		text = text[:max(room, 0)] + "..."
		w.full = true
	}
	w.b.WriteString(html.EscapeString(text))
	w.n += len(text)
}

func (w *snapshotWriter) element(n *html.Node, tag string, depth int) {
	block := blockTags[tag]
	if block && depth > 0 {
		w.indent(depth)
	}
	w.b.WriteString("<" + tag)
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if keptAttrs[key] || strings.HasPrefix(key, "data-") {
			fmt.Fprintf(&w.b, ` %s="%s"`, key, html.EscapeString(a.Val))
		}
	}
	w.b.WriteString(">")
	w.n += len(tag) + 2

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c, depth+1)
	}

	if voidTags[tag] {
		return
	}
	if block {
		w.indent(depth)
	}
	w.b.WriteString("</" + tag + ">")
	w.n += len(tag) + 3
	if w.n >= w.limit {
		w.full = true
	}
}

func (w *snapshotWriter) indent(depth int) {
	w.b.WriteString("\n")
	w.b.WriteString(strings.Repeat("  ", depth))
}

func pageTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if c := n.FirstChild; c != nil && c.Type == html.TextNode {
			return strings.TrimSpace(c.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := pageTitle(c); t != "" {
			return t
		}
	}
	return ""
}
