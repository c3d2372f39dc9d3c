package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/net/html"
)

// PageSnapshot is the markup kept from a page when a run fails.
type PageSnapshot struct {
	HTML      string
	Title     string
	Truncated bool
}

type elementKind int

const (
	kindInline elementKind = iota
	kindBlock
	kindVoid
	kindHidden
)

// elementKinds lists the tags that change how a page is walked. Tags not
// listed are inline.
var elementKinds = map[string]elementKind{
	"head": kindHidden, "script": kindHidden, "style": kindHidden, "noscript": kindHidden,
	"iframe": kindHidden, "object": kindHidden, "embed": kindHidden, "svg": kindHidden,

	"div": kindBlock, "p": kindBlock, "form": kindBlock, "fieldset": kindBlock,
	"table": kindBlock, "tbody": kindBlock, "thead": kindBlock, "tr": kindBlock, "td": kindBlock, "th": kindBlock,
	"ul": kindBlock, "ol": kindBlock, "li": kindBlock,
	"h1": kindBlock, "h2": kindBlock, "h3": kindBlock, "h4": kindBlock,

	"br": kindVoid, "hr": kindVoid, "img": kindVoid, "input": kindVoid,
}

func kindOf(n *html.Node) elementKind {
	return elementKinds[strings.ToLower(n.Data)]
}

// pageVisitor receives the visible part of a parsed page in document order.
// Returning true from any method stops the walk.
type pageVisitor interface {
	open(n *html.Node, kind elementKind, depth int) bool
	text(s string) bool
	close(n *html.Node, kind elementKind, depth int) bool
}

func walkPage(n *html.Node, v pageVisitor, depth int) bool {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return false
	case html.TextNode:
		return v.text(n.Data)
	case html.ElementNode:
		kind := kindOf(n)
		if kind == kindHidden {
			return false
		}
		if v.open(n, kind, depth) {
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walkPage(c, v, depth+1) {
				return true
			}
		}
		return v.close(n, kind, depth)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if walkPage(c, v, depth) {
			return true
		}
	}
	return false
}

// Snapshot reduces rawHTML to what explains a failed registration: the
// result grid and cart form structure, element ids, the src and alt of the
// selection buttons, and form field values. Password values are masked.
// Output stops after maxLength bytes of markup and text.
func Snapshot(rawHTML string, maxLength int) (*PageSnapshot, error) {
	if maxLength <= 0 {
		maxLength = DefaultSnapshotLength
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse HTML")
	}

	w := &snapshotWriter{limit: maxLength}
	truncated := walkPage(doc, w, 0)

	return &PageSnapshot{
		HTML:      w.b.String(),
		Title:     pageTitle(doc),
		Truncated: truncated,
	}, nil
}

type snapshotWriter struct {
	b     strings.Builder
	used  int
	limit int
}

func (w *snapshotWriter) open(n *html.Node, kind elementKind, depth int) bool {
	if w.used >= w.limit {
		return true
	}

	tag := strings.ToLower(n.Data)
	if kind == kindBlock && depth > 0 {
		w.b.WriteString("\n" + strings.Repeat("  ", depth))
	}
	w.b.WriteString("<" + tag)
	for _, attr := range keptAttributes(tag, n.Attr) {
		fmt.Fprintf(&w.b, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
	}
	w.b.WriteString(">")
	w.used += len(tag) + 2
	return false
}

func (w *snapshotWriter) text(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	remaining := w.limit - w.used
	if len(s) <= remaining {
		w.b.WriteString(s)
		w.used += len(s)
		return false
	}

	cut := max(remaining, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	w.b.WriteString(s[:cut] + "...")
	w.used = w.limit
	return true
}

func (w *snapshotWriter) close(n *html.Node, kind elementKind, depth int) bool {
	if kind == kindVoid {
		return false
	}

	tag := strings.ToLower(n.Data)
	if kind == kindBlock {
		w.b.WriteString("\n" + strings.Repeat("  ", depth))
	}
	w.b.WriteString("</" + tag + ">")
	w.used += len(tag) + 3
	return false
}

// keptAttributes filters attrs down to ids, selection button images and
// form state.
func keptAttributes(tag string, attrs []html.Attribute) []html.Attribute {
	password := false
	for _, a := range attrs {
		if strings.EqualFold(a.Key, "type") && strings.EqualFold(a.Val, "password") {
			password = true
		}
	}

	var kept []html.Attribute
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		switch {
		case key == "id":
		case (tag == "input" || tag == "img") && (key == "src" || key == "alt"):
		case tag == "input" && (key == "name" || key == "type" || key == "checked" || key == "disabled"):
		case tag == "input" && key == "value":
			if password && a.Val != "" {
				a.Val = "***"
			}
		case (tag == "select" || tag == "textarea") && key == "name":
		case tag == "option" && (key == "value" || key == "selected"):
		case tag == "label" && key == "for":
		default:
			continue
		}
		a.Key = key
		kept = append(kept, a)
	}
	return kept
}

func pageTitle(doc *html.Node) string {
	var title string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if find(c) {
				return true
			}
		}
		return false
	}
	find(doc)
	return title
}

// VisibleText returns the rendered text of rawHTML's body with one line per
// block element.
func VisibleText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse HTML")
	}

	t := &textCollector{}
	walkPage(doc, t, 0)
	t.flush()
	return strings.Join(t.lines, "\n"), nil
}

type textCollector struct {
	lines   []string
	current strings.Builder
}

func (t *textCollector) flush() {
	if line := strings.Join(strings.Fields(t.current.String()), " "); line != "" {
		t.lines = append(t.lines, line)
	}
	t.current.Reset()
}

func (t *textCollector) open(n *html.Node, kind elementKind, _ int) bool {
	if kind == kindBlock || strings.EqualFold(n.Data, "br") {
		t.flush()
	}
	return false
}

func (t *textCollector) text(s string) bool {
	t.current.WriteString(s)
	t.current.WriteString(" ")
	return false
}

func (t *textCollector) close(_ *html.Node, kind elementKind, _ int) bool {
	if kind == kindBlock {
		t.flush()
	}
	return false
}
