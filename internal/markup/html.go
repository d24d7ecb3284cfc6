package markup

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"essaygrader/internal/parse"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	classMarker = "ai-comment"
	classManual = "teacher-manual-annotation"
	classEmbed  = "manual-comment-embed"
)

// dropped elements never reach the tree, which strips scripts and other
// active content from client supplied markup.
var dropped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
	atom.Title:    true,
	atom.Link:     true,
	atom.Meta:     true,
}

var blocks = map[atom.Atom]bool{
	atom.P:   true,
	atom.Div: true,
	atom.Li:  true,
}

// FromZone builds a document from a raw annotation zone. The zone text is
// escaped first, so only the marker wrappers added by parse.MarkInline become
// elements.
func FromZone(zone string) *Document {
	doc, err := FromHTML(parse.MarkInline(html.EscapeString(zone)))
	if err != nil {
		d := New()
		if zone != "" {
			d.root.Children = []*Node{{ID: d.allocID(), Kind: KindText, Text: zone}}
		}
		return d
	}
	return doc
}

// FromHTML parses merged markup as produced by Document.HTML or edited in
// the browser. Unknown elements are unwrapped and active content is dropped.
func FromHTML(s string) (*Document, error) {
	ctx := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	b := &builder{reserved: map[int]bool{}, claimed: map[int]bool{}}
	for _, n := range nodes {
		b.reserve(n)
	}
	root := &Node{Kind: KindRoot}
	for _, n := range nodes {
		b.convert(n, root)
	}
	linkEmbeds(root)
	return newDocument(root), nil
}

// Sanitize round-trips markup through the tree.
func Sanitize(s string) (string, error) {
	doc, err := FromHTML(s)
	if err != nil {
		return "", err
	}
	return doc.HTML(), nil
}

type builder struct {
	reserved map[int]bool
	claimed  map[int]bool
	next     int
}

func (b *builder) id() int {
	for {
		b.next++
		if !b.reserved[b.next] {
			return b.next
		}
	}
}

func (b *builder) reserve(n *xhtml.Node) {
	if n.Type == xhtml.ElementNode && hasClass(n, classManual) {
		if id, err := strconv.Atoi(attr(n, "data-id")); err == nil && id > 0 {
			b.reserved[id] = true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.reserve(c)
	}
}

func (b *builder) convert(n *xhtml.Node, parent *Node) {
	switch n.Type {
	case xhtml.TextNode:
		appendText(parent, n.Data, b)
		return
	case xhtml.ElementNode:
	default:
		return
	}
	if dropped[n.DataAtom] {
		return
	}
	switch {
	case n.DataAtom == atom.Br:
		appendText(parent, "\n", b)
		return
	case n.DataAtom == atom.Mark && hasClass(n, classEmbed):
		embed := &Node{ID: b.id(), Kind: KindEmbed, Text: textContent(n)}
		if id, err := strconv.Atoi(attr(n, "data-for")); err == nil {
			embed.For = id
		}
		parent.Children = append(parent.Children, embed)
		return
	case n.DataAtom == atom.Mark && (hasClass(n, classMarker) || attr(n, "class") == ""):
		marker := &Node{ID: b.id(), Kind: KindMarker}
		b.children(n, marker)
		parent.Children = append(parent.Children, marker)
		return
	case hasClass(n, classManual):
		manual := &Node{Kind: KindManual, Comment: strings.TrimSpace(attr(n, "title")), Flattened: attr(n, "data-flattened") == "true"}
		if id, err := strconv.Atoi(attr(n, "data-id")); err == nil && b.reserved[id] && !b.claimed[id] {
			manual.ID = id
			b.claimed[id] = true
		} else {
			manual.ID = b.id()
		}
		b.children(n, manual)
		parent.Children = append(parent.Children, manual)
		return
	}
	b.children(n, parent)
	if blocks[n.DataAtom] {
		appendText(parent, "\n", b)
	}
}

func (b *builder) children(n *xhtml.Node, parent *Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.convert(c, parent)
	}
}

// appendText merges with a preceding text node so the tree never holds two
// adjacent text siblings.
func appendText(parent *Node, s string, b *builder) {
	if s == "" {
		return
	}
	if k := len(parent.Children); k > 0 && parent.Children[k-1].Kind == KindText {
		parent.Children[k-1].Text += s
		return
	}
	parent.Children = append(parent.Children, &Node{ID: b.id(), Kind: KindText, Text: s})
}

// linkEmbeds attaches embeds written without data-for to the annotation
// right before them.
func linkEmbeds(n *Node) {
	for i, c := range n.Children {
		if c.Kind == KindEmbed && c.For == 0 && i > 0 && n.Children[i-1].Kind == KindManual {
			c.For = n.Children[i-1].ID
			n.Children[i-1].Flattened = true
		}
		linkEmbeds(c)
	}
}

func attr(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *xhtml.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *xhtml.Node) string {
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// HTML renders the tree. Text is escaped; markers use the same wrapper as
// parse.MarkInline.
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	for _, c := range d.root.Children {
		render(&b, c)
	}
	return b.String()
}

func render(b *strings.Builder, n *Node) {
	switch n.Kind {
	case KindText:
		b.WriteString(html.EscapeString(n.Text))
	case KindMarker:
		b.WriteString(parse.MarkerOpen)
		for _, c := range n.Children {
			render(b, c)
		}
		b.WriteString(parse.MarkerClose)
	case KindManual:
		fmt.Fprintf(b, `<span class="%s" data-id="%d" title="%s"`, classManual, n.ID, html.EscapeString(n.Comment))
		if n.Flattened {
			b.WriteString(` data-flattened="true"`)
		}
		b.WriteString(">")
		for _, c := range n.Children {
			render(b, c)
		}
		b.WriteString("</span>")
	case KindEmbed:
		fmt.Fprintf(b, `<mark class="%s" data-for="%d">%s</mark>`, classEmbed, n.For, html.EscapeString(n.Text))
	}
}
