package markup

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrOutOfRange = errors.New("selection outside document text")
	ErrNotFound   = errors.New("annotation not found")
)

// EmbedFormat is the visible text a flattened reviewer comment becomes.
const EmbedFormat = " [Manual Annotation: %s]"

// Document is safe for concurrent use. Every mutating call either applies
// fully or leaves the tree untouched.
type Document struct {
	mu     sync.Mutex
	root   *Node
	nextID int
}

func New() *Document {
	return &Document{root: &Node{Kind: KindRoot}, nextID: 1}
}

func newDocument(root *Node) *Document {
	return &Document{root: root, nextID: root.maxID() + 1}
}

func (d *Document) allocID() int {
	id := d.nextID
	d.nextID++
	return id
}

// Tree returns a deep copy of the node tree.
func (d *Document) Tree() *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root.clone()
}

func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	d.root.writeText(&b)
	return b.String()
}

// Len is the visible text length in runes.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root.length()
}

func (d *Document) Count(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	d.root.walk(func(c, _ *Node) {
		if c.Kind == kind {
			n++
		}
	})
	return n
}

// Find returns a copy of the node with the given ID.
func (d *Document) Find(id int) (*Node, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var found *Node
	d.root.walk(func(c, _ *Node) {
		if found == nil && c.ID == id {
			found = c.clone()
		}
	})
	return found, found != nil
}

// Annotate wraps the text between rune offsets start and end in a new
// reviewer annotation and returns its ID. An empty comment or a collapsed
// selection is a no-op that returns 0. Elements only partly covered by the
// selection are included whole, so markers and earlier annotations end up
// nested inside the new one instead of being split.
func (d *Document) Annotate(start, end int, comment string) (int, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" || start == end {
		return 0, nil
	}
	if start > end {
		start, end = end, start
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if start < 0 || end > d.root.length() {
		return 0, fmt.Errorf("%w: [%d,%d) of %d", ErrOutOfRange, start, end, d.root.length())
	}

	container, base := d.container(start, end)
	manual := &Node{Kind: KindManual, Comment: comment}
	children := d.wrapChildren(container.Children, start-base, end-base, manual)

	manual.ID = d.allocID()
	container.Children = children
	return manual.ID, nil
}

// container finds the deepest element whose text strictly encloses the
// selection. A selection covering an element exactly wraps that element.
func (d *Document) container(start, end int) (*Node, int) {
	node, base := d.root, 0
	for {
		next, nextBase := (*Node)(nil), 0
		off := base
		for _, c := range node.Children {
			l := c.length()
			cs, ce := off, off+l
			off = ce
			if c.leaf() {
				continue
			}
			if cs <= start && end <= ce && !(cs == start && ce == end) {
				next, nextBase = c, cs
				break
			}
		}
		if next == nil {
			return node, base
		}
		node, base = next, nextBase
	}
}

// wrapChildren builds a new child list with the range [s,e) moved into
// wrapper. The input slice and its nodes are not modified.
func (d *Document) wrapChildren(children []*Node, s, e int, wrapper *Node) []*Node {
	var before, inside, after []*Node
	off := 0
	for _, c := range children {
		l := c.length()
		cs, ce := off, off+l
		off = ce
		switch {
		case ce <= s:
			before = append(before, c)
		case cs >= e:
			after = append(after, c)
		case c.Kind != KindText:
			inside = append(inside, c)
		default:
			lo, hi := max(s, cs), min(e, ce)
			if cs < lo {
				before = append(before, &Node{ID: c.ID, Kind: KindText, Text: sliceRunes(c.Text, 0, lo-cs)})
			}
			mid := &Node{Kind: KindText, Text: sliceRunes(c.Text, lo-cs, hi-cs)}
			if cs == lo {
				mid.ID = c.ID
			} else {
				mid.ID = d.allocID()
			}
			inside = append(inside, mid)
			if hi < ce {
				after = append(after, &Node{ID: d.allocID(), Kind: KindText, Text: sliceRunes(c.Text, hi-cs, l)})
			}
		}
	}
	wrapper.Children = inside
	out := make([]*Node, 0, len(before)+1+len(after))
	out = append(out, before...)
	out = append(out, wrapper)
	return append(out, after...)
}

// Flatten makes every reviewer comment visible as an inline embed placed
// right after its annotation. Annotations already flattened are skipped, so
// calling it again changes nothing. It returns how many were flattened.
func (d *Document) Flatten() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flatten(d.root)
}

func (d *Document) flatten(n *Node) int {
	count := 0
	out := make([]*Node, 0, len(n.Children))
	for i, c := range n.Children {
		count += d.flatten(c)
		out = append(out, c)
		if c.Kind != KindManual || c.Flattened || c.Comment == "" {
			continue
		}
		c.Flattened = true
		count++
		if i+1 < len(n.Children) && n.Children[i+1].Kind == KindEmbed && n.Children[i+1].For == c.ID {
			continue
		}
		out = append(out, &Node{ID: d.allocID(), Kind: KindEmbed, For: c.ID, Text: fmt.Sprintf(EmbedFormat, c.Comment)})
	}
	n.Children = out
	return count
}

// Remove unwraps the reviewer annotation with the given ID, keeping its
// content in place, and drops any embed created when it was flattened.
func (d *Document) Remove(id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var target, parent *Node
	d.root.walk(func(c, p *Node) {
		if target == nil && c.ID == id && c.Kind == KindManual {
			target, parent = c, p
		}
	})
	if target == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	out := make([]*Node, 0, len(parent.Children)+len(target.Children))
	for _, c := range parent.Children {
		switch {
		case c == target:
			out = append(out, target.Children...)
		case c.Kind == KindEmbed && c.For == id:
		default:
			out = append(out, c)
		}
	}
	parent.Children = out
	return nil
}
