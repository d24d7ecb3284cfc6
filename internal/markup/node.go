// Package markup holds the merged annotation document: essay text, model
// comment markers and reviewer annotations as one tree of nodes with stable
// IDs. All positions are rune offsets into the document's visible text.
package markup

import (
	"strings"
	"unicode/utf8"
)

type Kind string

const (
	KindRoot   Kind = "root"
	KindText   Kind = "text"
	KindMarker Kind = "marker"
	KindManual Kind = "manual"
	KindEmbed  Kind = "embed"
)

type Node struct {
	ID        int     `json:"id"`
	Kind      Kind    `json:"kind"`
	Text      string  `json:"text,omitempty"`
	Comment   string  `json:"comment,omitempty"`
	Flattened bool    `json:"flattened,omitempty"`
	For       int     `json:"for,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// leaf nodes carry text directly; embeds are leaves so a flattened comment
// is never split by a later selection.
func (n *Node) leaf() bool {
	return n.Kind == KindText || n.Kind == KindEmbed
}

func (n *Node) length() int {
	if n.leaf() {
		return utf8.RuneCountInString(n.Text)
	}
	total := 0
	for _, c := range n.Children {
		total += c.length()
	}
	return total
}

func (n *Node) writeText(b *strings.Builder) {
	if n.leaf() {
		b.WriteString(n.Text)
		return
	}
	for _, c := range n.Children {
		c.writeText(b)
	}
}

func (n *Node) clone() *Node {
	out := *n
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.clone()
		}
	}
	return &out
}

func (n *Node) walk(fn func(n, parent *Node)) {
	for _, c := range n.Children {
		fn(c, n)
		c.walk(fn)
	}
}

func (n *Node) maxID() int {
	max := n.ID
	for _, c := range n.Children {
		if m := c.maxID(); m > max {
			max = m
		}
	}
	return max
}

// sliceRunes returns s[from:to] counted in runes.
func sliceRunes(s string, from, to int) string {
	r := []rune(s)
	if from < 0 {
		from = 0
	}
	if to > len(r) {
		to = len(r)
	}
	if from >= to {
		return ""
	}
	return string(r[from:to])
}
