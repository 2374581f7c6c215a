package extract

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// fakeNode is a minimal in-memory element tree for strategy tests.
type fakeNode struct {
	tag      string
	text     string
	attrs    map[string]string
	children []*fakeNode
}

func (n *fakeNode) FindAll(tag string) []domain.Node {
	var out []domain.Node
	for _, c := range n.children {
		if c.tag == tag {
			out = append(out, c)
		}
		out = append(out, c.FindAll(tag)...)
	}
	return out
}

func (n *fakeNode) Cells() []domain.Node {
	var out []domain.Node
	for _, c := range n.children {
		if c.tag == "td" || c.tag == "th" {
			out = append(out, c)
		}
	}
	return out
}

func (n *fakeNode) Text() string {
	if len(n.children) == 0 {
		return n.text
	}
	parts := make([]string, 0, len(n.children))
	for _, c := range n.children {
		parts = append(parts, c.Text())
	}
	return strings.Join(parts, "\n")
}

func (n *fakeNode) Attr(name string) string { return n.attrs[name] }

func el(tag string, children ...*fakeNode) *fakeNode {
	return &fakeNode{tag: tag, children: children}
}

func textNode(tag, text string) *fakeNode {
	return &fakeNode{tag: tag, text: text}
}

func row(cells ...string) *fakeNode {
	r := el("tr")
	for _, c := range cells {
		r.children = append(r.children, textNode("td", c))
	}
	return r
}

func header() *fakeNode {
	return el("tr",
		textNode("th", "Fecha y hora"),
		textNode("th", "Magnitud"),
		textNode("th", "Profundidad"),
		textNode("th", "Coordenadas"),
	)
}

func table(rows ...*fakeNode) *fakeNode {
	return el("table", append([]*fakeNode{header()}, rows...)...)
}

func validRow(minute int) *fakeNode {
	return row(
		fmt.Sprintf("15/03/2024 10:%02d:00", minute),
		"M 4.5",
		"60 km",
		"12.5°S, 76.8°W",
	)
}
