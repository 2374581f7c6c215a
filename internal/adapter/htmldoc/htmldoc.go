// Package htmldoc adapts goquery selections to the domain.Node tree.
package htmldoc

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Node wraps a single-element goquery selection.
type Node struct {
	sel *goquery.Selection
}

// Parse builds a document tree from raw page bytes. The encoding is sniffed
// from a BOM or meta tag and converted to UTF-8 first; the IGP has served
// both UTF-8 and ISO-8859-1 pages.
func Parse(body []byte) (domain.Node, error) {
	r, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Node{sel: doc.Selection}, nil
}

// FindAll returns descendants matching tag, in document order.
func (n *Node) FindAll(tag string) []domain.Node {
	return wrap(n.sel.Find(tag))
}

// Cells returns the td and th children of a row.
func (n *Node) Cells() []domain.Node {
	return wrap(n.sel.ChildrenFiltered("td, th"))
}

// Text returns the combined text of the node and its descendants.
func (n *Node) Text() string {
	return n.sel.Text()
}

// Attr returns the attribute value, or "" when it is absent.
func (n *Node) Attr(name string) string {
	v, _ := n.sel.Attr(name)
	return v
}

func wrap(sel *goquery.Selection) []domain.Node {
	out := make([]domain.Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Node{sel: s})
	})
	return out
}
