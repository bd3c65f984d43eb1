package editor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrOutOfRange is returned when a selection falls outside the document text.
var ErrOutOfRange = errors.New("selection out of range")

// blockElements end a line of text.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.H1: true,
	atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Header: true, atom.Hr: true, atom.Li: true,
	atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Table: true, atom.Tr: true,
	atom.Ul: true,
}

// span is the range of plain text rendered by a node.
type span struct {
	start, end int
}

func (s span) within(start, end int) bool {
	return s.end > s.start && s.start >= start && s.end <= end
}

// layout is the plain text rendering of a node tree. Every block element ends with a
// line break unless its content already does.
type layout struct {
	text  []rune
	runs  []*html.Node
	spans map[*html.Node]span
}

func (l *layout) walk(n *html.Node) {
	start := len(l.text)

	switch n.Type {
	case html.TextNode:
		l.text = append(l.text, []rune(n.Data)...)
		l.runs = append(l.runs, n)
	case html.ElementNode:
		if n.DataAtom == atom.Br {
			l.text = append(l.text, '\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			l.walk(c)
		}
		if blockElements[n.DataAtom] && (len(l.text) == start || l.text[len(l.text)-1] != '\n') {
			l.text = append(l.text, '\n')
		}
	}

	if l.spans != nil {
		l.spans[n] = span{start: start, end: len(l.text)}
	}
}

// Document is an HTML fragment with a cursor and an optional selection, addressed in
// plain text coordinates. Markup is never counted, an entity counts as the character
// it renders and each block contributes a trailing line break. A Document is not safe
// for concurrent use.
type Document struct {
	root *html.Node
	layout

	cursor int
	sel    *Selection
}

var _ Bridge = (*Document)(nil)

// NewDocument parses src into a document with the cursor at the end of the text.
func NewDocument(src string) *Document {
	d := &Document{root: bodyElement()}
	for _, n := range parseFragment(src, d.root) {
		d.root.AppendChild(n)
	}
	d.reindex()
	d.cursor = len(d.text)
	return d
}

// HTML renders the document.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// Text returns the rendered plain text.
func (d *Document) Text() string {
	return string(d.text)
}

// Cursor returns the cursor position in characters.
func (d *Document) Cursor() int {
	return d.cursor
}

// Select selects length characters starting at index. A zero length clears the
// selection and moves the cursor to index.
func (d *Document) Select(index, length int) error {
	if index < 0 || length < 0 || index+length > len(d.text) {
		return fmt.Errorf("%w: [%d,%d) of %d", ErrOutOfRange, index, index+length, len(d.text))
	}

	if length == 0 {
		d.sel = nil
		d.cursor = index
		return nil
	}

	d.sel = &Selection{
		Text:   string(d.text[index : index+length]),
		Index:  index,
		Length: length,
	}
	d.cursor = index + length
	return nil
}

// SelectText selects the first occurrence of s in the plain text.
func (d *Document) SelectText(s string) error {
	if s == "" {
		return d.Select(d.cursor, 0)
	}

	i := strings.Index(d.Text(), s)
	if i < 0 {
		return fmt.Errorf("%w: %q not found", ErrOutOfRange, s)
	}

	index := utf8.RuneCountInString(d.Text()[:i])
	return d.Select(index, utf8.RuneCountInString(s))
}

// Selection implements Bridge.
func (d *Document) Selection() (Selection, bool) {
	if d.sel == nil || d.sel.Length == 0 {
		return Selection{}, false
	}
	return *d.sel, true
}

// ReplaceSelection implements Bridge. Text nodes are split at the selection bounds and
// every node rendered entirely inside the selection is removed, so elements that only
// partly overlap it keep their remaining content and markup.
func (d *Document) ReplaceSelection(fragment string) {
	sel, ok := d.Selection()
	if !ok {
		return
	}
	start, end := sel.Index, sel.Index+sel.Length

	d.splitAt(start)
	d.splitAt(end)

	var removed []*html.Node
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if d.spans[c].within(start, end) {
				removed = append(removed, c)
				continue
			}
			collect(c)
		}
	}
	collect(d.root)

	parent, before := d.insertionPoint(removed, start)
	nodes := parseFragment(fragment, parent)
	for _, n := range nodes {
		parent.InsertBefore(n, before)
	}
	for _, n := range removed {
		n.Parent.RemoveChild(n)
	}

	d.reindex()
	d.sel = nil
	d.cursor = min(start+textLength(nodes), len(d.text))
}

// insertionPoint returns where replacement content goes: in place of the first removed
// node, otherwise after the text ending at index.
func (d *Document) insertionPoint(removed []*html.Node, index int) (parent, before *html.Node) {
	if len(removed) > 0 {
		return removed[0].Parent, removed[0]
	}

	for i := len(d.runs) - 1; i >= 0; i-- {
		if t := d.runs[i]; d.spans[t].end == index {
			return t.Parent, t.NextSibling
		}
	}
	for _, t := range d.runs {
		if d.spans[t].start >= index {
			return t.Parent, t
		}
	}
	return d.root, nil
}

// splitAt splits the text node containing index so that a node boundary falls on it.
func (d *Document) splitAt(index int) {
	for _, t := range d.runs {
		s := d.spans[t]
		if s.start < index && index < s.end {
			runes := []rune(t.Data)
			tail := &html.Node{Type: html.TextNode, Data: string(runes[index-s.start:])}
			t.Data = string(runes[:index-s.start])
			t.Parent.InsertBefore(tail, t.NextSibling)
			d.reindex()
			return
		}
	}
}

func (d *Document) reindex() {
	d.layout = layout{spans: make(map[*html.Node]span)}
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		d.walk(c)
	}
}

func bodyElement() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: atom.Body.String(), DataAtom: atom.Body}
}

// parseFragment parses src as the content of an element like parent. Input the parser
// cannot read is kept as text.
func parseFragment(src string, parent *html.Node) []*html.Node {
	context := &html.Node{
		Type:      html.ElementNode,
		Data:      parent.Data,
		DataAtom:  parent.DataAtom,
		Namespace: parent.Namespace,
	}
	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return []*html.Node{{Type: html.TextNode, Data: src}}
	}
	return nodes
}

// textLength counts the characters rendered by a list of sibling nodes.
func textLength(nodes []*html.Node) int {
	var l layout
	for _, n := range nodes {
		l.walk(n)
	}
	return len(l.text)
}
