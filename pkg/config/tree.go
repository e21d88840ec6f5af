// Package config parses indentation-structured device configuration text
// (IOS-style running configuration) into a read-only tree.
//
// A line's parent is the nearest preceding line with strictly smaller
// indentation. Lines without indentation are top-level. Parsing never fails:
// unusual input yields a shallow tree in which later lookups simply find
// nothing.
package config

import (
	"strings"
)

// Line is one line of configuration text.
type Line struct {
	// Text is the raw line, including leading whitespace.
	Text string

	// Indent is the number of leading whitespace characters.
	Indent int

	// Depth is the nesting level: 0 for top-level lines, parent depth + 1 otherwise.
	Depth int

	// Index is the 0-based position of the line in the original input.
	Index int
}

// Trimmed returns the line text without surrounding whitespace.
func (l Line) Trimmed() string {
	return strings.TrimSpace(l.Text)
}

// IsBlank reports whether the line is empty or whitespace-only.
func (l Line) IsBlank() bool {
	return strings.TrimSpace(l.Text) == ""
}

// Node is a configuration line together with the lines nested under it.
type Node struct {
	Line

	// Children are the directly nested lines, in document order.
	Children []*Node

	parent *Node
}

// Parent returns the enclosing node, or nil for top-level nodes.
func (n *Node) Parent() *Node {
	return n.parent
}

// ChildrenMatching returns the direct children whose text satisfies pred.
func (n *Node) ChildrenMatching(pred Predicate) []*Node {
	var result []*Node
	for _, child := range n.Children {
		if pred.Match(child.Line) {
			result = append(result, child)
		}
	}
	return result
}

// HasChild reports whether any direct child satisfies pred.
func (n *Node) HasChild(pred Predicate) bool {
	for _, child := range n.Children {
		if pred.Match(child.Line) {
			return true
		}
	}
	return false
}

// FindChild returns the first direct child satisfying pred.
func (n *Node) FindChild(pred Predicate) *Node {
	for _, child := range n.Children {
		if pred.Match(child.Line) {
			return child
		}
	}
	return nil
}

// Tree is the parsed configuration of one device. It is never modified after
// Parse returns, so it is safe for concurrent reads.
type Tree struct {
	roots []*Node
	nodes []*Node
}

// Parse builds a Tree from configuration lines in a single pass.
func Parse(lines []string) *Tree {
	t := &Tree{
		nodes: make([]*Node, 0, len(lines)),
	}

	// stack holds the chain of open ancestors, innermost last
	var stack []*Node

	for i, text := range lines {
		node := &Node{Line: Line{
			Text:   text,
			Indent: indentOf(text),
			Index:  i,
		}}
		if node.IsBlank() {
			node.Indent = 0
		}

		for len(stack) > 0 && stack[len(stack)-1].Indent >= node.Indent {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			t.roots = append(t.roots, node)
		} else {
			parent := stack[len(stack)-1]
			node.parent = parent
			node.Depth = parent.Depth + 1
			parent.Children = append(parent.Children, node)
		}

		stack = append(stack, node)
		t.nodes = append(t.nodes, node)
	}

	return t
}

// ParseText splits text on newlines (tolerating CRLF) and parses it. A single
// trailing newline does not produce a trailing blank node.
func ParseText(text string) *Tree {
	return Parse(SplitLines(text))
}

// SplitLines splits device output into lines, dropping carriage returns and a
// final empty element left by a trailing newline.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Roots returns the top-level nodes in document order.
func (t *Tree) Roots() []*Node {
	return t.roots
}

// Nodes returns every node in document order.
func (t *Tree) Nodes() []*Node {
	return t.nodes
}

// Len returns the number of parsed lines.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Lines rebuilds the original line sequence by depth-first traversal of the
// tree.
func (t *Tree) Lines() []string {
	out := make([]string, 0, len(t.nodes))
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n.Text)
			walk(n.Children)
		}
	}
	walk(t.roots)
	return out
}

// FindParentsWithChild returns the top-level nodes matching parent that have at
// least one direct child matching child, in document order.
func (t *Tree) FindParentsWithChild(parent, child Predicate) []*Node {
	var result []*Node
	for _, root := range t.roots {
		if root.IsBlank() || !parent.Match(root.Line) {
			continue
		}
		if root.HasChild(child) {
			result = append(result, root)
		}
	}
	return result
}

// FindRoots returns the top-level nodes matching pred, in document order.
func (t *Tree) FindRoots(pred Predicate) []*Node {
	var result []*Node
	for _, root := range t.roots {
		if !root.IsBlank() && pred.Match(root.Line) {
			result = append(result, root)
		}
	}
	return result
}

// Hostname returns the name from the top-level "hostname <name>" line.
func (t *Tree) Hostname() (string, bool) {
	for _, root := range t.FindRoots(HasPrefix("hostname ")) {
		if name := strings.TrimSpace(strings.TrimPrefix(root.Text, "hostname ")); name != "" {
			return name, true
		}
	}
	return "", false
}

func indentOf(s string) int {
	n := 0
	for n < len(s) && (s[n] == ' ' || s[n] == '\t') {
		n++
	}
	return n
}
