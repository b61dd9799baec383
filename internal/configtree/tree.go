package configtree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a path does not exist in the tree.
	ErrNotFound = errors.New("path not found")
	// ErrLeaf is returned when a path descends through a leaf that holds values.
	ErrLeaf = errors.New("path passes through a leaf node")
	// ErrNotLeaf is returned when a value is set on a node that has children.
	ErrNotLeaf = errors.New("node has children and cannot hold a value")
)

// node is a single element of the tree. A node is either a container
// (children, no values) or a leaf (values, no children). A valueless leaf
// turns into a container as soon as something is created beneath it.
type node struct {
	name     string
	children []*node
	values   []string
	leaf     bool
	tag      bool
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) add(name string) *node {
	c := &node{name: name}
	n.children = append(n.children, c)
	return c
}

// Tree is an in-memory configuration hierarchy. The zero value is not
// usable; use New or Parse.
type Tree struct {
	root *node
	// trailer holds top-level "//" comment lines (the version footer of
	// config.boot) which are written back verbatim after the body.
	trailer []string
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: &node{}}
}

func (t *Tree) find(path []string) *node {
	n := t.root
	for _, seg := range path {
		if n = n.child(seg); n == nil {
			return nil
		}
	}
	return n
}

// Set creates path in the tree. When value is non-nil the last segment
// becomes a leaf holding value: with replace set, existing values are
// dropped first, otherwise value is appended unless already present.
// Intermediate nodes are created as containers.
func (t *Tree) Set(path []string, value *string, replace bool) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}

	n := t.root
	for i, seg := range path[:len(path)-1] {
		c := n.child(seg)
		switch {
		case c == nil:
			c = n.add(seg)
		case c.leaf && len(c.values) > 0:
			return fmt.Errorf("%w: %s", ErrLeaf, strings.Join(path[:i+1], " "))
		default:
			c.leaf = false
		}
		n = c
	}

	last := path[len(path)-1]
	c := n.child(last)
	if c == nil {
		c = n.add(last)
		c.leaf = true
	}
	if value == nil {
		return nil
	}
	if len(c.children) > 0 {
		return fmt.Errorf("%w: %s", ErrNotLeaf, strings.Join(path, " "))
	}
	c.leaf = true
	if replace {
		c.values = []string{*value}
		return nil
	}
	for _, v := range c.values {
		if v == *value {
			return nil
		}
	}
	c.values = append(c.values, *value)
	return nil
}

// SetTag marks the node at path as a tag node, meaning its children are
// named instances rendered as "name instance { ... }".
func (t *Tree) SetTag(path []string) error {
	n := t.find(path)
	if n == nil || len(path) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, strings.Join(path, " "))
	}
	n.tag = true
	return nil
}

// IsTag reports whether the node at path exists and is a tag node.
func (t *Tree) IsTag(path []string) bool {
	n := t.find(path)
	return n != nil && n.tag
}

// Exists reports whether path exists.
func (t *Tree) Exists(path []string) bool {
	return len(path) > 0 && t.find(path) != nil
}

// Values returns a copy of the values held by the leaf at path.
func (t *Tree) Values(path []string) ([]string, error) {
	n := t.find(path)
	if n == nil || len(path) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(path, " "))
	}
	if !n.leaf {
		return nil, fmt.Errorf("%w: %s", ErrNotLeaf, strings.Join(path, " "))
	}
	return append([]string(nil), n.values...), nil
}

// Children returns the names of the children of the node at path, in
// insertion order. A nil path lists the top level.
func (t *Tree) Children(path []string) []string {
	n := t.find(path)
	if n == nil {
		return nil
	}
	names := make([]string, 0, len(n.children))
	for _, c := range n.children {
		names = append(names, c.name)
	}
	return names
}
