package configtree

import (
	"fmt"
	"strings"
)

const indentUnit = "    "

// String renders the tree in config.boot syntax.
func (t *Tree) String() string {
	var b strings.Builder
	renderNodes(&b, t.root.children, 0)
	for _, line := range t.trailer {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func renderNodes(b *strings.Builder, nodes []*node, depth int) {
	prefix := strings.Repeat(indentUnit, depth)
	for _, n := range nodes {
		name := quote(n.name)
		switch {
		case n.leaf && len(n.values) == 0 && len(n.children) == 0:
			fmt.Fprintf(b, "%s%s\n", prefix, name)
		case n.leaf:
			for _, v := range n.values {
				fmt.Fprintf(b, "%s%s %s\n", prefix, name, quote(v))
			}
		case n.tag && rendersAsTag(n):
			for _, inst := range n.children {
				fmt.Fprintf(b, "%s%s %s {\n", prefix, name, quote(inst.name))
				renderNodes(b, inst.children, depth+1)
				fmt.Fprintf(b, "%s}\n", prefix)
			}
		default:
			fmt.Fprintf(b, "%s%s {\n", prefix, name)
			renderNodes(b, n.children, depth+1)
			fmt.Fprintf(b, "%s}\n", prefix)
		}
	}
}

// rendersAsTag reports whether every instance of a tag node can be written
// in "name instance {" form. An instance holding values cannot.
func rendersAsTag(n *node) bool {
	if len(n.children) == 0 {
		return false
	}
	for _, c := range n.children {
		if len(c.values) > 0 {
			return false
		}
	}
	return true
}

func quote(s string) string {
	if s != "" && !strings.ContainsFunc(s, needsQuote) && !strings.HasPrefix(s, "//") && !strings.HasPrefix(s, "/*") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			b.WriteString(`\"`)
		case s[i] == '\\' && (i+1 == len(s) || s[i+1] == '"' || s[i+1] == '\\'):
			// only a backslash the parser would read as an escape is doubled
			b.WriteString(`\\`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_.:/@+,=%", r)
}
