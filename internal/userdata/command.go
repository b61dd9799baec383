package userdata

import (
	"regexp"
	"strings"
)

// Wildcard is the template directory name standing for any tag node
// instance.
const Wildcard = "node.tag"

// Path identifies a node of the configuration tree, one segment per level.
// Treat a Path as immutable once built.
type Path []string

// Equal reports whether p and o have the same segments.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	return strings.Join(p, " ")
}

// Command is one parsed "set" line. Value is nil when the line carries no
// quoted value and points to the (possibly empty) value otherwise.
type Command struct {
	Path  Path
	Value *string
}

var commandPattern = regexp.MustCompile(`^set (?P<path>[^']+)( '(?P<value>.*)')*$`)

var (
	pathGroup  = commandPattern.SubexpIndex("path")
	valueGroup = commandPattern.SubexpIndex("value")
)

// ParseLine parses a line of the form
//
//	set <path> ['<value>']
//
// It returns false for anything else, including blank lines, comments and
// paths naming the template wildcard.
func ParseLine(line string) (Command, bool) {
	m := commandPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return Command{}, false
	}

	path := Path(strings.Fields(line[m[2*pathGroup]:m[2*pathGroup+1]]))
	if len(path) == 0 {
		return Command{}, false
	}
	for _, seg := range path {
		if seg == Wildcard {
			return Command{}, false
		}
	}

	cmd := Command{Path: path}
	if start := m[2*valueGroup]; start >= 0 {
		v := line[start:m[2*valueGroup+1]]
		cmd.Value = &v
	}
	return cmd, true
}

// splitLines splits a payload into lines, accepting both "\n" and "\r\n".
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
