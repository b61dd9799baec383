package configtree

import (
	"fmt"
	"strings"
)

// SyntaxError describes a malformed configuration document.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokOpen
	tokClose
	tokNewline
	tokComment
	tokBlockComment
)

type token struct {
	kind tokenKind
	text string
	line int
}

// lex splits text into tokens. Comments are kept so the parser can
// preserve the top-level footer.
func lex(text string) ([]token, error) {
	var toks []token
	line := 1
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\n':
			toks = append(toks, token{kind: tokNewline, line: line})
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '{':
			toks = append(toks, token{kind: tokOpen, text: "{", line: line})
			i++
		case c == '}':
			toks = append(toks, token{kind: tokClose, text: "}", line: line})
			i++
		case strings.HasPrefix(text[i:], "/*"):
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return nil, &SyntaxError{Line: line, Msg: "unterminated comment"}
			}
			body := text[i : i+2+end+2]
			toks = append(toks, token{kind: tokBlockComment, text: body, line: line})
			line += strings.Count(body, "\n")
			i += len(body)
		case strings.HasPrefix(text[i:], "//"):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			toks = append(toks, token{kind: tokComment, text: strings.TrimRight(text[i:i+end], "\r"), line: line})
			i += end
		case c == '"':
			word, n, err := lexQuoted(text[i:])
			if err != nil {
				return nil, &SyntaxError{Line: line, Msg: err.Error()}
			}
			toks = append(toks, token{kind: tokWord, text: word, line: line})
			i += n
		default:
			start := i
			for i < len(text) && !strings.ContainsRune(" \t\r\n{}\"", rune(text[i])) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: text[start:i], line: line})
		}
	}
	return toks, nil
}

// lexQuoted reads a double quoted string at the start of s and returns its
// contents and the number of bytes consumed. Only \" and \\ are escapes;
// any other backslash is kept as written.
func lexQuoted(s string) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
				i++
			}
			b.WriteByte(s[i])
		case '"':
			return b.String(), i + 1, nil
		case '\n':
			return "", 0, fmt.Errorf("newline in quoted string")
		default:
			b.WriteByte(s[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated quoted string")
}

// Parse reads a configuration document in config.boot syntax.
//
//	interfaces {
//	    ethernet eth0 {
//	        address 192.0.2.1/24
//	    }
//	}
//	// vyos-config-version: "..."
//
// Top-level comments, such as the version footer, are kept and written back
// after the configuration by String. Comments inside blocks are dropped.
func Parse(text string) (*Tree, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}

	t := New()
	stack := []*node{t.root}
	var words []token

	flush := func(line int) error {
		defer func() { words = words[:0] }()
		parent := stack[len(stack)-1]
		switch len(words) {
		case 0:
			return nil
		case 1:
			return addLeaf(parent, words[0].text, nil, line)
		case 2:
			v := words[1].text
			return addLeaf(parent, words[0].text, &v, line)
		default:
			return &SyntaxError{Line: line, Msg: fmt.Sprintf("unexpected %q", words[2].text)}
		}
	}

	for _, tok := range toks {
		switch tok.kind {
		case tokWord:
			words = append(words, tok)
		case tokNewline:
			if err := flush(tok.line); err != nil {
				return nil, err
			}
		case tokComment:
			if err := flush(tok.line); err != nil {
				return nil, err
			}
			if len(stack) == 1 {
				t.trailer = append(t.trailer, tok.text)
			}
		case tokBlockComment:
			if len(stack) == 1 && len(words) == 0 {
				t.trailer = append(t.trailer, tok.text)
			}
		case tokOpen:
			parent := stack[len(stack)-1]
			var n *node
			switch len(words) {
			case 1:
				n, err = openNode(parent, words[0].text, tok.line)
			case 2:
				n, err = openNode(parent, words[0].text, tok.line)
				if err == nil {
					n.tag = true
					n, err = openNode(n, words[1].text, tok.line)
				}
			case 0:
				err = &SyntaxError{Line: tok.line, Msg: "unexpected {"}
			default:
				err = &SyntaxError{Line: tok.line, Msg: fmt.Sprintf("unexpected %q", words[2].text)}
			}
			if err != nil {
				return nil, err
			}
			words = words[:0]
			stack = append(stack, n)
		case tokClose:
			if err := flush(tok.line); err != nil {
				return nil, err
			}
			if len(stack) == 1 {
				return nil, &SyntaxError{Line: tok.line, Msg: "unexpected }"}
			}
			stack = stack[:len(stack)-1]
		}
	}
	last := 1
	if len(toks) > 0 {
		last = toks[len(toks)-1].line
	}
	if err := flush(last); err != nil {
		return nil, err
	}
	if len(stack) > 1 {
		return nil, &SyntaxError{Line: last, Msg: "unexpected end of input, missing }"}
	}
	return t, nil
}

func openNode(parent *node, name string, line int) (*node, error) {
	n := parent.child(name)
	if n == nil {
		return parent.add(name), nil
	}
	if len(n.values) > 0 {
		return nil, &SyntaxError{Line: line, Msg: fmt.Sprintf("%q is a leaf", name)}
	}
	n.leaf = false
	return n, nil
}

func addLeaf(parent *node, name string, value *string, line int) error {
	n := parent.child(name)
	if n == nil {
		n = parent.add(name)
		n.leaf = true
	} else if !n.leaf {
		return &SyntaxError{Line: line, Msg: fmt.Sprintf("%q is not a leaf", name)}
	}
	if value != nil {
		n.values = append(n.values, *value)
	}
	return nil
}
