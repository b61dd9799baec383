package userdata

import (
	"regexp"
	"strings"

	"github.com/vyos/vyos-userdata/internal/configtree"
)

// Kind is the detected shape of a payload.
type Kind int

const (
	KindUnrecognized Kind = iota
	// KindDocument is a complete configuration in config.boot syntax.
	KindDocument
	// KindCommands is a list of "set" commands.
	KindCommands
	// KindURL points at a remote payload of either of the above kinds.
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "configuration file"
	case KindCommands:
		return "commands list"
	case KindURL:
		return "URL"
	}
	return "unrecognized"
}

var (
	documentPattern = regexp.MustCompile(`^[\w-]+ \{`)
	commandsPattern = regexp.MustCompile(`^set ([^']+)( '(.*)')*`)
	urlPattern      = regexp.MustCompile(`^https?://[\w.:-]+/.*$`)
)

// Classify detects what kind of payload text is. A document-shaped text is
// only reported as KindDocument when it actually parses; otherwise the
// remaining rules are tried.
func Classify(text string) Kind {
	kind, _ := classify(text)
	return kind
}

// classify is Classify that also returns the parse error of a
// document-shaped payload that was rejected.
func classify(text string) (Kind, error) {
	text = strings.TrimSpace(text)

	var parseErr error
	if documentPattern.MatchString(text) {
		if _, parseErr = configtree.Parse(text); parseErr == nil {
			return KindDocument, nil
		}
	}
	switch {
	case commandsPattern.MatchString(text):
		return KindCommands, parseErr
	case urlPattern.MatchString(text):
		return KindURL, parseErr
	}
	return KindUnrecognized, parseErr
}
