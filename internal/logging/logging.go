// Package logging builds the slog.Logger used by the handler. On a booted
// system records go to the systemd journal, otherwise to standard error.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/coreos/go-systemd/v22/journal"
)

// Identifier is the SYSLOG_IDENTIFIER of journal records.
const Identifier = "vyos-userdata"

// Options selects the log sink.
type Options struct {
	Level slog.Leveler
	// Target is "auto", "journal" or "stderr". Empty means "auto".
	Target string
	// Stderr receives text records when the journal is not used.
	// Defaults to os.Stderr.
	Stderr io.Writer
}

// New returns a logger for opts. Target "journal" fails when journald is
// not reachable; "auto" falls back to standard error instead.
func New(opts Options) (*slog.Logger, error) {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	switch opts.Target {
	case "journal":
		if !journal.Enabled() {
			return nil, fmt.Errorf("systemd journal is not available")
		}
		return slog.New(NewJournalHandler(opts.Level)), nil
	case "", "auto":
		if journal.Enabled() {
			return slog.New(NewJournalHandler(opts.Level)), nil
		}
		fallthrough
	case "stderr":
		return slog.New(slog.NewTextHandler(opts.Stderr, &slog.HandlerOptions{Level: opts.Level})), nil
	}
	return nil, fmt.Errorf("unknown log target %q", opts.Target)
}

// JournalHandler is a slog.Handler writing to the systemd journal. Record
// attributes become journal fields: "file" turns into FILE and attributes
// inside group "part" into PART_FILE.
type JournalHandler struct {
	level  slog.Leveler
	fields map[string]string
	prefix string
	send   func(message string, priority journal.Priority, vars map[string]string) error
}

// NewJournalHandler returns a handler that drops records below level.
// A nil level means slog.LevelInfo.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &JournalHandler{
		level:  level,
		fields: map[string]string{"SYSLOG_IDENTIFIER": Identifier},
		send:   journal.Send,
	}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	vars := make(map[string]string, len(h.fields)+r.NumAttrs())
	for k, v := range h.fields {
		vars[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(vars, h.prefix, a)
		return true
	})
	return h.send(r.Message, priority(r.Level), vars)
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range attrs {
		addAttr(c.fields, c.prefix, a)
	}
	return c
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix = c.prefix + fieldName(name) + "_"
	return c
}

func (h *JournalHandler) clone() *JournalHandler {
	fields := make(map[string]string, len(h.fields))
	for k, v := range h.fields {
		fields[k] = v
	}
	return &JournalHandler{level: h.level, fields: fields, prefix: h.prefix, send: h.send}
}

func addAttr(vars map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += fieldName(a.Key) + "_"
		}
		for _, ga := range a.Value.Group() {
			addAttr(vars, p, ga)
		}
		return
	}
	vars[prefix+fieldName(a.Key)] = a.Value.String()
}

// fieldName maps an attribute key onto the journal field alphabet:
// upper case letters, digits and underscores, not starting with an
// underscore or digit.
func fieldName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "F_" + name
	}
	return name
}

func priority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}
