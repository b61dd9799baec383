package userdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/vyos/vyos-userdata/internal/configtree"
)

// Sentinel content types delivered around the parts of one run.
const (
	ContentTypeBegin = "__begin__"
	ContentTypeEnd   = "__end__"
)

// Frequency tells whether the run happens on every boot or only the first.
type Frequency string

const (
	FrequencyAlways      Frequency = "always"
	FrequencyPerInstance Frequency = "per-instance"
)

// ListTypes returns the content types the handler accepts.
func ListTypes() []string {
	return []string{"text/plain", "text/go-cubs-go", "text/x-not-multipart"}
}

// Part is one lifecycle event delivered to the handler.
type Part struct {
	ContentType string
	Filename    string
	Payload     string
	Frequency   Frequency
}

// Action is what a data part did to the configuration file.
type Action int

const (
	// ActionNone is returned for begin and end events.
	ActionNone Action = iota
	// ActionSkipped means the file was left untouched.
	ActionSkipped
	// ActionReplaced means the file was overwritten with a full document.
	ActionReplaced
	// ActionApplied means commands were applied and the file rewritten.
	ActionApplied
)

func (a Action) String() string {
	switch a {
	case ActionSkipped:
		return "skipped"
	case ActionReplaced:
		return "replaced"
	case ActionApplied:
		return "applied"
	}
	return "none"
}

// Result summarizes a HandlePart call. Failures never abort a run; they
// are logged and collected in Errors.
type Result struct {
	Action     Action
	Kind       Kind
	ConfigFile string
	// Applied and Skipped count command lines for KindCommands payloads.
	// Lines that are not commands at all are neither.
	Applied int
	Skipped int
	Errors  []error
}

func (r *Result) fail(log *slog.Logger, err error) {
	log.Error(err.Error())
	r.Errors = append(r.Errors, err)
}

// Handler applies user-data payloads to the router configuration.
type Handler struct {
	// ConfigFile is preferred; DefaultConfigFile is used when it is absent.
	ConfigFile        string
	DefaultConfigFile string
	TemplatesDir      string
	Fetcher           Fetcher
	Logger            *slog.Logger
}

// HandlePart processes one lifecycle event. Begin and end events are only
// logged. A data part is classified, fetched if it is a URL, and then
// either replaces the configuration file or is applied to it command by
// command.
func (h *Handler) HandlePart(ctx context.Context, part Part) Result {
	log := h.logger()

	freq := part.Frequency
	if freq != FrequencyAlways && freq != FrequencyPerInstance {
		log.Warn("unknown frequency, assuming always", "frequency", string(freq))
		freq = FrequencyAlways
	}

	switch part.ContentType {
	case ContentTypeBegin:
		log.Info("configuration handler is beginning", "frequency", string(freq))
		return Result{}
	case ContentTypeEnd:
		log.Info("configuration handler is ending", "frequency", string(freq))
		return Result{}
	}

	log = log.With("run-id", uuid.NewString())
	log.Info("received part", "ctype", part.ContentType, "filename", part.Filename)

	res := h.handleData(ctx, log, part.Payload)
	log.Info("finished part", "ctype", part.ContentType, "filename", part.Filename,
		"action", res.Action.String(), "applied", res.Applied, "skipped", res.Skipped)
	return res
}

func (h *Handler) handleData(ctx context.Context, log *slog.Logger, payload string) Result {
	res := Result{Action: ActionSkipped}

	res.ConfigFile = h.resolveConfigFile()
	tree, err := loadTree(res.ConfigFile)
	if err != nil {
		res.fail(log, err)
	} else {
		log.Debug("using configuration file", "file", res.ConfigFile)
	}

	kind, parseErr := classify(payload)
	if parseErr != nil {
		log.Debug("payload is not a valid configuration file", "error", parseErr)
	}
	if kind == KindURL {
		url := strings.TrimSpace(payload)
		log.Info("fetching payload from URL", "url", url)
		payload, err = h.fetch(ctx, url)
		switch {
		case err != nil:
			res.fail(log, err)
		case payload == "":
			log.Warn("remote payload is empty", "url", url)
		default:
			kind, parseErr = classify(payload)
			if parseErr != nil {
				log.Debug("remote payload is not a valid configuration file", "error", parseErr)
			}
		}
	}
	res.Kind = kind
	log.Debug("detected payload format", "kind", kind.String())

	switch {
	case kind == KindDocument:
		if err := writeFile(res.ConfigFile, payload); err != nil {
			res.fail(log, err)
			return res
		}
		res.Action = ActionReplaced
	case kind == KindCommands:
		h.applyCommands(log, tree, payload, &res)
		if tree == nil {
			res.fail(log, fmt.Errorf("%w %s: no configuration loaded", ErrSave, res.ConfigFile))
			return res
		}
		if err := writeFile(res.ConfigFile, tree.String()); err != nil {
			res.fail(log, err)
			return res
		}
		res.Action = ActionApplied
	default:
		if kind == KindUnrecognized {
			res.fail(log, ErrClassify)
		}
		log.Info("no valid configuration provided, skipping configuration change")
	}
	return res
}

func (h *Handler) applyCommands(log *slog.Logger, tree *configtree.Tree, payload string, res *Result) {
	idx, err := LoadTagIndex(h.TemplatesDir)
	if err != nil {
		res.fail(log, err)
	}
	log.Debug("loaded tag nodes", "dir", h.TemplatesDir, "count", idx.Len())

	for n, line := range splitLines(payload) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, ok := ParseLine(line)
		if !ok {
			if strings.HasPrefix(line, "set ") {
				res.Skipped++
				res.fail(log, fmt.Errorf("%w on line %d: %q", ErrLineParse, n+1, line))
			}
			continue
		}
		if tree == nil {
			res.Skipped++
			res.fail(log, fmt.Errorf("%w on line %d: no configuration loaded", ErrLineApply, n+1))
			continue
		}

		log.Debug("configuring command", "line", line)
		if err := tree.Set(cmd.Path, cmd.Value, true); err != nil {
			res.Skipped++
			res.fail(log, fmt.Errorf("%w on line %d: %w", ErrLineApply, n+1, err))
			continue
		}
		marked, err := MarkTags(tree, cmd.Path, idx)
		if err != nil {
			res.fail(log, fmt.Errorf("%w on line %d: %w", ErrLineApply, n+1, err))
		}
		if marked > 0 {
			log.Debug("marked tag nodes", "path", cmd.Path.String(), "count", marked)
		}
		res.Applied++
	}
}

func (h *Handler) fetch(ctx context.Context, url string) (string, error) {
	f := h.Fetcher
	if f == nil {
		f = &HTTPFetcher{}
	}
	return f.Fetch(ctx, url)
}

// resolveConfigFile returns ConfigFile if it exists and DefaultConfigFile
// otherwise.
func (h *Handler) resolveConfigFile() string {
	if _, err := os.Stat(h.ConfigFile); errors.Is(err, os.ErrNotExist) && h.DefaultConfigFile != "" {
		return h.DefaultConfigFile
	}
	return h.ConfigFile
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func loadTree(path string) (*configtree.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	tree, err := configtree.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrLoad, path, err)
	}
	return tree, nil
}

// writeFile replaces the contents of path through a temporary file in the
// same directory, so an interrupted write leaves the old file in place. The
// mode of an existing file is kept.
func writeFile(path, content string) (err error) {
	mode := os.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
		if err := unix.Access(path, unix.W_OK); err != nil {
			return fmt.Errorf("%w %s: not writable: %w", ErrSave, path, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}
