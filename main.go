package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/vyos/vyos-userdata/internal/conf"
	"github.com/vyos/vyos-userdata/internal/l10n"
	"github.com/vyos/vyos-userdata/internal/logging"
	"github.com/vyos/vyos-userdata/internal/userdata"
)

// Version is set at build time.
var Version = "dev"

const (
	metaConfig = "config"
	metaLogger = "logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "vyos-userdata",
		Version: Version,
		Usage:   l10n.T("apply cloud-init user-data to the VyOS configuration"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: l10n.T("read handler settings from `FILE` and its .d directory"),
				Value: conf.DefaultPath,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: l10n.T("override the log level (DEBUG, INFO, WARN, ERROR)"),
			},
			&cli.StringFlag{
				Name:  "log-target",
				Usage: l10n.T("override the log target (auto, journal, stderr)"),
			},
		},
		Before: beforeAction,
		Commands: []*cli.Command{
			{
				Name:      "handle",
				Usage:     l10n.T("apply a user-data part to the configuration"),
				ArgsUsage: "[PAYLOAD|-]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "content-type",
						Usage: l10n.T("content type of the part"),
						Value: "text/x-not-multipart",
					},
					&cli.StringFlag{
						Name:  "filename",
						Usage: l10n.T("file name of the part"),
						Value: "part-001",
					},
					&cli.StringFlag{
						Name:  "frequency",
						Usage: l10n.T("run frequency (always, per-instance)"),
						Value: string(userdata.FrequencyAlways),
					},
				},
				Action: handleAction,
			},
			{
				Name:  "list-types",
				Usage: l10n.T("list accepted content types"),
				Action: func(c *cli.Context) error {
					for _, t := range userdata.ListTypes() {
						fmt.Fprintln(c.App.Writer, t)
					}
					return nil
				},
			},
			{
				Name:      "classify",
				Usage:     l10n.T("print the detected format of a payload"),
				ArgsUsage: "[PAYLOAD|-]",
				Action: func(c *cli.Context) error {
					payload, err := readPayload(c.Args().First(), os.Stdin)
					if err != nil {
						return cli.Exit(err, 1)
					}
					fmt.Fprintln(c.App.Writer, userdata.Classify(payload))
					return nil
				},
			},
		},
	}
}

// beforeAction resolves the settings and the logger shared by all commands.
// Unreadable settings fall back to the embedded defaults so that a broken
// file never keeps cloud-init from applying user-data.
func beforeAction(c *cli.Context) error {
	path := c.String("config")
	source := &conf.ConfigSource{Path: path, DropInDir: path + ".d"}
	config, settingsErr := source.Read()
	if settingsErr != nil {
		config = conf.Default()
	}

	if s := c.String("log-level"); s != "" {
		level, err := conf.ParseLevel(s)
		if err != nil {
			return cli.Exit(err, 1)
		}
		config.LogLevel = level
	}
	if s := c.String("log-target"); s != "" {
		config.LogTarget = s
	}

	logger, err := logging.New(logging.Options{
		Level:  config.LogLevel,
		Target: config.LogTarget,
		Stderr: c.App.ErrWriter,
	})
	if err != nil {
		return cli.Exit(err, 1)
	}
	if settingsErr != nil {
		logger.Warn("cannot read settings, using defaults", "file", path, "error", settingsErr)
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[metaConfig] = config
	c.App.Metadata[metaLogger] = logger
	return nil
}

// handleAction delivers begin, the payload and end to the handler, the way
// cloud-init drives a part handler. Failures inside the handler are only
// logged, so the command succeeds whenever the payload could be read.
func handleAction(c *cli.Context) error {
	config := c.App.Metadata[metaConfig].(conf.Config)
	logger := c.App.Metadata[metaLogger].(*slog.Logger)

	payload, err := readPayload(c.Args().First(), os.Stdin)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if unix.Geteuid() != 0 {
		logger.Warn("not running as root, the configuration file may not be writable")
	}

	var fetcher userdata.Fetcher = &userdata.HTTPFetcher{
		Timeout: config.FetchTimeout,
		Retries: config.FetchRetries,
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		fetcher = &spinnerFetcher{next: fetcher, w: os.Stderr}
	}

	h := &userdata.Handler{
		ConfigFile:        config.ConfigFile,
		DefaultConfigFile: config.DefaultConfigFile,
		TemplatesDir:      config.TemplatesDir,
		Fetcher:           fetcher,
		Logger:            logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	freq := userdata.Frequency(c.String("frequency"))
	h.HandlePart(ctx, userdata.Part{ContentType: userdata.ContentTypeBegin, Frequency: freq})
	res := h.HandlePart(ctx, userdata.Part{
		ContentType: c.String("content-type"),
		Filename:    c.String("filename"),
		Payload:     payload,
		Frequency:   freq,
	})
	h.HandlePart(ctx, userdata.Part{ContentType: userdata.ContentTypeEnd, Frequency: freq})

	logger.Debug("handler finished", "action", res.Action.String(), "kind", res.Kind.String(),
		"file", res.ConfigFile, "errors", len(res.Errors))
	if res.Action == userdata.ActionApplied && res.Applied+res.Skipped > 0 {
		fmt.Fprintln(c.App.Writer,
			l10n.TN("%d command applied", "%d commands applied", uint32(res.Applied), res.Applied)+", "+
				l10n.TN("%d line skipped", "%d lines skipped", uint32(res.Skipped), res.Skipped))
	}
	return nil
}

// readPayload reads the payload from file name, or from stdin when name is
// empty or "-".
func readPayload(name string, stdin io.Reader) (string, error) {
	var data []byte
	var err error
	if name == "" || name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("cannot read payload: %w", err)
	}
	return string(data), nil
}

// spinnerFetcher shows progress while a remote payload is downloaded.
type spinnerFetcher struct {
	next userdata.Fetcher
	w    io.Writer
}

func (f *spinnerFetcher) Fetch(ctx context.Context, url string) (string, error) {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(f.w))
	s.Suffix = " " + l10n.T("Fetching %s", url)
	s.Start()
	defer s.Stop()
	return f.next.Fetch(ctx, url)
}
