package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func runApp(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut

	settings := filepath.Join(t.TempDir(), "config.toml")
	argv := append([]string{"vyos-userdata", "--config", settings, "--log-target", "stderr"}, args...)
	if err := app.Run(argv); err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, errOut.String())
	}
	return out.String()
}

func TestListTypesCommand(t *testing.T) {
	want := "text/plain\ntext/go-cubs-go\ntext/x-not-multipart\n"
	if diff := cmp.Diff(want, runApp(t, "list-types")); diff != "" {
		t.Errorf("list-types mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyCommand(t *testing.T) {
	payload := filepath.Join(t.TempDir(), "user-data")
	if err := os.WriteFile(payload, []byte("set system host-name 'vyos'\n"), 0644); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}
	if got := runApp(t, "classify", payload); got != "commands list\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestHandleCommand(t *testing.T) {
	dir := t.TempDir()
	boot := filepath.Join(dir, "config.boot")
	if err := os.WriteFile(boot, []byte("system {\n    host-name vyos\n}\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	settings := filepath.Join(dir, "config.toml")
	content := "config-file = \"" + boot + "\"\n" +
		"templates-dir = \"" + filepath.Join(dir, "templates") + "\"\n"
	if err := os.WriteFile(settings, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}
	payload := filepath.Join(dir, "user-data")
	if err := os.WriteFile(payload, []byte("set system host-name 'router1'\n"), 0644); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	argv := []string{"vyos-userdata", "--config", settings, "--log-target", "stderr",
		"handle", "--frequency", "per-instance", payload}
	if err := app.Run(argv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(boot)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if diff := cmp.Diff("system {\n    host-name router1\n}\n", string(data)); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(errOut.String(), "configuration handler is ending") {
		t.Errorf("expected lifecycle logging:\n%s", errOut.String())
	}
	if got := out.String(); got != "1 command applied, 0 lines skipped\n" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestHandleCommand_BrokenSettings(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(settings, []byte("config-file = "), 0644); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}
	payload := filepath.Join(dir, "user-data")
	if err := os.WriteFile(payload, []byte("hello\n"), 0644); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	argv := []string{"vyos-userdata", "--config", settings, "--log-target", "stderr", "handle", payload}
	if err := app.Run(argv); err != nil {
		t.Fatalf("expected handle to run on defaults, got error: %v", err)
	}
	if !strings.Contains(errOut.String(), "cannot read settings, using defaults") {
		t.Errorf("expected settings warning:\n%s", errOut.String())
	}
	if !strings.Contains(errOut.String(), "configuration handler is ending") {
		t.Errorf("expected handler to run:\n%s", errOut.String())
	}
	if out.Len() != 0 {
		t.Errorf("expected no summary for an unrecognized payload, got %q", out.String())
	}
}

func TestReadPayload(t *testing.T) {
	got, err := readPayload("-", strings.NewReader("https://example.com/user-data"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/user-data" {
		t.Errorf("unexpected payload %q", got)
	}

	if _, err := readPayload(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

type staticFetcher string

func (s staticFetcher) Fetch(context.Context, string) (string, error) { return string(s), nil }

func TestSpinnerFetcher(t *testing.T) {
	var buf bytes.Buffer
	f := &spinnerFetcher{next: staticFetcher("set service ssh"), w: &buf}
	got, err := f.Fetch(context.Background(), "https://example.com/user-data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "set service ssh" {
		t.Errorf("unexpected payload %q", got)
	}
}
