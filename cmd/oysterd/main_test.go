package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skobkin/oystergo/internal/config"
)

func TestApplyOverrides(t *testing.T) {
	fs, f, err := parseFlags([]string{
		"--file", "uplinks.log",
		"--output", "out-%Y%m%d.jsonl",
		"--integration-name", "fleet",
		"--log-level", "debug",
		"--log-format", "json",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.Default()
	cfg.Connection.Host = "10.0.0.5"
	applyOverrides(fs, f, &cfg)

	if cfg.Connection.Connector != config.ConnectorFile {
		t.Fatalf("expected --file to select the file connector, got %q", cfg.Connection.Connector)
	}
	if cfg.Connection.FilePath != "uplinks.log" {
		t.Fatalf("unexpected file path %q", cfg.Connection.FilePath)
	}
	if cfg.Connection.Host != "10.0.0.5" {
		t.Fatalf("unset flags must keep config values, got host %q", cfg.Connection.Host)
	}
	if cfg.Output.Path != "out-%Y%m%d.jsonl" || cfg.Output.IntegrationName != "fleet" {
		t.Fatalf("unexpected output config: %+v", cfg.Output)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != config.LogFormatJSON {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestApplyOverridesExplicitConnectorWins(t *testing.T) {
	fs, f, err := parseFlags([]string{"--connector", "IP", "--host", "gw.local", "--port", "9000", "--file", "x"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.Default()
	applyOverrides(fs, f, &cfg)
	if cfg.Connection.Connector != config.ConnectorIP || cfg.Connection.Host != "gw.local" || cfg.Connection.Port != 9000 {
		t.Fatalf("unexpected connection config: %+v", cfg.Connection)
	}
}

func TestConfigFlagListsEveryFormat(t *testing.T) {
	fs, _, err := parseFlags(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	usage := fs.Lookup("config").Usage
	for _, ext := range []string{".json", ".yaml", ".yml", ".toml"} {
		if !strings.Contains(usage, ext) {
			t.Fatalf("--config usage %q does not mention %s", usage, ext)
		}
	}
}

func TestParseFlagsRejectsPositionalArgs(t *testing.T) {
	if _, _, err := parseFlags([]string{"extra"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for positional arguments")
	}
}

func TestRunProcessesFileInput(t *testing.T) {
	origDefault := slog.Default()
	t.Cleanup(func() { slog.SetDefault(origDefault) })

	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(dir, "run"))

	input := filepath.Join(dir, "uplinks.log")
	raw := "{\"device\":\"1a2b3c\",\"data\":\"10b67dcc0006efda3d9816c2\"}\n02a315072c8144931e5a960b\n"
	if err := os.WriteFile(input, []byte(raw), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	cfgPath := filepath.Join(dir, "oysterd.yaml")
	outPattern := filepath.Join(dir, "out", "uplinks-%Y.jsonl")

	var stdout, stderr bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx, []string{"--config", cfgPath, "--file", input, "--output", outPattern, "--save-config"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v (stderr: %s)", err, stderr.String())
	}

	outFile := filepath.Join(dir, "out", "uplinks-"+time.Now().Format("2006")+".jsonl")
	// #nosec G304 -- path is created from t.TempDir() in this test.
	written, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(written)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 uplinks, got %d: %q", len(lines), written)
	}
	if !strings.Contains(lines[0], `"deviceName":"1A2B3C"`) {
		t.Fatalf("unexpected first uplink: %s", lines[0])
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected nothing on stdout when writing to a file, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "device snapshot") {
		t.Fatalf("expected device snapshot in logs, got %q", stderr.String())
	}

	saved, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load saved config: %v", err)
	}
	if saved.Connection.Connector != config.ConnectorFile || saved.Connection.FilePath != input {
		t.Fatalf("unexpected saved connection: %+v", saved.Connection)
	}
}

func TestRunFailsOnInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"--config", filepath.Join(dir, "c.json"), "--connector", "serial"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("run --version: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "oysterd ") {
		t.Fatalf("unexpected version output %q", stdout.String())
	}
}
