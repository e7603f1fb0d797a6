package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePaths_ResolvesConfigDirectory(t *testing.T) {
	configHome := filepath.Join(t.TempDir(), "cfg")
	t.Setenv("XDG_CONFIG_HOME", configHome)

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}

	if paths.RootDir != filepath.Join(configHome, Name) {
		t.Fatalf("unexpected root dir: %q", paths.RootDir)
	}
	if paths.ConfigFile != filepath.Join(configHome, Name, ConfigFilename) {
		t.Fatalf("unexpected config file: %q", paths.ConfigFile)
	}
	if paths.LogFile != filepath.Join(configHome, Name, LogFilename) {
		t.Fatalf("unexpected log file: %q", paths.LogFile)
	}
	if _, err := os.Stat(paths.RootDir); err != nil {
		t.Fatalf("expected root directory to exist: %v", err)
	}
}

func TestPathsWithConfigFile(t *testing.T) {
	base := Paths{RootDir: "/home/u/.config/oystergo", ConfigFile: "/home/u/.config/oystergo/config.json", LogFile: "/home/u/.config/oystergo/oysterd.log"}

	if got := base.WithConfigFile(""); got != base {
		t.Fatalf("expected unchanged paths, got %+v", got)
	}

	got := base.WithConfigFile(filepath.Join("/etc", "oystergo", "oysterd.yaml"))
	if got.ConfigFile != filepath.Join("/etc", "oystergo", "oysterd.yaml") {
		t.Fatalf("unexpected config file: %q", got.ConfigFile)
	}
	if got.LogFile != filepath.Join("/etc", "oystergo", LogFilename) {
		t.Fatalf("unexpected log file: %q", got.LogFile)
	}
}
