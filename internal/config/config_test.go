package config

import (
	"os"
	"path/filepath"
	"testing"
)

func withConfigHome(t *testing.T, dir string) {
	t.Helper()
	old, had := os.LookupEnv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", dir)
	t.Cleanup(func() {
		if had {
			os.Setenv("XDG_CONFIG_HOME", old)
		} else {
			os.Unsetenv("XDG_CONFIG_HOME")
		}
	})
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	withConfigHome(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestGenerateThenLoadRoundTrips(t *testing.T) {
	withConfigHome(t, t.TempDir())

	path, err := Generate(false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Fatalf("expected version %s, got %s", CurrentVersion, cfg.Version)
	}
}

func TestGenerateWithoutForceFailsIfExists(t *testing.T) {
	withConfigHome(t, t.TempDir())

	if _, err := Generate(false); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if _, err := Generate(false); err != os.ErrExist {
		t.Fatalf("expected os.ErrExist on second generate, got %v", err)
	}
	if _, err := Generate(true); err != nil {
		t.Fatalf("expected force generate to succeed, got %v", err)
	}
}

func TestTemplatesDirUnderConfigDir(t *testing.T) {
	withConfigHome(t, t.TempDir())

	dir, err := Dir()
	if err != nil {
		t.Fatalf("dir: %v", err)
	}
	tdir, err := TemplatesDir()
	if err != nil {
		t.Fatalf("templates dir: %v", err)
	}
	if filepath.Dir(tdir) != dir {
		t.Fatalf("expected templates dir under config dir, got %s", tdir)
	}
}
