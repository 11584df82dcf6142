package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestBuildService_OverlayWithoutBaseConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.LocalOverlayFileName), `
database:
  user: overlay-user
disabled: true
`)
	t.Chdir(dir)

	svc, err := buildService(false, false)
	if err != nil {
		t.Fatalf("buildService failed: %v", err)
	}

	if got := svc.Config().Database.User; got != "overlay-user" {
		t.Errorf("merged user = %q, want overlay value", got)
	}
	if !svc.Effective().Disabled {
		t.Error("disabled flag from working-directory overlay was ignored")
	}
}

func TestBuildService_OverlayNextToBaseConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".pgbranch.yml"), `
database:
  host: file-host
`)
	writeFile(t, filepath.Join(dir, config.LocalOverlayFileName), `
database:
  host: local-host
`)

	// Run from a nested directory so the overlay must be resolved
	// relative to the discovered config file, not the working directory.
	nested := filepath.Join(dir, "sub", "dir")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}
	t.Chdir(nested)

	svc, err := buildService(true, false)
	if err != nil {
		t.Fatalf("buildService failed: %v", err)
	}
	if got := svc.Config().Database.Host; got != "local-host" {
		t.Errorf("merged host = %q, want overlay value next to the config file", got)
	}
}
