package docker

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCompose(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindComposeFile(t *testing.T) {
	dir := t.TempDir()
	if got := FindComposeFile(dir); got != "" {
		t.Errorf("expected no compose file, got %q", got)
	}

	want := writeCompose(t, dir, "docker-compose.yml", "services: {}\n")
	writeCompose(t, dir, "compose.yaml", "services: {}\n")

	if got := FindComposeFile(dir); got != want {
		t.Errorf("FindComposeFile = %q, want %q (first name wins)", got, want)
	}
}

func TestDetectPostgres_MapEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, "docker-compose.yml", `
services:
  web:
    image: nginx:latest
  db:
    image: postgres:16
    ports:
      - "15432:5432"
    environment:
      POSTGRES_USER: app
      POSTGRES_PASSWORD: apppw
      POSTGRES_DB: appdb
`)

	svc, err := DetectPostgres(path)
	if err != nil {
		t.Fatalf("DetectPostgres failed: %v", err)
	}
	if svc == nil {
		t.Fatal("postgres service not found")
	}
	if svc.Name != "db" || svc.Port != 15432 || svc.User != "app" || svc.Password != "apppw" || svc.Database != "appdb" {
		t.Errorf("unexpected service: %+v", svc)
	}
}

func TestDetectPostgres_ListEnvironmentAndHostPrefix(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, "docker-compose.yml", `
services:
  db:
    image: library/postgres:15-alpine
    ports:
      - "127.0.0.1:6543:5432/tcp"
    environment:
      - POSTGRES_USER=listuser
      - POSTGRES_DB=listdb
`)

	svc, err := DetectPostgres(path)
	if err != nil {
		t.Fatalf("DetectPostgres failed: %v", err)
	}
	if svc == nil {
		t.Fatal("postgres service not found")
	}
	if svc.Port != 6543 || svc.User != "listuser" || svc.Database != "listdb" {
		t.Errorf("unexpected service: %+v", svc)
	}
}

func TestDetectPostgres_NoPortsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, "docker-compose.yml", `
services:
  db:
    image: postgres
`)

	svc, err := DetectPostgres(path)
	if err != nil {
		t.Fatalf("DetectPostgres failed: %v", err)
	}
	if svc == nil {
		t.Fatal("postgres service not found")
	}
	if svc.Host != "localhost" || svc.Port != 5432 {
		t.Errorf("defaults wrong: %+v", svc)
	}
}

func TestDetectPostgres_NoPostgresService(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, "docker-compose.yml", `
services:
  cache:
    image: redis:7
`)

	svc, err := DetectPostgres(path)
	if err != nil {
		t.Fatalf("DetectPostgres failed: %v", err)
	}
	if svc != nil {
		t.Errorf("expected nil, got %+v", svc)
	}
}

func TestDetectPostgres_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, "docker-compose.yml", "services: [broken\n")

	if _, err := DetectPostgres(path); err == nil {
		t.Fatal("expected parse error")
	}
}
