package state

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "state.json"))
}

func TestCurrentBranch_MissingFile(t *testing.T) {
	store := newTestStore(t)

	branch, err := store.CurrentBranch("/project/.pgbranch.yml")
	if err != nil {
		t.Fatalf("CurrentBranch failed: %v", err)
	}
	if branch != "" {
		t.Errorf("expected empty branch for missing file, got %q", branch)
	}
}

func TestSetAndGetCurrentBranch(t *testing.T) {
	store := newTestStore(t)

	if err := store.SetCurrentBranch("/project/.pgbranch.yml", "feature_auth"); err != nil {
		t.Fatalf("SetCurrentBranch failed: %v", err)
	}

	branch, err := store.CurrentBranch("/project/.pgbranch.yml")
	if err != nil {
		t.Fatalf("CurrentBranch failed: %v", err)
	}
	if branch != "feature_auth" {
		t.Errorf("branch = %q, want feature_auth", branch)
	}

	// Unknown config path stays empty.
	branch, err = store.CurrentBranch("/other/.pgbranch.yml")
	if err != nil {
		t.Fatalf("CurrentBranch failed: %v", err)
	}
	if branch != "" {
		t.Errorf("unrelated config path returned %q", branch)
	}
}

func TestSetCurrentBranch_IndependentCheckouts(t *testing.T) {
	store := newTestStore(t)

	if err := store.SetCurrentBranch("/a/.pgbranch.yml", "feature_one"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetCurrentBranch("/b/.pgbranch.yml", "_main"); err != nil {
		t.Fatal(err)
	}

	a, _ := store.CurrentBranch("/a/.pgbranch.yml")
	b, _ := store.CurrentBranch("/b/.pgbranch.yml")
	if a != "feature_one" || b != "_main" {
		t.Errorf("checkouts not independent: a=%q b=%q", a, b)
	}
}

func TestSetCurrentBranch_CreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")
	store := NewFileStore(path)

	if err := store.SetCurrentBranch("/p/.pgbranch.yml", "x"); err != nil {
		t.Fatalf("SetCurrentBranch failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("state file not created: %v", err)
	}
}

func TestSetCurrentBranch_UnwritableIsError(t *testing.T) {
	dir := t.TempDir()
	// A file where the state directory should be makes MkdirAll fail.
	blocker := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(filepath.Join(blocker, "state.json"))

	if err := store.SetCurrentBranch("/p/.pgbranch.yml", "x"); err == nil {
		t.Fatal("expected error when state file cannot be written")
	}
}

func TestJournal_RecordsSwitches(t *testing.T) {
	store := newTestStore(t)

	for _, branch := range []string{"one", "two", "three"} {
		if err := store.SetCurrentBranch("/p/.pgbranch.yml", branch); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.Journal(0)
	if err != nil {
		t.Fatalf("Journal failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[2].Branch != "three" {
		t.Errorf("newest entry = %q, want three", entries[2].Branch)
	}
	for _, entry := range entries {
		if entry.ID == "" || entry.Timestamp.IsZero() {
			t.Errorf("entry missing ID or timestamp: %+v", entry)
		}
	}

	limited, err := store.Journal(2)
	if err != nil {
		t.Fatalf("Journal failed: %v", err)
	}
	if len(limited) != 2 || limited[1].Branch != "three" {
		t.Errorf("limit not applied from the newest end: %+v", limited)
	}
}

func TestJournal_Rotation(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < MaxJournalEntries+10; i++ {
		if err := store.SetCurrentBranch("/p/.pgbranch.yml", "b"); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.Journal(0)
	if err != nil {
		t.Fatalf("Journal failed: %v", err)
	}
	if len(entries) != MaxJournalEntries {
		t.Errorf("journal grew to %d entries, cap is %d", len(entries), MaxJournalEntries)
	}
}
