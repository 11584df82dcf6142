// Package state persists the currently active logical branch per discovered
// config file path. The state file lives under the user's home directory,
// outside any checkout, so it is never committed to source control.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
)

const (
	// DefaultStateDirName is the per-user directory holding the state file.
	DefaultStateDirName = ".pgbranch"
	// DefaultStateFileName is the state file name.
	DefaultStateFileName = "state.json"
	// MaxJournalEntries caps the switch journal.
	MaxJournalEntries = 100
)

// Entry is the per-config-path record. An empty CurrentBranch means "no
// current branch"; the sentinel "_main" means the template database is
// active.
type Entry struct {
	CurrentBranch string    `json:"current_branch"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// JournalEntry records one branch switch.
type JournalEntry struct {
	ID         string    `json:"id"`
	ConfigPath string    `json:"config_path"`
	Branch     string    `json:"branch"`
	Timestamp  time.Time `json:"timestamp"`
}

// stateFile is the on-disk layout.
type stateFile struct {
	Entries map[string]Entry `json:"entries"`
	Journal []JournalEntry   `json:"journal,omitempty"`
}

// Store defines the local-state operations.
type Store interface {
	CurrentBranch(configPath string) (string, error)
	SetCurrentBranch(configPath, branch string) error
	Journal(limit int) ([]JournalEntry, error)
}

// FileStore implements Store using a JSON file.
type FileStore struct {
	filePath string
	mu       sync.Mutex
}

// NewFileStore creates a FileStore at the given path.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

// NewDefaultFileStore creates a FileStore at ~/.pgbranch/state.json.
func NewDefaultFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to locate home directory")
	}
	return NewFileStore(filepath.Join(home, DefaultStateDirName, DefaultStateFileName)), nil
}

// FilePath returns the path of the underlying state file.
func (s *FileStore) FilePath() string {
	return s.filePath
}

// CurrentBranch returns the active logical branch for the config path.
// A missing record and a record with an empty value both yield "".
func (s *FileStore) CurrentBranch(configPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sf, err := s.load()
	if err != nil {
		return "", err
	}
	return sf.Entries[configPath].CurrentBranch, nil
}

// SetCurrentBranch records the active logical branch for the config path
// and appends a journal entry. I/O failures are propagated: losing track of
// the active branch is worse than a failed database operation, so callers
// treat this as a hard failure.
func (s *FileStore) SetCurrentBranch(configPath, branch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sf, err := s.load()
	if err != nil {
		return err
	}

	now := time.Now()
	sf.Entries[configPath] = Entry{CurrentBranch: branch, UpdatedAt: now}
	sf.Journal = append(sf.Journal, JournalEntry{
		ID:         uuid.New().String(),
		ConfigPath: configPath,
		Branch:     branch,
		Timestamp:  now,
	})
	if len(sf.Journal) > MaxJournalEntries {
		sf.Journal = sf.Journal[len(sf.Journal)-MaxJournalEntries:]
	}

	return s.save(sf)
}

// Journal returns the most recent switch records, newest last. A limit of
// zero or less returns everything.
func (s *FileStore) Journal(limit int) ([]JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sf, err := s.load()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(sf.Journal) > limit {
		return sf.Journal[len(sf.Journal)-limit:], nil
	}
	return sf.Journal, nil
}

func (s *FileStore) load() (*stateFile, error) {
	sf := &stateFile{Entries: make(map[string]Entry)}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return sf, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to read state file").WithContext("path", s.filePath)
	}

	if err := json.Unmarshal(data, sf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrFileSystemError, fmt.Sprintf("failed to parse state file %s", s.filePath))
	}
	if sf.Entries == nil {
		sf.Entries = make(map[string]Entry)
	}
	return sf, nil
}

func (s *FileStore) save(sf *stateFile) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewStateWriteError(err, s.filePath)
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return apperrors.NewStateWriteError(err, s.filePath)
	}
	if err := os.WriteFile(s.filePath, data, 0o600); err != nil {
		return apperrors.NewStateWriteError(err, s.filePath)
	}
	return nil
}
