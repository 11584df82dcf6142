package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
	"github.com/pgbranch/pgbranch/internal/pkg/db"
	"github.com/pgbranch/pgbranch/internal/pkg/state"
	"github.com/pgbranch/pgbranch/internal/pkg/ui"
)

// fakeGit implements git.Client.
type fakeGit struct {
	branch     string
	branchErr  error
	mainBranch string
	isRepo     bool
}

func (f *fakeGit) IsRepository(ctx context.Context) bool { return f.isRepo }
func (f *fakeGit) CurrentBranch(ctx context.Context) (string, error) {
	return f.branch, f.branchErr
}
func (f *fakeGit) DetectMainBranch(ctx context.Context) (string, error) {
	return f.mainBranch, nil
}
func (f *fakeGit) BranchExists(ctx context.Context, branch string) (bool, error) {
	return false, nil
}
func (f *fakeGit) InstallHooks(ctx context.Context) error      { return nil }
func (f *fakeGit) UninstallHooks(ctx context.Context) error    { return nil }
func (f *fakeGit) HooksInstalled(ctx context.Context) (bool, error) {
	return false, nil
}

// fakeStore implements state.Store, recording writes in order.
type fakeStore struct {
	current map[string]string
	writes  []string
	failSet bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{current: make(map[string]string)}
}

func (f *fakeStore) CurrentBranch(configPath string) (string, error) {
	return f.current[configPath], nil
}

func (f *fakeStore) SetCurrentBranch(configPath, branch string) error {
	if f.failSet {
		return errors.New("state write failed")
	}
	f.current[configPath] = branch
	f.writes = append(f.writes, branch)
	return nil
}

func (f *fakeStore) Journal(limit int) ([]state.JournalEntry, error) {
	return nil, nil
}

// fakeDB implements db.Manager, recording operations in order so tests can
// assert that state writes happen before database work.
type fakeDB struct {
	existing  map[string]bool
	branches  []string
	ops       *[]string
	failAll   bool
	createErr error
}

func (f *fakeDB) record(op string) {
	if f.ops != nil {
		*f.ops = append(*f.ops, op)
	}
}

func (f *fakeDB) Ping(ctx context.Context) error { return nil }

func (f *fakeDB) CreateBranch(ctx context.Context, branch string) error {
	f.record("create:" + branch)
	if f.failAll || f.createErr != nil {
		return errors.New("create failed")
	}
	return nil
}

func (f *fakeDB) DropBranch(ctx context.Context, branch string) error {
	f.record("drop:" + branch)
	return nil
}

func (f *fakeDB) ListBranches(ctx context.Context) ([]string, error) {
	if f.failAll {
		return nil, errors.New("connection refused")
	}
	return f.branches, nil
}

func (f *fakeDB) DatabaseExists(ctx context.Context, name string) (bool, error) {
	f.record("exists:" + name)
	if f.failAll {
		return false, errors.New("connection refused")
	}
	return f.existing[name], nil
}

func (f *fakeDB) CleanupOldBranches(ctx context.Context, keep int) error {
	f.record("cleanup")
	return nil
}

func (f *fakeDB) CanCreateDatabases(ctx context.Context) (bool, error) {
	return true, nil
}

type testHarness struct {
	svc   *Service
	git   *fakeGit
	store *fakeStore
	dbm   *fakeDB
	ops   []string
}

func newHarness(t *testing.T, mutate func(*config.Config)) *testHarness {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	h := &testHarness{
		git:   &fakeGit{isRepo: true},
		store: newFakeStore(),
		dbm:   &fakeDB{existing: make(map[string]bool)},
	}
	h.dbm.ops = &h.ops

	eff := config.Resolve(cfg, nil, nil)
	h.svc = NewService(eff, "/project/.pgbranch.yml", h.git, h.store, ui.NewNonInteractiveManager())
	h.svc.SetDBFactory(func(cfg *config.Config) db.Manager { return h.dbm })
	return h
}

func TestGitHook_MainBranchSwitchesToTemplate(t *testing.T) {
	h := newHarness(t, nil)
	h.git.branch = "main"

	err := h.svc.GitHook(context.Background())
	require.NoError(t, err)

	assert.Equal(t, config.MainBranchSentinel, h.store.current["/project/.pgbranch.yml"])
	assert.Empty(t, h.ops, "switching to main must not touch the database")
}

func TestGitHook_FeatureBranchCreatesAndSwitches(t *testing.T) {
	h := newHarness(t, nil)
	h.git.branch = "feature/auth"

	err := h.svc.GitHook(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "feature_auth", h.store.current["/project/.pgbranch.yml"])
	require.Len(t, h.ops, 2)
	assert.Equal(t, "exists:pgbranch_feature_auth", h.ops[0])
	assert.Equal(t, "create:feature_auth", h.ops[1])
}

func TestGitHook_ExistingDatabaseSkipsCreate(t *testing.T) {
	h := newHarness(t, nil)
	h.git.branch = "feature/auth"
	h.dbm.existing["pgbranch_feature_auth"] = true

	err := h.svc.GitHook(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"exists:pgbranch_feature_auth"}, h.ops)
}

func TestGitHook_ExcludedBranchDoesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.git.branch = "master" // excluded by default, and not the main branch

	err := h.svc.GitHook(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.store.writes)
	assert.Empty(t, h.ops)
}

func TestGitHook_DetachedHeadDoesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.git.branch = ""

	err := h.svc.GitHook(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.store.writes)
}

func TestGitHook_AutoSwitchDisabled(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Git.AutoSwitchOnBranch = false })
	h.git.branch = "feature/auth"

	err := h.svc.GitHook(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.store.writes)
}

func TestGitHook_AutoCreateDisabledStillNoSwitch(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Git.AutoCreateOnBranch = false })
	h.git.branch = "feature/auth"

	err := h.svc.GitHook(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.store.writes, "branches failing the create gate do not switch")
	assert.Empty(t, h.ops)
}

func newHarnessWithEnv(t *testing.T, env *config.EnvOverlay) *testHarness {
	t.Helper()

	h := &testHarness{
		git:   &fakeGit{isRepo: true},
		store: newFakeStore(),
		dbm:   &fakeDB{existing: make(map[string]bool)},
	}
	h.dbm.ops = &h.ops

	eff := config.Resolve(config.Default(), nil, env)
	h.svc = NewService(eff, "/project/.pgbranch.yml", h.git, h.store, ui.NewNonInteractiveManager())
	h.svc.SetDBFactory(func(cfg *config.Config) db.Manager { return h.dbm })
	return h
}

func TestGitHook_DisabledViaEnv(t *testing.T) {
	disabled := true
	h := newHarnessWithEnv(t, &config.EnvOverlay{Disabled: &disabled})
	h.git.branch = "feature/auth"

	err := h.svc.GitHook(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.store.writes)
	assert.Empty(t, h.ops)
}

func TestGitHook_SkipHooksViaEnv(t *testing.T) {
	skip := true
	h := newHarnessWithEnv(t, &config.EnvOverlay{SkipHooks: &skip})
	h.git.branch = "feature/auth"

	err := h.svc.GitHook(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.store.writes)
}

func TestGitHook_DisabledBranchPattern(t *testing.T) {
	h := newHarnessWithEnv(t, &config.EnvOverlay{DisabledBranches: []string{"release/*"}})
	h.git.branch = "release/v2"

	err := h.svc.GitHook(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.store.writes)
}

func TestSwitch_StateWrittenBeforeDatabaseFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.dbm.failAll = true

	err := h.svc.Switch(context.Background(), "feature/auth")
	require.NoError(t, err, "database outage must not fail the switch")

	assert.Equal(t, "feature_auth", h.store.current["/project/.pgbranch.yml"])
}

func TestSwitch_StateWriteFailureIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.store.failSet = true

	err := h.svc.Switch(context.Background(), "feature/auth")
	require.Error(t, err)
	assert.Empty(t, h.ops, "database must not be touched when state cannot be recorded")
}

func TestSwitchToMain_NoDatabaseOperations(t *testing.T) {
	h := newHarness(t, nil)

	err := h.svc.SwitchToMain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, config.MainBranchSentinel, h.store.current["/project/.pgbranch.yml"])
	assert.Empty(t, h.ops)
}

func TestCurrentBranch_StoredValueWins(t *testing.T) {
	h := newHarness(t, nil)
	h.git.branch = "feature/other"
	h.store.current["/project/.pgbranch.yml"] = "feature_stored"

	assert.Equal(t, "feature_stored", h.svc.CurrentBranch(context.Background()))
}

func TestCurrentBranch_DefaultsFromGit(t *testing.T) {
	h := newHarness(t, nil)

	h.git.branch = "main"
	assert.Equal(t, config.MainBranchSentinel, h.svc.CurrentBranch(context.Background()))

	h.git.branch = "feature/auth"
	assert.Equal(t, "feature_auth", h.svc.CurrentBranch(context.Background()))

	// A branch failing the create filter defaults to main.
	h.git.branch = "master"
	assert.Equal(t, config.MainBranchSentinel, h.svc.CurrentBranch(context.Background()))

	h.git.branch = ""
	assert.Equal(t, config.MainBranchSentinel, h.svc.CurrentBranch(context.Background()))
}

func TestCleanup_KeepPrecedence(t *testing.T) {
	h := newHarness(t, nil)

	// Explicit keep wins over the configured max_branches.
	keep := 3
	require.NoError(t, h.svc.Cleanup(context.Background(), &keep))
	require.NoError(t, h.svc.Cleanup(context.Background(), nil))
	assert.Equal(t, []string{"cleanup", "cleanup"}, h.ops)
}

func TestCreate_PostCommandsSeeRawBranchName(t *testing.T) {
	out := filepath.Join(t.TempDir(), "branch.txt")
	h := newHarness(t, func(c *config.Config) {
		c.PostCommands = []config.PostCommand{{
			Type: config.PostCommandShell,
			Shell: &config.ShellCommand{
				Command: "printf '%s' '{branch_name}' > " + out,
			},
		}}
	})

	err := h.svc.Create(context.Background(), "feature/auth")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "feature/auth", string(data), "create passes the branch name through unnormalized")
}

func TestSwitch_PostCommandsSeeNormalizedBranchName(t *testing.T) {
	out := filepath.Join(t.TempDir(), "branch.txt")
	h := newHarness(t, func(c *config.Config) {
		c.PostCommands = []config.PostCommand{{
			Type: config.PostCommandShell,
			Shell: &config.ShellCommand{
				Command: "printf '%s' '{branch_name}' > " + out,
			},
		}}
	})

	err := h.svc.Switch(context.Background(), "feature/auth")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "feature_auth", string(data))
}

func TestCheck_FailuresAreReportedNotErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.git.isRepo = false
	h.dbm.failAll = true

	passed, err := h.svc.Check(context.Background())
	require.NoError(t, err, "failed diagnostics are not command errors")
	assert.False(t, passed)
}

func TestTestSwitch_DoesNotTouchStateOrDatabase(t *testing.T) {
	h := newHarness(t, nil)

	err := h.svc.TestSwitch(context.Background(), "feature/auth")
	require.NoError(t, err)
	assert.Empty(t, h.store.writes)
	assert.Empty(t, h.ops)
}
