// Package app wires the pgbranch workflow together: resolving configuration,
// tracking the active branch in local state, and driving database and
// post-command operations.
package app

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
	"github.com/pgbranch/pgbranch/internal/pkg/db"
	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
	"github.com/pgbranch/pgbranch/internal/pkg/git"
	"github.com/pgbranch/pgbranch/internal/pkg/naming"
	"github.com/pgbranch/pgbranch/internal/pkg/postcmd"
	"github.com/pgbranch/pgbranch/internal/pkg/state"
	"github.com/pgbranch/pgbranch/internal/pkg/ui"
)

// DBFactory builds a database manager for a merged configuration. The
// factory runs per operation so overlay and environment changes take
// effect without restarting.
type DBFactory func(cfg *config.Config) db.Manager

// Service orchestrates branch operations across git, local state, the
// database, and post-commands.
type Service struct {
	eff        *config.EffectiveConfig
	configPath string
	git        git.Client
	store      state.Store
	ui         ui.Manager
	exec       *postcmd.Executor
	newDB      DBFactory
}

// NewService creates a Service. configPath is the absolute path of the
// loaded configuration file, or "" when running on defaults.
func NewService(eff *config.EffectiveConfig, configPath string, gitClient git.Client, store state.Store, uiManager ui.Manager) *Service {
	s := &Service{
		eff:        eff,
		configPath: configPath,
		git:        gitClient,
		store:      store,
		ui:         uiManager,
		exec:       postcmd.NewExecutor(),
	}
	s.newDB = func(cfg *config.Config) db.Manager {
		return db.NewManager(cfg, uiManager.PromptPassword)
	}
	return s
}

// SetDBFactory overrides database manager construction.
func (s *Service) SetDBFactory(factory DBFactory) {
	s.newDB = factory
}

// Config returns the merged configuration for the current overlays and
// environment.
func (s *Service) Config() *config.Config {
	return s.eff.Merged()
}

// Effective returns the layered configuration.
func (s *Service) Effective() *config.EffectiveConfig {
	return s.eff
}

// CurrentBranch returns the active branch for this checkout: the stored
// value when present, otherwise a default derived from the current git
// branch. The main database is reported as the sentinel value.
func (s *Service) CurrentBranch(ctx context.Context) string {
	if s.configPath != "" {
		if current, err := s.store.CurrentBranch(s.configPath); err == nil && current != "" {
			return current
		}
	}
	return s.defaultCurrentBranch(ctx)
}

// defaultCurrentBranch derives the active branch from git when no state
// has been recorded yet.
func (s *Service) defaultCurrentBranch(ctx context.Context) string {
	cfg := s.eff.Merged()

	branch, err := s.git.CurrentBranch(ctx)
	if err != nil || branch == "" {
		apperrors.Debug("git detection failed, defaulting to main database")
		return config.MainBranchSentinel
	}
	if branch == cfg.Git.MainBranch {
		return config.MainBranchSentinel
	}
	if naming.ShouldCreateBranch(branch, cfg) {
		return naming.NormalizeBranchName(branch)
	}
	return config.MainBranchSentinel
}

// Create creates a database branch and runs post-commands.
func (s *Service) Create(ctx context.Context, branch string) error {
	cfg := s.eff.Merged()
	apperrors.Info("creating database branch: %s", branch)
	if err := s.newDB(cfg).CreateBranch(ctx, branch); err != nil {
		return err
	}
	s.ui.ShowSuccess("Created database branch: " + branch)
	// Post-commands for an explicit create see the branch name as given.
	return s.runPostCommands(ctx, cfg, branch)
}

// Delete drops a database branch.
func (s *Service) Delete(ctx context.Context, branch string) error {
	cfg := s.eff.Merged()
	apperrors.Info("deleting database branch: %s", branch)
	if err := s.newDB(cfg).DropBranch(ctx, branch); err != nil {
		return err
	}
	s.ui.ShowSuccess("Deleted database branch: " + branch)
	return nil
}

// List shows the branch databases. The main entry always leads the
// listing; when the database is unreachable the listing degrades to local
// state.
func (s *Service) List(ctx context.Context) error {
	cfg := s.eff.Merged()
	current := s.CurrentBranch(ctx)

	items := []ui.BranchItem{{
		Branch:   "main",
		Database: cfg.Database.TemplateDatabase,
		Current:  current == config.MainBranchSentinel,
		IsMain:   true,
	}}

	branches, err := s.newDB(cfg).ListBranches(ctx)
	if err != nil {
		apperrors.Warn("could not list database branches: %v", err)
		if current != config.MainBranchSentinel && current != "" {
			items = append(items, ui.BranchItem{
				Branch:   current,
				Database: naming.DatabaseName(current, cfg),
				Current:  true,
			})
		}
		s.ui.ShowBranchList(items)
		return nil
	}

	for _, branch := range branches {
		items = append(items, ui.BranchItem{
			Branch:   branch,
			Database: naming.DatabaseName(branch, cfg),
			Current:  branch == current,
		})
	}
	s.ui.ShowBranchList(items)
	return nil
}

// Cleanup drops prefix databases beyond the keep count. A nil keep falls
// back to the configured max_branches, then 10.
func (s *Service) Cleanup(ctx context.Context, keep *int) error {
	cfg := s.eff.Merged()
	max := 10
	if cfg.Behavior.MaxBranches != nil {
		max = *cfg.Behavior.MaxBranches
	}
	if keep != nil {
		max = *keep
	}
	apperrors.Info("cleaning up old branches, keeping %d most recent", max)
	if err := s.newDB(cfg).CleanupOldBranches(ctx, max); err != nil {
		return err
	}
	s.ui.ShowSuccess("Cleaned up old database branches")
	return nil
}

// Switch makes branch the active branch for this checkout. Local state is
// written first so the switch survives database outages; database
// operations degrade to warnings after that point.
func (s *Service) Switch(ctx context.Context, branch string) error {
	cfg := s.eff.Merged()
	normalized := naming.NormalizeBranchName(branch)

	s.ui.ShowInfo("Switching to database branch: " + normalized)
	if err := s.setCurrentBranch(normalized); err != nil {
		return err
	}

	manager := s.newDB(cfg)
	dbName := naming.DatabaseName(normalized, cfg)
	exists, err := manager.DatabaseExists(ctx, dbName)
	switch {
	case err != nil:
		apperrors.Warn("failed to reach database, branch state updated anyway: %v", err)
	case !exists:
		s.ui.ShowInfo("Creating database branch: " + normalized)
		if err := manager.CreateBranch(ctx, normalized); err != nil {
			apperrors.Warn("failed to create database branch, branch state updated anyway: %v", err)
		}
	}

	s.ui.ShowSuccess("Switched to database branch: " + normalized)
	return s.runPostCommands(ctx, cfg, normalized)
}

// SwitchToMain points the checkout back at the template database.
func (s *Service) SwitchToMain(ctx context.Context) error {
	cfg := s.eff.Merged()

	s.ui.ShowInfo("Switching to main database")
	if err := s.setCurrentBranch(config.MainBranchSentinel); err != nil {
		return err
	}

	s.ui.ShowSuccess("Switched to main database: " + cfg.Database.TemplateDatabase)
	return s.runPostCommands(ctx, cfg, config.MainBranchSentinel)
}

// InteractiveSwitch presents a selector over the available branches and
// switches to the chosen one.
func (s *Service) InteractiveSwitch(ctx context.Context) error {
	cfg := s.eff.Merged()
	current := s.CurrentBranch(ctx)

	items := []ui.BranchItem{{
		Branch:   "main",
		Database: cfg.Database.TemplateDatabase,
		Current:  current == config.MainBranchSentinel,
		IsMain:   true,
	}}

	spin := s.ui.ShowSpinner("Loading branches...")
	spin.Start()
	branches, err := s.newDB(cfg).ListBranches(ctx)
	spin.Stop()
	if err != nil {
		apperrors.Warn("could not list database branches: %v", err)
		if current != config.MainBranchSentinel && current != "" {
			branches = []string{current}
		}
	}
	for _, branch := range branches {
		items = append(items, ui.BranchItem{
			Branch:   branch,
			Database: naming.DatabaseName(branch, cfg),
			Current:  branch == current,
		})
	}

	selected, err := s.ui.SelectBranch(items)
	if err != nil {
		s.ui.ShowInfo("Cancelled.")
		return nil
	}
	if selected == "main" {
		return s.SwitchToMain(ctx)
	}
	return s.Switch(ctx, selected)
}

// TestSwitch simulates a switch: it normalizes the branch and runs
// post-commands without touching state or the database.
func (s *Service) TestSwitch(ctx context.Context, branch string) error {
	cfg := s.eff.Merged()
	normalized := naming.NormalizeBranchName(branch)

	s.ui.ShowInfo("Testing switch to database branch: " + normalized)
	s.ui.ShowSuccess("Would switch current branch to: " + normalized)
	return s.runPostCommands(ctx, cfg, normalized)
}

// TestPostCommands runs the configured post-commands for a branch without
// any database operations.
func (s *Service) TestPostCommands(ctx context.Context, branch string) error {
	cfg := s.eff.Merged()
	s.ui.ShowInfo("Testing post-commands for branch: " + branch)
	return s.runPostCommands(ctx, cfg, branch)
}

// Templates prints the template variables available to post-commands.
func (s *Service) Templates(branch string) {
	cfg := s.eff.Merged()
	postcmd.PrintTemplateVariables(os.Stdout, postcmd.NewTemplateContext(branch, cfg))
}

// GitHook handles a post-checkout or post-merge invocation. It exits
// silently whenever the current branch should not drive a switch.
func (s *Service) GitHook(ctx context.Context) error {
	if s.eff.SkipHooks {
		apperrors.Debug("hook handling skipped via environment")
		return nil
	}
	if s.eff.ShouldExitEarly(ctx, s.git) {
		apperrors.Debug("pgbranch disabled for this invocation, skipping hook")
		return nil
	}

	branch, err := s.git.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if branch == "" {
		apperrors.Debug("detached HEAD, skipping hook")
		return nil
	}
	apperrors.Info("git hook triggered for branch: %s", branch)

	cfg := s.eff.Merged()
	if !naming.ShouldSwitchOnBranch(branch, cfg) {
		apperrors.Info("git branch %s filtered out by auto_switch configuration", branch)
		return nil
	}
	if branch == cfg.Git.MainBranch {
		return s.SwitchToMain(ctx)
	}
	if !naming.ShouldCreateBranch(branch, cfg) {
		apperrors.Info("git branch %s configured not to create a database branch", branch)
		return nil
	}
	return s.Switch(ctx, branch)
}

// Check runs the system diagnostics and reports whether everything passed.
func (s *Service) Check(ctx context.Context) (bool, error) {
	cfg := s.eff.Merged()
	manager := s.newDB(cfg)
	allPassed := true

	fmt.Println("Performing system check...")
	fmt.Println()

	fmt.Print("Configuration file... ")
	if s.configPath == "" {
		fmt.Println("not found, using defaults (run 'pgbranch init' to create one)")
	} else if err := cfg.Validate(); err != nil {
		fmt.Printf("invalid: %v\n", err)
		allPassed = false
	} else {
		fmt.Printf("ok (%s)\n", s.configPath)
	}

	fmt.Print("PostgreSQL connection... ")
	if err := manager.Ping(ctx); err != nil {
		fmt.Printf("failed: %v\n", err)
		allPassed = false
	} else {
		fmt.Println("ok")
	}

	fmt.Printf("Template database %q... ", cfg.Database.TemplateDatabase)
	if exists, err := manager.DatabaseExists(ctx, cfg.Database.TemplateDatabase); err != nil {
		fmt.Printf("error: %v\n", err)
		allPassed = false
	} else if !exists {
		fmt.Println("not found")
		allPassed = false
	} else {
		fmt.Println("ok")
	}

	fmt.Print("Database permissions... ")
	if canCreate, err := manager.CanCreateDatabases(ctx); err != nil {
		fmt.Printf("error: %v\n", err)
		allPassed = false
	} else if !canCreate {
		fmt.Println("cannot create databases")
		allPassed = false
	} else {
		fmt.Println("ok")
	}

	fmt.Print("Git repository... ")
	if !s.git.IsRepository(ctx) {
		fmt.Println("not a git repository")
		allPassed = false
	} else {
		fmt.Println("ok")
	}

	fmt.Print("Git hooks... ")
	if installed, err := s.git.HooksInstalled(ctx); err != nil {
		fmt.Printf("error: %v\n", err)
		allPassed = false
	} else if !installed {
		fmt.Println("not installed (run 'pgbranch install-hooks' to install)")
	} else {
		fmt.Println("ok")
	}

	if pattern := cfg.Git.BranchFilterRegex; pattern != "" {
		fmt.Print("Branch filter regex... ")
		if _, err := regexp.Compile(pattern); err != nil {
			fmt.Printf("invalid: %v\n", err)
			allPassed = false
		} else {
			fmt.Println("ok")
		}
	}

	fmt.Println()
	if allPassed {
		fmt.Println("All checks passed. pgbranch is ready to use.")
	} else {
		fmt.Println("Some checks failed. Please address the issues above.")
	}
	return allPassed, nil
}

// History prints recent branch switches recorded for this machine.
func (s *Service) History(limit int) error {
	entries, err := s.store.Journal(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		s.ui.ShowInfo("No switch history recorded yet.")
		return nil
	}
	for _, entry := range entries {
		branch := entry.Branch
		if branch == config.MainBranchSentinel {
			branch = "main"
		}
		fmt.Printf("%s  %-30s %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"), branch, entry.ConfigPath)
	}
	return nil
}

// setCurrentBranch records the active branch. State writes are mandatory;
// an unwritable state file fails the operation.
func (s *Service) setCurrentBranch(branch string) error {
	if s.configPath == "" {
		apperrors.Debug("no configuration file, skipping state update")
		return nil
	}
	return s.store.SetCurrentBranch(s.configPath, branch)
}

// runPostCommands executes configured post-commands for the branch.
func (s *Service) runPostCommands(ctx context.Context, cfg *config.Config, branch string) error {
	if len(cfg.PostCommands) == 0 {
		return nil
	}
	s.ui.ShowInfo("Executing post-commands...")
	return s.exec.RunAll(ctx, cfg.PostCommands, postcmd.NewTemplateContext(branch, cfg))
}
