package naming

import (
	"testing"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
)

func TestShouldCreateBranch(t *testing.T) {
	tests := []struct {
		name   string
		branch string
		mutate func(*config.Config)
		want   bool
	}{
		{"plain feature branch", "feature/auth", nil, true},
		{"auto create disabled", "feature/auth", func(c *config.Config) { c.Git.AutoCreateOnBranch = false }, false},
		{"excluded by default", "main", nil, false},
		{"custom exclude", "staging", func(c *config.Config) { c.Git.ExcludeBranches = []string{"staging"} }, false},
		{"matches filter", "feature/auth", func(c *config.Config) { c.Git.BranchFilterRegex = "^feature/" }, true},
		{"misses filter", "bugfix/crash", func(c *config.Config) { c.Git.BranchFilterRegex = "^feature/" }, false},
		{"invalid filter regex gates closed", "feature/auth", func(c *config.Config) { c.Git.BranchFilterRegex = "([" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			if got := ShouldCreateBranch(tt.branch, cfg); got != tt.want {
				t.Errorf("ShouldCreateBranch(%q) = %v, want %v", tt.branch, got, tt.want)
			}
		})
	}
}

func TestShouldSwitchOnBranch(t *testing.T) {
	tests := []struct {
		name   string
		branch string
		mutate func(*config.Config)
		want   bool
	}{
		{"plain feature branch", "feature/auth", nil, true},
		{"auto switch disabled", "feature/auth", func(c *config.Config) { c.Git.AutoSwitchOnBranch = false }, false},
		// main is excluded by default but must still drive the switch back
		// to the template database.
		{"main bypasses exclude", "main", nil, true},
		{"main bypasses filter", "main", func(c *config.Config) { c.Git.BranchFilterRegex = "^feature/" }, true},
		{"main respects auto switch off", "main", func(c *config.Config) { c.Git.AutoSwitchOnBranch = false }, false},
		{"excluded non-main", "master", nil, false},
		{"misses filter", "bugfix/crash", func(c *config.Config) { c.Git.BranchFilterRegex = "^feature/" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			if got := ShouldSwitchOnBranch(tt.branch, cfg); got != tt.want {
				t.Errorf("ShouldSwitchOnBranch(%q) = %v, want %v", tt.branch, got, tt.want)
			}
		})
	}
}
