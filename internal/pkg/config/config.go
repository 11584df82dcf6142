// Package config implements pgbranch's three-layer configuration model:
// a discovered .pgbranch.yml base file, an optional git-ignored
// .pgbranch.local.yml overlay, and a fixed set of PGBRANCH_* environment
// variables, resolved with env > local > file > default precedence.
package config

import (
	"fmt"

	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
)

// MainBranchSentinel is the reserved logical-branch token meaning "use the
// template database directly". It is distinct from any real Git branch name.
const MainBranchSentinel = "_main"

// Config represents the fully-populated pgbranch configuration.
type Config struct {
	Database     DatabaseConfig `yaml:"database"`
	Git          GitConfig      `yaml:"git"`
	Behavior     BehaviorConfig `yaml:"behavior"`
	PostCommands []PostCommand  `yaml:"post_commands"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host             string     `yaml:"host"`
	Port             int        `yaml:"port"`
	User             string     `yaml:"user"`
	Password         string     `yaml:"password,omitempty"`
	TemplateDatabase string     `yaml:"template_database"`
	DatabasePrefix   string     `yaml:"database_prefix"`
	Auth             AuthConfig `yaml:"auth"`
}

// AuthConfig controls how the database password is resolved. Methods are
// tried in order; the first one that yields a password wins.
type AuthConfig struct {
	Methods           []AuthMethod `yaml:"methods"`
	PgpassFile        string       `yaml:"pgpass_file,omitempty"`
	ServiceName       string       `yaml:"service_name,omitempty"`
	PromptForPassword bool         `yaml:"prompt_for_password"`
}

// AuthMethod identifies one password-resolution strategy.
type AuthMethod string

const (
	AuthPassword    AuthMethod = "password"
	AuthPgpass      AuthMethod = "pgpass"
	AuthEnvironment AuthMethod = "environment"
	AuthService     AuthMethod = "service"
	AuthPrompt      AuthMethod = "prompt"
	AuthSystem      AuthMethod = "system"
)

// Valid reports whether the auth method is a recognized value.
func (m AuthMethod) Valid() bool {
	switch m {
	case AuthPassword, AuthPgpass, AuthEnvironment, AuthService, AuthPrompt, AuthSystem:
		return true
	}
	return false
}

// GitConfig contains branch-sync settings.
type GitConfig struct {
	AutoCreateOnBranch     bool     `yaml:"auto_create_on_branch"`
	AutoSwitchOnBranch     bool     `yaml:"auto_switch_on_branch"`
	MainBranch             string   `yaml:"main_branch"`
	AutoCreateBranchFilter string   `yaml:"auto_create_branch_filter,omitempty"`
	BranchFilterRegex      string   `yaml:"branch_filter_regex,omitempty"`
	ExcludeBranches        []string `yaml:"exclude_branches"`
}

// IsExcluded reports whether the branch name is in the exclude list.
func (g *GitConfig) IsExcluded(branch string) bool {
	for _, b := range g.ExcludeBranches {
		if b == branch {
			return true
		}
	}
	return false
}

// BehaviorConfig contains cleanup and naming behavior.
type BehaviorConfig struct {
	AutoCleanup    bool           `yaml:"auto_cleanup"`
	MaxBranches    *int           `yaml:"max_branches,omitempty"`
	NamingStrategy NamingStrategy `yaml:"naming_strategy"`
}

// NamingStrategy is the rule combining the sanitized branch name with the
// configured prefix to form a database identifier.
type NamingStrategy string

const (
	NamingPrefix  NamingStrategy = "prefix"
	NamingSuffix  NamingStrategy = "suffix"
	NamingReplace NamingStrategy = "replace"
)

// Valid reports whether the naming strategy is a recognized value.
func (s NamingStrategy) Valid() bool {
	switch s {
	case NamingPrefix, NamingSuffix, NamingReplace:
		return true
	}
	return false
}

// Default returns the built-in configuration used when no .pgbranch file
// is found, and the base values that a partial file overrides.
func Default() *Config {
	maxBranches := 10
	return &Config{
		Database: DatabaseConfig{
			Host:             "localhost",
			Port:             5432,
			User:             "postgres",
			TemplateDatabase: "template0",
			DatabasePrefix:   "pgbranch",
			Auth: AuthConfig{
				Methods: []AuthMethod{
					AuthEnvironment,
					AuthPgpass,
					AuthPassword,
					AuthPrompt,
				},
				PromptForPassword: false,
			},
		},
		Git: GitConfig{
			AutoCreateOnBranch: true,
			AutoSwitchOnBranch: true,
			MainBranch:         "main",
			ExcludeBranches:    []string{"main", "master"},
		},
		Behavior: BehaviorConfig{
			AutoCleanup:    false,
			MaxBranches:    &maxBranches,
			NamingStrategy: NamingPrefix,
		},
	}
}

// Validate checks the invariants that the type system does not enforce:
// host, user, template database, and database prefix must be non-empty
// after merge and defaults, the port must be positive, and enum-valued
// fields must hold recognized values.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return apperrors.NewInvalidConfigError("database host cannot be empty")
	}
	if c.Database.Port <= 0 {
		return apperrors.NewInvalidConfigError("database port must be greater than 0")
	}
	if c.Database.User == "" {
		return apperrors.NewInvalidConfigError("database user cannot be empty")
	}
	if c.Database.TemplateDatabase == "" {
		return apperrors.NewInvalidConfigError("template database cannot be empty")
	}
	if c.Database.DatabasePrefix == "" {
		return apperrors.NewInvalidConfigError("database prefix cannot be empty")
	}
	if !c.Behavior.NamingStrategy.Valid() {
		return apperrors.NewInvalidConfigError(
			fmt.Sprintf("unknown naming strategy %q (expected prefix, suffix, or replace)", c.Behavior.NamingStrategy))
	}
	for _, m := range c.Database.Auth.Methods {
		if !m.Valid() {
			return apperrors.NewInvalidConfigError(fmt.Sprintf("unknown auth method %q", m))
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Database.Auth.Methods = append([]AuthMethod(nil), c.Database.Auth.Methods...)
	out.Git.ExcludeBranches = append([]string(nil), c.Git.ExcludeBranches...)
	if c.Behavior.MaxBranches != nil {
		v := *c.Behavior.MaxBranches
		out.Behavior.MaxBranches = &v
	}
	out.PostCommands = make([]PostCommand, len(c.PostCommands))
	for i, pc := range c.PostCommands {
		out.PostCommands[i] = pc.clone()
	}
	return &out
}
