package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
)

// LocalOverlay mirrors Config with every leaf optional. It lives in
// .pgbranch.local.yml next to the discovered base config and is intended to
// stay out of version control. Unset fields leave the underlying value
// untouched during merge.
type LocalOverlay struct {
	Database *DatabaseOverlay `yaml:"database"`
	Git      *GitOverlay      `yaml:"git"`
	Behavior *BehaviorOverlay `yaml:"behavior"`
	// PostCommands replaces the base list wholesale when present; entries
	// are not merged element-wise.
	PostCommands *[]PostCommand `yaml:"post_commands"`

	// Disabled turns off all pgbranch behavior for this checkout.
	Disabled *bool `yaml:"disabled"`
	// DisabledBranches lists exact names or * globs of branches to ignore.
	DisabledBranches []string `yaml:"disabled_branches"`
}

// DatabaseOverlay holds optional database connection overrides.
type DatabaseOverlay struct {
	Host             *string      `yaml:"host"`
	Port             *int         `yaml:"port"`
	User             *string      `yaml:"user"`
	Password         *string      `yaml:"password"`
	TemplateDatabase *string      `yaml:"template_database"`
	DatabasePrefix   *string      `yaml:"database_prefix"`
	Auth             *AuthOverlay `yaml:"auth"`
}

// AuthOverlay holds optional auth overrides.
type AuthOverlay struct {
	Methods           *[]AuthMethod `yaml:"methods"`
	PgpassFile        *string       `yaml:"pgpass_file"`
	ServiceName       *string       `yaml:"service_name"`
	PromptForPassword *bool         `yaml:"prompt_for_password"`
}

// GitOverlay holds optional branch-sync overrides.
type GitOverlay struct {
	AutoCreateOnBranch     *bool     `yaml:"auto_create_on_branch"`
	AutoSwitchOnBranch     *bool     `yaml:"auto_switch_on_branch"`
	MainBranch             *string   `yaml:"main_branch"`
	AutoCreateBranchFilter *string   `yaml:"auto_create_branch_filter"`
	BranchFilterRegex      *string   `yaml:"branch_filter_regex"`
	ExcludeBranches        *[]string `yaml:"exclude_branches"`
}

// BehaviorOverlay holds optional behavior overrides.
type BehaviorOverlay struct {
	AutoCleanup    *bool           `yaml:"auto_cleanup"`
	MaxBranches    *int            `yaml:"max_branches"`
	NamingStrategy *NamingStrategy `yaml:"naming_strategy"`
}

// LoadLocalOverlay reads .pgbranch.local.yml from dir. Absence is not an
// error and yields nil; a malformed body is a fatal parse error carrying
// the file path.
func LoadLocalOverlay(dir string) (*LocalOverlay, error) {
	path := filepath.Join(dir, LocalOverlayFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to read local overlay").WithContext("path", path)
	}

	var overlay LocalOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, apperrors.NewConfigParseError(path, err)
	}
	return &overlay, nil
}
