package config

import (
	"context"
	"regexp"
	"strings"

	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
)

// BranchReader is the slice of the Git accessor the resolver needs. An
// empty branch name means "no current branch" (detached HEAD or not a
// repository).
type BranchReader interface {
	CurrentBranch(ctx context.Context) (string, error)
}

// EffectiveConfig is the resolved view over the three configuration layers.
// It is immutable after construction; Merged recomputes the flattened
// configuration on every call instead of caching it.
type EffectiveConfig struct {
	base  *Config
	local *LocalOverlay // nil when no .pgbranch.local.yml exists
	env   *EnvOverlay

	// Disabled turns off all branch-sync behavior.
	Disabled bool
	// SkipHooks suppresses git-hook handling only; there is no local-file
	// equivalent for this flag.
	SkipHooks bool
	// CurrentBranchDisabled force-disables whatever branch is checked out.
	CurrentBranchDisabled bool
}

// Resolve builds the effective configuration from the three layers. base
// must be non-nil; local may be nil; a nil env is treated as empty.
func Resolve(base *Config, local *LocalOverlay, env *EnvOverlay) *EffectiveConfig {
	if env == nil {
		env = &EnvOverlay{}
	}

	disabled := false
	if env.Disabled != nil {
		disabled = *env.Disabled
	} else if local != nil && local.Disabled != nil {
		disabled = *local.Disabled
	}

	e := &EffectiveConfig{
		base:     base,
		local:    local,
		env:      env,
		Disabled: disabled,
	}
	if env.SkipHooks != nil {
		e.SkipHooks = *env.SkipHooks
	}
	if env.CurrentBranchDisabled != nil {
		e.CurrentBranchDisabled = *env.CurrentBranchDisabled
	}
	return e
}

// Merged produces the fully-resolved configuration: base values, then local
// overlay leaf overrides, then environment leaf overrides. The result is a
// fresh copy on every call; mutating it never affects the layers.
func (e *EffectiveConfig) Merged() *Config {
	cfg := e.base.Clone()
	e.applyLocal(cfg)
	e.applyEnv(cfg)
	return cfg
}

func (e *EffectiveConfig) applyLocal(cfg *Config) {
	local := e.local
	if local == nil {
		return
	}

	if db := local.Database; db != nil {
		setString(&cfg.Database.Host, db.Host)
		setInt(&cfg.Database.Port, db.Port)
		setString(&cfg.Database.User, db.User)
		setString(&cfg.Database.Password, db.Password)
		setString(&cfg.Database.TemplateDatabase, db.TemplateDatabase)
		setString(&cfg.Database.DatabasePrefix, db.DatabasePrefix)
		if auth := db.Auth; auth != nil {
			if auth.Methods != nil {
				cfg.Database.Auth.Methods = append([]AuthMethod(nil), (*auth.Methods)...)
			}
			setString(&cfg.Database.Auth.PgpassFile, auth.PgpassFile)
			setString(&cfg.Database.Auth.ServiceName, auth.ServiceName)
			setBool(&cfg.Database.Auth.PromptForPassword, auth.PromptForPassword)
		}
	}

	if git := local.Git; git != nil {
		setBool(&cfg.Git.AutoCreateOnBranch, git.AutoCreateOnBranch)
		setBool(&cfg.Git.AutoSwitchOnBranch, git.AutoSwitchOnBranch)
		setString(&cfg.Git.MainBranch, git.MainBranch)
		setString(&cfg.Git.AutoCreateBranchFilter, git.AutoCreateBranchFilter)
		setString(&cfg.Git.BranchFilterRegex, git.BranchFilterRegex)
		if git.ExcludeBranches != nil {
			cfg.Git.ExcludeBranches = append([]string(nil), (*git.ExcludeBranches)...)
		}
	}

	if behavior := local.Behavior; behavior != nil {
		setBool(&cfg.Behavior.AutoCleanup, behavior.AutoCleanup)
		if behavior.MaxBranches != nil {
			v := *behavior.MaxBranches
			cfg.Behavior.MaxBranches = &v
		}
		if behavior.NamingStrategy != nil {
			cfg.Behavior.NamingStrategy = *behavior.NamingStrategy
		}
	}

	// Post-commands are replaced wholesale, not merged element-wise.
	if local.PostCommands != nil {
		cfg.PostCommands = make([]PostCommand, len(*local.PostCommands))
		for i, pc := range *local.PostCommands {
			cfg.PostCommands[i] = pc.clone()
		}
	}
}

func (e *EffectiveConfig) applyEnv(cfg *Config) {
	env := e.env
	setString(&cfg.Database.Host, env.DatabaseHost)
	setInt(&cfg.Database.Port, env.DatabasePort)
	setString(&cfg.Database.User, env.DatabaseUser)
	setString(&cfg.Database.Password, env.DatabasePassword)
	setString(&cfg.Database.DatabasePrefix, env.DatabasePrefix)
	setBool(&cfg.Git.AutoCreateOnBranch, env.AutoCreate)
	setBool(&cfg.Git.AutoSwitchOnBranch, env.AutoSwitch)
	setString(&cfg.Git.BranchFilterRegex, env.BranchFilterRegex)
}

// IsBranchDisabled reports whether the branch matches any pattern in the
// environment disabled-list or the local-overlay disabled-list. The two
// lists are a union; neither overrides the other.
func (e *EffectiveConfig) IsBranchDisabled(branch string) bool {
	for _, pattern := range e.env.DisabledBranches {
		if matchDisablePattern(pattern, branch) {
			return true
		}
	}
	if e.local != nil {
		for _, pattern := range e.local.DisabledBranches {
			if matchDisablePattern(pattern, branch) {
				return true
			}
		}
	}
	return false
}

// matchDisablePattern treats patterns containing * as regular expressions
// with each * replaced by .*, matched anywhere (unanchored); other regex
// metacharacters are deliberately left unescaped. Patterns without * need
// exact equality. An unparsable translated pattern is no match: a malformed
// disable-pattern cannot disable a branch it cannot evaluate.
func matchDisablePattern(pattern, branch string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == branch
	}

	re, err := regexp.Compile(strings.ReplaceAll(pattern, "*", ".*"))
	if err != nil {
		apperrors.Warn("invalid disabled-branch pattern %q: %v", pattern, err)
		return false
	}
	return re.MatchString(branch)
}

// CheckCurrentGitBranchDisabled reports whether the currently checked-out
// branch is disabled. Without a repository or a resolvable branch the
// answer is false.
func (e *EffectiveConfig) CheckCurrentGitBranchDisabled(ctx context.Context, git BranchReader) bool {
	if e.CurrentBranchDisabled {
		return true
	}
	if git == nil {
		return false
	}
	branch, err := git.CurrentBranch(ctx)
	if err != nil || branch == "" {
		return false
	}
	return e.IsBranchDisabled(branch)
}

// ShouldExitEarly reports whether all branch-sync behavior should be
// short-circuited before any database or git-hook work begins.
func (e *EffectiveConfig) ShouldExitEarly(ctx context.Context, git BranchReader) bool {
	if e.Disabled {
		return true
	}
	return e.CheckCurrentGitBranchDisabled(ctx, git)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
