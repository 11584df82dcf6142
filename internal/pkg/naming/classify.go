package naming

import (
	"regexp"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
)

// ShouldCreateBranch reports whether checking out the branch should trigger
// database creation. An invalid filter regex is logged and gates creation
// closed.
func ShouldCreateBranch(branch string, cfg *config.Config) bool {
	if !cfg.Git.AutoCreateOnBranch {
		return false
	}
	if cfg.Git.IsExcluded(branch) {
		return false
	}
	return passesBranchFilter(branch, cfg.Git.BranchFilterRegex)
}

// ShouldSwitchOnBranch reports whether checking out the branch should
// trigger a database switch. The main branch always passes the gate,
// bypassing exclude and filter checks; everything else follows the same
// exclude/regex logic as creation.
func ShouldSwitchOnBranch(branch string, cfg *config.Config) bool {
	if !cfg.Git.AutoSwitchOnBranch {
		return false
	}
	if branch == cfg.Git.MainBranch {
		return true
	}
	if cfg.Git.IsExcluded(branch) {
		return false
	}
	return passesBranchFilter(branch, cfg.Git.BranchFilterRegex)
}

func passesBranchFilter(branch, filter string) bool {
	if filter == "" {
		return true
	}
	re, err := regexp.Compile(filter)
	if err != nil {
		apperrors.Warn("invalid branch filter regex %q: %v", filter, err)
		return false
	}
	return re.MatchString(branch)
}
