package config

import (
	"os"
	"strconv"
	"strings"

	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
)

// Recognized environment variables.
const (
	EnvDisabled              = "PGBRANCH_DISABLED"
	EnvSkipHooks             = "PGBRANCH_SKIP_HOOKS"
	EnvAutoCreate            = "PGBRANCH_AUTO_CREATE"
	EnvAutoSwitch            = "PGBRANCH_AUTO_SWITCH"
	EnvCurrentBranchDisabled = "PGBRANCH_CURRENT_BRANCH_DISABLED"
	EnvBranchFilterRegex     = "PGBRANCH_BRANCH_FILTER_REGEX"
	EnvDatabaseHost          = "PGBRANCH_DATABASE_HOST"
	EnvDatabaseUser          = "PGBRANCH_DATABASE_USER"
	EnvDatabasePassword      = "PGBRANCH_DATABASE_PASSWORD"
	EnvDatabasePrefix        = "PGBRANCH_DATABASE_PREFIX"
	EnvDatabasePort          = "PGBRANCH_DATABASE_PORT"
	EnvDisabledBranches      = "PGBRANCH_DISABLED_BRANCHES"
)

// LookupFunc resolves an environment variable, reporting whether it is set.
// os.LookupEnv satisfies it; tests substitute a map-backed lookup.
type LookupFunc func(key string) (string, bool)

// EnvOverlay holds the values read from the recognized PGBRANCH_*
// environment variables. Nil means the variable was not set.
type EnvOverlay struct {
	Disabled              *bool
	SkipHooks             *bool
	AutoCreate            *bool
	AutoSwitch            *bool
	CurrentBranchDisabled *bool

	BranchFilterRegex *string
	DatabaseHost      *string
	DatabaseUser      *string
	DatabasePassword  *string
	DatabasePrefix    *string
	DatabasePort      *int

	DisabledBranches []string
}

// LoadEnvOverlay reads the recognized variable set through lookup. A
// malformed boolean is a fatal error naming the variable and its value; a
// malformed port silently yields "absent" since only booleans are treated
// as user errors.
func LoadEnvOverlay(lookup LookupFunc) (*EnvOverlay, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	overlay := &EnvOverlay{}

	boolVars := []struct {
		name string
		dst  **bool
	}{
		{EnvDisabled, &overlay.Disabled},
		{EnvSkipHooks, &overlay.SkipHooks},
		{EnvAutoCreate, &overlay.AutoCreate},
		{EnvAutoSwitch, &overlay.AutoSwitch},
		{EnvCurrentBranchDisabled, &overlay.CurrentBranchDisabled},
	}
	for _, v := range boolVars {
		raw, ok := lookup(v.name)
		if !ok {
			continue
		}
		parsed, err := parseBool(v.name, raw)
		if err != nil {
			return nil, err
		}
		*v.dst = &parsed
	}

	stringVars := []struct {
		name string
		dst  **string
	}{
		{EnvBranchFilterRegex, &overlay.BranchFilterRegex},
		{EnvDatabaseHost, &overlay.DatabaseHost},
		{EnvDatabaseUser, &overlay.DatabaseUser},
		{EnvDatabasePassword, &overlay.DatabasePassword},
		{EnvDatabasePrefix, &overlay.DatabasePrefix},
	}
	for _, v := range stringVars {
		if raw, ok := lookup(v.name); ok {
			value := raw
			*v.dst = &value
		}
	}

	if raw, ok := lookup(EnvDatabasePort); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			overlay.DatabasePort = &port
		} else {
			apperrors.Debug("ignoring unparsable %s=%q", EnvDatabasePort, raw)
		}
	}

	if raw, ok := lookup(EnvDisabledBranches); ok {
		for _, entry := range strings.Split(raw, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				overlay.DisabledBranches = append(overlay.DisabledBranches, entry)
			}
		}
	}

	return overlay, nil
}

// parseBool accepts the documented spellings case-insensitively and rejects
// everything else as a user error.
func parseBool(name, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, apperrors.NewInvalidEnvVarError(name, value)
}
