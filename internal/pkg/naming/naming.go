// Package naming maps Git branch names to valid, collision-safe PostgreSQL
// database identifiers and decides which branches participate in
// auto-create and auto-switch.
package naming

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
)

// MaxIdentifierLength is the PostgreSQL identifier limit in bytes.
const MaxIdentifierLength = 63

// DatabaseName maps a branch name to the database identifier it owns.
// The sentinel "_main" and any excluded branch resolve to the template
// database verbatim, regardless of naming strategy.
func DatabaseName(branch string, cfg *config.Config) string {
	if branch == config.MainBranchSentinel {
		return cfg.Database.TemplateDatabase
	}
	if cfg.Git.IsExcluded(branch) {
		return cfg.Database.TemplateDatabase
	}

	sanitized := Sanitize(branch)

	var full string
	switch cfg.Behavior.NamingStrategy {
	case config.NamingSuffix:
		full = fmt.Sprintf("%s_%s", sanitized, cfg.Database.DatabasePrefix)
	case config.NamingReplace:
		full = sanitized
	default:
		full = fmt.Sprintf("%s_%s", cfg.Database.DatabasePrefix, sanitized)
	}

	return clampIdentifier(full)
}

// NormalizeBranchName exposes sanitization alone, for display and local
// state purposes (feature/auth → feature_auth).
func NormalizeBranchName(branch string) string {
	return Sanitize(branch)
}

// Sanitize lowercases the branch name and rewrites it into the PostgreSQL
// identifier alphabet: characters outside [a-z0-9_$] become underscores, a
// leading digit gains an underscore prefix, runs of underscores collapse, a
// trailing underscore is stripped, and an empty result becomes "branch".
// Sanitize is idempotent.
func Sanitize(branch string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(branch) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '_', ch == '$':
			b.WriteRune(ch)
		default:
			b.WriteByte('_')
		}
	}

	s := b.String()
	if len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.TrimSuffix(s, "_")
	if s == "" {
		s = "branch"
	}
	return s
}

// clampIdentifier enforces the 63-byte identifier limit. Oversized names
// are truncated and suffixed with a 16-bit hash of the full untruncated
// name, so independently-long names cannot collide after truncation.
func clampIdentifier(name string) string {
	if len(name) <= MaxIdentifierLength {
		return name
	}

	suffix := fmt.Sprintf("_%04x", nameHash(name))
	return name[:MaxIdentifierLength-len(suffix)] + suffix
}

// nameHash returns a deterministic 16-bit hash of the name.
func nameHash(name string) uint16 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return uint16(h.Sum32() & 0xFFFF)
}
