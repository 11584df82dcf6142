package naming

import (
	"regexp"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
)

// identifierPattern is what PostgreSQL accepts without quoting.
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// Property: for ANY branch name, the derived database name is a valid
// unquoted PostgreSQL identifier of at most 63 bytes.
func TestDatabaseName_AlwaysValidIdentifier_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)

	cfg := config.Default()

	properties.Property("result is a valid identifier within 63 bytes", prop.ForAll(
		func(branch string) bool {
			name := DatabaseName(branch, cfg)
			return len(name) <= MaxIdentifierLength && identifierPattern.MatchString(name)
		},
		gen.AnyString(),
	))

	properties.Property("result is deterministic", prop.ForAll(
		func(branch string) bool {
			return DatabaseName(branch, cfg) == DatabaseName(branch, cfg)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// Property: sanitization is idempotent, so re-sanitizing stored branch
// names never changes them.
func TestSanitize_Idempotent_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)

	properties.Property("Sanitize(Sanitize(x)) == Sanitize(x)", prop.ForAll(
		func(branch string) bool {
			once := Sanitize(branch)
			return Sanitize(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
