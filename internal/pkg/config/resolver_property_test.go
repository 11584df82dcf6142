package config

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: for every database host combination across the three layers,
// the merged value comes from the highest layer that set one, and merging
// never mutates the layers themselves.
func TestMerged_HostPrecedence_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)

	hostGen := gen.PtrOf(gen.RegexMatch(`[a-z][a-z0-9.-]{0,20}`))

	properties.Property("env > local > file for database.host", prop.ForAll(
		func(fileHost string, localHost, envHost *string) bool {
			base := Default()
			base.Database.Host = fileHost

			var local *LocalOverlay
			if localHost != nil {
				local = &LocalOverlay{Database: &DatabaseOverlay{Host: localHost}}
			}
			env := &EnvOverlay{DatabaseHost: envHost}

			got := Resolve(base, local, env).Merged().Database.Host
			switch {
			case envHost != nil:
				return got == *envHost
			case localHost != nil:
				return got == *localHost
			default:
				return got == fileHost
			}
		},
		gen.RegexMatch(`[a-z][a-z0-9.-]{0,20}`),
		hostGen,
		hostGen,
	))

	properties.Property("merging never mutates the layers", prop.ForAll(
		func(fileHost string, envHost *string) bool {
			base := Default()
			base.Database.Host = fileHost

			eff := Resolve(base, nil, &EnvOverlay{DatabaseHost: envHost})
			want := eff.Merged().Database.Host

			merged := eff.Merged()
			merged.Database.Host = want + "_mutated"

			return base.Database.Host == fileHost && eff.Merged().Database.Host == want
		},
		gen.RegexMatch(`[a-z][a-z0-9.-]{0,20}`),
		hostGen,
	))

	properties.TestingRun(t)
}
