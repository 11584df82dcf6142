package config

import (
	"strings"
	"testing"
)

func mapLookup(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadEnvOverlay_BoolSpellings(t *testing.T) {
	truthy := []string{"true", "TRUE", "1", "yes", "Yes", "on", "ON", " true "}
	falsy := []string{"false", "FALSE", "0", "no", "No", "off", "OFF"}

	for _, v := range truthy {
		overlay, err := LoadEnvOverlay(mapLookup(map[string]string{EnvDisabled: v}))
		if err != nil {
			t.Fatalf("LoadEnvOverlay(%q) failed: %v", v, err)
		}
		if overlay.Disabled == nil || !*overlay.Disabled {
			t.Errorf("expected %q to parse as true", v)
		}
	}
	for _, v := range falsy {
		overlay, err := LoadEnvOverlay(mapLookup(map[string]string{EnvDisabled: v}))
		if err != nil {
			t.Fatalf("LoadEnvOverlay(%q) failed: %v", v, err)
		}
		if overlay.Disabled == nil || *overlay.Disabled {
			t.Errorf("expected %q to parse as false", v)
		}
	}
}

func TestLoadEnvOverlay_InvalidBoolIsFatal(t *testing.T) {
	_, err := LoadEnvOverlay(mapLookup(map[string]string{EnvSkipHooks: "maybe"}))
	if err == nil {
		t.Fatal("expected error for invalid boolean value")
	}
	// The error must name the variable and the offending value.
	msg := err.Error()
	for _, want := range []string{EnvSkipHooks, "maybe"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestLoadEnvOverlay_UnsetMeansNil(t *testing.T) {
	overlay, err := LoadEnvOverlay(mapLookup(nil))
	if err != nil {
		t.Fatalf("LoadEnvOverlay failed: %v", err)
	}
	if overlay.Disabled != nil || overlay.SkipHooks != nil || overlay.DatabaseHost != nil || overlay.DatabasePort != nil {
		t.Error("expected all fields nil when no variables are set")
	}
}

func TestLoadEnvOverlay_PortPermissive(t *testing.T) {
	overlay, err := LoadEnvOverlay(mapLookup(map[string]string{EnvDatabasePort: "not-a-number"}))
	if err != nil {
		t.Fatalf("unparsable port must not be fatal: %v", err)
	}
	if overlay.DatabasePort != nil {
		t.Error("unparsable port should be treated as absent")
	}

	overlay, err = LoadEnvOverlay(mapLookup(map[string]string{EnvDatabasePort: "5433"}))
	if err != nil {
		t.Fatalf("LoadEnvOverlay failed: %v", err)
	}
	if overlay.DatabasePort == nil || *overlay.DatabasePort != 5433 {
		t.Errorf("expected port 5433, got %v", overlay.DatabasePort)
	}
}

func TestLoadEnvOverlay_DisabledBranchesSplit(t *testing.T) {
	overlay, err := LoadEnvOverlay(mapLookup(map[string]string{
		EnvDisabledBranches: " release/* , hotfix-1 ,, experimental ",
	}))
	if err != nil {
		t.Fatalf("LoadEnvOverlay failed: %v", err)
	}
	want := []string{"release/*", "hotfix-1", "experimental"}
	if len(overlay.DisabledBranches) != len(want) {
		t.Fatalf("got %v, want %v", overlay.DisabledBranches, want)
	}
	for i, w := range want {
		if overlay.DisabledBranches[i] != w {
			t.Errorf("entry %d = %q, want %q", i, overlay.DisabledBranches[i], w)
		}
	}
}

func TestLoadEnvOverlay_StringValues(t *testing.T) {
	overlay, err := LoadEnvOverlay(mapLookup(map[string]string{
		EnvDatabaseHost:     "db.example.com",
		EnvDatabaseUser:     "ci",
		EnvDatabasePassword: "hunter2",
		EnvDatabasePrefix:   "ci_branch",
	}))
	if err != nil {
		t.Fatalf("LoadEnvOverlay failed: %v", err)
	}
	if overlay.DatabaseHost == nil || *overlay.DatabaseHost != "db.example.com" {
		t.Errorf("host = %v", overlay.DatabaseHost)
	}
	if overlay.DatabaseUser == nil || *overlay.DatabaseUser != "ci" {
		t.Errorf("user = %v", overlay.DatabaseUser)
	}
	if overlay.DatabasePassword == nil || *overlay.DatabasePassword != "hunter2" {
		t.Errorf("password = %v", overlay.DatabasePassword)
	}
	if overlay.DatabasePrefix == nil || *overlay.DatabasePrefix != "ci_branch" {
		t.Errorf("prefix = %v", overlay.DatabasePrefix)
	}
}
