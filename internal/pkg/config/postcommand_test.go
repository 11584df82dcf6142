package config

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func decodePostCommands(t *testing.T, doc string) []PostCommand {
	t.Helper()
	var out struct {
		PostCommands []PostCommand `yaml:"post_commands"`
	}
	if err := yaml.Unmarshal([]byte(doc), &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return out.PostCommands
}

func TestPostCommand_SimpleString(t *testing.T) {
	cmds := decodePostCommands(t, `
post_commands:
  - echo hello {db_name}
`)
	if len(cmds) != 1 {
		t.Fatalf("got %d commands", len(cmds))
	}
	if cmds[0].Type != PostCommandSimple || cmds[0].Command != "echo hello {db_name}" {
		t.Errorf("unexpected decode: %+v", cmds[0])
	}
}

func TestPostCommand_ShellObject(t *testing.T) {
	cmds := decodePostCommands(t, `
post_commands:
  - name: run migrations
    command: ./migrate.sh {db_name}
    working_dir: ./db
    continue_on_error: true
    condition: test -f ./migrate.sh
    environment:
      DATABASE_URL: "postgres://{db_user}@{db_host}:{db_port}/{db_name}"
`)
	if len(cmds) != 1 {
		t.Fatalf("got %d commands", len(cmds))
	}
	cmd := cmds[0]
	if cmd.Type != PostCommandShell {
		t.Fatalf("type = %v, want shell", cmd.Type)
	}
	if cmd.Shell.Name != "run migrations" || cmd.Shell.WorkingDir != "./db" || !cmd.Shell.ContinueOnError {
		t.Errorf("unexpected shell command: %+v", cmd.Shell)
	}
	if cmd.Shell.Environment["DATABASE_URL"] == "" {
		t.Error("environment not decoded")
	}
}

func TestPostCommand_ReplaceObject(t *testing.T) {
	cmds := decodePostCommands(t, `
post_commands:
  - action: replace
    file: .env
    pattern: "DATABASE_NAME=.*"
    replacement: "DATABASE_NAME={db_name}"
    create_if_missing: true
`)
	if len(cmds) != 1 {
		t.Fatalf("got %d commands", len(cmds))
	}
	cmd := cmds[0]
	if cmd.Type != PostCommandReplace {
		t.Fatalf("type = %v, want replace", cmd.Type)
	}
	if cmd.Replace.File != ".env" || !cmd.Replace.CreateIfMissing {
		t.Errorf("unexpected replace command: %+v", cmd.Replace)
	}
}

func TestPostCommand_RejectsUnknownAction(t *testing.T) {
	var out struct {
		PostCommands []PostCommand `yaml:"post_commands"`
	}
	err := yaml.Unmarshal([]byte(`
post_commands:
  - action: delete
    file: .env
    pattern: x
`), &out)
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
	if !strings.Contains(err.Error(), "delete") {
		t.Errorf("error should name the action: %v", err)
	}
}

func TestPostCommand_RejectsShellWithoutCommand(t *testing.T) {
	var out struct {
		PostCommands []PostCommand `yaml:"post_commands"`
	}
	err := yaml.Unmarshal([]byte(`
post_commands:
  - name: incomplete
`), &out)
	if err == nil {
		t.Fatal("expected error for shell object without command")
	}
}

func TestPostCommand_RejectsReplaceWithoutFile(t *testing.T) {
	var out struct {
		PostCommands []PostCommand `yaml:"post_commands"`
	}
	err := yaml.Unmarshal([]byte(`
post_commands:
  - action: replace
    pattern: x
    replacement: y
`), &out)
	if err == nil {
		t.Fatal("expected error for replace without file")
	}
}

func TestPostCommand_MarshalRoundTrip(t *testing.T) {
	original := decodePostCommands(t, `
post_commands:
  - echo simple
  - command: ls
  - action: replace
    file: .env
    pattern: a
    replacement: b
`)

	data, err := yaml.Marshal(struct {
		PostCommands []PostCommand `yaml:"post_commands"`
	}{original})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	again := decodePostCommands(t, string(data))
	if len(again) != 3 {
		t.Fatalf("round trip lost commands: %d", len(again))
	}
	if again[0].Type != PostCommandSimple || again[1].Type != PostCommandShell || again[2].Type != PostCommandReplace {
		t.Errorf("round trip changed variants: %v %v %v", again[0].Type, again[1].Type, again[2].Type)
	}
}

func TestPostCommand_DisplayName(t *testing.T) {
	cmds := decodePostCommands(t, `
post_commands:
  - echo one
  - name: named
    command: ls
  - command: unnamed-shell
  - action: replace
    file: .env
    pattern: a
    replacement: b
`)
	wants := []string{"echo one", "named", "unnamed-shell", "replace in .env"}
	for i, want := range wants {
		if got := cmds[i].DisplayName(); got != want {
			t.Errorf("DisplayName[%d] = %q, want %q", i, got, want)
		}
	}
}
