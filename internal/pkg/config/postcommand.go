package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PostCommandType discriminates the post-command variants.
type PostCommandType int

const (
	// PostCommandSimple is a bare shell command string.
	PostCommandSimple PostCommandType = iota
	// PostCommandShell is a shell command object with execution options.
	PostCommandShell
	// PostCommandReplace is an in-file pattern replacement.
	PostCommandReplace
)

// PostCommand is one entry of the post_commands list. The three variants
// are distinguished by shape on disk, not by an explicit tag: a plain
// string, an object without an "action" key, or an object with
// action: replace.
type PostCommand struct {
	Type    PostCommandType
	Command string          // PostCommandSimple
	Shell   *ShellCommand   // PostCommandShell
	Replace *ReplaceCommand // PostCommandReplace
}

// ShellCommand is a post-command run through the shell.
type ShellCommand struct {
	Name       string `yaml:"name,omitempty"`
	Command    string `yaml:"command"`
	WorkingDir string `yaml:"working_dir,omitempty"`
	// ContinueOnError keeps the remaining post-commands running when this
	// one fails.
	ContinueOnError bool `yaml:"continue_on_error,omitempty"`
	// Condition, when set, is template-substituted and run through the
	// shell; exit status 0 enables the command.
	Condition   string            `yaml:"condition,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

// ReplaceCommand is a post-command that rewrites a file in place.
type ReplaceCommand struct {
	Action          string `yaml:"action"` // always "replace"
	Name            string `yaml:"name,omitempty"`
	File            string `yaml:"file"`
	Pattern         string `yaml:"pattern"`
	Replacement     string `yaml:"replacement"`
	CreateIfMissing bool   `yaml:"create_if_missing,omitempty"`
	ContinueOnError bool   `yaml:"continue_on_error,omitempty"`
	Condition       string `yaml:"condition,omitempty"`
}

// DisplayName returns the name used when reporting execution of this
// post-command.
func (p PostCommand) DisplayName() string {
	switch p.Type {
	case PostCommandSimple:
		return p.Command
	case PostCommandShell:
		if p.Shell.Name != "" {
			return p.Shell.Name
		}
		return p.Shell.Command
	case PostCommandReplace:
		if p.Replace.Name != "" {
			return p.Replace.Name
		}
		return fmt.Sprintf("replace in %s", p.Replace.File)
	}
	return "unknown"
}

// UnmarshalYAML decodes the shape-discriminated union: plain string first,
// then object-with-action, then plain object. Unmatched shapes are
// rejected with a descriptive error rather than silently falling back.
func (p *PostCommand) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return fmt.Errorf("post command at line %d: %w", value.Line, err)
		}
		*p = PostCommand{Type: PostCommandSimple, Command: s}
		return nil

	case yaml.MappingNode:
		if hasMappingKey(value, "action") {
			var rc ReplaceCommand
			if err := value.Decode(&rc); err != nil {
				return fmt.Errorf("post command at line %d: %w", value.Line, err)
			}
			if rc.Action != "replace" {
				return fmt.Errorf("post command at line %d: unknown action %q (only \"replace\" is supported)", value.Line, rc.Action)
			}
			if rc.File == "" || rc.Pattern == "" {
				return fmt.Errorf("post command at line %d: replace action requires file and pattern", value.Line)
			}
			*p = PostCommand{Type: PostCommandReplace, Replace: &rc}
			return nil
		}

		var sc ShellCommand
		if err := value.Decode(&sc); err != nil {
			return fmt.Errorf("post command at line %d: %w", value.Line, err)
		}
		if sc.Command == "" {
			return fmt.Errorf("post command at line %d: command is required", value.Line)
		}
		*p = PostCommand{Type: PostCommandShell, Shell: &sc}
		return nil
	}

	return fmt.Errorf("post command at line %d: expected a string or a mapping", value.Line)
}

// MarshalYAML writes each variant back in its on-disk shape.
func (p PostCommand) MarshalYAML() (interface{}, error) {
	switch p.Type {
	case PostCommandSimple:
		return p.Command, nil
	case PostCommandShell:
		return p.Shell, nil
	case PostCommandReplace:
		return p.Replace, nil
	}
	return nil, fmt.Errorf("unknown post command type %d", p.Type)
}

func (p PostCommand) clone() PostCommand {
	out := p
	if p.Shell != nil {
		sc := *p.Shell
		if p.Shell.Environment != nil {
			sc.Environment = make(map[string]string, len(p.Shell.Environment))
			for k, v := range p.Shell.Environment {
				sc.Environment[k] = v
			}
		}
		out.Shell = &sc
	}
	if p.Replace != nil {
		rc := *p.Replace
		out.Replace = &rc
	}
	return out
}

// hasMappingKey reports whether a mapping node contains the given key.
func hasMappingKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
