// Package postcmd runs the post-switch commands configured for a project:
// shell commands and in-place file replacements, with template variables
// substituted from the active branch and database settings.
package postcmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
	"github.com/pgbranch/pgbranch/internal/pkg/naming"
)

// TemplateContext carries the values substituted into {placeholder}
// occurrences in commands, file paths, patterns, and replacements.
type TemplateContext struct {
	BranchName       string
	DatabaseName     string
	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	TemplateDatabase string
	DatabasePrefix   string
}

// NewTemplateContext builds the substitution context for a branch from the
// merged configuration.
func NewTemplateContext(branch string, cfg *config.Config) TemplateContext {
	return TemplateContext{
		BranchName:       branch,
		DatabaseName:     naming.DatabaseName(branch, cfg),
		DatabaseHost:     cfg.Database.Host,
		DatabasePort:     cfg.Database.Port,
		DatabaseUser:     cfg.Database.User,
		DatabasePassword: cfg.Database.Password,
		TemplateDatabase: cfg.Database.TemplateDatabase,
		DatabasePrefix:   cfg.Database.DatabasePrefix,
	}
}

// Variables returns the placeholder-to-value mapping.
func (tc TemplateContext) Variables() map[string]string {
	return map[string]string{
		"{branch_name}": tc.BranchName,
		"{db_name}":     tc.DatabaseName,
		"{db_host}":     tc.DatabaseHost,
		"{db_port}":     strconv.Itoa(tc.DatabasePort),
		"{db_user}":     tc.DatabaseUser,
		"{db_password}": tc.DatabasePassword,
		"{template_db}": tc.TemplateDatabase,
		"{prefix}":      tc.DatabasePrefix,
	}
}

// Substitute replaces every template placeholder in the input.
func (tc TemplateContext) Substitute(input string) string {
	out := input
	for placeholder, value := range tc.Variables() {
		out = strings.ReplaceAll(out, placeholder, value)
	}
	return out
}

// Executor runs configured post-commands. Output goes to Stdout/Stderr,
// defaulting to the process streams.
type Executor struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewExecutor() *Executor {
	return &Executor{Stdout: os.Stdout, Stderr: os.Stderr}
}

// RunAll executes the commands in order. A failing command aborts the run
// unless it is marked continue_on_error.
func (e *Executor) RunAll(ctx context.Context, commands []config.PostCommand, tc TemplateContext) error {
	for i, cmd := range commands {
		if err := e.Run(ctx, cmd, tc); err != nil {
			if continueOnError(cmd) {
				apperrors.Warn("post-command %q failed, continuing: %v", cmd.DisplayName(), err)
				continue
			}
			return apperrors.Wrap(err, apperrors.ErrPostCommandFailed,
				fmt.Sprintf("post-command %d (%s) failed", i+1, cmd.DisplayName()))
		}
	}
	return nil
}

// Run executes a single post-command.
func (e *Executor) Run(ctx context.Context, cmd config.PostCommand, tc TemplateContext) error {
	switch cmd.Type {
	case config.PostCommandSimple:
		return e.runShell(ctx, shellInvocation{command: cmd.Command}, tc)
	case config.PostCommandShell:
		return e.runShell(ctx, shellInvocation{
			command:    cmd.Shell.Command,
			workingDir: cmd.Shell.WorkingDir,
			condition:  cmd.Shell.Condition,
			env:        cmd.Shell.Environment,
		}, tc)
	case config.PostCommandReplace:
		return e.runReplace(ctx, cmd.Replace, tc)
	default:
		return apperrors.New(apperrors.ErrInvalidConfig, "unknown post-command type")
	}
}

type shellInvocation struct {
	command    string
	workingDir string
	condition  string
	env        map[string]string
}

func (e *Executor) runShell(ctx context.Context, inv shellInvocation, tc TemplateContext) error {
	if inv.condition != "" {
		ok, err := e.evalCondition(ctx, inv.condition, inv.workingDir, tc)
		if err != nil {
			return err
		}
		if !ok {
			apperrors.Debug("condition not met, skipping command: %s", inv.command)
			return nil
		}
	}

	command := tc.Substitute(inv.command)
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if inv.workingDir != "" {
		cmd.Dir = tc.Substitute(inv.workingDir)
	}
	cmd.Env = os.Environ()
	for key, value := range inv.env {
		cmd.Env = append(cmd.Env, key+"="+tc.Substitute(value))
	}
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	apperrors.Debug("running post-command: %s", command)
	if err := cmd.Run(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrPostCommandFailed, "command failed: "+command)
	}
	return nil
}

// evalCondition runs the condition through the shell; exit status zero
// means the guarded command should run.
func (e *Executor) evalCondition(ctx context.Context, condition, workingDir string, tc TemplateContext) (bool, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", tc.Substitute(condition))
	if workingDir != "" {
		cmd.Dir = tc.Substitute(workingDir)
	}
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if _, isExit := err.(*exec.ExitError); isExit {
		return false, nil
	}
	return false, apperrors.Wrap(err, apperrors.ErrPostCommandFailed, "failed to evaluate condition")
}

func (e *Executor) runReplace(ctx context.Context, rc *config.ReplaceCommand, tc TemplateContext) error {
	if rc.Condition != "" {
		ok, err := e.evalCondition(ctx, rc.Condition, "", tc)
		if err != nil {
			return err
		}
		if !ok {
			apperrors.Debug("condition not met, skipping replace in %s", rc.File)
			return nil
		}
	}

	path := tc.Substitute(rc.File)
	pattern := tc.Substitute(rc.Pattern)
	replacement := tc.Substitute(rc.Replacement)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInvalidConfig, "invalid replace pattern: "+rc.Pattern)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && rc.CreateIfMissing {
			if err := os.WriteFile(path, []byte(replacement+"\n"), 0o644); err != nil {
				return apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to create file: "+path)
			}
			apperrors.Info("created %s", path)
			return nil
		}
		return apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to read file: "+path)
	}

	content := string(data)
	if !re.MatchString(content) {
		apperrors.Debug("pattern not found in %s, nothing to replace", path)
		return nil
	}

	updated := re.ReplaceAllString(content, replacement)
	if updated == content {
		return nil
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to write file: "+path)
	}
	apperrors.Info("updated %s", path)
	return nil
}

func continueOnError(cmd config.PostCommand) bool {
	switch cmd.Type {
	case config.PostCommandShell:
		return cmd.Shell.ContinueOnError
	case config.PostCommandReplace:
		return cmd.Replace.ContinueOnError
	default:
		return false
	}
}

// PrintTemplateVariables writes the available placeholders and their
// current values, sorted by name.
func PrintTemplateVariables(w io.Writer, tc TemplateContext) {
	vars := tc.Variables()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Available template variables:")
	for _, name := range names {
		value := vars[name]
		if name == "{db_password}" && value != "" {
			value = "****"
		}
		fmt.Fprintf(w, "  %-14s %s\n", name, value)
	}
}
