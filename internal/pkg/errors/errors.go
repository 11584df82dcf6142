// Package errors provides error types, exit-code mapping, and logging for pgbranch.
package errors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrorCode represents the category of an error.
type ErrorCode int

const (
	// User errors (Exit Code 1)
	ErrInvalidConfig ErrorCode = iota + 100
	ErrMissingConfig
	ErrInvalidEnvVar
	ErrInvalidArguments

	// System errors (Exit Code 2)
	ErrGitCommandFailed ErrorCode = iota + 200
	ErrFileSystemError
	ErrStateWriteFailed
	ErrPostCommandFailed

	// External errors (Exit Code 3)
	ErrConnectionFailed ErrorCode = iota + 300
	ErrDatabaseFailed
	ErrTimeout
)

// ExitCode returns the appropriate exit code for an error code.
func (c ErrorCode) ExitCode() int {
	switch {
	case c >= 100 && c < 200:
		return 1 // User errors
	case c >= 200 && c < 300:
		return 2 // System errors
	case c >= 300:
		return 3 // External errors
	default:
		return 1
	}
}

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrMissingConfig:
		return "MissingConfig"
	case ErrInvalidEnvVar:
		return "InvalidEnvVar"
	case ErrInvalidArguments:
		return "InvalidArguments"
	case ErrGitCommandFailed:
		return "GitCommandFailed"
	case ErrFileSystemError:
		return "FileSystemError"
	case ErrStateWriteFailed:
		return "StateWriteFailed"
	case ErrPostCommandFailed:
		return "PostCommandFailed"
	case ErrConnectionFailed:
		return "ConnectionFailed"
	case ErrDatabaseFailed:
		return "DatabaseFailed"
	case ErrTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// AppError represents an application error with context.
type AppError struct {
	Code       ErrorCode
	Message    string
	Cause      error
	Context    map[string]interface{}
	Suggestion string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error.
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with context.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapWithContext wraps an error with a context message.
func WrapWithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// GetExitCode returns the appropriate exit code for an error.
func GetExitCode(err error) int {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code.ExitCode()
	}
	return 1 // Default to user error
}

// Common error constructors with suggestions

// NewMissingConfigError creates an error for commands that require a config file.
func NewMissingConfigError() *AppError {
	return &AppError{
		Code:       ErrMissingConfig,
		Message:    "no configuration file found",
		Suggestion: "Run 'pgbranch init' to create a .pgbranch.yml file first",
	}
}

// NewInvalidConfigError creates an error for invalid configuration.
func NewInvalidConfigError(message string) *AppError {
	return &AppError{
		Code:       ErrInvalidConfig,
		Message:    message,
		Suggestion: "Check your .pgbranch.yml and .pgbranch.local.yml files",
	}
}

// NewConfigParseError creates an error for an unparsable config file.
func NewConfigParseError(path string, cause error) *AppError {
	appErr := &AppError{
		Code:    ErrInvalidConfig,
		Message: fmt.Sprintf("failed to parse config file %s", path),
		Cause:   cause,
	}
	return appErr.WithContext("path", path)
}

// NewInvalidEnvVarError creates an error for a malformed environment variable.
func NewInvalidEnvVarError(name, value string) *AppError {
	return &AppError{
		Code:       ErrInvalidEnvVar,
		Message:    fmt.Sprintf("invalid value %q for environment variable %s", value, name),
		Suggestion: "Boolean variables accept: true, false, 1, 0, yes, no, on, off",
	}
}

// NewGitError creates an error for git command failures.
func NewGitError(err error, output string) *AppError {
	appErr := &AppError{
		Code:    ErrGitCommandFailed,
		Message: "git command failed",
		Cause:   err,
	}
	if output != "" {
		appErr.Context = map[string]interface{}{
			"output": output,
		}
	}
	return appErr
}

// NewStateWriteError creates an error for a failed local-state write.
// Losing track of the active branch is worse than a failed database
// operation, so callers treat this as a hard failure.
func NewStateWriteError(err error, path string) *AppError {
	appErr := &AppError{
		Code:    ErrStateWriteFailed,
		Message: "failed to persist branch state",
		Cause:   err,
	}
	return appErr.WithContext("state_file", path)
}

// NewConnectionError creates an error for PostgreSQL connection failures.
func NewConnectionError(err error) *AppError {
	return &AppError{
		Code:       ErrConnectionFailed,
		Message:    "failed to connect to PostgreSQL",
		Cause:      err,
		Suggestion: "Check the database section of your configuration and that the server is running",
	}
}

// NewDatabaseError creates an error for database operation failures.
func NewDatabaseError(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrDatabaseFailed,
		Message: fmt.Sprintf("database %s failed", operation),
		Cause:   err,
	}
}

// NewTimeoutError creates an error for timeouts.
func NewTimeoutError(err error) *AppError {
	return &AppError{
		Code:    ErrTimeout,
		Message: "operation timed out",
		Cause:   err,
	}
}

// FormatError formats an error for user display.
// Connection passwords are automatically masked.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	appErr := GetAppError(err)
	if appErr != nil {
		sb.WriteString("Error: ")
		sb.WriteString(SanitizeErrorMessage(appErr.Message))

		if appErr.Cause != nil {
			sb.WriteString("\n  Cause: ")
			sb.WriteString(SanitizeErrorMessage(appErr.Cause.Error()))
		}

		if appErr.Suggestion != "" {
			sb.WriteString("\n  Suggestion: ")
			sb.WriteString(appErr.Suggestion)
		}
	} else {
		sb.WriteString("Error: ")
		sb.WriteString(SanitizeErrorMessage(err.Error()))
	}

	return sb.String()
}

// FormatErrorVerbose formats an error with full details for verbose mode.
func FormatErrorVerbose(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	appErr := GetAppError(err)
	if appErr != nil {
		sb.WriteString(fmt.Sprintf("Error [%s]: %s\n", appErr.Code.String(), SanitizeErrorMessage(appErr.Message)))

		if appErr.Cause != nil {
			sb.WriteString(fmt.Sprintf("  Cause: %v\n", SanitizeErrorMessage(appErr.Cause.Error())))
			sb.WriteString("  Error chain:\n")
			printErrorChain(&sb, appErr.Cause, 2)
		}

		if len(appErr.Context) > 0 {
			sb.WriteString("  Context:\n")
			for k, v := range appErr.Context {
				sb.WriteString(fmt.Sprintf("    %s: %v\n", k, SanitizeErrorMessage(fmt.Sprintf("%v", v))))
			}
		}

		if appErr.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("  Suggestion: %s\n", appErr.Suggestion))
		}
	} else {
		sb.WriteString(fmt.Sprintf("Error: %v\n", SanitizeErrorMessage(err.Error())))
		sb.WriteString("  Error chain:\n")
		printErrorChain(&sb, err, 2)
	}

	return sb.String()
}

// printErrorChain prints the error chain with indentation.
func printErrorChain(sb *strings.Builder, err error, indent int) {
	if err == nil {
		return
	}

	prefix := strings.Repeat("  ", indent)
	errMsg := SanitizeErrorMessage(err.Error())
	sb.WriteString(fmt.Sprintf("%s- %T: %v\n", prefix, err, errMsg))

	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		printErrorChain(sb, unwrapped, indent+1)
	}
}

// SanitizeErrorMessage masks passwords that leak into error messages via
// libpq-style connection strings.
func SanitizeErrorMessage(msg string) string {
	return passwordPattern.ReplaceAllString(msg, "password=****")
}

// passwordPattern matches password fields in keyword/value connection strings.
var passwordPattern = regexp.MustCompile(`password=\S+`)
