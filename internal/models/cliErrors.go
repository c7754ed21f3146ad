package models

import (
	"errors"
	"fmt"
)

// Exit codes. Every fatal condition exits with ExitFatal; the Code on the
// CLIError carries the classification.
const (
	ExitOK    = 0
	ExitFatal = 1
)

// Error codes used across the installer.
const (
	CodeUsage               = "USAGE"
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodePlatformUnsupported = "PLATFORM_UNSUPPORTED"
	CodeNotRoot             = "NOT_ROOT"
	CodeDependencyMissing   = "DEPENDENCY_MISSING"
	CodeDependencyInstall   = "DEPENDENCY_INSTALL"
	CodeConsentDeclined     = "CONSENT_DECLINED"
	CodeReleaseLookup       = "RELEASE_LOOKUP"
	CodeDownload            = "DOWNLOAD"
	CodeStepFailed          = "STEP_FAILED"
)

// CLIError is a user-facing error with optional hint + wrapped cause.
// Message/Hint are intended to be printed to the terminal.
type CLIError struct {
	Code     string // stable identifier for matching/logging (e.g. "NOT_ROOT")
	Message  string // user-facing message
	Hint     string // optional "try this"
	ExitCode int    // process exit code

	Cause error // underlying error (optional)
}

func (e *CLIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *CLIError) WithHint(h string) *CLIError {
	if e == nil {
		return nil
	}
	e.Hint = h
	return e
}

func (e *CLIError) WithCause(err error) *CLIError {
	if e == nil {
		return nil
	}
	e.Cause = err
	return e
}

func NewCLIError(code string, msg string) *CLIError {
	return &CLIError{
		Code:     code,
		Message:  msg,
		ExitCode: ExitFatal,
	}
}

// Errorf is NewCLIError with a formatted message.
func Errorf(code string, format string, args ...any) *CLIError {
	return NewCLIError(code, fmt.Sprintf(format, args...))
}

// Wrap creates a CLIError while preserving an underlying cause.
func Wrap(code string, msg string, cause error) *CLIError {
	return NewCLIError(code, msg).WithCause(cause)
}

// IsCode checks whether err (or any wrapped error) is a CLIError with the given code.
func IsCode(err error, code string) bool {
	var ce *CLIError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// FormatForUser builds the terminal output string for an error.
// Use this for printing; keep logging separate.
func FormatForUser(err error) (text string, exitCode int) {
	if err == nil {
		return "", ExitOK
	}

	var ce *CLIError
	if errors.As(err, &ce) {
		exit := ce.ExitCode
		if exit == 0 {
			exit = ExitFatal
		}

		msg := "error: " + ce.Error()
		if ce.Hint != "" {
			return fmt.Sprintf("%s\nhint: %s", msg, ce.Hint), exit
		}
		return msg, exit
	}

	return "error: " + err.Error(), ExitFatal
}
