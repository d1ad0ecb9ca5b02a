// Package errors provides structured error handling for Tally.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input or configuration
	ExitNotFound = 4 // Resource not found
)

// TallyError is the structured error type for Tally.
type TallyError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *TallyError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *TallyError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for TallyError. Two errors match when their codes match.
func (e *TallyError) Is(target error) bool {
	var t *TallyError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &TallyError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &TallyError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	// Query-specific errors.
	ErrInvalidAddress = &TallyError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid wallet address",
		ExitCode: ExitInput,
	}

	ErrUnknownChain = &TallyError{
		Code:     "UNKNOWN_CHAIN",
		Message:  "unsupported chain",
		ExitCode: ExitInput,
	}

	ErrTokenNotConfigured = &TallyError{
		Code:     "TOKEN_NOT_CONFIGURED",
		Message:  "token not configured",
		ExitCode: ExitInput,
	}

	ErrNoWallets = &TallyError{
		Code:     "NO_WALLETS",
		Message:  "no wallet addresses specified",
		ExitCode: ExitInput,
	}

	ErrNoChains = &TallyError{
		Code:     "NO_CHAINS",
		Message:  "no chains specified",
		ExitCode: ExitInput,
	}

	// Remote errors.
	ErrNetworkError = &TallyError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrRPCURLRequired = &TallyError{
		Code:     "RPC_URL_REQUIRED",
		Message:  "RPC URL is required",
		ExitCode: ExitInput,
	}

	// Config-specific errors.
	ErrConfigNotFound = &TallyError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &TallyError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	// Output-specific errors.
	ErrExportFailed = &TallyError{
		Code:     "EXPORT_FAILED",
		Message:  "failed to write report",
		ExitCode: ExitGeneral,
	}
)

// New creates a new TallyError with the given code and message.
func New(code, message string) *TallyError {
	return &TallyError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var te *TallyError
	if errors.As(err, &te) {
		return &TallyError{
			Code:       te.Code,
			Message:    fmt.Sprintf("%s: %s", msg, te.Message),
			Details:    te.Details,
			Suggestion: te.Suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TallyError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a sentinel while keeping its code.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var te *TallyError
	if errors.As(err, &te) {
		return &TallyError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: te.Suggestion,
			Cause:      cause,
			ExitCode:   te.ExitCode,
		}
	}

	return fmt.Errorf("%w: %w", err, cause)
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var te *TallyError
	if errors.As(err, &te) {
		return &TallyError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    details,
			Suggestion: te.Suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TallyError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var te *TallyError
	if errors.As(err, &te) {
		return &TallyError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TallyError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var te *TallyError
	if errors.As(err, &te) {
		return te.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var te *TallyError
	if errors.As(err, &te) {
		return te.Code
	}
	return "GENERAL_ERROR"
}

// IsInputError reports whether err was caused by bad input or configuration
// rather than by a remote or internal failure.
func IsInputError(err error) bool {
	return ExitCode(err) == ExitInput
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
