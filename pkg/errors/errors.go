// Package errors provides structured error handling for ShadowLend.
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

// Exit codes returned by the shadowlend CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Wallet rejected or not connected
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied
)

// LendError is the structured error type for ShadowLend.
type LendError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *LendError) Error() string {
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

func (e *LendError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for LendError.
func (e *LendError) Is(target error) bool {
	var t *LendError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &LendError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &LendError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &LendError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrPermission = &LendError{
		Code:     "PERMISSION_DENIED",
		Message:  "permission denied",
		ExitCode: ExitPermission,
	}

	// Wallet session errors.
	ErrWalletNotInstalled = &LendError{
		Code:       "WALLET_NOT_INSTALLED",
		Message:    "no wallet provider detected",
		Suggestion: "install a compatible wallet and try again",
		ExitCode:   ExitNotFound,
	}

	ErrUserRejected = &LendError{
		Code:     "USER_REJECTED",
		Message:  "request rejected in wallet",
		ExitCode: ExitAuth,
	}

	ErrProviderUnavailable = &LendError{
		Code:     "PROVIDER_UNAVAILABLE",
		Message:  "wallet provider temporarily unavailable",
		ExitCode: ExitGeneral,
	}

	ErrConnectFailed = &LendError{
		Code:     "CONNECT_FAILED",
		Message:  "wallet connection failed",
		ExitCode: ExitGeneral,
	}

	ErrNotConnected = &LendError{
		Code:       "NOT_CONNECTED",
		Message:    "no wallet connected",
		Suggestion: "run 'shadowlend wallet connect' first",
		ExitCode:   ExitAuth,
	}

	ErrUnknownPlatform = &LendError{
		Code:     "UNKNOWN_PLATFORM",
		Message:  "unknown wallet platform",
		ExitCode: ExitInput,
	}

	ErrWalletExists = &LendError{
		Code:     "WALLET_EXISTS",
		Message:  "local wallet already exists",
		ExitCode: ExitInput,
	}

	ErrWalletNotFound = &LendError{
		Code:       "WALLET_NOT_FOUND",
		Message:    "local wallet not found",
		Suggestion: "run 'shadowlend wallet init' to create one",
		ExitCode:   ExitNotFound,
	}

	ErrInvalidMnemonic = &LendError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrDecryptionFailed = &LendError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong passphrase or corrupted file",
		ExitCode: ExitAuth,
	}

	// Account and instruction errors.
	ErrInvalidPublicKey = &LendError{
		Code:     "INVALID_PUBLIC_KEY",
		Message:  "invalid public key",
		ExitCode: ExitInput,
	}

	ErrInvalidBasisPoints = &LendError{
		Code:     "INVALID_BASIS_POINTS",
		Message:  "basis points must be between 0 and 10000",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &LendError{
		Code:     "INVALID_AMOUNT",
		Message:  "amount must be greater than zero",
		ExitCode: ExitInput,
	}

	ErrMissingAccount = &LendError{
		Code:     "MISSING_ACCOUNT",
		Message:  "required account not provided",
		ExitCode: ExitInput,
	}

	// Network errors.
	ErrNetworkError = &LendError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrNoEndpoints = &LendError{
		Code:       "NO_ENDPOINTS",
		Message:    "no RPC endpoints configured",
		Suggestion: "set cluster endpoints in config.yaml or SHADOWLEND_RPC",
		ExitCode:   ExitInput,
	}

	// Config-specific errors.
	ErrConfigNotFound = &LendError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &LendError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &LendError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
	}
)

// New creates a new LendError with the given code and message.
func New(code, message string) *LendError {
	return &LendError{
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

	var le *LendError
	if errors.As(err, &le) {
		return &LendError{
			Code:       le.Code,
			Message:    fmt.Sprintf("%s: %s", msg, le.Message),
			Details:    le.Details,
			Suggestion: le.Suggestion,
			Cause:      err,
			ExitCode:   le.ExitCode,
		}
	}

	return &LendError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var le *LendError
	if errors.As(err, &le) {
		return &LendError{
			Code:       le.Code,
			Message:    le.Message,
			Details:    details,
			Suggestion: le.Suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &LendError{
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

	var le *LendError
	if errors.As(err, &le) {
		return &LendError{
			Code:       le.Code,
			Message:    le.Message,
			Details:    le.Details,
			Suggestion: suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &LendError{
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

	var le *LendError
	if errors.As(err, &le) {
		return le.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var le *LendError
	if errors.As(err, &le) {
		return le.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
