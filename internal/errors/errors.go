package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NotVersionControlled indicates the target file is not inside a git worktree
	NotVersionControlled ErrorCode = "NOT_VERSION_CONTROLLED"
	// HistoryQueryFailed indicates the line-range history command exited non-zero
	HistoryQueryFailed ErrorCode = "HISTORY_QUERY_FAILED"
	// ParseUnavailable indicates no grammar is available for the language (non-fatal)
	ParseUnavailable ErrorCode = "PARSE_UNAVAILABLE"
	// ReferenceCapabilityUnavailable indicates no reference index is available (non-fatal)
	ReferenceCapabilityUnavailable ErrorCode = "REFERENCE_CAPABILITY_UNAVAILABLE"
	// BackendAuthError indicates the reasoning backend rejected the credential
	BackendAuthError ErrorCode = "BACKEND_AUTH_ERROR"
	// BackendRateLimited indicates the reasoning backend throttled the request
	BackendRateLimited ErrorCode = "BACKEND_RATE_LIMITED"
	// BackendUnavailable indicates the reasoning backend is not reachable
	BackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// ResponseParseFailure indicates the backend answer held no usable JSON (non-fatal)
	ResponseParseFailure ErrorCode = "RESPONSE_PARSE_FAILURE"
	// Timeout indicates an operation exceeded its deadline
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// WhenceError represents an analysis error with a stable code and suggestions
type WhenceError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a new WhenceError
func New(code ErrorCode, message string, cause error) *WhenceError {
	return &WhenceError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes(code),
	}
}

// Error implements the error interface
func (e *WhenceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *WhenceError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *WhenceError) WithDetails(details interface{}) *WhenceError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError for foreign errors.
func CodeOf(err error) ErrorCode {
	var we *WhenceError
	if errors.As(err, &we) {
		return we.Code
	}
	return InternalError
}

// IsFatal reports whether an error must abort the whole analysis request.
// Per-slice gathering failures degrade instead of aborting.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case ParseUnavailable, ReferenceCapabilityUnavailable, ResponseParseFailure:
		return false
	default:
		return true
	}
}

// errorActions maps error codes to suggested fix actions
var errorActions = map[ErrorCode][]FixAction{
	NotVersionControlled: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Verify the file lives inside a git repository",
		},
		{
			Type:        RunCommand,
			Command:     "git init",
			Safe:        false,
			Description: "Initialize a git repository",
		},
	},
	ReferenceCapabilityUnavailable: {
		{
			Type:        RunCommand,
			Command:     "whence doctor",
			Safe:        true,
			Description: "Check SCIP index configuration",
		},
	},
	BackendAuthError: {
		{
			Type:        RunCommand,
			Command:     "whence doctor",
			Safe:        true,
			Description: "Check which credential environment variable is expected",
		},
	},
	BackendRateLimited: {
		{
			Type:        RunCommand,
			Command:     "sleep 2 && whence analyze ${args}",
			Safe:        true,
			Description: "Retry after a brief delay",
		},
	},
	BackendUnavailable: {
		{
			Type:        RunCommand,
			Command:     "whence doctor",
			Safe:        true,
			Description: "Check backend configuration and connectivity",
		},
	},
}

func suggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := errorActions[code]; ok {
		return fixes
	}
	return nil
}
