package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ArchiveOpenFailure indicates an artifact is malformed or unreadable as a zip archive
	ArchiveOpenFailure ErrorCode = "ARCHIVE_OPEN_FAILURE"
	// CopyFailure indicates an I/O failure while copying or rewriting an artifact
	CopyFailure ErrorCode = "COPY_FAILURE"
	// ToolInvocationFailure indicates jdeps or javac failed or could not be started
	ToolInvocationFailure ErrorCode = "TOOL_INVOCATION_FAILURE"
	// DescriptorNotFound indicates no work-area entry matched an artifact
	DescriptorNotFound ErrorCode = "DESCRIPTOR_NOT_FOUND"
	// ConfigurationError indicates missing or invalid configuration
	ConfigurationError ErrorCode = "CONFIGURATION_ERROR"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Key         string        `json:"key,omitempty"`
	Description string        `json:"description,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// ModError is a failure raised anywhere in the pipeline. Every ModError is fatal
// for the run that produced it.
type ModError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Artifact       string      `json:"artifact,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a ModError carrying the default suggested fixes for its code.
func New(code ErrorCode, message string, cause error) *ModError {
	return &ModError{
		Code:           code,
		Message:        message,
		SuggestedFixes: GetSuggestedFixes(code),
		cause:          cause,
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, cause error, format string, args ...interface{}) *ModError {
	return New(code, fmt.Sprintf(format, args...), cause)
}

// Error implements the error interface
func (e *ModError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Artifact != "" {
		msg += " (" + e.Artifact + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *ModError) Unwrap() error {
	return e.cause
}

// ForArtifact records the artifact the failure belongs to.
func (e *ModError) ForArtifact(path string) *ModError {
	e.Artifact = path
	return e
}

// CodeOf returns the code of the first ModError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var me *ModError
	if stderrors.As(err, &me) {
		return me.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ToolInvocationFailure: {
		{
			Type:        InstallTool,
			Tool:        "jdk",
			Description: "Install a JDK (11 or newer) and make jdeps and javac available on PATH",
		},
		{
			Type:        EditConfig,
			Key:         "tools.jdeps",
			Description: "Point tools.jdeps / tools.javac at explicit binaries",
		},
	},
	DescriptorNotFound: {
		{
			Type:        EditConfig,
			Key:         "descriptorMapFile",
			Description: "Pin the artifact to its generated module directory in a descriptor map file",
		},
	},
	ConfigurationError: {
		{
			Type:        RunCommand,
			Command:     "modpatch collect-modules --help",
			Description: "List required settings",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
