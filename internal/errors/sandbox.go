//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import "fmt"

// SandboxError represents a script-provider sandbox violation or failure:
// a denied filesystem/network/exec call, a blown resource limit, or a
// script-level runtime error.
type SandboxError struct {
	Base Error `json:"error"`

	// Provider names the script provider that raised the error.
	Provider string `json:"provider,omitempty"`

	// Function is the top-level script function that was executing.
	Function string `json:"function,omitempty"`
}

// NewFsDeniedError creates a SandboxError for a filesystem call outside the
// script's declared `permissions.fs` prefixes.
func NewFsDeniedError(provider, function, path string) *SandboxError {
	return &SandboxError{
		Base: Error{
			Category: CategorySandbox,
			Code:     CodeSandboxFsDenied,
			Message:  fmt.Sprintf("filesystem access denied: %s", path),
			Hint:     "Add the path prefix to this provider's `permissions.fs` list.",
		},
		Provider: provider,
		Function: function,
	}
}

// NewHTTPDeniedError creates a SandboxError for a network call to a host
// outside the script's declared `permissions.http` list.
func NewHTTPDeniedError(provider, function, host string) *SandboxError {
	return &SandboxError{
		Base: Error{
			Category: CategorySandbox,
			Code:     CodeSandboxHTTPDenied,
			Message:  fmt.Sprintf("network access denied: %s", host),
			Hint:     "Add the host to this provider's `permissions.http` list.",
		},
		Provider: provider,
		Function: function,
	}
}

// NewExecDeniedError creates a SandboxError for a subprocess call outside
// the script's declared `permissions.exec` list.
func NewExecDeniedError(provider, function, cmd string) *SandboxError {
	return &SandboxError{
		Base: Error{
			Category: CategorySandbox,
			Code:     CodeSandboxExecDenied,
			Message:  fmt.Sprintf("exec denied: %s", cmd),
			Hint:     "Add the command to this provider's `permissions.exec` list.",
		},
		Provider: provider,
		Function: function,
	}
}

// NewResourceExhaustedError creates a SandboxError for a blown resource
// limit (memory or wall-clock).
func NewResourceExhaustedError(provider, function, kind string, limit any) *SandboxError {
	return &SandboxError{
		Base: Error{
			Category: CategorySandbox,
			Code:     CodeSandboxResourceExhausted,
			Message:  fmt.Sprintf("resource exhausted: %s (limit %v)", kind, limit),
		},
		Provider: provider,
		Function: function,
	}
}

// NewScriptError wraps a Starlark evaluation error raised while running a
// provider script function.
func NewScriptError(provider, function string, cause error) *SandboxError {
	return &SandboxError{
		Base: Error{
			Category: CategorySandbox,
			Code:     CodeSandboxScriptError,
			Message:  "script execution failed",
			Cause:    cause,
		},
		Provider: provider,
		Function: function,
	}
}

// Error implements the error interface.
func (e *SandboxError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *SandboxError) Unwrap() error {
	return e.Base.Cause
}

// Is reports whether the target error matches this error by code.
func (e *SandboxError) Is(target error) bool {
	t, ok := target.(*SandboxError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}
