//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

// CategoryResolve and CategoryExecute classify errors from the resolution
// and execution stages of the pipeline that config/validation/install/
// network/state/registry do not cover.
const (
	CategoryResolve Category = "resolve"
	CategoryExecute Category = "execute"
	CategorySandbox Category = "sandbox"
)

const (
	// Resolver errors (E7xx)
	CodeNoMatchingVersion Code = "E701"
	CodeAmbiguousVersion  Code = "E702"

	// Prepare errors (E8xx)
	CodeLinkFailed  Code = "E801"
	CodeShimFailed  Code = "E802"
	CodeEnvConflict Code = "E803"

	// Execute errors (E9xx)
	CodeExecFailed   Code = "E901"
	CodeExecNotFound Code = "E902"

	// Sandbox errors (E10xx)
	CodeSandboxPermissionDenied Code = "E1001"
	CodeSandboxResourceExceeded Code = "E1002"
	CodeSandboxScriptError      Code = "E1003"
)

// ResolverError represents a failure to resolve a (tool, version-spec) pair
// to a concrete version.
type ResolverError struct {
	Base Error `json:"error"`

	// Runtime is the tool/runtime name being resolved.
	Runtime string `json:"runtime,omitempty"`

	// Spec is the version specification that could not be resolved.
	Spec string `json:"spec,omitempty"`

	// Candidates lists versions that were considered and rejected.
	Candidates []string `json:"candidates,omitempty"`
}

// NewResolverError creates a ResolverError for a runtime/spec pair.
func NewResolverError(code Code, runtime, spec, message string) *ResolverError {
	return &ResolverError{
		Base: Error{
			Category: CategoryResolve,
			Code:     code,
			Message:  message,
		},
		Runtime: runtime,
		Spec:    spec,
	}
}

// WithCandidates attaches the versions that were considered.
func (e *ResolverError) WithCandidates(candidates []string) *ResolverError {
	e.Candidates = candidates
	return e
}

func (e *ResolverError) Error() string  { return e.Base.Error() }
func (e *ResolverError) Unwrap() error  { return e.Base.Cause }
func (e *ResolverError) Is(t error) bool {
	o, ok := t.(*ResolverError)
	if !ok {
		return false
	}
	return e.Base.Code == o.Base.Code
}

// PrepareError represents a failure in the prepare stage: linking a store
// entry into a project environment, writing a shim, or composing PATH.
type PrepareError struct {
	Base Error `json:"error"`

	Runtime string `json:"runtime,omitempty"`
	Version string `json:"version,omitempty"`
	Target  string `json:"target,omitempty"` // shim path or link target
}

// NewPrepareError creates a PrepareError.
func NewPrepareError(code Code, runtime, version, message string, cause error) *PrepareError {
	return &PrepareError{
		Base: Error{
			Category: CategoryInstall,
			Code:     code,
			Message:  message,
			Cause:    cause,
		},
		Runtime: runtime,
		Version: version,
	}
}

// WithTarget attaches the filesystem path that failed.
func (e *PrepareError) WithTarget(target string) *PrepareError {
	e.Target = target
	return e
}

func (e *PrepareError) Error() string  { return e.Base.Error() }
func (e *PrepareError) Unwrap() error  { return e.Base.Cause }
func (e *PrepareError) Is(t error) bool {
	o, ok := t.(*PrepareError)
	if !ok {
		return false
	}
	return e.Base.Code == o.Base.Code
}

// ExecuteError represents a failure to hand off execution to the resolved
// binary: the binary is missing, not executable, or exec(2) itself failed.
type ExecuteError struct {
	Base Error `json:"error"`

	Runtime string `json:"runtime,omitempty"`
	Path    string `json:"path,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// NewExecuteError creates an ExecuteError.
func NewExecuteError(code Code, runtime, path string, args []string, cause error) *ExecuteError {
	return &ExecuteError{
		Base: Error{
			Category: CategoryExecute,
			Code:     code,
			Message:  "failed to execute resolved binary",
			Cause:    cause,
		},
		Runtime: runtime,
		Path:    path,
		Args:    args,
	}
}

func (e *ExecuteError) Error() string  { return e.Base.Error() }
func (e *ExecuteError) Unwrap() error  { return e.Base.Cause }
func (e *ExecuteError) Is(t error) bool {
	o, ok := t.(*ExecuteError)
	if !ok {
		return false
	}
	return e.Base.Code == o.Base.Code
}

// SandboxError represents a Starlark provider script violating its
// permissions manifest or resource limits, or failing to evaluate.
type SandboxError struct {
	Base Error `json:"error"`

	Provider string `json:"provider,omitempty"`
	Rule     string `json:"rule,omitempty"` // permission or limit that was violated
}

// NewSandboxError creates a SandboxError.
func NewSandboxError(code Code, provider, rule, message string, cause error) *SandboxError {
	return &SandboxError{
		Base: Error{
			Category: CategorySandbox,
			Code:     code,
			Message:  message,
			Cause:    cause,
		},
		Provider: provider,
		Rule:     rule,
	}
}

func (e *SandboxError) Error() string  { return e.Base.Error() }
func (e *SandboxError) Unwrap() error  { return e.Base.Cause }
func (e *SandboxError) Is(t error) bool {
	o, ok := t.(*SandboxError)
	if !ok {
		return false
	}
	return e.Base.Code == o.Base.Code
}
