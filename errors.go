package rootshrink

import "fmt"

// ParseError indicates a malformed human size string.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid size %q: %s", e.Input, e.Reason)
}

func NewParseError(input, reason string) error {
	return &ParseError{Input: input, Reason: reason}
}

// PolicyError indicates a requested configuration the tool refuses to act on,
// such as a root size outside the allowed bounds or swap/var on SD media
// without an override.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

func NewPolicyError(format string, args ...any) error {
	return &PolicyError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates a device or partition path that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s does not exist", e.Path)
}

func NewNotFoundError(path string) error {
	return &NotFoundError{Path: path}
}

// UnsafeTargetError indicates the target device is (or contains) the
// currently mounted root filesystem and no explicit override was given.
type UnsafeTargetError struct {
	Device string
}

func (e *UnsafeTargetError) Error() string {
	return fmt.Sprintf("device %s holds the live root filesystem; refusing to modify it without an explicit override", e.Device)
}

func NewUnsafeTargetError(device string) error {
	return &UnsafeTargetError{Device: device}
}

// ToolOutputError indicates an expected pattern was absent from a collaborator
// tool's report, usually because the tool's output format changed or the
// device has no recognized partition table.
type ToolOutputError struct {
	Tool    string
	Missing string
}

func (e *ToolOutputError) Error() string {
	return fmt.Sprintf("could not find %s in %s output", e.Missing, e.Tool)
}

func NewToolOutputError(tool, missing string) error {
	return &ToolOutputError{Tool: tool, Missing: missing}
}

// ToolExecutionError indicates a subprocess exited non-zero during a
// destructive step.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

func NewToolExecutionError(tool string, err error) error {
	return &ToolExecutionError{Tool: tool, Err: err}
}

// DeviceNotReadyError indicates an expected device node did not appear within
// the bounded wait after a partition was created.
type DeviceNotReadyError struct {
	Device string
}

func (e *DeviceNotReadyError) Error() string {
	return fmt.Sprintf("device node %s did not appear within the wait deadline", e.Device)
}

func NewDeviceNotReadyError(device string) error {
	return &DeviceNotReadyError{Device: device}
}

// InsufficientSpaceError indicates the computed /home size fell below the
// half-disk floor. Shortfall is how many bytes short of the floor the layout
// came out.
type InsufficientSpaceError struct {
	Required  int64
	Available int64
	Shortfall int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient space for /home: need at least %s, only %s available (%s short)",
		FormatSize(e.Required), FormatSize(e.Available), FormatSize(e.Shortfall))
}

func NewInsufficientSpaceError(required, available int64) error {
	return &InsufficientSpaceError{
		Required:  required,
		Available: available,
		Shortfall: required - available,
	}
}
