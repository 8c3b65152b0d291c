package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the reload cycle the error occurred
type Phase string

const (
	PhaseConfig   Phase = "config"   // configuration and flags
	PhaseSource   Phase = "source"   // data source reading
	PhaseGenerate Phase = "generate" // stub and header generation
	PhaseCompile  Phase = "compile"  // toolchain invocation
	PhaseLoad     Phase = "load"     // artifact loading
	PhaseABI      Phase = "abi"      // marshaling across the module boundary
	PhaseRun      Phase = "run"      // module entry point execution
	PhaseWatch    Phase = "watch"    // file change notification
	PhaseViewer   Phase = "viewer"   // external viewer process
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput  Kind = "invalid_input"
	KindInvalidData   Kind = "invalid_data"
	KindInvalidEnum   Kind = "invalid_enum"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindNilPointer    Kind = "nil_pointer"
	KindAllocation    Kind = "allocation"
	KindMissingExport Kind = "missing_export"
	KindUnsupported   Kind = "unsupported"
	KindToolchain     Kind = "toolchain"
	KindIO            Kind = "io"
	KindStaleHandle   Kind = "stale_handle"
	KindContract      Kind = "contract_violation"
	KindTrap          Kind = "trap"
	KindInstantiation Kind = "instantiation"
)

// Error is the structured error type used throughout livid
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Column string
	Detail string
	Path   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Path != "" {
		b.WriteString(" in ")
		b.WriteString(e.Path)
	}

	if e.Column != "" {
		b.WriteString(" at column ")
		b.WriteString(e.Column)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the file the error refers to
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Column sets the column name the error refers to
func (b *Builder) Column(name string) *Builder {
	b.err.Column = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, column string, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Column: column,
		Detail: fmt.Sprintf("invalid %s value %v", enumType, value),
		Value:  value,
	}
}

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, addr uint64, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access of %d bytes at 0x%x is out of bounds", length, addr),
		Value:  addr,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Detail: what + " is NULL",
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
	}
}

// MissingExport creates an error for a symbol the module must export
func MissingExport(path, symbol string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingExport,
		Path:   path,
		Detail: fmt.Sprintf("module does not export %q", symbol),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// StaleHandle reports use of a module handle after it was unloaded
func StaleHandle(path string) *Error {
	return &Error{
		Phase:  PhaseRun,
		Kind:   KindStaleHandle,
		Path:   path,
		Detail: "module handle used after unload",
	}
}

// Contract reports a module breaking the calling contract
func Contract(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseABI,
		Kind:   KindContract,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// IO wraps a filesystem error
func IO(phase Phase, path string, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindIO,
		Path:  path,
		Cause: cause,
	}
}

// ToolchainError describes a failed compiler invocation
type ToolchainError struct {
	Command  string
	Source   string
	ExitCode int
	Output   string
}

func (e *ToolchainError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[compile] toolchain: %s exited with status %d", e.Command, e.ExitCode))
	if e.Source != "" {
		b.WriteString(" compiling ")
		b.WriteString(e.Source)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		first, _, _ := strings.Cut(out, "\n")
		b.WriteString(": ")
		b.WriteString(first)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *ToolchainError) Is(target error) bool {
	switch t := target.(type) {
	case *ToolchainError:
		return true
	case *Error:
		return t.Phase == PhaseCompile && t.Kind == KindToolchain
	}
	return false
}
