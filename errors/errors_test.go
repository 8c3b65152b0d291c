package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidEnum,
				Path:   "liblivid.so",
				Column: "total",
				Detail: "cell_type 9 out of range",
			},
			contains: []string{"[load]", "invalid_enum", "liblivid.so", "column total", "cell_type 9"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseABI,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[abi]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRun,
				Kind:   KindTrap,
				Detail: "entry point aborted",
				Cause:  errors.New("wasm error: unreachable"),
			},
			contains: []string{"[run]", "trap", "entry point aborted", "caused by", "unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseSource,
		Kind:  KindIO,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingExport,
		Detail: "columns",
	}

	if !err.Is(&Error{Phase: PhaseLoad, Kind: KindMissingExport}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseRun, Kind: KindMissingExport}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseLoad, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, &Error{Phase: PhaseLoad, Kind: KindMissingExport}) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseABI, KindInvalidEnum).
		Path("script.c").
		Column("when").
		Value(7).
		Cause(cause).
		Detail("cell_type %d, want 0..%d", 7, 3).
		Build()

	if err.Phase != PhaseABI {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseABI)
	}
	if err.Kind != KindInvalidEnum {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidEnum)
	}
	if err.Path != "script.c" {
		t.Errorf("Path = %q, want script.c", err.Path)
	}
	if err.Column != "when" {
		t.Errorf("Column = %q, want when", err.Column)
	}
	if err.Value != 7 {
		t.Errorf("Value = %v, want 7", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "cell_type 7, want 0..3" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("MissingExport", func(t *testing.T) {
		err := MissingExport("liblivid.so", "run")
		if err.Phase != PhaseLoad || err.Kind != KindMissingExport {
			t.Errorf("got [%s] %s", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Error(), `"run"`) {
			t.Errorf("message %q should name the symbol", err.Error())
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseABI, 0x10000, 16)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != uint64(0x10000) {
			t.Errorf("Value = %v, want 0x10000", err.Value)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseABI, 1024)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("StaleHandle", func(t *testing.T) {
		err := StaleHandle("liblivid.so")
		if !errors.Is(err, &Error{Phase: PhaseRun, Kind: KindStaleHandle}) {
			t.Errorf("StaleHandle should match run/stale_handle, got %v", err)
		}
	})

	t.Run("Contract", func(t *testing.T) {
		err := Contract("grid called %d times past the cap", 2)
		if err.Kind != KindContract || err.Detail != "grid called 2 times past the cap" {
			t.Errorf("unexpected contract error %v", err)
		}
	})

	t.Run("NilPointer", func(t *testing.T) {
		err := NilPointer(PhaseLoad, "column name")
		if err.Detail != "column name is NULL" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})
}

func TestToolchainError(t *testing.T) {
	err := &ToolchainError{
		Command:  "cc",
		Source:   "script.c",
		ExitCode: 1,
		Output:   "script.c:3:1: error: expected ';'\n1 error generated.\n",
	}

	msg := err.Error()
	for _, s := range []string{"[compile]", "cc", "status 1", "script.c", "expected ';'"} {
		if !strings.Contains(msg, s) {
			t.Errorf("message %q missing %q", msg, s)
		}
	}
	if strings.Contains(msg, "1 error generated") {
		t.Errorf("message %q should only carry the first diagnostic line", msg)
	}

	var wrapped error = Wrap(PhaseCompile, KindToolchain, err, "compile stub")
	if !errors.Is(wrapped, &ToolchainError{}) {
		t.Error("errors.Is should find ToolchainError through Wrap")
	}
	if !errors.Is(err, &Error{Phase: PhaseCompile, Kind: KindToolchain}) {
		t.Error("ToolchainError should match compile/toolchain")
	}

	var te *ToolchainError
	if !errors.As(wrapped, &te) || te.ExitCode != 1 {
		t.Errorf("errors.As failed: %v", te)
	}
}
