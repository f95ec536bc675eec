package tryon

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", NewError(CodeRateLimit, "slow down", nil))

	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"typed", NewError(CodeTimeout, "late", nil), CodeTimeout},
		{"wrapped", wrapped, CodeRateLimit},
		{"foreign", errors.New("boom"), CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Fatalf("CodeOf = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("poll: %w", NewError(CodeTimeout, "late", nil))
	if !errors.Is(err, &Error{Code: CodeTimeout}) {
		t.Fatal("expected errors.Is to match on code")
	}
	if errors.Is(err, &Error{Code: CodeAPI}) {
		t.Fatal("different codes must not match")
	}
}

func TestAsErrorPreservesForeignErrors(t *testing.T) {
	cause := errors.New("disk on fire")
	te := AsError(cause)

	if te.Code != CodeUnknown || te.Message != "disk on fire" {
		t.Fatalf("unexpected error: %+v", te)
	}
	if !errors.Is(te, cause) {
		t.Fatal("original error should stay reachable")
	}
	if len(te.Stack) == 0 {
		t.Fatal("unknown errors should carry a stack trace")
	}
	if AsError(nil) != nil {
		t.Fatal("AsError(nil) should be nil")
	}
}

func TestErrorString(t *testing.T) {
	e := NewError(CodeUpload, "could not store result", errors.New("403"))
	if got := e.Error(); got != "UPLOAD_ERROR: could not store result: 403" {
		t.Fatalf("unexpected message: %s", got)
	}
}
