package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestCause(t *testing.T) {
	std := errors.New("this is a stdlib error")

	cases := map[string]struct {
		err  error
		root error
	}{
		"Errors are self-causing": {
			err:  ErrNotAllowed,
			root: ErrNotAllowed,
		},
		"Wrap reveals root cause": {
			err:  Wrap(ErrNotAllowed, "foo"),
			root: ErrNotAllowed,
		},
		"Cause works for stderr as root": {
			err:  Wrap(std, "Some helpful text"),
			root: std,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := errors.Cause(tc.err); got != tc.root {
				t.Fatal("unexpected result")
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	cases := map[string]struct {
		a      *Error
		b      error
		wantIs bool
	}{
		"instance of the same error": {
			a:      ErrNotAvailable,
			b:      ErrNotAvailable,
			wantIs: true,
		},
		"two different coded errors": {
			a:      ErrNotAvailable,
			b:      ErrUnexpected,
			wantIs: false,
		},
		"successful comparison to a wrapped error": {
			a:      ErrMissingArg,
			b:      errors.Wrap(ErrMissingArg, "gone"),
			wantIs: true,
		},
		"unsuccessful comparison to a wrapped error": {
			a:      ErrMissingArg,
			b:      errors.Wrap(ErrTimeout, "too slow"),
			wantIs: false,
		},
		"not equal to stdlib error": {
			a:      ErrMissingArg,
			b:      fmt.Errorf("stdlib error"),
			wantIs: false,
		},
		"not equal to a wrapped stdlib error": {
			a:      ErrMissingArg,
			b:      errors.Wrap(fmt.Errorf("stdlib error"), "wrapped"),
			wantIs: false,
		},
		"nil is nil": {
			a:      nil,
			b:      nil,
			wantIs: true,
		},
		"nil is any error nil": {
			a:      nil,
			b:      (*customError)(nil),
			wantIs: true,
		},
		"nil is not a non-nil error": {
			a:      nil,
			b:      ErrCall,
			wantIs: false,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := tc.a.Is(tc.b); got != tc.wantIs {
				t.Fatal("unexpected result")
			}
		})
	}
}

type customError struct {
}

func (customError) Error() string {
	return "custom error"
}

func TestWrapEmpty(t *testing.T) {
	if err := Wrap(nil, "wrapping <nil>"); err != nil {
		t.Fatal(err)
	}
}

func TestWrappedIs(t *testing.T) {
	err := Wrap(ErrNotAllowed, "payload")
	if !ErrNotAllowed.Is(err) {
		t.Fatal("expected root error match")
	}

	err = Wrap(err, "outer")
	if !ErrNotAllowed.Is(err) {
		t.Fatal("expected root error match after second wrap")
	}

	err = errors.Wrap(err, "cannot confirm")
	if !ErrNotAllowed.Is(err) {
		t.Fatal("expected root error match after pkg/errors wrap")
	}
}

func TestWrappedErrorMessage(t *testing.T) {
	err := Wrap(ErrNotAvailable, "group account")
	const want = "group account: not available"
	if got := err.Error(); got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestStackTracePresent(t *testing.T) {
	err := Wrap(ErrUnexpected, "threshold above signer count")
	full := fmt.Sprintf("%+v", err)
	if !strings.Contains(full, "errors_test.go") {
		t.Fatalf("stack trace missing from: %s", full)
	}
}

func TestRecover(t *testing.T) {
	var err error
	func() {
		defer Recover(&err)
		panic("beyond repair")
	}()
	if !ErrPanic.Is(err) {
		t.Fatalf("want ErrPanic, got %+v", err)
	}
}
