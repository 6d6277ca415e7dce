package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_Classification(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{NewValidationError("bad input"), ErrorKindValidation},
		{NewNotFoundError("missing"), ErrorKindNotFound},
		{NewConflictError("already first"), ErrorKindConflict},
		{NewUpstreamError("api down", errors.New("dial tcp")), ErrorKindUpstream},
		{NewPartialError("2 of 5 days failed"), ErrorKindPartial},
		{ErrorRecordNotFound, ErrorKindNotFound},
		{errors.New("Error 1205: Lock wait timeout exceeded"), ErrorKindInternal},
		{fmt.Errorf("tx failed: %w", errors.New("driver: bad connection")), ErrorKindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("list scenes: %w", NewUpstreamError("api error 502", nil))
	if got := KindOf(wrapped); got != ErrorKindUpstream {
		t.Fatalf("KindOf(wrapped) = %s, want UPSTREAM", got)
	}
}

func TestAppError_MessageIncludesCause(t *testing.T) {
	err := NewUpstreamError("api unreachable", errors.New("connection refused"))
	if err.Error() != "api unreachable: connection refused" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2026-09-01", "2026-09-30")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Contains(r.Start) || !r.Contains(r.End) {
		t.Fatal("range must include both bounds")
	}

	if _, err := ParseDateRange("2026-09-30", "2026-09-01"); err == nil {
		t.Fatal("inverted range must be rejected")
	}
	if _, err := ParseDateRange("Sep 1", "2026-09-30"); err == nil {
		t.Fatal("malformed start date must be rejected")
	}
}
