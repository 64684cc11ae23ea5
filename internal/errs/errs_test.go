package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIs_MatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("User", "u1"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound match")
	}
	if errors.Is(err, ErrConflict) {
		t.Fatalf("unexpected ErrConflict match")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("KindOf = %v", KindOf(err))
	}
}

func TestConstructors_Codes(t *testing.T) {
	cases := []struct {
		err  *Error
		kind Kind
		code string
	}{
		{NotFound("Squad", "s1"), KindNotFound, "Squad.NotFound"},
		{Validation("Id", "Id is required"), KindValidation, "Validation.Id"},
		{Conflict("User", "dup"), KindConflict, "User.Conflict"},
		{Unauthorized(""), KindUnauthorized, "Auth.Unauthorized"},
		{Forbidden(""), KindForbidden, "Auth.Forbidden"},
		{Database("boom", nil), KindDatabase, "Database.Error"},
		{External("LeetCode", "down"), KindExternal, "External.LeetCode"},
		{NullValue, KindNullValue, "Error.NullValue"},
		{Canceled(context.Canceled), KindCanceled, "Request.Canceled"},
	}
	for _, tc := range cases {
		if tc.err.Kind != tc.kind || tc.err.Code != tc.code {
			t.Fatalf("got %v/%q; want %v/%q", tc.err.Kind, tc.err.Code, tc.kind, tc.code)
		}
		if tc.err.IsNone() {
			t.Fatalf("%q must not be None", tc.code)
		}
		if tc.err.Description == "" {
			t.Fatalf("%q has empty description", tc.code)
		}
	}
}

func TestNotFound_Description(t *testing.T) {
	if got := NotFound("User", "abc").Description; got != "User with ID 'abc' was not found." {
		t.Fatalf("description = %q", got)
	}
}

func TestNone(t *testing.T) {
	if !None.IsNone() {
		t.Fatalf("None.IsNone() = false")
	}
	if KindOf(nil) != KindNone {
		t.Fatalf("nil error should be KindNone")
	}
}

func TestUnwrap_KeepsCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Database("write failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable")
	}
	if !errors.Is(err, ErrDatabase) {
		t.Fatalf("kind sentinel not matched")
	}
	if !errors.Is(Canceled(context.DeadlineExceeded), context.DeadlineExceeded) {
		t.Fatalf("deadline cause not reachable")
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if KindOf(errors.New("x")) != KindInternal {
		t.Fatalf("plain errors should be KindInternal")
	}
	if _, ok := As(errors.New("x")); ok {
		t.Fatalf("As should fail for plain errors")
	}
	if e, ok := As(fmt.Errorf("w: %w", Forbidden("no"))); !ok || e.Kind != KindForbidden {
		t.Fatalf("As failed: %v %v", e, ok)
	}
}

func TestKindString(t *testing.T) {
	if KindConflict.String() != "conflict" || Kind(200).String() != "kind(200)" {
		t.Fatalf("unexpected kind strings")
	}
}
