package feederr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapNilCauseYieldsNil(t *testing.T) {
	if err := Wrap(FetchFailed, "fetch failed", nil); err != nil {
		t.Fatalf("expected nil error for nil cause, got %v", err)
	}
}

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(FetchFailed, "fetch failed", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to match its cause")
	}

	if got := KindOf(err); got != FetchFailed {
		t.Fatalf("unexpected kind: got %v want %v", got, FetchFailed)
	}
}

func TestKindOfSurvivesFurtherWrapping(t *testing.T) {
	err := New(Conflict, "feed is already subscribed")
	outer := fmt.Errorf("add feed: %w", err)

	if got := KindOf(outer); got != Conflict {
		t.Fatalf("unexpected kind after wrapping: got %v want %v", got, Conflict)
	}

	if !IsKind(outer, Conflict) {
		t.Fatalf("expected IsKind to see through wrapping")
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != Internal {
		t.Fatalf("unexpected kind for untyped error: got %v", got)
	}
}

func TestMessageOf(t *testing.T) {
	err := Newf(NotFound, "feed %d not found", 42)
	if got := MessageOf(err); got != "feed 42 not found" {
		t.Fatalf("unexpected message: %q", got)
	}

	if got := MessageOf(errors.New("plain")); got != "internal error" {
		t.Fatalf("expected generic message for untyped error, got %q", got)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{FetchFailed, "fetch_failed"},
		{Timeout, "timeout"},
		{ParseFailed, "parse_failed"},
		{UpstreamError, "upstream_error"},
		{MissingCredential, "missing_credential"},
		{Unauthorized, "unauthorized"},
		{NotFound, "not_found"},
		{Conflict, "conflict"},
		{InvalidInput, "invalid_input"},
		{Internal, "internal"},
	}

	for _, test := range tests {
		if got := test.kind.String(); got != test.want {
			t.Errorf("unexpected string for kind %d: got %q want %q", test.kind, got, test.want)
		}
	}
}
