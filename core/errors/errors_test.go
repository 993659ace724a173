package errors

import (
	stderrors "errors"
	"testing"
)

func TestWrapRoundTrip(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, CategoryIOFailure, "io_write_failed", "check directory permissions", true)
	if err == nil {
		t.Fatal("expected wrapped error")
	}
	if CategoryOf(err) != CategoryIOFailure {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
	if CodeOf(err) != "io_write_failed" {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if HintOf(err) != "check directory permissions" {
		t.Fatalf("unexpected hint: %s", HintOf(err))
	}
	if !RetryableOf(err) {
		t.Fatal("expected retryable true")
	}
	if !stderrors.Is(err, base) {
		t.Fatal("expected wrapped error to preserve cause")
	}
}

func TestUnknownErrorDefaults(t *testing.T) {
	err := stderrors.New("plain")
	if CategoryOf(err) != "" {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
	if CodeOf(err) != "" {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if HintOf(err) != "" {
		t.Fatalf("unexpected hint: %s", HintOf(err))
	}
	if RetryableOf(err) {
		t.Fatal("unexpected retryable true")
	}
}

func TestWrapNilCauseReturnsNil(t *testing.T) {
	if got := Wrap(nil, CategoryInternalFailure, "internal_failure", "retry later", false); got != nil {
		t.Fatalf("expected nil wrapped error, got=%v", got)
	}
}

func TestClassifiedErrorNilCauseDefaults(t *testing.T) {
	err := &classifiedError{
		category:  CategoryVerification,
		code:      "signature_invalid",
		hint:      "re-run sign with a matching key",
		retryable: false,
	}
	if err.Error() != "unknown error" {
		t.Fatalf("unexpected error text: %s", err.Error())
	}
	if err.Unwrap() != nil {
		t.Fatal("expected nil unwrap for missing cause")
	}
}
