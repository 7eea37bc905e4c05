package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := New(Conflict, "website.create", "name %q taken", "Shop")
	wrapped := fmt.Errorf("handler: %w", base)

	if got := KindOf(wrapped); got != Conflict {
		t.Fatalf("KindOf = %s, want %s", got, Conflict)
	}
	if KindOf(errors.New("plain")) != Internal {
		t.Fatal("plain error should map to Internal")
	}
	if !Is(wrapped, Conflict) {
		t.Fatal("Is(wrapped, Conflict) = false")
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable provider", ProviderErr("dns.create", errors.New("503"), true), true},
		{"permanent provider", ProviderErr("dns.create", errors.New("401"), false), false},
		{"conflict is never retried", New(Conflict, "domain.request", "busy"), false},
		{"unclassified defaults to retryable", errors.New("dial tcp: timeout"), true},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("row missing")
	err := Wrap(NotFound, "page.resolve", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable via errors.Is")
	}
}
