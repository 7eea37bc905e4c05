package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusVerifying, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusActive, false},
		{StatusVerifying, StatusActive, true},
		{StatusVerifying, StatusFailed, true},
		{StatusVerifying, StatusPending, false},
		{StatusActive, StatusDeleting, true},
		{StatusActive, StatusFailed, false},
		{StatusFailed, StatusPending, true},
		{StatusFailed, StatusDeleting, true},
		{StatusFailed, StatusActive, false},
		{StatusDeleting, StatusPending, false},
		{StatusDeleting, StatusFailed, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestBusy(t *testing.T) {
	busy := map[Status]bool{
		StatusPending:   true,
		StatusVerifying: true,
		StatusDeleting:  true,
		StatusActive:    false,
		StatusFailed:    false,
	}
	for st, want := range busy {
		if got := st.Busy(); got != want {
			t.Errorf("%s.Busy(): got %v, want %v", st, got, want)
		}
	}
}

func TestIdempotencyKeyStable(t *testing.T) {
	a := Record{ID: 42}
	if a.IdempotencyKey() != "dom-42" {
		t.Fatalf("unexpected key %q", a.IdempotencyKey())
	}
	if a.IdempotencyKey() != a.IdempotencyKey() {
		t.Fatal("key must be stable across calls")
	}
}
