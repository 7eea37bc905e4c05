// internal/domain/model.go
//
// Domain entity and status machine.
//
// Context
// -------
// A Domain row tracks one custom DNS name and its external provider record.
// The row is born `pending`, reaches `active` once the provider confirms
// the record, and is deleted only after the external record is confirmed
// gone (`deleting` is the last persisted state; "removed" is the absence of
// the row).  `failed` is steady: the user re-requests the same name to
// re-arm the saga.  All transitions are owned by the Lifecycle and applied
// with compare-and-set updates, so at most one saga step is in flight per
// domain at any time.

package domain

import (
	"database/sql"
	"fmt"
	"time"
)

// Status is the persisted lifecycle state of one Domain.
type Status string

const (
	StatusPending   Status = "pending"
	StatusVerifying Status = "verifying"
	StatusActive    Status = "active"
	StatusFailed    Status = "failed"
	StatusDeleting  Status = "deleting"
)

// transitions lists the legal moves.  `deleting` has no successor state:
// its exit is row deletion.  `failed → pending` is the user-driven retry
// re-arm of the provisioning saga.
var transitions = map[Status][]Status{
	StatusPending:   {StatusVerifying, StatusFailed},
	StatusVerifying: {StatusActive, StatusFailed},
	StatusActive:    {StatusDeleting},
	StatusFailed:    {StatusDeleting, StatusPending},
	StatusDeleting:  {},
}

// CanTransition reports whether s → to is a legal move.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Busy reports whether a saga step is in flight for this status.  Busy
// domains reject new transitions and block website deletion.
func (s Status) Busy() bool {
	return s == StatusPending || s == StatusVerifying || s == StatusDeleting
}

// Record mirrors one row in the persistent `domain` table.
type Record struct {
	ID        uint64         `db:"id"`
	WebsiteID string         `db:"website_id"`
	Name      string         `db:"name"`
	Status    Status         `db:"status"`
	RecordRef sql.NullString `db:"record_ref"`
	LastError sql.NullString `db:"last_error"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// IdempotencyKey is the stable token sent with every provider call for
// this domain, so crash-retries and reconciler re-drives cannot create
// duplicate external records.
func (r *Record) IdempotencyKey() string {
	return fmt.Sprintf("dom-%d", r.ID)
}
