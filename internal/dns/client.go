// internal/dns/client.go
//
// DNS-provider contract consumed by the domain lifecycle.
//
// Context
// -------
// The lifecycle and reconciler drive an external provider that cannot take
// part in local transactions.  Every call must therefore be safe to repeat:
// CreateRecord with the same idempotency key returns the existing record
// instead of making a second one, and DeleteRecord treats an already-absent
// record as success.  The concrete Cloudflare client lives in cloudflare.go;
// tests inject fakes.
package dns

import "context"

// RecordStatus is the provider-reported state of one external record.
type RecordStatus string

const (
	StatusPending  RecordStatus = "pending"
	StatusActive   RecordStatus = "active"
	StatusRejected RecordStatus = "rejected"
)

// ProviderClient is the minimal surface the saga needs.  Implementations
// must classify their errors with fault.ProviderErr so the caller can tell
// retryable outages from permanent rejections.
type ProviderClient interface {
	// CreateRecord provisions the external record routing name to the
	// platform and returns an opaque record reference.  Calls repeated
	// with the same idempotency key must not create duplicates.
	CreateRecord(ctx context.Context, name, idempotencyKey string) (string, error)

	// RecordStatus reports the provider-side state of a record.
	RecordStatus(ctx context.Context, ref string) (RecordStatus, error)

	// DeleteRecord removes the external record.  Deleting a record that
	// no longer exists is success.
	DeleteRecord(ctx context.Context, ref string) error
}
