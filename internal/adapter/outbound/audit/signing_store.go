package audit

import (
	"context"
	"fmt"

	domainaudit "github.com/xacmlgo/pdp/internal/domain/audit"
)

// Signer produces a detached JWS signature over arbitrary bytes.
// Satisfied by jws.Signer; declared locally so this package does not
// import the signing mechanism's implementation details.
type Signer interface {
	Sign(payload []byte) (string, error)
}

// SigningStore decorates another audit.AuditStore, populating each
// record's Signature field before delegating to the wrapped store.
// Signing is a property of the record, not of how it's batched, so it
// sits between AuditService and the physical store.
type SigningStore struct {
	inner  domainaudit.AuditStore
	signer Signer
}

// NewSigningStore wraps inner so every Append signs records in place
// before delegating.
func NewSigningStore(inner domainaudit.AuditStore, signer Signer) *SigningStore {
	return &SigningStore{inner: inner, signer: signer}
}

// Append signs each record's canonical encoding, then delegates to the
// wrapped store. A signing failure aborts the whole batch rather than
// persisting a partially-signed audit trail silently.
func (s *SigningStore) Append(ctx context.Context, records ...domainaudit.AuditRecord) error {
	signed := make([]domainaudit.AuditRecord, len(records))
	for i, rec := range records {
		payload, err := rec.CanonicalBytes()
		if err != nil {
			return fmt.Errorf("audit: canonicalize record: %w", err)
		}
		sig, err := s.signer.Sign(payload)
		if err != nil {
			return fmt.Errorf("audit: sign record: %w", err)
		}
		rec.Signature = sig
		signed[i] = rec
	}
	return s.inner.Append(ctx, signed...)
}

// Flush delegates to the wrapped store.
func (s *SigningStore) Flush(ctx context.Context) error { return s.inner.Flush(ctx) }

// Close delegates to the wrapped store.
func (s *SigningStore) Close() error { return s.inner.Close() }

// Compile-time interface verification.
var _ domainaudit.AuditStore = (*SigningStore)(nil)
