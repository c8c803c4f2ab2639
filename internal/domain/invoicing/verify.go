package invoicing

import (
	"fmt"

	"github.com/google/uuid"
)

// ChainRecord is the audit projection of one issued document: its chain
// fields plus the fingerprints recorded at issuance, in creation order.
type ChainRecord struct {
	InvoiceID           uuid.UUID
	Fields              ChainFields
	Fingerprint         string
	PreviousFingerprint *string
}

// ChainViolation describes the first break found in a tenant's ledger
type ChainViolation struct {
	Index     int
	InvoiceID uuid.UUID
	Reason    string
}

func (v *ChainViolation) String() string {
	return fmt.Sprintf("chain violation at position %d (invoice %s): %s", v.Index, v.InvoiceID, v.Reason)
}

// VerifyChain recomputes every fingerprint of a tenant's issued documents in
// creation order and checks each recorded previous-fingerprint link against
// the prior document's fingerprint. A nil result means the ledger is intact;
// any violation signals deletion, reordering or post-hoc editing and must
// halt further issuance for the tenant pending manual review.
func VerifyChain(records []ChainRecord) *ChainViolation {
	var prev *string

	for i := range records {
		r := &records[i]

		switch {
		case i == 0 && r.PreviousFingerprint != nil:
			return &ChainViolation{
				Index:     i,
				InvoiceID: r.InvoiceID,
				Reason:    "first document must not reference a previous fingerprint",
			}
		case i > 0 && r.PreviousFingerprint == nil:
			return &ChainViolation{
				Index:     i,
				InvoiceID: r.InvoiceID,
				Reason:    "document does not reference the previous fingerprint",
			}
		case i > 0 && *r.PreviousFingerprint != *prev:
			return &ChainViolation{
				Index:     i,
				InvoiceID: r.InvoiceID,
				Reason:    "previous fingerprint does not match the prior document",
			}
		}

		if recomputed := ComputeFingerprint(r.Fields, r.PreviousFingerprint); recomputed != r.Fingerprint {
			return &ChainViolation{
				Index:     i,
				InvoiceID: r.InvoiceID,
				Reason:    "recorded fingerprint does not match recomputation",
			}
		}

		prev = &r.Fingerprint
	}

	return nil
}
