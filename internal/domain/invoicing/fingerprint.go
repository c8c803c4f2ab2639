package invoicing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/garage/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fingerprintDelimiter joins the fiscally relevant fields before hashing.
// The field order and delimiter are part of the chain format and must never
// change for already-issued documents.
const fingerprintDelimiter = "|"

// ChainFields are the fiscally relevant fields bound into a document's
// fingerprint: everything a tax auditor would check, nothing presentational.
type ChainFields struct {
	TenantID    uuid.UUID
	Number      string
	IssueDate   time.Time
	TaxableBase decimal.Decimal
	TaxTotal    decimal.Decimal
	GrandTotal  decimal.Decimal
	ClientTaxID string
}

// BuildChainFields projects an invoice plus its allocated number and issue
// date into the fields covered by the fingerprint. For opaque legacy numbers
// the raw string is the authoritative input.
func BuildChainFields(inv *Invoice, number DocumentNumber, issueDate time.Time) ChainFields {
	totals := inv.Totals()
	return ChainFields{
		TenantID:    inv.TenantID,
		Number:      number.String(),
		IssueDate:   issueDate,
		TaxableBase: totals.BaseTotal.Amount(),
		TaxTotal:    totals.TaxTotal.Amount(),
		GrandTotal:  totals.GrandTotal.Amount(),
		ClientTaxID: inv.ClientTaxID,
	}
}

// ComputeFingerprint returns the SHA-256 digest, as uppercase hex, of the
// document's chain fields concatenated with the previous document's
// fingerprint. previous is nil for the tenant's first issued document.
//
// The function is pure and deterministic: identical inputs always yield the
// same digest, and changing any single field changes it completely. Field
// order: tenant id, formatted number, issue date (calendar date only),
// taxable base, tax total, grand total, client tax id, previous fingerprint.
// Amounts are rendered with exactly two decimals so scale changes cannot
// produce digest-neutral edits.
func ComputeFingerprint(f ChainFields, previous *string) string {
	prev := ""
	if previous != nil {
		prev = *previous
	}

	parts := []string{
		f.TenantID.String(),
		f.Number,
		f.IssueDate.Format("2006-01-02"),
		f.TaxableBase.StringFixed(valueobject.FiscalScale),
		f.TaxTotal.StringFixed(valueobject.FiscalScale),
		f.GrandTotal.StringFixed(valueobject.FiscalScale),
		f.ClientTaxID,
		prev,
	}

	digest := sha256.Sum256([]byte(strings.Join(parts, fingerprintDelimiter)))
	return strings.ToUpper(hex.EncodeToString(digest[:]))
}
