package invoicing

import (
	"time"

	"github.com/garage/backend/internal/domain/invoicing"
	"github.com/google/uuid"
)

// InvoiceResponse represents an invoice in API responses. Monetary fields
// render as fixed two-decimal strings, matching the printed document.
type InvoiceResponse struct {
	ID                  uuid.UUID          `json:"id"`
	TenantID            uuid.UUID          `json:"tenant_id"`
	Series              string             `json:"series"`
	Number              string             `json:"number,omitempty"`
	Status              string             `json:"status"`
	ClientID            uuid.UUID          `json:"client_id"`
	ClientTaxID         string             `json:"client_tax_id"`
	SourceOrderID       *uuid.UUID         `json:"source_order_id,omitempty"`
	IssueDate           *time.Time         `json:"issue_date,omitempty"`
	DueDate             *time.Time         `json:"due_date,omitempty"`
	Lines               []LineItemResponse `json:"lines"`
	WithholdingPercent  string             `json:"withholding_percent"`
	Totals              TotalsResponse     `json:"totals"`
	Fingerprint         string             `json:"fingerprint,omitempty"`
	PreviousFingerprint *string            `json:"previous_fingerprint,omitempty"`
	IssuedBy            *uuid.UUID         `json:"issued_by,omitempty"`
	IssuedAt            *time.Time         `json:"issued_at,omitempty"`
	PaidAt              *time.Time         `json:"paid_at,omitempty"`
	VoidedBy            *uuid.UUID         `json:"voided_by,omitempty"`
	VoidedAt            *time.Time         `json:"voided_at,omitempty"`
	VoidReason          string             `json:"void_reason,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
	Version             int                `json:"version"`
}

// LineItemResponse represents an invoice line in API responses
type LineItemResponse struct {
	ID              uuid.UUID `json:"id"`
	Kind            string    `json:"kind"`
	Description     string    `json:"description"`
	Quantity        string    `json:"quantity"`
	UnitPrice       string    `json:"unit_price"`
	DiscountPercent string    `json:"discount_percent"`
	DiscountAmount  string    `json:"discount_amount"`
	TaxPercent      string    `json:"tax_percent"`
	Subtotal        string    `json:"subtotal"`
	Discount        string    `json:"discount"`
	TaxableBase     string    `json:"taxable_base"`
	Tax             string    `json:"tax"`
	Total           string    `json:"total"`
}

// TotalsResponse represents the invoice-level rollup in API responses
type TotalsResponse struct {
	BaseTotal         string `json:"base_total"`
	TaxTotal          string `json:"tax_total"`
	WithholdingAmount string `json:"withholding_amount"`
	GrandTotal        string `json:"grand_total"`
}

// LedgerStatusResponse reports a tenant's issuance freeze state
type LedgerStatusResponse struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Frozen   bool      `json:"frozen"`
}

func toInvoiceResponse(inv *invoicing.Invoice) *InvoiceResponse {
	totals := inv.Totals()

	lines := make([]LineItemResponse, len(inv.Lines))
	for i := range inv.Lines {
		lines[i] = toLineItemResponse(&inv.Lines[i])
	}

	return &InvoiceResponse{
		ID:                  inv.ID,
		TenantID:            inv.TenantID,
		Series:              inv.Series,
		Number:              inv.FormattedNumber(),
		Status:              inv.Status.String(),
		ClientID:            inv.ClientID,
		ClientTaxID:         inv.ClientTaxID,
		SourceOrderID:       inv.SourceOrderID,
		IssueDate:           inv.IssueDate,
		DueDate:             inv.DueDate,
		Lines:               lines,
		WithholdingPercent:  inv.WithholdingPercent.String(),
		Totals:              toTotalsResponse(totals),
		Fingerprint:         inv.Fingerprint,
		PreviousFingerprint: inv.PreviousFingerprint,
		IssuedBy:            inv.IssuedBy,
		IssuedAt:            inv.IssuedAt,
		PaidAt:              inv.PaidAt,
		VoidedBy:            inv.VoidedBy,
		VoidedAt:            inv.VoidedAt,
		VoidReason:          inv.VoidReason,
		CreatedAt:           inv.CreatedAt,
		UpdatedAt:           inv.UpdatedAt,
		Version:             inv.Version,
	}
}

func toLineItemResponse(line *invoicing.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:              line.ID,
		Kind:            line.Kind.String(),
		Description:     line.Description,
		Quantity:        line.Quantity.String(),
		UnitPrice:       line.UnitPrice.String(),
		DiscountPercent: line.DiscountPercent.String(),
		DiscountAmount:  line.DiscountAmount.String(),
		TaxPercent:      line.TaxPercent.String(),
		Subtotal:        line.Subtotal().StringFixed(2),
		Discount:        line.Discount().StringFixed(2),
		TaxableBase:     line.TaxableBase().StringFixed(2),
		Tax:             line.Tax().StringFixed(2),
		Total:           line.Total().StringFixed(2),
	}
}

func toTotalsResponse(totals invoicing.InvoiceTotals) TotalsResponse {
	return TotalsResponse{
		BaseTotal:         totals.BaseTotal.StringFixed(2),
		TaxTotal:          totals.TaxTotal.StringFixed(2),
		WithholdingAmount: totals.WithholdingAmount.StringFixed(2),
		GrandTotal:        totals.GrandTotal.StringFixed(2),
	}
}
