package invoicing

import (
	"fmt"
	"time"

	"github.com/garage/backend/internal/domain/shared"
	"github.com/garage/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "DRAFT"
	InvoiceStatusIssued InvoiceStatus = "ISSUED"
	InvoiceStatusPaid   InvoiceStatus = "PAID"
	InvoiceStatusVoid   InvoiceStatus = "VOID"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// No edge ever returns to an earlier state.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return target == InvoiceStatusIssued
	case InvoiceStatusIssued:
		return target == InvoiceStatusPaid || target == InvoiceStatusVoid
	case InvoiceStatusPaid, InvoiceStatusVoid:
		return false // Terminal states
	}
	return false
}

// IsNumbered reports whether documents in this status carry a fiscal number
func (s InvoiceStatus) IsNumbered() bool {
	return s == InvoiceStatusIssued || s == InvoiceStatusPaid || s == InvoiceStatusVoid
}

// ErrAlreadyPaid signals MarkPaid on an invoice that is already paid.
// Surfaced explicitly rather than as a silent no-op so callers can
// distinguish a duplicate payment confirmation from the first one.
var ErrAlreadyPaid = shared.NewDomainError("ALREADY_PAID", "Invoice is already marked as paid")

// Invoice is the fiscal document aggregate root. While Draft its lines may
// be edited freely; issuance assigns the number and fingerprint and freezes
// every fiscal field permanently. Invoices are never deleted: void is an
// annotation that keeps the document, its number and its fingerprint on
// record so the tenant's hash chain stays verifiable.
type Invoice struct {
	shared.TenantAggregateRoot
	Series              string
	Number              *DocumentNumber
	Status              InvoiceStatus
	ClientID            uuid.UUID
	ClientTaxID         string
	SourceOrderID       *uuid.UUID
	IssueDate           *time.Time
	DueDate             *time.Time
	Lines               LineItems
	WithholdingPercent  valueobject.Percentage
	Fingerprint         string
	PreviousFingerprint *string
	IssuedBy            *uuid.UUID
	IssuedAt            *time.Time
	PaidAt              *time.Time
	VoidedBy            *uuid.UUID
	VoidedAt            *time.Time
	VoidReason          string
}

// NewDraftInvoice creates a new invoice in Draft status. Lines may be empty
// at creation and added incrementally; they are only required at issuance.
func NewDraftInvoice(tenantID, clientID, createdBy uuid.UUID, clientTaxID, series string) (*Invoice, error) {
	if clientID == uuid.Nil {
		return nil, shared.NewValidationError("Client ID cannot be empty")
	}
	if clientTaxID == "" {
		return nil, shared.NewValidationError("Client tax ID cannot be empty")
	}
	if !seriesPattern.MatchString(series) {
		return nil, shared.NewValidationError("Series must be 1-3 uppercase letters")
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		Series:              series,
		Status:              InvoiceStatusDraft,
		ClientID:            clientID,
		ClientTaxID:         clientTaxID,
		Lines:               make(LineItems, 0),
		WithholdingPercent:  valueobject.ZeroPercent(),
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// AddLine adds a new line item. Legal only while Draft.
func (inv *Invoice) AddLine(p LineItemParams) (*LineItem, error) {
	if err := inv.requireDraft("add lines"); err != nil {
		return nil, err
	}

	line, err := NewLineItem(p)
	if err != nil {
		return nil, err
	}

	inv.Lines = append(inv.Lines, *line)
	inv.UpdatedAt = time.Now()

	return line, nil
}

// UpdateLine replaces the fields of an existing line. Legal only while Draft.
func (inv *Invoice) UpdateLine(lineID uuid.UUID, p LineItemParams) error {
	if err := inv.requireDraft("edit lines"); err != nil {
		return err
	}

	for idx := range inv.Lines {
		if inv.Lines[idx].ID == lineID {
			if err := inv.Lines[idx].Update(p); err != nil {
				return err
			}
			inv.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("LINE_NOT_FOUND", "Invoice line not found")
}

// RemoveLine removes a line item. Legal only while Draft.
func (inv *Invoice) RemoveLine(lineID uuid.UUID) error {
	if err := inv.requireDraft("remove lines"); err != nil {
		return err
	}

	for idx, line := range inv.Lines {
		if line.ID == lineID {
			inv.Lines = append(inv.Lines[:idx], inv.Lines[idx+1:]...)
			inv.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("LINE_NOT_FOUND", "Invoice line not found")
}

// SetWithholding sets the withholding rate. Legal only while Draft.
func (inv *Invoice) SetWithholding(p valueobject.Percentage) error {
	if err := inv.requireDraft("change withholding"); err != nil {
		return err
	}
	inv.WithholdingPercent = p
	inv.UpdatedAt = time.Now()
	return nil
}

// SetDueDate sets the payment due date. Legal only while Draft.
func (inv *Invoice) SetDueDate(due *time.Time) error {
	if err := inv.requireDraft("change the due date"); err != nil {
		return err
	}
	inv.DueDate = due
	inv.UpdatedAt = time.Now()
	return nil
}

// SetSourceOrder links the invoice to the repair order it bills. Legal only while Draft.
func (inv *Invoice) SetSourceOrder(orderID uuid.UUID) error {
	if err := inv.requireDraft("change the source order"); err != nil {
		return err
	}
	if orderID == uuid.Nil {
		return shared.NewValidationError("Source order ID cannot be empty")
	}
	inv.SourceOrderID = &orderID
	inv.UpdatedAt = time.Now()
	return nil
}

// Issue applies the irreversible issuance effects: the allocated number,
// the computed fingerprint and its link to the previous document, and the
// transition to Issued. The caller (the issue use case) obtains the number
// from the sequence allocator and the fingerprint from ComputeFingerprint
// inside one atomic unit of work; Issue itself only guards and applies.
func (inv *Invoice) Issue(number DocumentNumber, fingerprint string, previousFingerprint *string, issuedAt time.Time, issuedBy uuid.UUID) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot issue invoice in %s status", inv.Status))
	}
	if len(inv.Lines) == 0 {
		return shared.NewBusinessRuleError("Cannot issue an invoice without lines")
	}
	if inv.Number != nil {
		return shared.NewBusinessRuleError("Invoice already carries a fiscal number")
	}
	if number.IsZero() {
		return shared.NewValidationError("Document number cannot be empty")
	}
	if number.IsOpaque() {
		return shared.NewValidationError("Issued invoices must carry a structured document number")
	}
	if fingerprint == "" {
		return shared.NewValidationError("Fingerprint cannot be empty")
	}
	if issuedBy == uuid.Nil {
		return shared.NewValidationError("Issuing user cannot be empty")
	}

	inv.Number = &number
	inv.Fingerprint = fingerprint
	inv.PreviousFingerprint = previousFingerprint
	inv.Status = InvoiceStatusIssued
	inv.IssueDate = &issuedAt
	inv.IssuedAt = &issuedAt
	inv.IssuedBy = &issuedBy
	inv.UpdatedAt = issuedAt

	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))

	return nil
}

// MarkPaid records payment. Legal only from Issued; re-invoking on a paid
// invoice returns ErrAlreadyPaid. Number and fingerprint stay untouched.
func (inv *Invoice) MarkPaid(userID uuid.UUID) error {
	if inv.Status == InvoiceStatusPaid {
		return ErrAlreadyPaid
	}
	if !inv.Status.CanTransitionTo(InvoiceStatusPaid) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot mark invoice paid in %s status", inv.Status))
	}
	if userID == uuid.Nil {
		return shared.NewValidationError("User cannot be empty")
	}

	now := time.Now()
	inv.Status = InvoiceStatusPaid
	inv.PaidAt = &now
	inv.UpdatedAt = now

	inv.AddDomainEvent(NewInvoicePaidEvent(inv))

	return nil
}

// Void annotates the invoice as void. Legal only from Issued: drafts are
// discarded rather than voided, and paid invoices require a rectification
// document workflow instead. The document, its number and its fingerprint
// remain on record permanently - removing a link would break every
// subsequent fingerprint check in the tenant's chain.
func (inv *Invoice) Void(reason string, userID uuid.UUID) error {
	if !inv.Status.CanTransitionTo(InvoiceStatusVoid) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot void invoice in %s status", inv.Status))
	}
	if reason == "" {
		return shared.NewValidationError("Void reason is required")
	}
	if userID == uuid.Nil {
		return shared.NewValidationError("User cannot be empty")
	}

	now := time.Now()
	inv.Status = InvoiceStatusVoid
	inv.VoidReason = reason
	inv.VoidedBy = &userID
	inv.VoidedAt = &now
	inv.UpdatedAt = now

	inv.AddDomainEvent(NewInvoiceVoidedEvent(inv, reason))

	return nil
}

// Totals returns the invoice-level rollup of its lines
func (inv *Invoice) Totals() InvoiceTotals {
	return CalculateTotals(inv.Lines, inv.WithholdingPercent)
}

// FormattedNumber returns the display form of the number, empty while Draft
func (inv *Invoice) FormattedNumber() string {
	if inv.Number == nil {
		return ""
	}
	return inv.Number.String()
}

// IsDraft returns true if the invoice is in draft status
func (inv *Invoice) IsDraft() bool {
	return inv.Status == InvoiceStatusDraft
}

// IsIssued returns true if the invoice is issued
func (inv *Invoice) IsIssued() bool {
	return inv.Status == InvoiceStatusIssued
}

// IsPaid returns true if the invoice is paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsVoid returns true if the invoice is void
func (inv *Invoice) IsVoid() bool {
	return inv.Status == InvoiceStatusVoid
}

// LineCount returns the number of lines on the invoice
func (inv *Invoice) LineCount() int {
	return len(inv.Lines)
}

// GetLine returns a line by its ID
func (inv *Invoice) GetLine(lineID uuid.UUID) *LineItem {
	for idx := range inv.Lines {
		if inv.Lines[idx].ID == lineID {
			return &inv.Lines[idx]
		}
	}
	return nil
}

func (inv *Invoice) requireDraft(action string) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot %s on an invoice in %s status", action, inv.Status))
	}
	return nil
}
