package invoicing

import (
	"time"

	"github.com/garage/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeInvoice = "Invoice"

// Event type constants
const (
	EventTypeInvoiceCreated = "InvoiceCreated"
	EventTypeInvoiceIssued  = "InvoiceIssued"
	EventTypeInvoicePaid    = "InvoicePaid"
	EventTypeInvoiceVoided  = "InvoiceVoided"
)

// InvoiceCreatedEvent is raised when a new draft invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	ClientID  uuid.UUID `json:"client_id"`
	Series    string    `json:"series"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		ClientID:        inv.ClientID,
		Series:          inv.Series,
	}
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return EventTypeInvoiceCreated
}

// InvoiceIssuedEvent is raised when an invoice receives its fiscal number
// and fingerprint. Downstream consumers (PDF rendering, notification) key
// off this event.
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID           uuid.UUID       `json:"invoice_id"`
	Number              string          `json:"number"`
	ClientID            uuid.UUID       `json:"client_id"`
	IssueDate           time.Time       `json:"issue_date"`
	BaseTotal           decimal.Decimal `json:"base_total"`
	TaxTotal            decimal.Decimal `json:"tax_total"`
	GrandTotal          decimal.Decimal `json:"grand_total"`
	Fingerprint         string          `json:"fingerprint"`
	PreviousFingerprint *string         `json:"previous_fingerprint,omitempty"`
}

// NewInvoiceIssuedEvent creates a new InvoiceIssuedEvent
func NewInvoiceIssuedEvent(inv *Invoice) *InvoiceIssuedEvent {
	totals := inv.Totals()
	return &InvoiceIssuedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeInvoiceIssued, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:           inv.ID,
		Number:              inv.FormattedNumber(),
		ClientID:            inv.ClientID,
		IssueDate:           *inv.IssueDate,
		BaseTotal:           totals.BaseTotal.Amount(),
		TaxTotal:            totals.TaxTotal.Amount(),
		GrandTotal:          totals.GrandTotal.Amount(),
		Fingerprint:         inv.Fingerprint,
		PreviousFingerprint: inv.PreviousFingerprint,
	}
}

// EventType returns the event type name
func (e *InvoiceIssuedEvent) EventType() string {
	return EventTypeInvoiceIssued
}

// InvoicePaidEvent is raised when an invoice is paid
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Number     string          `json:"number"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		Number:          inv.FormattedNumber(),
		GrandTotal:      inv.Totals().GrandTotal.Amount(),
	}
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return EventTypeInvoicePaid
}

// InvoiceVoidedEvent is raised when an invoice is voided
type InvoiceVoidedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Number    string    `json:"number"`
	Reason    string    `json:"reason"`
}

// NewInvoiceVoidedEvent creates a new InvoiceVoidedEvent
func NewInvoiceVoidedEvent(inv *Invoice, reason string) *InvoiceVoidedEvent {
	return &InvoiceVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceVoided, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		Number:          inv.FormattedNumber(),
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *InvoiceVoidedEvent) EventType() string {
	return EventTypeInvoiceVoided
}
