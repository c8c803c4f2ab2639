package models

import (
	"time"

	"github.com/garage/backend/internal/domain/invoicing"
	"github.com/garage/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
// The document number is stored twice: the formatted string for lookups and
// uniqueness, and the structured parts for in-partition ordering. Opaque
// legacy numbers keep only the raw string.
type InvoiceModel struct {
	TenantAggregateModel
	Series              string                  `gorm:"type:varchar(3);not null;index"`
	Number              *string                 `gorm:"type:varchar(50);uniqueIndex:idx_invoice_tenant_number,priority:2"`
	NumberYear          *int                    `gorm:"index"`
	NumberSequence      *int
	NumberIsOpaque      bool                    `gorm:"not null;default:false"`
	Status              invoicing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ClientID            uuid.UUID               `gorm:"type:uuid;not null;index"`
	ClientTaxID         string                  `gorm:"type:varchar(30);not null"`
	SourceOrderID       *uuid.UUID              `gorm:"type:uuid;index"`
	IssueDate           *time.Time              `gorm:"index"`
	DueDate             *time.Time
	Lines               invoicing.LineItems     `gorm:"type:jsonb;default:'[]'"`
	WithholdingPercent  valueobject.Percentage  `gorm:"type:decimal(7,4);not null;default:0"`
	Fingerprint         string                  `gorm:"type:char(64)"`
	PreviousFingerprint *string                 `gorm:"type:char(64)"`
	IssuedBy            *uuid.UUID              `gorm:"type:uuid"`
	IssuedAt            *time.Time              `gorm:"index"`
	PaidAt              *time.Time
	VoidedBy            *uuid.UUID              `gorm:"type:uuid"`
	VoidedAt            *time.Time
	VoidReason          string                  `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	inv := &invoicing.Invoice{
		Series:              m.Series,
		Number:              m.documentNumber(),
		Status:              m.Status,
		ClientID:            m.ClientID,
		ClientTaxID:         m.ClientTaxID,
		SourceOrderID:       m.SourceOrderID,
		IssueDate:           m.IssueDate,
		DueDate:             m.DueDate,
		Lines:               m.Lines,
		WithholdingPercent:  m.WithholdingPercent,
		Fingerprint:         m.Fingerprint,
		PreviousFingerprint: m.PreviousFingerprint,
		IssuedBy:            m.IssuedBy,
		IssuedAt:            m.IssuedAt,
		PaidAt:              m.PaidAt,
		VoidedBy:            m.VoidedBy,
		VoidedAt:            m.VoidedAt,
		VoidReason:          m.VoidReason,
	}
	m.PopulateTenantAggregateRoot(&inv.TenantAggregateRoot)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.Series = inv.Series
	m.Status = inv.Status
	m.ClientID = inv.ClientID
	m.ClientTaxID = inv.ClientTaxID
	m.SourceOrderID = inv.SourceOrderID
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.Lines = inv.Lines
	m.WithholdingPercent = inv.WithholdingPercent
	m.Fingerprint = inv.Fingerprint
	m.PreviousFingerprint = inv.PreviousFingerprint
	m.IssuedBy = inv.IssuedBy
	m.IssuedAt = inv.IssuedAt
	m.PaidAt = inv.PaidAt
	m.VoidedBy = inv.VoidedBy
	m.VoidedAt = inv.VoidedAt
	m.VoidReason = inv.VoidReason

	m.Number = nil
	m.NumberYear = nil
	m.NumberSequence = nil
	m.NumberIsOpaque = false
	if inv.Number != nil {
		formatted := inv.Number.String()
		m.Number = &formatted
		if inv.Number.IsOpaque() {
			m.NumberIsOpaque = true
		} else {
			year := inv.Number.Year()
			sequence := inv.Number.Sequence()
			m.NumberYear = &year
			m.NumberSequence = &sequence
		}
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

func (m *InvoiceModel) documentNumber() *invoicing.DocumentNumber {
	if m.Number == nil {
		return nil
	}
	if !m.NumberIsOpaque && m.NumberYear != nil && m.NumberSequence != nil {
		if n, err := invoicing.NewDocumentNumber(m.Series, *m.NumberYear, *m.NumberSequence); err == nil {
			return &n
		}
	}
	if n, err := invoicing.NewOpaqueDocumentNumber(*m.Number); err == nil {
		return &n
	}
	return nil
}

// SequenceCounterModel is the persistence model for one numbering partition.
// The composite key is the partition identity; last_sequence only ever moves
// forward, through a single atomic upsert-increment statement.
type SequenceCounterModel struct {
	TenantID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Series       string    `gorm:"type:varchar(3);primaryKey"`
	FiscalYear   int       `gorm:"primaryKey"`
	LastSequence int       `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SequenceCounterModel) TableName() string {
	return "sequence_counters"
}

// LedgerStateModel is the persistence model for per-tenant ledger state.
// The row doubles as the serialization point for issuance: issuing
// transactions take a row lock on it before reading the chain head.
type LedgerStateModel struct {
	TenantID     uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Frozen       bool       `gorm:"not null;default:false"`
	FrozenReason string     `gorm:"type:varchar(1000)"`
	FrozenAt     *time.Time
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerStateModel) TableName() string {
	return "ledger_states"
}
