package invoicing

import (
	"context"
	"time"

	"github.com/garage/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	ClientID      *uuid.UUID     // Filter by client
	Status        *InvoiceStatus // Filter by lifecycle status
	Series        *string        // Filter by numbering series
	SourceOrderID *uuid.UUID     // Filter by billed repair order
	IssuedFrom    *time.Time     // Filter by issue date range start
	IssuedTo      *time.Time     // Filter by issue date range end
}

// InvoiceRepository defines the persistence contract for the invoice
// aggregate. Implementations enforce tenant isolation on every query and
// never hard-delete: a fiscal document row, once written, stays on record.
type InvoiceRepository interface {
	// FindByIDForTenant finds an invoice by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its formatted number for a tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Invoice, error)

	// FindAllForTenant finds all invoices for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// CountForTenant counts invoices for a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (int64, error)

	// Save creates or updates an invoice. It rejects structurally invalid
	// states (numbered status without number or fingerprint) and attempts
	// to overwrite the frozen fields of an already-issued row.
	Save(ctx context.Context, invoice *Invoice) error

	// MostRecentIssuedFingerprint returns the fingerprint of the most
	// recently created issued or paid document for the tenant, or nil if
	// the tenant has no issued documents yet. Void documents stay in the
	// chain and count as well.
	MostRecentIssuedFingerprint(ctx context.Context, tenantID uuid.UUID) (*string, error)

	// ChainRecordsForTenant returns the audit projection of every numbered
	// document for the tenant in creation order
	ChainRecordsForTenant(ctx context.Context, tenantID uuid.UUID) ([]ChainRecord, error)
}

// Allocation is the result of one sequence allocation
type Allocation struct {
	Sequence int
	Number   DocumentNumber
}

// SequenceAllocator allocates gap-free sequence numbers per
// (tenant, series, fiscal year) partition. For a fixed partition, repeated
// calls return a strictly increasing sequence with no gaps and no
// duplicates, even under concurrent callers across process boundaries.
// The allocation belongs to the enclosing transaction: if the transaction
// aborts, the increment rolls back and the number is handed out again on the
// next call. Callers should log aborted allocations for the audit trail.
type SequenceAllocator interface {
	Allocate(ctx context.Context, tenantID uuid.UUID, series string, fiscalYear int) (Allocation, error)
}

// LedgerStateRepository tracks per-tenant ledger state: the issuance freeze
// set when a chain verification finds a violation, and the per-tenant lock
// that serializes issuance so two concurrent documents can never both claim
// the same previous fingerprint.
type LedgerStateRepository interface {
	// LockForIssue takes the tenant's ledger row lock for the duration of
	// the surrounding transaction and reports whether issuance is frozen.
	// The row is created on first use.
	LockForIssue(ctx context.Context, tenantID uuid.UUID) (frozen bool, err error)

	// IsFrozen reports whether issuance is frozen for the tenant
	IsFrozen(ctx context.Context, tenantID uuid.UUID) (bool, error)

	// Freeze halts further issuance for the tenant pending manual review
	Freeze(ctx context.Context, tenantID uuid.UUID, reason string) error
}

// TxRepositories bundles the repositories bound to one transaction
type TxRepositories struct {
	Invoices  InvoiceRepository
	Sequences SequenceAllocator
	Ledger    LedgerStateRepository
}

// UnitOfWork runs a function inside one atomic transaction. Either every
// write made through the bound repositories commits, or none do. The issue
// transition depends on this: number allocation, fingerprint linkage and
// the status change are indivisible.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos TxRepositories) error) error
}
