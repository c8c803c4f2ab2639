package invoicing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/garage/backend/internal/domain/invoicing"
	"github.com/garage/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// =============================================================================
// In-Memory Fiscal Store
//
// One stateful fake backing all three repository contracts plus the unit of
// work. Execute serializes callers on the store mutex and restores a
// snapshot on error, mirroring the transactional all-or-nothing of the real
// store. Standalone repository views take the mutex per call; transactional
// views run under the mutex Execute already holds.
// =============================================================================

type memStore struct {
	mu         sync.Mutex
	invoices   map[uuid.UUID]*invoicing.Invoice
	issueOrder []uuid.UUID
	counters   map[string]int
	frozen     map[uuid.UUID]string

	// failSaveOnce makes the next numbered-invoice save fail, for rollback tests
	failSaveOnce bool
}

func newMemStore() *memStore {
	return &memStore{
		invoices: make(map[uuid.UUID]*invoicing.Invoice),
		counters: make(map[string]int),
		frozen:   make(map[uuid.UUID]string),
	}
}

// invoiceRepo returns the standalone, self-locking repository view
func (s *memStore) invoiceRepo() invoicing.InvoiceRepository {
	return &memInvoiceRepo{s: s, locking: true}
}

// ledgerRepo returns the standalone, self-locking ledger view
func (s *memStore) ledgerRepo() invoicing.LedgerStateRepository {
	return &memLedgerRepo{s: s, locking: true}
}

// unitOfWork returns the transactional entry point
func (s *memStore) unitOfWork() invoicing.UnitOfWork {
	return &memUnitOfWork{s: s}
}

func (s *memStore) txRepos() invoicing.TxRepositories {
	return invoicing.TxRepositories{
		Invoices:  &memInvoiceRepo{s: s},
		Sequences: &memAllocator{s: s},
		Ledger:    &memLedgerRepo{s: s},
	}
}

type memSnapshot struct {
	invoices   map[uuid.UUID]*invoicing.Invoice
	issueOrder []uuid.UUID
	counters   map[string]int
	frozen     map[uuid.UUID]string
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		invoices:   make(map[uuid.UUID]*invoicing.Invoice, len(s.invoices)),
		issueOrder: append([]uuid.UUID(nil), s.issueOrder...),
		counters:   make(map[string]int, len(s.counters)),
		frozen:     make(map[uuid.UUID]string, len(s.frozen)),
	}
	for k, v := range s.invoices {
		snap.invoices[k] = v
	}
	for k, v := range s.counters {
		snap.counters[k] = v
	}
	for k, v := range s.frozen {
		snap.frozen[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.invoices = snap.invoices
	s.issueOrder = snap.issueOrder
	s.counters = snap.counters
	s.frozen = snap.frozen
}

type memUnitOfWork struct {
	s *memStore
}

func (u *memUnitOfWork) Execute(ctx context.Context, fn func(repos invoicing.TxRepositories) error) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	snap := u.s.snapshot()
	if err := fn(u.s.txRepos()); err != nil {
		u.s.restore(snap)
		return err
	}
	return nil
}

// =============================================================================
// Repository Views
// =============================================================================

type memInvoiceRepo struct {
	s       *memStore
	locking bool
}

func (r *memInvoiceRepo) lock() func() {
	if r.locking {
		r.s.mu.Lock()
		return r.s.mu.Unlock
	}
	return func() {}
}

func (r *memInvoiceRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Invoice, error) {
	defer r.lock()()
	inv, ok := r.s.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

// cloneInvoice detaches the loaded aggregate from the stored one, the way a
// real repository rehydrates a fresh instance per query
func cloneInvoice(inv *invoicing.Invoice) *invoicing.Invoice {
	cp := *inv
	cp.Lines = append(invoicing.LineItems(nil), inv.Lines...)
	return &cp
}

func (r *memInvoiceRepo) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*invoicing.Invoice, error) {
	defer r.lock()()
	for _, inv := range r.s.invoices {
		if inv.TenantID == tenantID && inv.FormattedNumber() == number {
			return cloneInvoice(inv), nil
		}
	}
	return nil, nil
}

func (r *memInvoiceRepo) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, error) {
	defer r.lock()()
	var result []invoicing.Invoice
	for _, inv := range r.s.invoices {
		if inv.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		if filter.Series != nil && inv.Series != *filter.Series {
			continue
		}
		if filter.ClientID != nil && inv.ClientID != *filter.ClientID {
			continue
		}
		result = append(result, *inv)
	}
	return result, nil
}

func (r *memInvoiceRepo) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) (int64, error) {
	all, err := r.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (r *memInvoiceRepo) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	defer r.lock()()
	if invoice.Status.IsNumbered() {
		if r.s.failSaveOnce {
			r.s.failSaveOnce = false
			return fmt.Errorf("storage unavailable")
		}
		if invoice.Number == nil || invoice.Fingerprint == "" {
			return shared.NewValidationError("Numbered invoice must carry number and fingerprint")
		}
		if !containsID(r.s.issueOrder, invoice.ID) {
			r.s.issueOrder = append(r.s.issueOrder, invoice.ID)
		}
	}
	r.s.invoices[invoice.ID] = invoice
	return nil
}

func (r *memInvoiceRepo) MostRecentIssuedFingerprint(ctx context.Context, tenantID uuid.UUID) (*string, error) {
	defer r.lock()()
	for i := len(r.s.issueOrder) - 1; i >= 0; i-- {
		inv := r.s.invoices[r.s.issueOrder[i]]
		if inv.TenantID == tenantID {
			fp := inv.Fingerprint
			return &fp, nil
		}
	}
	return nil, nil
}

func (r *memInvoiceRepo) ChainRecordsForTenant(ctx context.Context, tenantID uuid.UUID) ([]invoicing.ChainRecord, error) {
	defer r.lock()()
	var records []invoicing.ChainRecord
	for _, id := range r.s.issueOrder {
		inv := r.s.invoices[id]
		if inv.TenantID != tenantID {
			continue
		}
		records = append(records, invoicing.ChainRecord{
			InvoiceID:           inv.ID,
			Fields:              invoicing.BuildChainFields(inv, *inv.Number, *inv.IssueDate),
			Fingerprint:         inv.Fingerprint,
			PreviousFingerprint: inv.PreviousFingerprint,
		})
	}
	return records, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

type memAllocator struct {
	s *memStore
}

func (a *memAllocator) Allocate(ctx context.Context, tenantID uuid.UUID, series string, fiscalYear int) (invoicing.Allocation, error) {
	key := strings.Join([]string{tenantID.String(), series, fmt.Sprint(fiscalYear)}, "/")
	next := a.s.counters[key] + 1
	if next > invoicing.MaxSequence {
		return invoicing.Allocation{}, shared.NewAllocationError("Sequence exhausted for series")
	}
	a.s.counters[key] = next

	number, err := invoicing.NewDocumentNumber(series, fiscalYear, next)
	if err != nil {
		return invoicing.Allocation{}, err
	}
	return invoicing.Allocation{Sequence: next, Number: number}, nil
}

type memLedgerRepo struct {
	s       *memStore
	locking bool
}

func (l *memLedgerRepo) lock() func() {
	if l.locking {
		l.s.mu.Lock()
		return l.s.mu.Unlock
	}
	return func() {}
}

func (l *memLedgerRepo) LockForIssue(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	defer l.lock()()
	_, frozen := l.s.frozen[tenantID]
	return frozen, nil
}

func (l *memLedgerRepo) IsFrozen(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	defer l.lock()()
	_, frozen := l.s.frozen[tenantID]
	return frozen, nil
}

func (l *memLedgerRepo) Freeze(ctx context.Context, tenantID uuid.UUID, reason string) error {
	defer l.lock()()
	l.s.frozen[tenantID] = reason
	return nil
}
