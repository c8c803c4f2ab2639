package invoicing

import (
	"context"
	"time"

	"github.com/garage/backend/internal/domain/invoicing"
	"github.com/garage/backend/internal/domain/shared"
	"github.com/garage/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService provides application-level invoice operations. Draft
// editing, payment and void go through the plain repository; issuance runs
// inside a unit of work because number allocation, fingerprint linkage and
// the status change must commit or roll back together.
type InvoiceService struct {
	invoiceRepo invoicing.InvoiceRepository
	ledgerRepo  invoicing.LedgerStateRepository
	uow         invoicing.UnitOfWork
	logger      *zap.Logger
	now         func() time.Time

	// issueTimeout bounds how long an issuance may wait on the tenant's
	// ledger lock and the partition counter. Zero means no bound.
	issueTimeout time.Duration
}

// InvoiceServiceOption is a functional option for configuring InvoiceService
type InvoiceServiceOption func(*InvoiceService)

// WithClock overrides the time source, mainly for fiscal-year boundary tests
func WithClock(now func() time.Time) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.now = now
	}
}

// WithIssueTimeout bounds each issuance attempt. When the deadline expires
// while waiting on locks the caller gets an allocation error and may retry.
func WithIssueTimeout(timeout time.Duration) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.issueTimeout = timeout
	}
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo invoicing.InvoiceRepository,
	ledgerRepo invoicing.LedgerStateRepository,
	uow invoicing.UnitOfWork,
	logger *zap.Logger,
	opts ...InvoiceServiceOption,
) *InvoiceService {
	s := &InvoiceService{
		invoiceRepo: invoiceRepo,
		ledgerRepo:  ledgerRepo,
		uow:         uow,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ===================== Requests =====================

// CreateDraftRequest carries the fields of a new draft invoice
type CreateDraftRequest struct {
	ClientID      uuid.UUID  `json:"client_id" binding:"required"`
	ClientTaxID   string     `json:"client_tax_id" binding:"required"`
	Series        string     `json:"series" binding:"required,series"`
	SourceOrderID *uuid.UUID `json:"source_order_id,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Withholding   string     `json:"withholding_percent,omitempty"`
}

// LineItemRequest carries the fields of one invoice line. Amounts travel as
// strings so no float ever touches a fiscal value.
type LineItemRequest struct {
	Kind            string `json:"kind" binding:"required"`
	Description     string `json:"description" binding:"required"`
	Quantity        string `json:"quantity" binding:"required"`
	UnitPrice       string `json:"unit_price" binding:"required"`
	DiscountPercent string `json:"discount_percent,omitempty"`
	DiscountAmount  string `json:"discount_amount,omitempty"`
	TaxPercent      string `json:"tax_percent,omitempty"`
}

// UpdateDraftRequest carries the mutable header fields of a draft
type UpdateDraftRequest struct {
	SourceOrderID *uuid.UUID `json:"source_order_id,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Withholding   *string    `json:"withholding_percent,omitempty"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	Search        string     `form:"search"`
	ClientID      *uuid.UUID `form:"client_id"`
	Status        string     `form:"status"`
	Series        string     `form:"series"`
	SourceOrderID *uuid.UUID `form:"source_order_id"`
	IssuedFrom    *time.Time `form:"issued_from"`
	IssuedTo      *time.Time `form:"issued_to"`
	Page          int        `form:"page"`
	PageSize      int        `form:"page_size"`
}

// ===================== Draft Operations =====================

// CreateDraft creates a new draft invoice
func (s *InvoiceService) CreateDraft(ctx context.Context, tenantID, userID uuid.UUID, req CreateDraftRequest) (*InvoiceResponse, error) {
	inv, err := invoicing.NewDraftInvoice(tenantID, req.ClientID, userID, req.ClientTaxID, req.Series)
	if err != nil {
		return nil, err
	}

	if req.SourceOrderID != nil {
		if err := inv.SetSourceOrder(*req.SourceOrderID); err != nil {
			return nil, err
		}
	}
	if req.DueDate != nil {
		if err := inv.SetDueDate(req.DueDate); err != nil {
			return nil, err
		}
	}
	if req.Withholding != "" {
		withholding, err := valueobject.NewPercentageFromString(req.Withholding)
		if err != nil {
			return nil, shared.NewValidationError("Invalid withholding rate: " + err.Error())
		}
		if err := inv.SetWithholding(withholding); err != nil {
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("draft invoice created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", inv.ID.String()),
		zap.String("series", inv.Series),
	)

	return toInvoiceResponse(inv), nil
}

// UpdateDraft updates the header fields of a draft invoice
func (s *InvoiceService) UpdateDraft(ctx context.Context, tenantID, invoiceID uuid.UUID, req UpdateDraftRequest) (*InvoiceResponse, error) {
	inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if req.SourceOrderID != nil {
		if err := inv.SetSourceOrder(*req.SourceOrderID); err != nil {
			return nil, err
		}
	}
	if req.DueDate != nil {
		if err := inv.SetDueDate(req.DueDate); err != nil {
			return nil, err
		}
	}
	if req.Withholding != nil {
		withholding, err := valueobject.NewPercentageFromString(*req.Withholding)
		if err != nil {
			return nil, shared.NewValidationError("Invalid withholding rate: " + err.Error())
		}
		if err := inv.SetWithholding(withholding); err != nil {
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// AddLine adds a line item to a draft invoice
func (s *InvoiceService) AddLine(ctx context.Context, tenantID, invoiceID uuid.UUID, req LineItemRequest) (*InvoiceResponse, error) {
	inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	params, err := toLineItemParams(req)
	if err != nil {
		return nil, err
	}
	if _, err := inv.AddLine(params); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// UpdateLine replaces the fields of an existing line on a draft invoice
func (s *InvoiceService) UpdateLine(ctx context.Context, tenantID, invoiceID, lineID uuid.UUID, req LineItemRequest) (*InvoiceResponse, error) {
	inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	params, err := toLineItemParams(req)
	if err != nil {
		return nil, err
	}
	if err := inv.UpdateLine(lineID, params); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// RemoveLine removes a line item from a draft invoice
func (s *InvoiceService) RemoveLine(ctx context.Context, tenantID, invoiceID, lineID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := inv.RemoveLine(lineID); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// ===================== Issuance =====================

// IssueInvoice performs the draft to issued transition: inside one
// transaction it serializes on the tenant's ledger row, allocates the next
// gap-free sequence for (tenant, series, fiscal year), links the document to
// the most recent issued fingerprint and freezes the invoice. The counter
// increment shares the transaction, so a failed issuance rolls the
// allocation back and the number is handed out again on the next attempt;
// the abort is still logged for the audit trail.
func (s *InvoiceService) IssueInvoice(ctx context.Context, tenantID, invoiceID, userID uuid.UUID) (*InvoiceResponse, error) {
	if s.issueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.issueTimeout)
		defer cancel()
	}

	var resp *InvoiceResponse

	err := s.uow.Execute(ctx, func(repos invoicing.TxRepositories) error {
		frozen, err := repos.Ledger.LockForIssue(ctx, tenantID)
		if err != nil {
			return err
		}
		if frozen {
			return shared.NewIntegrityViolationError("Ledger is frozen pending manual review; issuance is halted")
		}

		inv, err := repos.Invoices.FindByIDForTenant(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.ErrNotFound
		}

		issuedAt := s.now()
		fiscalYear := issuedAt.Year()

		alloc, err := repos.Sequences.Allocate(ctx, tenantID, inv.Series, fiscalYear)
		if err != nil {
			return err
		}

		previous, err := repos.Invoices.MostRecentIssuedFingerprint(ctx, tenantID)
		if err != nil {
			s.logAbortedAllocation(tenantID, inv.Series, fiscalYear, alloc.Sequence, err)
			return err
		}

		fingerprint := invoicing.ComputeFingerprint(invoicing.BuildChainFields(inv, alloc.Number, issuedAt), previous)

		if err := inv.Issue(alloc.Number, fingerprint, previous, issuedAt, userID); err != nil {
			s.logAbortedAllocation(tenantID, inv.Series, fiscalYear, alloc.Sequence, err)
			return err
		}

		if err := repos.Invoices.Save(ctx, inv); err != nil {
			s.logAbortedAllocation(tenantID, inv.Series, fiscalYear, alloc.Sequence, err)
			return err
		}

		resp = toInvoiceResponse(inv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice issued",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("number", resp.Number),
	)

	return resp, nil
}

// logAbortedAllocation records a sequence allocation whose transaction is
// about to roll back. The increment rolls back with it, so the number is
// reallocated on the next attempt; no gap is left behind.
func (s *InvoiceService) logAbortedAllocation(tenantID uuid.UUID, series string, fiscalYear, sequence int, cause error) {
	s.logger.Warn("sequence allocation rolled back by failed issuance",
		zap.String("tenant_id", tenantID.String()),
		zap.String("series", series),
		zap.Int("fiscal_year", fiscalYear),
		zap.Int("sequence", sequence),
		zap.Error(cause),
	)
}

// ===================== Post-Issuance Operations =====================

// MarkPaid records payment on an issued invoice
func (s *InvoiceService) MarkPaid(ctx context.Context, tenantID, invoiceID, userID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := inv.MarkPaid(userID); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice paid",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("number", inv.FormattedNumber()),
	)

	return toInvoiceResponse(inv), nil
}

// VoidInvoice voids an issued invoice. The document, its number and its
// fingerprint stay on record.
func (s *InvoiceService) VoidInvoice(ctx context.Context, tenantID, invoiceID, userID uuid.UUID, reason string) (*InvoiceResponse, error) {
	inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := inv.Void(reason, userID); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice voided",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("number", inv.FormattedNumber()),
		zap.String("reason", reason),
	)

	return toInvoiceResponse(inv), nil
}

// ===================== Queries =====================

// GetInvoice gets an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// GetInvoiceByNumber gets an invoice by its formatted document number
func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByNumber(ctx, tenantID, number)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.ErrNotFound
	}
	return toInvoiceResponse(inv), nil
}

// ListInvoices lists invoices with filtering
func (s *InvoiceService) ListInvoices(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := invoicing.InvoiceFilter{
		ClientID:      filter.ClientID,
		SourceOrderID: filter.SourceOrderID,
		IssuedFrom:    filter.IssuedFrom,
		IssuedTo:      filter.IssuedTo,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	if filter.Status != "" {
		status := invoicing.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("Invalid invoice status filter")
		}
		domainFilter.Status = &status
	}
	if filter.Series != "" {
		domainFilter.Series = &filter.Series
	}

	invoices, err := s.invoiceRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *toInvoiceResponse(&invoices[i])
	}

	return responses, total, nil
}

// LedgerStatus reports whether issuance is frozen for the tenant
func (s *InvoiceService) LedgerStatus(ctx context.Context, tenantID uuid.UUID) (*LedgerStatusResponse, error) {
	frozen, err := s.ledgerRepo.IsFrozen(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &LedgerStatusResponse{TenantID: tenantID, Frozen: frozen}, nil
}

// ===================== Helpers =====================

func (s *InvoiceService) loadInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*invoicing.Invoice, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.ErrNotFound
	}
	return inv, nil
}

func toLineItemParams(req LineItemRequest) (invoicing.LineItemParams, error) {
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return invoicing.LineItemParams{}, shared.NewValidationError("Invalid quantity: " + err.Error())
	}

	unitPrice, err := valueobject.NewMoneyEURFromString(req.UnitPrice)
	if err != nil {
		return invoicing.LineItemParams{}, shared.NewValidationError("Invalid unit price: " + err.Error())
	}

	params := invoicing.LineItemParams{
		Kind:        invoicing.LineItemKind(req.Kind),
		Description: req.Description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}

	if req.DiscountPercent != "" {
		p, err := valueobject.NewPercentageFromString(req.DiscountPercent)
		if err != nil {
			return invoicing.LineItemParams{}, shared.NewValidationError("Invalid discount rate: " + err.Error())
		}
		params.DiscountPercent = p
	}
	if req.DiscountAmount != "" {
		m, err := valueobject.NewMoneyEURFromString(req.DiscountAmount)
		if err != nil {
			return invoicing.LineItemParams{}, shared.NewValidationError("Invalid discount amount: " + err.Error())
		}
		params.DiscountAmount = m
	}
	if req.TaxPercent != "" {
		p, err := valueobject.NewPercentageFromString(req.TaxPercent)
		if err != nil {
			return invoicing.LineItemParams{}, shared.NewValidationError("Invalid tax rate: " + err.Error())
		}
		params.TaxPercent = p
	}

	return params, nil
}
