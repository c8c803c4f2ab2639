package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/garage/backend/internal/domain/invoicing"
	"github.com/garage/backend/internal/domain/shared"
	"github.com/garage/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"number":     true,
	"status":     true,
	"issued_at":  true,
	"issue_date": true,
}

// GormInvoiceRepository implements InvoiceRepository using GORM.
// Rows are never deleted: void is a status, and the chain verification
// depends on every numbered row staying on record.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormInvoiceRepository) WithTx(tx *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: tx}
}

// FindByIDForTenant finds an invoice by ID for a specific tenant.
// Returns nil without error when no such invoice exists.
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its formatted number for a tenant
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND number = ?", tenantID, number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all invoices for a tenant with filtering
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.applyInvoiceFilter(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID),
		filter,
	)

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// CountForTenant counts invoices for a tenant
func (r *GormInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyInvoiceFilter(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an invoice. A numbered row is frozen: any attempt
// to change its number or fingerprint, or to move it back to draft, is
// rejected before touching storage.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	if invoice.Status.IsNumbered() {
		if invoice.Number == nil {
			return shared.NewValidationError("Numbered invoice must carry a document number")
		}
		if invoice.Fingerprint == "" {
			return shared.NewValidationError("Numbered invoice must carry a fingerprint")
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.InvoiceModel
		err := tx.Where("tenant_id = ? AND id = ?", invoice.TenantID, invoice.ID).
			First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		model := models.InvoiceModelFromDomain(invoice)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(model).Error
		}

		if existing.Status.IsNumbered() {
			if violation := frozenFieldViolation(&existing, invoice); violation != nil {
				return violation
			}
		}

		// Optimistic lock: the update lands only if the row still carries
		// the version the aggregate was loaded with.
		loadedVersion := invoice.Version
		model.Version = loadedVersion + 1
		res := tx.Model(&models.InvoiceModel{}).
			Where("tenant_id = ? AND id = ? AND version = ?", invoice.TenantID, invoice.ID, loadedVersion).
			Select("*").
			Updates(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		invoice.IncrementVersion()
		return nil
	})
}

// frozenFieldViolation compares the stored numbered row against the incoming
// aggregate and reports the first immutability breach
func frozenFieldViolation(existing *models.InvoiceModel, incoming *invoicing.Invoice) error {
	if incoming.Status == invoicing.InvoiceStatusDraft {
		return shared.NewImmutabilityError("An issued invoice cannot return to draft")
	}
	if incoming.Number == nil || existing.Number == nil || *existing.Number != incoming.Number.String() {
		return shared.NewImmutabilityError("The document number of an issued invoice cannot change")
	}
	if existing.Fingerprint != incoming.Fingerprint {
		return shared.NewImmutabilityError("The fingerprint of an issued invoice cannot change")
	}
	if !equalOptional(existing.PreviousFingerprint, incoming.PreviousFingerprint) {
		return shared.NewImmutabilityError("The chain link of an issued invoice cannot change")
	}
	if existing.IssueDate != nil && (incoming.IssueDate == nil || !existing.IssueDate.Equal(*incoming.IssueDate)) {
		return shared.NewImmutabilityError("The issue date of an issued invoice cannot change")
	}
	return nil
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// MostRecentIssuedFingerprint returns the fingerprint of the most recently
// issued document for the tenant, or nil if none exists. Issuance is
// serialized per tenant, so issuance timestamps order the chain.
func (r *GormInvoiceRepository) MostRecentIssuedFingerprint(ctx context.Context, tenantID uuid.UUID) (*string, error) {
	var fingerprints []string
	err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND number IS NOT NULL", tenantID).
		Order("issued_at DESC, created_at DESC").
		Limit(1).
		Pluck("fingerprint", &fingerprints).Error
	if err != nil {
		return nil, err
	}
	if len(fingerprints) == 0 {
		return nil, nil
	}
	return &fingerprints[0], nil
}

// ChainRecordsForTenant returns the audit projection of every numbered
// document for the tenant in issuance order
func (r *GormInvoiceRepository) ChainRecordsForTenant(ctx context.Context, tenantID uuid.UUID) ([]invoicing.ChainRecord, error) {
	var invoiceModels []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND number IS NOT NULL", tenantID).
		Order("issued_at ASC, created_at ASC").
		Find(&invoiceModels).Error
	if err != nil {
		return nil, err
	}

	records := make([]invoicing.ChainRecord, 0, len(invoiceModels))
	for i := range invoiceModels {
		inv := invoiceModels[i].ToDomain()
		if inv.Number == nil || inv.IssueDate == nil {
			return nil, shared.NewIntegrityViolationError(
				fmt.Sprintf("Numbered invoice %s is missing its number or issue date", inv.ID))
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

func (r *GormInvoiceRepository) applyInvoiceFilter(query *gorm.DB, filter invoicing.InvoiceFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Series != nil {
		query = query.Where("series = ?", *filter.Series)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.SourceOrderID != nil {
		query = query.Where("source_order_id = ?", *filter.SourceOrderID)
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssuedTo)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ? OR client_tax_id ILIKE ?", pattern, pattern)
	}
	return query
}
