package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/garage/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerStateRepository implements LedgerStateRepository on the
// ledger_states table. The per-tenant row doubles as the issuance lock:
// every issuing transaction locks it before reading the chain head, so two
// concurrent documents can never both claim the same previous fingerprint.
type GormLedgerStateRepository struct {
	db *gorm.DB
}

// NewGormLedgerStateRepository creates a new GormLedgerStateRepository
func NewGormLedgerStateRepository(db *gorm.DB) *GormLedgerStateRepository {
	return &GormLedgerStateRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormLedgerStateRepository) WithTx(tx *gorm.DB) *GormLedgerStateRepository {
	return &GormLedgerStateRepository{db: tx}
}

// LockForIssue takes the tenant's ledger row lock for the duration of the
// surrounding transaction and reports whether issuance is frozen. The row
// is created on first use.
func (r *GormLedgerStateRepository) LockForIssue(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoNothing: true,
		}).
		Create(&models.LedgerStateModel{
			TenantID:  tenantID,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error
	if err != nil {
		return false, err
	}

	var model models.LedgerStateModel
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		First(&model).Error
	if err != nil {
		return false, err
	}
	return model.Frozen, nil
}

// IsFrozen reports whether issuance is frozen for the tenant
func (r *GormLedgerStateRepository) IsFrozen(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	var model models.LedgerStateModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return model.Frozen, nil
}

// Freeze halts further issuance for the tenant pending manual review
func (r *GormLedgerStateRepository) Freeze(ctx context.Context, tenantID uuid.UUID, reason string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"frozen":        true,
				"frozen_reason": reason,
				"frozen_at":     now,
				"updated_at":    now,
			}),
		}).
		Create(&models.LedgerStateModel{
			TenantID:     tenantID,
			Frozen:       true,
			FrozenReason: reason,
			FrozenAt:     &now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}).Error
}
