package persistence

import (
	"context"
	"errors"

	"github.com/garage/backend/internal/domain/invoicing"
	"github.com/garage/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// allocateSequenceSQL claims the next sequence for a numbering partition in
// one statement. The upsert takes the partition's row lock, so concurrent
// allocators for the same (tenant, series, fiscal year) serialize here and
// each sees a distinct, consecutive value. The increment commits or rolls
// back with the enclosing transaction, so an aborted issuance releases the
// number for the next attempt.
const allocateSequenceSQL = `
INSERT INTO sequence_counters (tenant_id, series, fiscal_year, last_sequence, updated_at)
VALUES (?, ?, ?, 1, NOW())
ON CONFLICT (tenant_id, series, fiscal_year)
DO UPDATE SET last_sequence = sequence_counters.last_sequence + 1, updated_at = NOW()
RETURNING last_sequence`

// GormSequenceAllocator implements SequenceAllocator on the
// sequence_counters table
type GormSequenceAllocator struct {
	db *gorm.DB
}

// NewGormSequenceAllocator creates a new GormSequenceAllocator
func NewGormSequenceAllocator(db *gorm.DB) *GormSequenceAllocator {
	return &GormSequenceAllocator{db: db}
}

// WithTx returns an allocator bound to the given transaction
func (a *GormSequenceAllocator) WithTx(tx *gorm.DB) *GormSequenceAllocator {
	return &GormSequenceAllocator{db: tx}
}

// Allocate claims the next sequence number for (tenant, series, fiscal year)
// and returns it together with the formatted document number
func (a *GormSequenceAllocator) Allocate(ctx context.Context, tenantID uuid.UUID, series string, fiscalYear int) (invoicing.Allocation, error) {
	var next int
	err := a.db.WithContext(ctx).
		Raw(allocateSequenceSQL, tenantID, series, fiscalYear).
		Scan(&next).Error
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return invoicing.Allocation{}, shared.NewAllocationError("Sequence allocation timed out waiting for the partition lock")
		}
		return invoicing.Allocation{}, shared.NewAllocationError("Sequence allocation failed: " + err.Error())
	}

	if next > invoicing.MaxSequence {
		return invoicing.Allocation{}, shared.NewAllocationError("Sequence space exhausted for this series and fiscal year")
	}

	number, err := invoicing.NewDocumentNumber(series, fiscalYear, next)
	if err != nil {
		return invoicing.Allocation{}, err
	}

	return invoicing.Allocation{Sequence: next, Number: number}, nil
}
