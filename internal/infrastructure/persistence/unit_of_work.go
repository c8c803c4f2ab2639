package persistence

import (
	"context"

	"github.com/garage/backend/internal/domain/invoicing"
	"gorm.io/gorm"
)

// GormUnitOfWork implements the invoicing UnitOfWork over one database
// transaction. Every repository handed to the callback shares the same
// transaction, so the issue transition commits or rolls back as a whole.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside one atomic transaction
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(repos invoicing.TxRepositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(invoicing.TxRepositories{
			Invoices:  NewGormInvoiceRepository(tx),
			Sequences: NewGormSequenceAllocator(tx),
			Ledger:    NewGormLedgerStateRepository(tx),
		})
	})
}
