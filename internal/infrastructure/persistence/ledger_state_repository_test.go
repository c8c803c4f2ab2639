package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockLedgerStateRepository(t *testing.T) (*GormLedgerStateRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormLedgerStateRepository(gormDB), mock, mockDB
}

var ledgerStateColumns = []string{
	"tenant_id", "frozen", "frozen_reason", "frozen_at", "created_at", "updated_at",
}

func TestGormLedgerStateRepository_IsFrozen(t *testing.T) {
	t.Run("reports a frozen tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerStateRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(ledgerStateColumns).
			AddRow(tenantID, true, "chain violation at position 3", now, now, now)

		mock.ExpectQuery(`SELECT \* FROM "ledger_states" WHERE tenant_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, 1).
			WillReturnRows(rows)

		frozen, err := repo.IsFrozen(context.Background(), tenantID)

		require.NoError(t, err)
		assert.True(t, frozen)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("tenant without a ledger row is not frozen", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerStateRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "ledger_states" WHERE tenant_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		frozen, err := repo.IsFrozen(context.Background(), tenantID)

		require.NoError(t, err)
		assert.False(t, frozen)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates database failures", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerStateRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "ledger_states" WHERE tenant_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, 1).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.IsFrozen(context.Background(), tenantID)

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
