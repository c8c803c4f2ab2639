package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/garage/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockSequenceAllocator(t *testing.T) (*GormSequenceAllocator, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormSequenceAllocator(gormDB), mock, mockDB
}

func TestGormSequenceAllocator_Allocate(t *testing.T) {
	t.Run("first allocation in a partition yields sequence 1", func(t *testing.T) {
		allocator, mock, mockDB := newMockSequenceAllocator(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`INSERT INTO sequence_counters .* ON CONFLICT \(tenant_id, series, fiscal_year\) DO UPDATE SET last_sequence = sequence_counters.last_sequence \+ 1.* RETURNING last_sequence`).
			WithArgs(tenantID, "F", 2026).
			WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(1))

		allocation, err := allocator.Allocate(context.Background(), tenantID, "F", 2026)

		require.NoError(t, err)
		assert.Equal(t, 1, allocation.Sequence)
		assert.Equal(t, "F-2026-000001", allocation.Number.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("formats the claimed sequence into the document number", func(t *testing.T) {
		allocator, mock, mockDB := newMockSequenceAllocator(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`INSERT INTO sequence_counters`).
			WithArgs(tenantID, "REC", 2027).
			WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(4807))

		allocation, err := allocator.Allocate(context.Background(), tenantID, "REC", 2027)

		require.NoError(t, err)
		assert.Equal(t, 4807, allocation.Sequence)
		assert.Equal(t, "REC-2027-004807", allocation.Number.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports exhaustion past the sequence ceiling", func(t *testing.T) {
		allocator, mock, mockDB := newMockSequenceAllocator(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`INSERT INTO sequence_counters`).
			WithArgs(tenantID, "F", 2026).
			WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(1000000))

		_, err := allocator.Allocate(context.Background(), tenantID, "F", 2026)

		require.Error(t, err)
		assert.True(t, shared.IsAllocationError(err))
		assert.Contains(t, err.Error(), "exhausted")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps a lock timeout to an allocation error", func(t *testing.T) {
		allocator, mock, mockDB := newMockSequenceAllocator(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`INSERT INTO sequence_counters`).
			WithArgs(tenantID, "F", 2026).
			WillReturnError(context.DeadlineExceeded)

		_, err := allocator.Allocate(context.Background(), tenantID, "F", 2026)

		require.Error(t, err)
		assert.True(t, shared.IsAllocationError(err))
		assert.Contains(t, err.Error(), "timed out")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps other database failures as allocation errors", func(t *testing.T) {
		allocator, mock, mockDB := newMockSequenceAllocator(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`INSERT INTO sequence_counters`).
			WithArgs(tenantID, "F", 2026).
			WillReturnError(errors.New("connection reset by peer"))

		_, err := allocator.Allocate(context.Background(), tenantID, "F", 2026)

		require.Error(t, err)
		assert.True(t, shared.IsAllocationError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
