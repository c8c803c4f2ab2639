package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func issuedLedger(t *testing.T, store *memStore, tenantID uuid.UUID, n int) {
	t.Helper()
	svc := newTestService(store, WithClock(fixedClock(issueTime)))
	userID := uuid.New()
	for i := 0; i < n; i++ {
		draft := createDraftWithLine(t, svc, tenantID, userID)
		_, err := svc.IssueInvoice(context.Background(), tenantID, draft.ID, userID)
		require.NoError(t, err)
	}
}

func TestAuditService_VerifyTenantLedger(t *testing.T) {
	t.Run("empty ledger is intact", func(t *testing.T) {
		store := newMemStore()
		audit := NewAuditService(store.unitOfWork(), zap.NewNop())

		result, err := audit.VerifyTenantLedger(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.True(t, result.Intact)
		assert.Equal(t, 0, result.DocumentCount)
		assert.False(t, result.Frozen)
	})

	t.Run("intact ledger stays unfrozen", func(t *testing.T) {
		store := newMemStore()
		tenantID := uuid.New()
		issuedLedger(t, store, tenantID, 5)

		audit := NewAuditService(store.unitOfWork(), zap.NewNop())
		result, err := audit.VerifyTenantLedger(context.Background(), tenantID)
		require.NoError(t, err)

		assert.True(t, result.Intact)
		assert.Equal(t, 5, result.DocumentCount)
		assert.Nil(t, result.Violation)

		frozen, err := store.ledgerRepo().IsFrozen(context.Background(), tenantID)
		require.NoError(t, err)
		assert.False(t, frozen)
	})

	t.Run("tampered amount freezes the tenant", func(t *testing.T) {
		store := newMemStore()
		tenantID := uuid.New()
		issuedLedger(t, store, tenantID, 3)

		// Edit an issued amount behind the repository's back
		tampered := store.invoices[store.issueOrder[1]]
		tampered.Lines[0].UnitPrice = tampered.Lines[0].UnitPrice.Add(decimal.NewFromInt(100))

		audit := NewAuditService(store.unitOfWork(), zap.NewNop())
		result, err := audit.VerifyTenantLedger(context.Background(), tenantID)
		require.NoError(t, err)

		assert.False(t, result.Intact)
		assert.True(t, result.Frozen)
		require.NotNil(t, result.Violation)
		assert.Equal(t, 1, result.Violation.Position)
		assert.Equal(t, tampered.ID, result.Violation.InvoiceID)

		frozen, err := store.ledgerRepo().IsFrozen(context.Background(), tenantID)
		require.NoError(t, err)
		assert.True(t, frozen)
	})

	t.Run("frozen tenant rejects further issuance", func(t *testing.T) {
		store := newMemStore()
		tenantID := uuid.New()
		issuedLedger(t, store, tenantID, 2)

		store.invoices[store.issueOrder[0]].Lines[0].UnitPrice = decimal.NewFromInt(999)

		audit := NewAuditService(store.unitOfWork(), zap.NewNop())
		result, err := audit.VerifyTenantLedger(context.Background(), tenantID)
		require.NoError(t, err)
		require.True(t, result.Frozen)

		svc := newTestService(store, WithClock(fixedClock(issueTime.Add(time.Hour))))
		userID := uuid.New()
		draft := createDraftWithLine(t, svc, tenantID, userID)
		_, err = svc.IssueInvoice(context.Background(), tenantID, draft.ID, userID)
		require.Error(t, err)
	})

	t.Run("violation in one tenant leaves others issuing", func(t *testing.T) {
		store := newMemStore()
		brokenTenant, healthyTenant := uuid.New(), uuid.New()
		issuedLedger(t, store, brokenTenant, 2)
		issuedLedger(t, store, healthyTenant, 2)

		store.invoices[store.issueOrder[0]].Lines[0].UnitPrice = decimal.NewFromInt(999)

		audit := NewAuditService(store.unitOfWork(), zap.NewNop())
		result, err := audit.VerifyTenantLedger(context.Background(), brokenTenant)
		require.NoError(t, err)
		require.True(t, result.Frozen)

		svc := newTestService(store, WithClock(fixedClock(issueTime)))
		userID := uuid.New()
		draft := createDraftWithLine(t, svc, healthyTenant, userID)
		_, err = svc.IssueInvoice(context.Background(), healthyTenant, draft.ID, userID)
		require.NoError(t, err)
	})
}
