package invoicing

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildChain creates n well-linked chain records for one tenant
func buildChain(t *testing.T, n int) []ChainRecord {
	t.Helper()
	tenantID := uuid.New()
	records := make([]ChainRecord, 0, n)

	var prev *string
	for i := 1; i <= n; i++ {
		fields := ChainFields{
			TenantID:    tenantID,
			Number:      FormatNumber("F", 2026, i),
			IssueDate:   time.Date(2026, 1, i, 0, 0, 0, 0, time.UTC),
			TaxableBase: decimal.NewFromInt(int64(i * 100)),
			TaxTotal:    decimal.NewFromInt(int64(i * 21)),
			GrandTotal:  decimal.NewFromInt(int64(i * 121)),
			ClientTaxID: fmt.Sprintf("B%08d", i),
		}
		fp := ComputeFingerprint(fields, prev)
		records = append(records, ChainRecord{
			InvoiceID:           uuid.New(),
			Fields:              fields,
			Fingerprint:         fp,
			PreviousFingerprint: prev,
		})
		prev = &records[len(records)-1].Fingerprint
	}
	return records
}

func TestVerifyChain(t *testing.T) {
	t.Run("empty ledger is intact", func(t *testing.T) {
		assert.Nil(t, VerifyChain(nil))
	})

	t.Run("single document with nil previous is intact", func(t *testing.T) {
		assert.Nil(t, VerifyChain(buildChain(t, 1)))
	})

	t.Run("well-linked chain is intact", func(t *testing.T) {
		assert.Nil(t, VerifyChain(buildChain(t, 10)))
	})
}

func TestVerifyChain_Violations(t *testing.T) {
	t.Run("first document referencing a previous fingerprint", func(t *testing.T) {
		records := buildChain(t, 3)
		ghost := "E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855"
		records[0].PreviousFingerprint = &ghost

		v := VerifyChain(records)
		require.NotNil(t, v)
		assert.Equal(t, 0, v.Index)
		assert.Equal(t, records[0].InvoiceID, v.InvoiceID)
	})

	t.Run("missing previous fingerprint link", func(t *testing.T) {
		records := buildChain(t, 3)
		records[2].PreviousFingerprint = nil

		v := VerifyChain(records)
		require.NotNil(t, v)
		assert.Equal(t, 2, v.Index)
	})

	t.Run("deleted document breaks the link", func(t *testing.T) {
		records := buildChain(t, 4)
		// Drop the second document as a hard delete would
		tampered := append([]ChainRecord{records[0]}, records[2:]...)

		v := VerifyChain(tampered)
		require.NotNil(t, v)
		assert.Equal(t, 1, v.Index)
		assert.Equal(t, records[2].InvoiceID, v.InvoiceID)
	})

	t.Run("reordered documents break the link", func(t *testing.T) {
		records := buildChain(t, 3)
		records[1], records[2] = records[2], records[1]

		v := VerifyChain(records)
		require.NotNil(t, v)
		assert.Equal(t, 1, v.Index)
	})

	t.Run("edited amount fails recomputation", func(t *testing.T) {
		records := buildChain(t, 3)
		records[1].Fields.GrandTotal = records[1].Fields.GrandTotal.Add(decimal.NewFromInt(1))

		v := VerifyChain(records)
		require.NotNil(t, v)
		assert.Equal(t, 1, v.Index)
		assert.Contains(t, v.Reason, "recomputation")
	})

	t.Run("forged fingerprint fails recomputation", func(t *testing.T) {
		records := buildChain(t, 1)
		records[0].Fingerprint = "0000000000000000000000000000000000000000000000000000000000000000"

		v := VerifyChain(records)
		require.NotNil(t, v)
		assert.Equal(t, 0, v.Index)
	})

	t.Run("reports only the first break", func(t *testing.T) {
		records := buildChain(t, 5)
		records[1].PreviousFingerprint = nil
		records[3].PreviousFingerprint = nil

		v := VerifyChain(records)
		require.NotNil(t, v)
		assert.Equal(t, 1, v.Index)
	})
}

func TestChainViolation_String(t *testing.T) {
	v := &ChainViolation{Index: 2, InvoiceID: uuid.MustParse("a3f1c2d4-0000-4000-8000-000000000001"), Reason: "test"}
	assert.Contains(t, v.String(), "position 2")
	assert.Contains(t, v.String(), "a3f1c2d4")
}
