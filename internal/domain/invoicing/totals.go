package invoicing

import (
	"github.com/garage/backend/internal/domain/shared/valueobject"
)

// InvoiceTotals is the invoice-level rollup of its line derivations.
// Every component is rounded at the line level before summing, so the
// totals always agree with the printed per-line amounts.
type InvoiceTotals struct {
	BaseTotal         valueobject.Money `json:"base_total"`
	TaxTotal          valueobject.Money `json:"tax_total"`
	WithholdingAmount valueobject.Money `json:"withholding_amount"`
	GrandTotal        valueobject.Money `json:"grand_total"`
}

// CalculateTotals computes the invoice rollup from its lines and
// withholding rate. Pure function: no side effects, no stored state.
func CalculateTotals(lines []LineItem, withholding valueobject.Percentage) InvoiceTotals {
	base := valueobject.ZeroEUR()
	tax := valueobject.ZeroEUR()

	for i := range lines {
		base = base.MustAdd(lines[i].TaxableBase())
		tax = tax.MustAdd(lines[i].Tax())
	}

	withheld := withholding.Of(base).RoundFiscal()
	grand := base.MustAdd(tax).MustSubtract(withheld)

	return InvoiceTotals{
		BaseTotal:         base,
		TaxTotal:          tax,
		WithholdingAmount: withheld,
		GrandTotal:        grand,
	}
}
