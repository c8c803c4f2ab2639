package invoicing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/garage/backend/internal/domain/shared"
	"github.com/garage/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemKind classifies what a line bills for
type LineItemKind string

const (
	LineItemKindLabor LineItemKind = "LABOR"
	LineItemKindPart  LineItemKind = "PART"
	LineItemKindOther LineItemKind = "OTHER"
)

// IsValid checks if the kind is a valid LineItemKind
func (k LineItemKind) IsValid() bool {
	switch k {
	case LineItemKindLabor, LineItemKindPart, LineItemKindOther:
		return true
	}
	return false
}

// String returns the string representation of LineItemKind
func (k LineItemKind) String() string {
	return string(k)
}

// LineItem is a billed line within an invoice. Line items exist only inside
// their parent invoice and are frozen together with it at issuance.
// Monetary derivations (subtotal, discount, taxable base, tax, total) are
// computed, never stored.
type LineItem struct {
	ID              uuid.UUID             `json:"id"`
	Kind            LineItemKind          `json:"kind"`
	Description     string                `json:"description"`
	Quantity        decimal.Decimal       `json:"quantity"`
	UnitPrice       decimal.Decimal       `json:"unit_price"`
	DiscountPercent valueobject.Percentage `json:"discount_percent"`
	DiscountAmount  decimal.Decimal       `json:"discount_amount"`
	TaxPercent      valueobject.Percentage `json:"tax_percent"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// LineItemParams carries the caller-supplied fields of a line item
type LineItemParams struct {
	Kind            LineItemKind
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       valueobject.Money
	DiscountPercent valueobject.Percentage
	DiscountAmount  valueobject.Money
	TaxPercent      valueobject.Percentage
}

// NewLineItem creates a new line item, validating its fields
func NewLineItem(p LineItemParams) (*LineItem, error) {
	if !p.Kind.IsValid() {
		return nil, shared.NewValidationError("Line item kind is not valid")
	}
	if p.Description == "" {
		return nil, shared.NewValidationError("Line item description cannot be empty")
	}
	if p.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Line item quantity must be positive")
	}
	if p.UnitPrice.Amount().IsNegative() {
		return nil, shared.NewValidationError("Unit price cannot be negative")
	}
	if p.DiscountAmount.Amount().IsNegative() {
		return nil, shared.NewValidationError("Fixed discount cannot be negative")
	}

	now := time.Now()
	return &LineItem{
		ID:              uuid.New(),
		Kind:            p.Kind,
		Description:     p.Description,
		Quantity:        p.Quantity,
		UnitPrice:       p.UnitPrice.Amount(),
		DiscountPercent: p.DiscountPercent,
		DiscountAmount:  p.DiscountAmount.Amount(),
		TaxPercent:      p.TaxPercent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Update replaces the caller-supplied fields, revalidating them
func (l *LineItem) Update(p LineItemParams) error {
	updated, err := NewLineItem(p)
	if err != nil {
		return err
	}

	l.Kind = updated.Kind
	l.Description = updated.Description
	l.Quantity = updated.Quantity
	l.UnitPrice = updated.UnitPrice
	l.DiscountPercent = updated.DiscountPercent
	l.DiscountAmount = updated.DiscountAmount
	l.TaxPercent = updated.TaxPercent
	l.UpdatedAt = time.Now()

	return nil
}

// Subtotal returns quantity x unit price, rounded to the fiscal scale
func (l *LineItem) Subtotal() valueobject.Money {
	return valueobject.NewMoneyEUR(l.Quantity.Mul(l.UnitPrice)).RoundFiscal()
}

// Discount returns the effective discount: the greater of the fixed discount
// and the percentage discount, never exceeding the subtotal. A 100% discount
// line is legal and yields a zero taxable base.
func (l *LineItem) Discount() valueobject.Money {
	subtotal := l.Subtotal()
	percent := l.DiscountPercent.Of(subtotal).RoundFiscal()
	fixed := valueobject.NewMoneyEUR(l.DiscountAmount).RoundFiscal()

	discount := percent
	if gt, _ := fixed.GreaterThan(percent); gt {
		discount = fixed
	}
	if gt, _ := discount.GreaterThan(subtotal); gt {
		discount = subtotal
	}
	return discount
}

// TaxableBase returns the subtotal net of discount
func (l *LineItem) TaxableBase() valueobject.Money {
	return l.Subtotal().MustSubtract(l.Discount())
}

// Tax returns the tax charged on the taxable base, rounded to the fiscal scale
func (l *LineItem) Tax() valueobject.Money {
	return l.TaxPercent.Of(l.TaxableBase()).RoundFiscal()
}

// Total returns taxable base plus tax
func (l *LineItem) Total() valueobject.Money {
	return l.TaxableBase().MustAdd(l.Tax())
}

// LineItems is a slice of LineItem that implements GORM Scanner/Valuer for JSONB storage
type LineItems []LineItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}
