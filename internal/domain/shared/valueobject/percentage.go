package valueobject

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percentage is a value object representing a rate bounded to [0, 100].
// Used for tax rates, discount rates and withholding rates.
type Percentage struct {
	value decimal.Decimal
}

// NewPercentage creates a Percentage, rejecting values outside [0, 100]
func NewPercentage(value decimal.Decimal) (Percentage, error) {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return Percentage{}, fmt.Errorf("percentage must be between 0 and 100, got %s", value)
	}
	return Percentage{value: value}, nil
}

// NewPercentageFromFloat creates a Percentage from a float64
func NewPercentageFromFloat(value float64) (Percentage, error) {
	return NewPercentage(decimal.NewFromFloat(value))
}

// NewPercentageFromString creates a Percentage from a string
func NewPercentageFromString(value string) (Percentage, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Percentage{}, fmt.Errorf("invalid percentage string: %w", err)
	}
	return NewPercentage(d)
}

// ZeroPercent returns a zero percentage (exempt rate)
func ZeroPercent() Percentage {
	return Percentage{value: decimal.Zero}
}

// Decimal returns the underlying rate
func (p Percentage) Decimal() decimal.Decimal {
	return p.value
}

// IsZero returns true if the rate is zero
func (p Percentage) IsZero() bool {
	return p.value.IsZero()
}

// Of returns the given percentage of the amount, unrounded.
// Callers apply fiscal rounding at the line level.
func (p Percentage) Of(m Money) Money {
	return m.Multiply(p.value.Div(hundred))
}

// Equals returns true if both percentages carry the same rate
func (p Percentage) Equals(other Percentage) bool {
	return p.value.Equal(other.value)
}

// String returns the rate as a string
func (p Percentage) String() string {
	return p.value.String()
}

// MarshalJSON implements json.Marshaler
func (p Percentage) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.value.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Percentage) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid percentage: %w", err)
	}
	if d.IsNegative() || d.GreaterThan(hundred) {
		return fmt.Errorf("percentage must be between 0 and 100, got %s", d)
	}
	p.value = d
	return nil
}

// Value implements driver.Valuer for database storage
func (p Percentage) Value() (driver.Value, error) {
	return p.value.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (p *Percentage) Scan(value any) error {
	if value == nil {
		p.value = decimal.Zero
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Percentage", value)
	}

	d, err := decimal.NewFromString(strVal)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	p.value = d
	return nil
}
