package invoicing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/garage/backend/internal/domain/shared"
)

const (
	// MaxSequence is the highest sequence number a series can hold in one fiscal year
	MaxSequence = 999999
	// SequenceWidth is the zero-padded width of the sequence in formatted numbers
	SequenceWidth = 6
	// NumberDelimiter joins series, year and sequence in formatted numbers
	NumberDelimiter = "-"
)

var (
	seriesPattern = regexp.MustCompile(`^[A-Z]{1,3}$`)
	strictPattern = regexp.MustCompile(`^([A-Z]{1,3})-(\d{4})-(\d{1,6})$`)
	// legacyPattern matches older exports that used slashes or unpadded parts
	legacyPattern = regexp.MustCompile(`^([A-Za-z]{1,3})[-/](\d{4})[-/](\d{1,6})$`)
)

// DocumentNumber identifies a fiscal document within a (tenant, series, year)
// partition. It is a tagged value: structured numbers carry series, year and
// sequence; opaque numbers carry only the raw string of a legacy or foreign
// document, which stays authoritative for display and chain fingerprinting.
// Immutable once assigned to a document.
type DocumentNumber struct {
	series   string
	year     int
	sequence int
	raw      string
	opaque   bool
}

// NewDocumentNumber creates a structured document number
func NewDocumentNumber(series string, year, sequence int) (DocumentNumber, error) {
	if !seriesPattern.MatchString(series) {
		return DocumentNumber{}, shared.NewValidationError("Series must be 1-3 uppercase letters")
	}
	if year < 2000 || year > 9999 {
		return DocumentNumber{}, shared.NewValidationError("Fiscal year is out of range")
	}
	if sequence < 1 || sequence > MaxSequence {
		return DocumentNumber{}, shared.NewValidationError(fmt.Sprintf("Sequence must be between 1 and %d", MaxSequence))
	}
	return DocumentNumber{
		series:   series,
		year:     year,
		sequence: sequence,
	}, nil
}

// NewOpaqueDocumentNumber creates an opaque number from a legacy raw string
func NewOpaqueDocumentNumber(raw string) (DocumentNumber, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DocumentNumber{}, shared.NewValidationError("Document number cannot be empty")
	}
	return DocumentNumber{raw: raw, opaque: true}, nil
}

// ParseDocumentNumber parses a formatted document number. Numbers in the
// canonical SERIES-YYYY-NNNNNN shape and recognizable legacy shapes parse as
// structured; anything else falls back to an opaque number. Callers should
// check IsOpaque on the result and record a data-quality warning for
// fallbacks instead of silently normalizing them.
func ParseDocumentNumber(s string) (DocumentNumber, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DocumentNumber{}, shared.NewValidationError("Document number cannot be empty")
	}

	if m := strictPattern.FindStringSubmatch(s); m != nil {
		return parseStructured(m)
	}
	if m := legacyPattern.FindStringSubmatch(s); m != nil {
		m[1] = strings.ToUpper(m[1])
		if n, err := parseStructured(m); err == nil {
			return n, nil
		}
	}
	return NewOpaqueDocumentNumber(s)
}

func parseStructured(m []string) (DocumentNumber, error) {
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return DocumentNumber{}, shared.NewValidationError("Invalid fiscal year")
	}
	sequence, err := strconv.Atoi(m[3])
	if err != nil {
		return DocumentNumber{}, shared.NewValidationError("Invalid sequence")
	}
	return NewDocumentNumber(m[1], year, sequence)
}

// IsOpaque reports whether the number is a legacy opaque value
func (n DocumentNumber) IsOpaque() bool {
	return n.opaque
}

// IsZero reports whether the number is unset
func (n DocumentNumber) IsZero() bool {
	return !n.opaque && n.series == ""
}

// Series returns the series prefix. Advisory only for opaque numbers.
func (n DocumentNumber) Series() string {
	return n.series
}

// Year returns the fiscal year. Advisory only for opaque numbers.
func (n DocumentNumber) Year() int {
	return n.year
}

// Sequence returns the sequence within the partition. Advisory only for opaque numbers.
func (n DocumentNumber) Sequence() int {
	return n.sequence
}

// String returns the display form: the canonical SERIES-YYYY-NNNNNN format
// for structured numbers, the authoritative raw string for opaque ones.
func (n DocumentNumber) String() string {
	if n.opaque {
		return n.raw
	}
	if n.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s%s%d%s%0*d", n.series, NumberDelimiter, n.year, NumberDelimiter, SequenceWidth, n.sequence)
}

// FormatNumber renders a formatted number without constructing the value object
func FormatNumber(series string, year, sequence int) string {
	return fmt.Sprintf("%s%s%d%s%0*d", series, NumberDelimiter, year, NumberDelimiter, SequenceWidth, sequence)
}

// Equals reports whether two numbers identify the same document
func (n DocumentNumber) Equals(other DocumentNumber) bool {
	if n.opaque != other.opaque {
		return false
	}
	if n.opaque {
		return n.raw == other.raw
	}
	return n.series == other.series && n.year == other.year && n.sequence == other.sequence
}

// Compare orders document numbers. Structured numbers order by series, then
// year, then sequence. Opaque numbers order lexically by raw string and sort
// after all structured numbers, so that legacy imports never interleave with
// the allocated stream.
func (n DocumentNumber) Compare(other DocumentNumber) int {
	switch {
	case n.opaque && other.opaque:
		return strings.Compare(n.raw, other.raw)
	case n.opaque:
		return 1
	case other.opaque:
		return -1
	}
	if c := strings.Compare(n.series, other.series); c != 0 {
		return c
	}
	if n.year != other.year {
		if n.year < other.year {
			return -1
		}
		return 1
	}
	switch {
	case n.sequence < other.sequence:
		return -1
	case n.sequence > other.sequence:
		return 1
	}
	return 0
}
