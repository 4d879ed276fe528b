package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinYear is the first year an identifier can carry.
	MinYear = 1000
	// MaxYear is the last year an identifier can carry.
	MaxYear = 9999
)

const segmentSeparator = "-"

// Identifier is the parsed form of a formatted document identifier.
type Identifier struct {
	Category Category
	Year     int
	Serial   int64
}

// ValidateYear rejects years that do not render as exactly four digits.
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

// NewIdentifier validates the parts of an identifier.
func NewIdentifier(category Category, year int, serial int64) (Identifier, error) {
	if !category.Valid() {
		return Identifier{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if err := ValidateYear(year); err != nil {
		return Identifier{}, err
	}
	if serial < 1 || serial > category.MaxSerial() {
		return Identifier{}, fmt.Errorf("serial %d out of range 1-%d", serial, category.MaxSerial())
	}
	return Identifier{Category: category, Year: year, Serial: serial}, nil
}

// Format renders {PREFIX}-{year}-{serial} with the category's zero padding,
// for example Format(CategoryJob, 2025, 1) == "MTL-2025-0001".
func Format(category Category, year int, serial int64) (string, error) {
	id, err := NewIdentifier(category, year, serial)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// String renders the identifier. Call it only on validated identifiers.
func (id Identifier) String() string {
	return fmt.Sprintf("%s%s%04d%s%0*d",
		id.Category.Prefix(), segmentSeparator,
		id.Year, segmentSeparator,
		id.Category.Width(), id.Serial,
	)
}

// Key returns the counter key the identifier was allocated from.
func (id Identifier) Key() CounterKey {
	return CounterKey{Category: id.Category, Year: id.Year}
}

// ParseIdentifier parses a formatted identifier. Any deviation from
// {PREFIX}-{4-digit year}-{width-digit serial} returns a *MalformedIdentifierError.
func ParseIdentifier(value string) (Identifier, error) {
	segments := strings.Split(value, segmentSeparator)
	if len(segments) != 3 {
		return Identifier{}, malformed(value, "want 3 segments, got %d", len(segments))
	}

	category, ok := CategoryFromPrefix(segments[0])
	if !ok {
		return Identifier{}, malformed(value, "unknown prefix %q", segments[0])
	}

	if !isDigits(segments[1], 4) {
		return Identifier{}, malformed(value, "year must be 4 digits")
	}
	year, _ := strconv.Atoi(segments[1])
	if year < MinYear {
		return Identifier{}, malformed(value, "year %d out of range", year)
	}

	width := category.Width()
	if !isDigits(segments[2], width) {
		return Identifier{}, malformed(value, "serial must be %d digits", width)
	}
	serial, _ := strconv.ParseInt(segments[2], 10, 64)
	if serial == 0 {
		return Identifier{}, malformed(value, "serial must be positive")
	}

	return Identifier{Category: category, Year: year, Serial: serial}, nil
}

// ParseIdentifierFor parses value and requires it to belong to category and year.
func ParseIdentifierFor(category Category, year int, value string) (Identifier, error) {
	id, err := ParseIdentifier(value)
	if err != nil {
		return Identifier{}, err
	}
	if id.Category != category {
		return Identifier{}, malformed(value, "prefix %s does not match category %s", id.Category.Prefix(), category)
	}
	if id.Year != year {
		return Identifier{}, malformed(value, "year %d does not match %d", id.Year, year)
	}
	return id, nil
}

func isDigits(value string, length int) bool {
	if len(value) != length {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
