package domain

import (
	"fmt"
	"strings"
)

// Category names the kind of document a counter numbers.
type Category string

const (
	// CategoryJob numbers incoming material-testing jobs (MTL-).
	CategoryJob Category = "job"
	// CategoryRequest numbers testing requests raised against a job (REQ-).
	CategoryRequest Category = "request"
	// CategoryCertificate numbers issued test certificates (CERT-).
	CategoryCertificate Category = "certificate"
)

type categoryFormat struct {
	prefix string
	width  int
}

var categoryFormats = map[Category]categoryFormat{
	CategoryJob:         {prefix: "MTL", width: 4},
	CategoryRequest:     {prefix: "REQ", width: 4},
	CategoryCertificate: {prefix: "CERT", width: 4},
}

// Categories returns every known category in display order.
func Categories() []Category {
	return []Category{CategoryJob, CategoryRequest, CategoryCertificate}
}

// ParseCategory parses a category name, ignoring case and surrounding space.
func ParseCategory(value string) (Category, error) {
	category := Category(strings.ToLower(strings.TrimSpace(value)))
	if !category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, value)
	}
	return category, nil
}

// CategoryFromPrefix returns the category whose identifiers start with prefix.
func CategoryFromPrefix(prefix string) (Category, bool) {
	for category, format := range categoryFormats {
		if format.prefix == prefix {
			return category, true
		}
	}
	return "", false
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryFormats[c]
	return ok
}

// Prefix returns the identifier prefix, or "" for unknown categories.
func (c Category) Prefix() string {
	return categoryFormats[c].prefix
}

// Width returns the zero-padded serial width, or 0 for unknown categories.
func (c Category) Width() int {
	return categoryFormats[c].width
}

// MaxSerial returns the largest serial that still fits Width digits.
func (c Category) MaxSerial() int64 {
	width := c.Width()
	if width <= 0 {
		return 0
	}
	limit := int64(1)
	for i := 0; i < width; i++ {
		limit *= 10
	}
	return limit - 1
}

func (c Category) String() string {
	return string(c)
}
