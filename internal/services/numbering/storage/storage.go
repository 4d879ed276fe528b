// Package storage defines persistence contracts for numbering service state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mtlab/lims/internal/services/numbering/domain"
)

var (
	// ErrNotFound indicates a requested document record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a document with the same formatted identifier
	// is already live.
	ErrAlreadyExists = errors.New("record already exists")
)

// Document is an owning record that carries an allocated identifier: a job,
// a testing request or a certificate.
type Document struct {
	FormattedID string
	Category    domain.Category
	Year        int
	Serial      int64
	Title       string
	Client      string
	Reference   string
	CreatedAt   time.Time
}

// Identifier returns the parsed identifier parts of the document.
func (d Document) Identifier() domain.Identifier {
	return domain.Identifier{Category: d.Category, Year: d.Year, Serial: d.Serial}
}

// NewDocument is the input for CreateDocument. The store allocates the serial.
type NewDocument struct {
	Category  domain.Category
	Year      int
	Title     string
	Client    string
	Reference string
	CreatedAt time.Time
}

// DocumentPage stores one page of document records.
type DocumentPage struct {
	Documents     []Document
	NextPageToken string
}

// ListDocumentsInput selects one page of documents. FilterClause is a SQL
// fragment produced by the filter package.
type ListDocumentsInput struct {
	PageSize     int
	PageToken    string
	FilterClause string
	FilterParams []any
}

// CounterStore persists per-(category, year) counters.
type CounterStore interface {
	domain.Transactor
}

// DocumentStore persists documents. Create and delete run the counter step in
// the same transaction as the row change.
type DocumentStore interface {
	CreateDocument(ctx context.Context, input NewDocument) (Document, error)
	GetDocument(ctx context.Context, formattedID string) (Document, error)
	DeleteDocument(ctx context.Context, id domain.Identifier) (Document, error)
	ListDocuments(ctx context.Context, input ListDocumentsInput) (DocumentPage, error)
}

// Store is the full numbering persistence surface.
type Store interface {
	CounterStore
	DocumentStore
	Close() error
}
