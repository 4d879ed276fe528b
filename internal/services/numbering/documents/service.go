// Package documents implements the owning-document use-cases: jobs, testing
// requests and certificates that carry an allocated identifier.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/mtlab/lims/internal/platform/errors"
	"github.com/mtlab/lims/internal/services/numbering/domain"
	"github.com/mtlab/lims/internal/services/numbering/storage"
	"github.com/mtlab/lims/internal/services/numbering/storage/filter"
)

const (
	// DefaultPageSize is used when a list request does not set one.
	DefaultPageSize = 25
	// MaxPageSize caps a single list page.
	MaxPageSize = 100
)

// Operation labels passed to the Recorder.
const (
	OperationCreate = "create_document"
	OperationDelete = "delete_document"
)

// referenceCategory names the category a document's Reference must point at.
// Jobs carry free-form references.
var referenceCategory = map[domain.Category]domain.Category{
	domain.CategoryRequest:     domain.CategoryJob,
	domain.CategoryCertificate: domain.CategoryRequest,
}

// CreateInput describes a new document. Year zero means the current UTC year.
type CreateInput struct {
	Category  string
	Year      int
	Title     string
	Client    string
	Reference string
}

// ListInput selects one page of documents.
type ListInput struct {
	PageSize  int
	PageToken string
	Filter    string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecorder reports create and delete outcomes.
func WithRecorder(r domain.Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// Service coordinates document persistence with identifier allocation.
type Service struct {
	store    storage.DocumentStore
	now      func() time.Time
	recorder domain.Recorder
}

// NewService builds a document service over store.
func NewService(store storage.DocumentStore, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create allocates the next identifier for the document's category and year
// and persists the document with it.
func (s *Service) Create(ctx context.Context, input CreateInput) (storage.Document, error) {
	if s == nil || s.store == nil {
		return storage.Document{}, errors.New("document store is not configured")
	}
	started := s.now()

	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		s.record(OperationCreate, "", started, err)
		return storage.Document{}, err
	}
	doc, err := s.create(ctx, category, input)
	s.record(OperationCreate, string(category), started, err)
	return doc, err
}

func (s *Service) create(ctx context.Context, category domain.Category, input CreateInput) (storage.Document, error) {
	year := input.Year
	if year == 0 {
		year = s.now().UTC().Year()
	}
	if err := domain.ValidateYear(year); err != nil {
		return storage.Document{}, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return storage.Document{}, apperrors.New(apperrors.CodeDocumentTitleEmpty, "document title is required")
	}
	reference := strings.TrimSpace(input.Reference)
	if want, ok := referenceCategory[category]; ok && reference != "" {
		parsed, err := domain.ParseIdentifier(reference)
		if err != nil {
			return storage.Document{}, err
		}
		if parsed.Category != want {
			return storage.Document{}, &domain.MalformedIdentifierError{
				Value:  reference,
				Reason: fmt.Sprintf("a %s must reference a %s", category, want),
			}
		}
	}

	return s.store.CreateDocument(ctx, storage.NewDocument{
		Category:  category,
		Year:      year,
		Title:     title,
		Client:    strings.TrimSpace(input.Client),
		Reference: reference,
		CreatedAt: s.now().UTC(),
	})
}

// Get returns one document by formatted identifier.
func (s *Service) Get(ctx context.Context, formattedID string) (storage.Document, error) {
	if s == nil || s.store == nil {
		return storage.Document{}, errors.New("document store is not configured")
	}
	id, err := domain.ParseIdentifier(strings.TrimSpace(formattedID))
	if err != nil {
		return storage.Document{}, err
	}
	return s.store.GetDocument(ctx, id.String())
}

// Delete removes a document and releases its serial. The identifier is
// validated before the store is touched.
func (s *Service) Delete(ctx context.Context, formattedID string) (storage.Document, error) {
	if s == nil || s.store == nil {
		return storage.Document{}, errors.New("document store is not configured")
	}
	started := s.now()
	id, err := domain.ParseIdentifier(strings.TrimSpace(formattedID))
	if err != nil {
		s.record(OperationDelete, "", started, err)
		return storage.Document{}, err
	}
	doc, err := s.store.DeleteDocument(ctx, id)
	s.record(OperationDelete, string(id.Category), started, err)
	return doc, err
}

// List returns one page of documents matching the optional filter.
func (s *Service) List(ctx context.Context, input ListInput) (storage.DocumentPage, error) {
	if s == nil || s.store == nil {
		return storage.DocumentPage{}, errors.New("document store is not configured")
	}
	pageSize := input.PageSize
	switch {
	case pageSize < 0:
		return storage.DocumentPage{}, apperrors.WithMetadata(
			apperrors.CodeDocumentInvalidQuery,
			"page size must not be negative",
			map[string]string{"Reason": "page_size must not be negative"},
		)
	case pageSize == 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}

	cond, err := filter.ParseDocumentFilter(input.Filter)
	if err != nil {
		return storage.DocumentPage{}, apperrors.WrapWithMetadata(
			apperrors.CodeDocumentInvalidQuery,
			"parse document filter",
			map[string]string{"Reason": err.Error()},
			err,
		)
	}

	return s.store.ListDocuments(ctx, storage.ListDocumentsInput{
		PageSize:     pageSize,
		PageToken:    strings.TrimSpace(input.PageToken),
		FilterClause: cond.Clause,
		FilterParams: cond.Params,
	})
}

func (s *Service) record(operation string, category string, started time.Time, err error) {
	if s.recorder == nil {
		return
	}
	outcome := domain.OutcomeOf(err)
	if outcome == domain.OutcomeError && apperrors.CodeOf(err) != apperrors.CodeUnknown {
		outcome = domain.OutcomeInvalid
	}
	s.recorder.Record(operation, category, outcome, s.now().Sub(started))
}
