package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mtlab/lims/internal/services/numbering/domain"
	"github.com/mtlab/lims/internal/services/numbering/storage"
)

const documentColumns = `formatted_id, category, year, serial, title, client, reference, created_at`

// CreateDocument allocates the next free serial for the document's
// (category, year) and inserts the row in the same transaction. Serials still
// owned by live documents are skipped.
func (s *Store) CreateDocument(ctx context.Context, input storage.NewDocument) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return storage.Document{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Document{}, fmt.Errorf("storage is not configured")
	}
	key, err := domain.NewCounterKey(input.Category, input.Year)
	if err != nil {
		return storage.Document{}, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return storage.Document{}, fmt.Errorf("title is required")
	}
	createdAt := input.CreatedAt.UTC()
	if input.CreatedAt.IsZero() {
		createdAt = s.now().UTC()
	}

	var created storage.Document
	err = s.withinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		serial, err := domain.Next(ctx, counterTx{tx: tx, now: s.now}, key)
		if err != nil {
			return err
		}
		doc := storage.Document{
			Category:  key.Category,
			Year:      key.Year,
			Serial:    serial,
			Title:     title,
			Client:    strings.TrimSpace(input.Client),
			Reference: strings.TrimSpace(input.Reference),
			CreatedAt: fromMillis(toMillis(createdAt)),
		}
		doc.FormattedID = doc.Identifier().String()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.FormattedID,
			string(doc.Category),
			doc.Year,
			doc.Serial,
			doc.Title,
			doc.Client,
			doc.Reference,
			toMillis(doc.CreatedAt),
		)
		if err != nil {
			if isConstraintError(err) {
				return fmt.Errorf("insert document %s: %w", doc.FormattedID, storage.ErrAlreadyExists)
			}
			return fmt.Errorf("insert document: %w", err)
		}
		created = doc
		return nil
	})
	if err != nil {
		return storage.Document{}, err
	}
	return created, nil
}

// GetDocument returns one document by formatted identifier.
func (s *Store) GetDocument(ctx context.Context, formattedID string) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return storage.Document{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Document{}, fmt.Errorf("storage is not configured")
	}
	formattedID = strings.TrimSpace(formattedID)
	if formattedID == "" {
		return storage.Document{}, fmt.Errorf("formatted id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE formatted_id = ?`,
		formattedID,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Document{}, storage.ErrNotFound
		}
		return storage.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes the document and rewinds its counter in one
// transaction. A missing document rolls back without touching the counter.
func (s *Store) DeleteDocument(ctx context.Context, id domain.Identifier) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return storage.Document{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Document{}, fmt.Errorf("storage is not configured")
	}
	key, err := domain.NewCounterKey(id.Category, id.Year)
	if err != nil {
		return storage.Document{}, err
	}
	formattedID := id.String()

	var deleted storage.Document
	err = s.withinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE formatted_id = ?`,
			formattedID,
		)
		doc, err := scanDocument(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("select document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE formatted_id = ?`, formattedID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		if _, err := domain.Rewind(ctx, counterTx{tx: tx, now: s.now}, key); err != nil {
			return err
		}
		deleted = doc
		return nil
	})
	if err != nil {
		return storage.Document{}, err
	}
	return deleted, nil
}

// ListDocuments returns one page of documents ordered by formatted identifier.
func (s *Store) ListDocuments(ctx context.Context, input storage.ListDocumentsInput) (storage.DocumentPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.DocumentPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.DocumentPage{}, fmt.Errorf("storage is not configured")
	}
	if input.PageSize <= 0 {
		return storage.DocumentPage{}, fmt.Errorf("page size must be greater than zero")
	}

	var (
		conditions []string
		params     []any
	)
	if clause := strings.TrimSpace(input.FilterClause); clause != "" {
		conditions = append(conditions, clause)
		params = append(params, input.FilterParams...)
	}
	if token := strings.TrimSpace(input.PageToken); token != "" {
		conditions = append(conditions, "formatted_id > ?")
		params = append(params, token)
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY formatted_id ASC LIMIT ?`
	params = append(params, input.PageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return storage.DocumentPage{}, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	page := storage.DocumentPage{
		Documents: make([]storage.Document, 0, input.PageSize),
	}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return storage.DocumentPage{}, fmt.Errorf("list documents: %w", err)
		}
		page.Documents = append(page.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return storage.DocumentPage{}, fmt.Errorf("list documents: %w", err)
	}
	if len(page.Documents) > input.PageSize {
		page.NextPageToken = page.Documents[input.PageSize-1].FormattedID
		page.Documents = page.Documents[:input.PageSize]
	}
	return page, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (storage.Document, error) {
	var (
		doc       storage.Document
		category  string
		createdAt int64
	)
	if err := row.Scan(
		&doc.FormattedID,
		&category,
		&doc.Year,
		&doc.Serial,
		&doc.Title,
		&doc.Client,
		&doc.Reference,
		&createdAt,
	); err != nil {
		return storage.Document{}, err
	}
	doc.Category = domain.Category(category)
	doc.CreatedAt = fromMillis(createdAt)
	return doc, nil
}

var _ storage.DocumentStore = (*Store)(nil)
