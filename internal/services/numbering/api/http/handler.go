// Package httpapi exposes allocation, release, counter, and document
// operations as a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mtlab/lims/internal/services/numbering/documents"
	"github.com/mtlab/lims/internal/services/numbering/domain"
	"github.com/mtlab/lims/internal/services/numbering/storage"
)

const maxBodyBytes = 1 << 20

// Handler serves the numbering HTTP API.
type Handler struct {
	allocator *domain.Allocator
	documents *documents.Service
	metrics   http.Handler
	now       func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(handler *Handler) {
		handler.metrics = h
	}
}

// WithClock overrides the clock used to default the year.
func WithClock(now func() time.Time) Option {
	return func(handler *Handler) {
		if now != nil {
			handler.now = now
		}
	}
}

// NewHandler builds the API handler with its middleware chain.
func NewHandler(allocator *domain.Allocator, docs *documents.Service, opts ...Option) http.Handler {
	h := &Handler{allocator: allocator, documents: docs, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return Chain(mux, RequestID(), RecoverPanic())
}

// RegisterRoutes mounts every API route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/allocations", h.handleAllocate)
	mux.HandleFunc("POST /v1/releases", h.handleRelease)
	mux.HandleFunc("GET /v1/counters/{category}/{year}", h.handleGetCounter)
	mux.HandleFunc("POST /v1/documents", h.handleCreateDocument)
	mux.HandleFunc("GET /v1/documents", h.handleListDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", h.handleGetDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", h.handleDeleteDocument)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

type allocateRequest struct {
	Category string `json:"category"`
	Year     int    `json:"year,omitempty"`
}

type allocationResponse struct {
	Category    string `json:"category"`
	Year        int    `json:"year"`
	Serial      int64  `json:"serial"`
	FormattedID string `json:"formatted_id"`
}

type releaseRequest struct {
	Category    string `json:"category"`
	Year        int    `json:"year"`
	FormattedID string `json:"formatted_id"`
}

type counterResponse struct {
	Category string `json:"category"`
	Year     int    `json:"year"`
	Serial   int64  `json:"serial"`
}

type createDocumentRequest struct {
	Category  string `json:"category"`
	Year      int    `json:"year,omitempty"`
	Title     string `json:"title"`
	Client    string `json:"client,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type documentResponse struct {
	FormattedID string    `json:"formatted_id"`
	Category    string    `json:"category"`
	Year        int       `json:"year"`
	Serial      int64     `json:"serial"`
	Title       string    `json:"title"`
	Client      string    `json:"client,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type listDocumentsResponse struct {
	Documents     []documentResponse `json:"documents"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	year := req.Year
	if year == 0 {
		year = h.now().UTC().Year()
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		writeError(w, r, err, keyScope(req.Category, year))
		return
	}

	allocation, err := h.allocator.Allocate(r.Context(), category, year)
	if err != nil {
		writeError(w, r, err, keyScope(string(category), year))
		return
	}
	_ = WriteJSON(w, http.StatusCreated, allocationResponse{
		Category:    string(allocation.Key.Category),
		Year:        allocation.Key.Year,
		Serial:      allocation.Serial,
		FormattedID: allocation.FormattedID,
	})
}

// handleRelease only moves the counter back. It does not delete the document
// that owns the identifier; DELETE /v1/documents/{id} does both. Later
// allocations skip serials still held by live documents.
func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		writeError(w, r, err, keyScope(req.Category, req.Year))
		return
	}
	if err := h.allocator.Release(r.Context(), category, req.Year, req.FormattedID); err != nil {
		writeError(w, r, err, keyScope(string(category), req.Year))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetCounter(w http.ResponseWriter, r *http.Request) {
	rawCategory := r.PathValue("category")
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, r, invalidRequest("year must be an integer"), nil)
		return
	}
	category, err := domain.ParseCategory(rawCategory)
	if err != nil {
		writeError(w, r, err, keyScope(rawCategory, year))
		return
	}
	counter, err := h.allocator.Peek(r.Context(), category, year)
	if err != nil {
		writeError(w, r, err, keyScope(string(category), year))
		return
	}
	_ = WriteJSON(w, http.StatusOK, counterResponse{
		Category: string(counter.Key.Category),
		Year:     counter.Key.Year,
		Serial:   counter.Serial,
	})
}

func (h *Handler) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	doc, err := h.documents.Create(r.Context(), documents.CreateInput{
		Category:  req.Category,
		Year:      req.Year,
		Title:     req.Title,
		Client:    req.Client,
		Reference: req.Reference,
	})
	if err != nil {
		writeError(w, r, err, keyScope(req.Category, req.Year))
		return
	}
	w.Header().Set("Location", "/v1/documents/"+doc.FormattedID)
	_ = WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pageSize := 0
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, invalidRequest("page_size must be an integer"), nil)
			return
		}
		pageSize = parsed
	}
	page, err := h.documents.List(r.Context(), documents.ListInput{
		PageSize:  pageSize,
		PageToken: query.Get("page_token"),
		Filter:    query.Get("filter"),
	})
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	resp := listDocumentsResponse{
		Documents:     make([]documentResponse, 0, len(page.Documents)),
		NextPageToken: page.NextPageToken,
	}
	for _, doc := range page.Documents {
		resp.Documents = append(resp.Documents, toDocumentResponse(doc))
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	_ = WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if _, err := h.documents.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toDocumentResponse(doc storage.Document) documentResponse {
	return documentResponse{
		FormattedID: doc.FormattedID,
		Category:    string(doc.Category),
		Year:        doc.Year,
		Serial:      doc.Serial,
		Title:       doc.Title,
		Client:      doc.Client,
		Reference:   doc.Reference,
		CreatedAt:   doc.CreatedAt,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalidRequest("request body is required")
		}
		return invalidRequest(fmt.Sprintf("decode body: %v", err))
	}
	if decoder.More() {
		return invalidRequest("request body must contain a single JSON object")
	}
	return nil
}
