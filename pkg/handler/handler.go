// Package handler exposes the book catalog over HTTP.
package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookflow/pkg/book"
	"bookflow/pkg/logger"
	"bookflow/pkg/metrics"
	"bookflow/pkg/otel"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the /livros resource.
type Handler struct {
	repo    book.Repository
	log     *logger.Logger
	metrics metrics.Provider
	tracer  trace.Tracer
}

// New creates a Handler. A nil metrics provider or tracer falls back to a
// no-op provider and the global tracer.
func New(repo book.Repository, log *logger.Logger, m metrics.Provider, tracer trace.Tracer) *Handler {
	if m == nil {
		m = metrics.Noop{}
	}
	if tracer == nil {
		tracer = otelapi.Tracer("bookflow")
	}
	return &Handler{repo: repo, log: log, metrics: m, tracer: tracer}
}

// Routes builds the router.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	// Router middleware only wraps matched routes.
	r.NotFoundHandler = h.unmatched(http.StatusNotFound, msgRouteNotFound)
	r.MethodNotAllowedHandler = h.unmatched(http.StatusMethodNotAllowed, msgMethodNotAllowed)
	r.Use(correlationMiddleware, h.traceMiddleware, h.observeMiddleware)

	r.HandleFunc("/", h.index).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	r.HandleFunc("/livros", h.listBooks).Methods(http.MethodGet)
	r.HandleFunc("/livros", h.createBook).Methods(http.MethodPost)
	r.HandleFunc("/livros/{id:[0-9]+}", h.getBook).Methods(http.MethodGet)
	r.HandleFunc("/livros/{id:[0-9]+}", h.updateBook).Methods(http.MethodPut)
	r.HandleFunc("/livros/{id:[0-9]+}", h.deleteBook).Methods(http.MethodDelete)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return r
}

// Handler returns the router, gzip-wrapped when compress is set. Compressed
// responses get their own ETag.
func (h *Handler) Handler(compress bool) (http.Handler, error) {
	r := h.Routes()
	if !compress {
		return r, nil
	}
	wrap, err := gzhttp.NewWrapper(gzhttp.SuffixETag(gzipETagSuffix))
	if err != nil {
		return nil, fmt.Errorf("gzip wrapper: %w", err)
	}
	return wrap(r), nil
}

func (h *Handler) unmatched(status int, msg string) http.Handler {
	return correlationMiddleware(h.observeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, status, msg)
	})))
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, "<h1>Books API</h1>")
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, nil, http.StatusOK, map[string]string{"status": "ok"})
}

// listBooks lists books.
// @Summary List books
// @Produce json
// @Success 200 {array} book.Book
// @Router /livros [get]
func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listBooks")
	defer span.End()

	books, err := h.repo.List(ctx)
	if err != nil {
		h.fail(w, r, "list books", err)
		return
	}
	h.metrics.Gauge("livros.total", float64(len(books)), nil)
	writeJSON(w, r, http.StatusOK, books)
}

// getBook retrieves a book by ID.
// @Summary Get book
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} book.Book
// @Failure 404 {object} errorResponse
// @Router /livros/{id} [get]
func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getBook")
	defer span.End()

	id, ok := bookID(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("book.id", id))
	b, err := h.repo.Get(ctx, id)
	if err != nil {
		h.fail(w, r, "get book", err)
		return
	}
	writeJSON(w, r, http.StatusOK, b)
}

// createBook creates a new book.
// @Summary Create book
// @Accept json
// @Produce json
// @Param book body book.Fields true "Book"
// @Success 201 {object} book.Book
// @Failure 400 {object} errorResponse
// @Router /livros [post]
func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "createBook")
	defer span.End()

	f, err := decodeBody(w, r)
	if err != nil {
		h.fail(w, r, "create book", err)
		return
	}
	b, err := h.repo.Create(ctx, f)
	if err != nil {
		h.fail(w, r, "create book", err)
		return
	}
	span.SetAttributes(attribute.Int("book.id", b.ID))
	writeJSON(w, r, http.StatusCreated, b)
}

// updateBook updates the fields present in the body.
// @Summary Update book
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Param book body book.Fields true "Fields to overwrite"
// @Success 200 {object} book.Book
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /livros/{id} [put]
func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "updateBook")
	defer span.End()

	id, ok := bookID(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("book.id", id))
	f, err := decodeBody(w, r)
	if err != nil {
		// A missing book answers 404 whatever the body holds.
		if _, gerr := h.repo.Get(ctx, id); gerr != nil {
			err = gerr
		}
		h.fail(w, r, "update book", err)
		return
	}
	b, err := h.repo.Update(ctx, id, f)
	if err != nil {
		h.fail(w, r, "update book", err)
		return
	}
	writeJSON(w, r, http.StatusOK, b)
}

// deleteBook removes a book.
// @Summary Delete book
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} messageResponse
// @Failure 404 {object} errorResponse
// @Router /livros/{id} [delete]
func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "deleteBook")
	defer span.End()

	id, ok := bookID(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("book.id", id))
	if err := h.repo.Delete(ctx, id); err != nil {
		h.fail(w, r, "delete book", err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Mensagem: msgDeleted})
}

// fail maps err to a status and error payload.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *book.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, book.ErrMalformedBody):
		writeError(w, http.StatusBadRequest, msgMalformed)
	case errors.Is(err, book.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	default:
		h.log.Error(r.Context(), op, "error", err)
		trace.SpanFromContext(r.Context()).RecordError(err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// bookID parses the {id} path variable. IDs that overflow int cannot exist
// and answer 404.
func bookID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request) (book.Fields, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return book.Fields{}, book.ErrMalformedBody
	}
	return book.DecodeFields(data)
}
