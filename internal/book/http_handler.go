package book

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"catalogservice/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// bookReq is the writable part of a Book. Version is only read on update,
// where it is the version the client last saw.
type bookReq struct {
	ISBN      string   `json:"isbn"`
	Name      string   `json:"name"`
	Author    string   `json:"author"`
	Price     *float64 `json:"price"`
	Publisher string   `json:"publisher"`
	Version   *int     `json:"version"`
}

// book trims the free-text fields. The ISBN is kept as sent so the format
// rule sees the raw value.
func (req bookReq) book() Book {
	return Book{
		ISBN:      req.ISBN,
		Name:      strings.TrimSpace(req.Name),
		Author:    strings.TrimSpace(req.Author),
		Price:     req.Price,
		Publisher: strings.TrimSpace(req.Publisher),
	}
}

// List handles GET /books
// @Summary List books
// @Description Return every book in the catalog
// @Tags books
// @Produce json
// @Success 200 {array} Book
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ViewBookList(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

// Get handles GET /books/{isbn}
// @Summary Get book by ISBN
// @Tags books
// @Produce json
// @Param isbn path string true "ISBN"
// @Success 200 {object} Book
// @Failure 404 {string} string
// @Router /books/{isbn} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	isbn := r.PathValue("isbn")
	b, err := h.service.ViewBookDetails(r.Context(), isbn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

// Create handles POST /books
// @Summary Add a book to the catalog
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body bookReq true "Book"
// @Success 201 {object} Book
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 409 {string} string
// @Router /books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}

	b := req.book()
	if err := b.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	saved, err := h.service.AddBookToCatalog(r.Context(), httpx.CallerFrom(r), b)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, saved)
}

// Update handles PUT /books/{isbn}
// @Summary Edit book details
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param isbn path string true "ISBN"
// @Param request body bookReq true "Book"
// @Success 200 {object} Book
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {string} string
// @Failure 409 {string} string
// @Router /books/{isbn} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	isbn := r.PathValue("isbn")

	var req bookReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}

	b := req.book()
	if b.ISBN == "" {
		b.ISBN = isbn
	}
	if err := b.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	saved, err := h.service.EditBookDetails(r.Context(), httpx.CallerFrom(r), isbn, b, req.Version)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

// Delete handles DELETE /books/{isbn}
// @Summary Remove a book from the catalog
// @Tags books
// @Security Bearer
// @Param isbn path string true "ISBN"
// @Success 204
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Router /books/{isbn} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBookFromCatalog(r.Context(), r.PathValue("isbn")); err != nil {
		h.internalError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		details := make([]httpx.ErrorDetail, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			details = append(details, httpx.ErrorDetail{Field: f.Field, Message: f.Message})
		}
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
	case errors.Is(err, ErrNotFound):
		httpx.Text(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrVersionConflict):
		httpx.Text(w, http.StatusConflict, err.Error())
	default:
		h.internalError(w, r, err)
	}
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("book handler error method=%s path=%s request_id=%s err=%v",
		r.Method, r.URL.Path, httpx.RequestIDFrom(r), err)
	httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}
