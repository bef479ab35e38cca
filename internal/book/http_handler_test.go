package book

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalogservice/internal/httpx"
	"catalogservice/internal/platform/identity"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asEmployee(r *http.Request) *http.Request {
	return r.WithContext(httpx.ContextWithCaller(r.Context(), employee))
}

func TestHTTPHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo))

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().FindAll(gomock.Any()).Return([]Book{storedBook("1234567890")}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var books []Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &books))
		require.Len(t, books, 1)
		assert.Equal(t, "1234567890", books[0].ISBN)
	})

	t.Run("empty catalog is an empty array", func(t *testing.T) {
		mockRepo.EXPECT().FindAll(gomock.Any()).Return(nil, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("error", func(t *testing.T) {
		mockRepo.EXPECT().FindAll(gomock.Any()).Return(nil, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	})
}

func TestHTTPHandler_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo))

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().FindByISBN(gomock.Any(), "1234567890").Return(storedBook("1234567890"), true, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books/1234567890", nil)
		r.SetPathValue("isbn", "1234567890")

		handler.Get(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var b Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
		assert.Equal(t, "Title", b.Name)
		assert.Equal(t, 3, b.Version)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().FindByISBN(gomock.Any(), "9999999999").Return(Book{}, false, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books/9999999999", nil)
		r.SetPathValue("isbn", "9999999999")

		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "The book with ISBN 9999999999 was not found.", w.Body.String())
	})
}

func TestHTTPHandler_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo))

	t.Run("created", func(t *testing.T) {
		mockRepo.EXPECT().ExistsByISBN(gomock.Any(), "1231231231").Return(false, nil)
		mockRepo.EXPECT().Save(gomock.Any(), employee, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ identity.Caller, b Book) (Book, error) {
				b.ID = 1
				b.CreatedBy = "john"
				return b, nil
			})

		w := httptest.NewRecorder()
		body := `{"isbn":"1231231231","name":"Title","author":"Author","price":9.90}`
		r := asEmployee(httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(body)))

		handler.Create(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var b Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
		assert.Equal(t, "1231231231", b.ISBN)
		assert.Equal(t, "john", b.CreatedBy)
	})

	t.Run("validation failure", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"isbn":"12a","name":"","author":"Author","price":-1}`
		r := asEmployee(httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(body)))

		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp httpx.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		var msgs []string
		for _, d := range resp.Error.Details {
			msgs = append(msgs, d.Message)
		}
		assert.ElementsMatch(t, []string{
			"The ISBN format must be valid.",
			"The book name must be defined.",
			"The book price must be greater than zero.",
		}, msgs)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := asEmployee(httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"isbn":`)))

		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "BAD_REQUEST")
	})

	t.Run("duplicate", func(t *testing.T) {
		mockRepo.EXPECT().ExistsByISBN(gomock.Any(), "1231231231").Return(true, nil)

		w := httptest.NewRecorder()
		body := `{"isbn":"1231231231","name":"Title","author":"Author","price":9.90}`
		r := asEmployee(httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(body)))

		handler.Create(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "A book with ISBN 1231231231 already exists.", w.Body.String())
	})
}

func TestHTTPHandler_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo))

	t.Run("path isbn fills empty body isbn", func(t *testing.T) {
		mockRepo.EXPECT().FindByISBN(gomock.Any(), "1234567890").Return(storedBook("1234567890"), true, nil)
		mockRepo.EXPECT().Save(gomock.Any(), employee, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ identity.Caller, b Book) (Book, error) {
				b.Version++
				return b, nil
			})

		w := httptest.NewRecorder()
		body := `{"name":"Title","author":"Author","price":1000.0}`
		r := asEmployee(httptest.NewRequest(http.MethodPut, "/books/1234567890", strings.NewReader(body)))
		r.SetPathValue("isbn", "1234567890")

		handler.Update(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var b Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
		assert.Equal(t, 1000.0, b.PriceValue())
		assert.Equal(t, 4, b.Version)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().FindByISBN(gomock.Any(), "9999999999").Return(Book{}, false, nil)

		w := httptest.NewRecorder()
		body := `{"isbn":"9999999999","name":"Title","author":"Author","price":1.0}`
		r := asEmployee(httptest.NewRequest(http.MethodPut, "/books/9999999999", strings.NewReader(body)))
		r.SetPathValue("isbn", "9999999999")

		handler.Update(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "The book with ISBN 9999999999 was not found.", w.Body.String())
	})

	t.Run("stale version", func(t *testing.T) {
		mockRepo.EXPECT().FindByISBN(gomock.Any(), "1234567890").Return(storedBook("1234567890"), true, nil)

		w := httptest.NewRecorder()
		body := `{"name":"Title","author":"Author","price":1.0,"version":0}`
		r := asEmployee(httptest.NewRequest(http.MethodPut, "/books/1234567890", strings.NewReader(body)))
		r.SetPathValue("isbn", "1234567890")

		handler.Update(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "The book with ISBN 1234567890 was modified by someone else.", w.Body.String())
	})

	t.Run("missing price", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"name":"Title","author":"Author"}`
		r := asEmployee(httptest.NewRequest(http.MethodPut, "/books/1234567890", strings.NewReader(body)))
		r.SetPathValue("isbn", "1234567890")

		handler.Update(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "The book price must be defined.")
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo))

	t.Run("no content", func(t *testing.T) {
		mockRepo.EXPECT().DeleteByISBN(gomock.Any(), "1234567890").Return(nil)

		w := httptest.NewRecorder()
		r := asEmployee(httptest.NewRequest(http.MethodDelete, "/books/1234567890", nil))
		r.SetPathValue("isbn", "1234567890")

		handler.Delete(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("error", func(t *testing.T) {
		mockRepo.EXPECT().DeleteByISBN(gomock.Any(), "1234567890").Return(context.DeadlineExceeded)

		w := httptest.NewRecorder()
		r := asEmployee(httptest.NewRequest(http.MethodDelete, "/books/1234567890", nil))
		r.SetPathValue("isbn", "1234567890")

		handler.Delete(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
