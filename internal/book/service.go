package book

import (
	"context"
	"fmt"

	"catalogservice/internal/platform/identity"
)

// Service provides the catalog use cases on top of a Repository.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ViewBookList returns every catalogued book. The result is never nil.
func (s *Service) ViewBookList(ctx context.Context) ([]Book, error) {
	books, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("view book list: %w", err)
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// ViewBookDetails returns the book with isbn or a *NotFoundError.
func (s *Service) ViewBookDetails(ctx context.Context, isbn string) (Book, error) {
	b, ok, err := s.repo.FindByISBN(ctx, isbn)
	if err != nil {
		return Book{}, fmt.Errorf("view book %s: %w", isbn, err)
	}
	if !ok {
		return Book{}, &NotFoundError{ISBN: isbn}
	}
	return b, nil
}

// AddBookToCatalog stores b as a new book. Storage owned fields on b are ignored.
func (s *Service) AddBookToCatalog(ctx context.Context, caller identity.Caller, b Book) (Book, error) {
	exists, err := s.repo.ExistsByISBN(ctx, b.ISBN)
	if err != nil {
		return Book{}, fmt.Errorf("add book %s: %w", b.ISBN, err)
	}
	if exists {
		return Book{}, &AlreadyExistsError{ISBN: b.ISBN}
	}

	fresh := Book{
		ISBN:      b.ISBN,
		Name:      b.Name,
		Author:    b.Author,
		Price:     b.Price,
		Publisher: b.Publisher,
	}
	return s.repo.Save(ctx, caller, fresh)
}

// EditBookDetails applies the editable fields of edits to the book with isbn.
// A non-nil expectedVersion must match the stored version.
func (s *Service) EditBookDetails(ctx context.Context, caller identity.Caller, isbn string, edits Book, expectedVersion *int) (Book, error) {
	existing, ok, err := s.repo.FindByISBN(ctx, isbn)
	if err != nil {
		return Book{}, fmt.Errorf("edit book %s: %w", isbn, err)
	}
	if !ok {
		return Book{}, &NotFoundError{ISBN: isbn}
	}
	if expectedVersion != nil && *expectedVersion != existing.Version {
		return Book{}, &VersionConflictError{ISBN: isbn}
	}

	updated := Book{
		ID:               existing.ID,
		ISBN:             existing.ISBN,
		Name:             edits.Name,
		Author:           edits.Author,
		Price:            edits.Price,
		Publisher:        edits.Publisher,
		CreatedDate:      existing.CreatedDate,
		LastModifiedDate: existing.LastModifiedDate,
		CreatedBy:        existing.CreatedBy,
		LastModifiedBy:   existing.LastModifiedBy,
		Version:          existing.Version,
	}
	return s.repo.Save(ctx, caller, updated)
}

// DeleteBookFromCatalog removes the book with isbn. Missing books are not an error.
func (s *Service) DeleteBookFromCatalog(ctx context.Context, isbn string) error {
	if err := s.repo.DeleteByISBN(ctx, isbn); err != nil {
		return fmt.Errorf("delete book %s: %w", isbn, err)
	}
	return nil
}
