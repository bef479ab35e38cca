package book

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is matched by every not-found failure.
	ErrNotFound = errors.New("book not found")
	// ErrAlreadyExists is matched when an ISBN is already catalogued.
	ErrAlreadyExists = errors.New("book already exists")
	// ErrVersionConflict is matched when an update carries a stale version.
	ErrVersionConflict = errors.New("book version conflict")
)

// Book is the catalog entry. ISBN is the external identity; ID is owned by storage.
type Book struct {
	ID               int64     `json:"id"`
	ISBN             string    `json:"isbn" validate:"required"`
	Name             string    `json:"name" validate:"required"`
	Author           string    `json:"author" validate:"required"`
	Price            *float64  `json:"price" validate:"required,gt=0"`
	Publisher        string    `json:"publisher,omitempty"`
	CreatedDate      time.Time `json:"createdDate"`
	LastModifiedDate time.Time `json:"lastModifiedDate"`
	CreatedBy        string    `json:"createdBy,omitempty"`
	LastModifiedBy   string    `json:"lastModifiedBy,omitempty"`
	Version          int       `json:"version"`
}

// New builds a book that has not been stored yet.
func New(isbn, name, author string, price float64, publisher string) Book {
	return Book{
		ISBN:      isbn,
		Name:      name,
		Author:    author,
		Price:     &price,
		Publisher: publisher,
	}
}

// PriceValue returns the price, or zero when it is not set.
func (b Book) PriceValue() float64 {
	if b.Price == nil {
		return 0
	}
	return *b.Price
}

// NotFoundError reports that no book carries the ISBN; it matches ErrNotFound.
type NotFoundError struct {
	ISBN string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("The book with ISBN %s was not found.", e.ISBN)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AlreadyExistsError reports an insert whose ISBN is taken; it matches ErrAlreadyExists.
type AlreadyExistsError struct {
	ISBN string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("A book with ISBN %s already exists.", e.ISBN)
}

func (e *AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }

// VersionConflictError reports an update from a stale version; it matches ErrVersionConflict.
type VersionConflictError struct {
	ISBN string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("The book with ISBN %s was modified by someone else.", e.ISBN)
}

func (e *VersionConflictError) Is(target error) bool { return target == ErrVersionConflict }
