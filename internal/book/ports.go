package book

import (
	"context"

	"catalogservice/internal/platform/identity"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	// FindAll returns every book, in no particular order.
	FindAll(ctx context.Context) ([]Book, error)
	// FindByISBN reports false when no book has the ISBN.
	FindByISBN(ctx context.Context, isbn string) (Book, bool, error)
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	// Save inserts books without an ID and updates the rest, stamping audit
	// metadata for caller and bumping the version.
	Save(ctx context.Context, caller identity.Caller, b Book) (Book, error)
	// DeleteByISBN succeeds when nothing matched.
	DeleteByISBN(ctx context.Context, isbn string) error
	DeleteAll(ctx context.Context) error
}
