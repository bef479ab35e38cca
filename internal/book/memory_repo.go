package book

import (
	"context"
	"sort"
	"sync"

	"catalogservice/internal/platform/identity"
)

// MemoryRepo keeps books in process. It enforces the same uniqueness,
// versioning and audit rules as PostgresRepo.
type MemoryRepo struct {
	mu     sync.RWMutex
	books  map[string]Book
	nextID int64
	repoOptions
}

func NewMemoryRepo(opts ...Option) *MemoryRepo {
	return &MemoryRepo{
		books:       make(map[string]Book),
		nextID:      1,
		repoOptions: buildOptions(opts),
	}
}

// clone detaches the price pointer so callers cannot mutate stored state.
func clone(b Book) Book {
	if b.Price != nil {
		p := *b.Price
		b.Price = &p
	}
	return b
}

// FindAll returns books in ascending ID order.
func (r *MemoryRepo) FindAll(_ context.Context) ([]Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Book, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, clone(b))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) FindByISBN(_ context.Context, isbn string) (Book, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[isbn]
	if !ok {
		return Book{}, false, nil
	}
	return clone(b), true, nil
}

func (r *MemoryRepo) ExistsByISBN(_ context.Context, isbn string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.books[isbn]
	return ok, nil
}

func (r *MemoryRepo) Save(_ context.Context, caller identity.Caller, b Book) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.stamp()
	if b.ID == 0 {
		if _, ok := r.books[b.ISBN]; ok {
			return Book{}, &AlreadyExistsError{ISBN: b.ISBN}
		}
		b = clone(b)
		b.ID = r.nextID
		r.nextID++
		b.CreatedDate = now
		b.LastModifiedDate = now
		b.CreatedBy, b.LastModifiedBy = "", ""
		if caller.Authenticated() {
			b.CreatedBy = caller.Name
			b.LastModifiedBy = caller.Name
		}
		b.Version = 0
		r.books[b.ISBN] = b
		return clone(b), nil
	}

	stored, ok := r.byID(b.ID)
	if !ok {
		return Book{}, &NotFoundError{ISBN: b.ISBN}
	}
	if stored.Version != b.Version {
		return Book{}, &VersionConflictError{ISBN: b.ISBN}
	}

	updated := clone(b)
	updated.ISBN = stored.ISBN
	updated.CreatedDate = stored.CreatedDate
	updated.CreatedBy = stored.CreatedBy
	updated.LastModifiedDate = now
	updated.LastModifiedBy = stored.LastModifiedBy
	if caller.Authenticated() {
		updated.LastModifiedBy = caller.Name
	}
	updated.Version = stored.Version + 1
	r.books[updated.ISBN] = updated
	return clone(updated), nil
}

func (r *MemoryRepo) byID(id int64) (Book, bool) {
	for _, b := range r.books {
		if b.ID == id {
			return b, true
		}
	}
	return Book{}, false
}

func (r *MemoryRepo) DeleteByISBN(_ context.Context, isbn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.books, isbn)
	return nil
}

func (r *MemoryRepo) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.books = make(map[string]Book)
	return nil
}
