package book

import (
	"context"
	"fmt"

	"catalogservice/internal/platform/identity"
)

// DemoBooks are the books LoadTestData puts in an emptied catalog.
func DemoBooks() []Book {
	return []Book{
		New("1234567890", "Spring Boot", "Jim1", 100.0, "Gotop"),
		New("1234567891", "Spring Cloud", "Jim2", 200.0, "Gotop"),
	}
}

// LoadTestData replaces the whole catalog with DemoBooks. It is meant for
// local and test environments only.
func LoadTestData(ctx context.Context, repo Repository) ([]Book, error) {
	if err := repo.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("clear catalog: %w", err)
	}

	loaded := make([]Book, 0, 2)
	for _, b := range DemoBooks() {
		saved, err := repo.Save(ctx, identity.Anonymous, b)
		if err != nil {
			return nil, fmt.Errorf("load book %s: %w", b.ISBN, err)
		}
		loaded = append(loaded, saved)
	}
	return loaded, nil
}
