package ports

import (
	"context"

	"github.com/librarium/library-system/internal/core/domain"
)

// BookRepository defines the persistence interface for catalog entries.
type BookRepository interface {
	List(ctx context.Context) ([]*domain.Book, error)
	FindByID(ctx context.Context, id string) (*domain.Book, error)
	Create(ctx context.Context, book *domain.Book) (*domain.Book, error)
	Update(ctx context.Context, book *domain.Book) (*domain.Book, error)
	Delete(ctx context.Context, id string) error
}
