package ports

import (
	"context"

	"github.com/librarium/library-system/internal/core/domain"
)

// BookInput carries the mutable fields of a catalog entry.
type BookInput struct {
	Title           string
	Author          string
	ISBN            string
	PublicationYear int
	AvailableCopies int
	TotalCopies     int
}

// BookService implements catalog CRUD.
type BookService interface {
	ListBooks(ctx context.Context) ([]*domain.Book, error)
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	AddBook(ctx context.Context, in BookInput) (*domain.Book, error)
	UpdateBook(ctx context.Context, id string, in BookInput) (*domain.Book, error)
	DeleteBook(ctx context.Context, id string) error
}
