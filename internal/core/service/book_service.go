package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/librarium/library-system/internal/core/domain"
	"github.com/librarium/library-system/internal/core/ports"
)

// BookService implements catalog CRUD on top of the repository.
type BookService struct {
	books ports.BookRepository
	log   zerolog.Logger
}

func NewBookService(books ports.BookRepository, log zerolog.Logger) *BookService {
	return &BookService{books: books, log: log}
}

func (s *BookService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.books.List(ctx)
}

func (s *BookService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.books.FindByID(ctx, id)
}

func (s *BookService) AddBook(ctx context.Context, in ports.BookInput) (*domain.Book, error) {
	now := time.Now().UTC()
	book, err := s.books.Create(ctx, &domain.Book{
		Title:           in.Title,
		Author:          in.Author,
		ISBN:            in.ISBN,
		PublicationYear: in.PublicationYear,
		AvailableCopies: copiesOrDefault(in.AvailableCopies),
		TotalCopies:     copiesOrDefault(in.TotalCopies),
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("add book: %w", err)
	}

	s.log.Info().Str("isbn", book.ISBN).Str("title", book.Title).Msg("book added")
	return book, nil
}

func (s *BookService) UpdateBook(ctx context.Context, id string, in ports.BookInput) (*domain.Book, error) {
	current, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	current.Title = in.Title
	current.Author = in.Author
	current.ISBN = in.ISBN
	current.PublicationYear = in.PublicationYear
	current.AvailableCopies = copiesOrDefault(in.AvailableCopies)
	current.TotalCopies = copiesOrDefault(in.TotalCopies)
	current.UpdatedAt = time.Now().UTC()

	updated, err := s.books.Update(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return updated, nil
}

func (s *BookService) DeleteBook(ctx context.Context, id string) error {
	if err := s.books.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("book_id", id).Msg("book deleted")
	return nil
}

func copiesOrDefault(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
