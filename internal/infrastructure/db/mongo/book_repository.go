package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/librarium/library-system/internal/core/domain"
)

const bookCollection = "books"

// BookRepository is the MongoDB-backed catalog store.
type BookRepository struct {
	coll *mongo.Collection
}

func NewBookRepository(db *mongo.Database) *BookRepository {
	return &BookRepository{coll: db.Collection(bookCollection)}
}

type mongoBook struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Title           string             `bson:"title"`
	Author          string             `bson:"author"`
	ISBN            string             `bson:"isbn"`
	PublicationYear int                `bson:"publication_year,omitempty"`
	AvailableCopies int                `bson:"available_copies"`
	TotalCopies     int                `bson:"total_copies"`
	CreatedAt       int64              `bson:"created_at"`
	UpdatedAt       int64              `bson:"updated_at"`
}

// EnsureIndexes creates the unique ISBN index.
func (r *BookRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "isbn", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("book indexes: %w", err)
	}
	return nil
}

func (r *BookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer cur.Close(ctx)

	books := make([]*domain.Book, 0)
	for cur.Next(ctx) {
		var mb mongoBook
		if err := cur.Decode(&mb); err != nil {
			return nil, fmt.Errorf("decode book: %w", err)
		}
		books = append(books, toDomainBook(mb))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (r *BookRepository) FindByID(ctx context.Context, id string) (*domain.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrBookNotFound
	}

	var mb mongoBook
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&mb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBookNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return toDomainBook(mb), nil
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	doc := mongoBook{
		Title:           book.Title,
		Author:          book.Author,
		ISBN:            book.ISBN,
		PublicationYear: book.PublicationYear,
		AvailableCopies: book.AvailableCopies,
		TotalCopies:     book.TotalCopies,
		CreatedAt:       book.CreatedAt.Unix(),
		UpdatedAt:       book.UpdatedAt.Unix(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrBookExists
		}
		return nil, fmt.Errorf("insert book: %w", err)
	}

	created := *book
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = id.Hex()
	}
	return &created, nil
}

func (r *BookRepository) Update(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	oid, err := primitive.ObjectIDFromHex(book.ID)
	if err != nil {
		return nil, domain.ErrBookNotFound
	}

	update := bson.M{"$set": bson.M{
		"title":            book.Title,
		"author":           book.Author,
		"isbn":             book.ISBN,
		"publication_year": book.PublicationYear,
		"available_copies": book.AvailableCopies,
		"total_copies":     book.TotalCopies,
		"updated_at":       book.UpdatedAt.Unix(),
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrBookExists
		}
		return nil, fmt.Errorf("update book: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrBookNotFound
	}
	return book, nil
}

func (r *BookRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrBookNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func toDomainBook(mb mongoBook) *domain.Book {
	return &domain.Book{
		ID:              mb.ID.Hex(),
		Title:           mb.Title,
		Author:          mb.Author,
		ISBN:            mb.ISBN,
		PublicationYear: mb.PublicationYear,
		AvailableCopies: mb.AvailableCopies,
		TotalCopies:     mb.TotalCopies,
		CreatedAt:       unixToTime(mb.CreatedAt),
		UpdatedAt:       unixToTime(mb.UpdatedAt),
	}
}
