package book

import (
	"context"
	"errors"
)

// Book represents a catalogued book.
type Book struct {
	ID     int    `json:"id"`
	Title  string `json:"titulo"`
	Author string `json:"autor"`
	Year   int    `json:"ano"`
	ISBN   string `json:"isbn"`
}

// Fields carries client supplied book attributes. A nil pointer marks an
// attribute that was absent from the request.
type Fields struct {
	Title  *string `json:"titulo" validate:"required,min=1"`
	Author *string `json:"autor" validate:"required"`
	Year   *int    `json:"ano" validate:"required,gte=1000"`
	ISBN   *string `json:"isbn" validate:"required"`
}

// Repository defines behavior for storing books.
type Repository interface {
	List(ctx context.Context) ([]Book, error)
	Get(ctx context.Context, id int) (Book, error)
	Create(ctx context.Context, f Fields) (Book, error)
	Update(ctx context.Context, id int, f Fields) (Book, error)
	Delete(ctx context.Context, id int) error
}

// ErrNotFound indicates the requested book does not exist.
var ErrNotFound = errors.New("book not found")

// ErrMalformedBody indicates the request body is not a JSON object.
var ErrMalformedBody = errors.New("malformed request body")

// ValidationError reports a create or update payload that breaks a field rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Apply returns a copy of b with every field present in f overwritten.
// The ID is never touched.
func (b Book) Apply(f Fields) Book {
	if f.Title != nil {
		b.Title = *f.Title
	}
	if f.Author != nil {
		b.Author = *f.Author
	}
	if f.Year != nil {
		b.Year = *f.Year
	}
	if f.ISBN != nil {
		b.ISBN = *f.ISBN
	}
	return b
}

// Book validates f as a creation payload and returns the record it
// describes, without an ID.
func (f Fields) Book() (Book, error) {
	if err := f.Validate(); err != nil {
		return Book{}, err
	}
	return Book{}.Apply(f), nil
}
