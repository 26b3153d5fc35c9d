// Package memory implements the in-memory book catalog.
package memory

import (
	"context"
	"slices"
	"sync"

	"bookflow/pkg/book"
)

// Store provides an in-memory implementation of book.Repository. Books are
// kept in insertion order and looked up by linear scan.
type Store struct {
	mu     sync.RWMutex
	books  []book.Book
	nextID int
}

// New creates an empty store.
func New() *Store {
	return &Store{nextID: 1}
}

// List returns all books in store order.
func (s *Store) List(ctx context.Context) ([]book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]book.Book, len(s.books))
	copy(out, s.books)
	return out, nil
}

// Get retrieves a book by ID.
func (s *Store) Get(ctx context.Context, id int) (book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return book.Book{}, book.ErrNotFound
	}
	return s.books[i], nil
}

// Create validates f and appends the new book. IDs come from a counter that
// only moves forward, so an ID is never handed out twice even after
// deletions.
func (s *Store) Create(ctx context.Context, f book.Fields) (book.Book, error) {
	b, err := f.Book()
	if err != nil {
		return book.Book{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextID
	s.nextID++
	s.books = append(s.books, b)
	return b, nil
}

// Update overwrites the fields present in f on the book with the given ID.
func (s *Store) Update(ctx context.Context, id int, f book.Fields) (book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return book.Book{}, book.ErrNotFound
	}
	s.books[i] = s.books[i].Apply(f)
	return s.books[i], nil
}

// Delete removes a book by ID.
func (s *Store) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return book.ErrNotFound
	}
	s.books = slices.Delete(s.books, i, i+1)
	return nil
}

// Reset drops every book and restarts IDs at 1.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = nil
	s.nextID = 1
}

// index must be called with mu held.
func (s *Store) index(id int) int {
	return slices.IndexFunc(s.books, func(b book.Book) bool { return b.ID == id })
}
