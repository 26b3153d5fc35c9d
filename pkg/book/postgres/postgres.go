package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"bookflow/pkg/book"
)

const schema = `CREATE TABLE IF NOT EXISTS livros (
	id     SERIAL PRIMARY KEY,
	titulo TEXT NOT NULL,
	autor  TEXT NOT NULL,
	ano    INT  NOT NULL,
	isbn   TEXT NOT NULL
)`

// Repository persists books in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// Open connects to the database at dsn and makes sure the livros table
// exists.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// Migrate creates the livros table if it is missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create table livros: %w", err)
	}
	return nil
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// List fetches all books ordered by ID.
func (r *Repository) List(ctx context.Context) ([]book.Book, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id,titulo,autor,ano,isbn FROM livros ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list livros: %w", err)
	}
	defer rows.Close()
	books := []book.Book{}
	for rows.Next() {
		var b book.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.ISBN); err != nil {
			return nil, fmt.Errorf("scan livro: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Get retrieves a book by ID.
func (r *Repository) Get(ctx context.Context, id int) (book.Book, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id,titulo,autor,ano,isbn FROM livros WHERE id=$1", id)
	return scanOne(row, id)
}

// Create inserts a new book; the ID comes from the table's sequence.
func (r *Repository) Create(ctx context.Context, f book.Fields) (book.Book, error) {
	b, err := f.Book()
	if err != nil {
		return book.Book{}, err
	}
	err = r.db.QueryRowContext(ctx,
		"INSERT INTO livros (titulo,autor,ano,isbn) VALUES ($1,$2,$3,$4) RETURNING id",
		b.Title, b.Author, b.Year, b.ISBN).Scan(&b.ID)
	if err != nil {
		return book.Book{}, fmt.Errorf("insert livro: %w", err)
	}
	return b, nil
}

// Update overwrites the columns present in f. Absent fields are passed as
// NULL and COALESCE keeps the stored value.
func (r *Repository) Update(ctx context.Context, id int, f book.Fields) (book.Book, error) {
	row := r.db.QueryRowContext(ctx, `UPDATE livros SET
		titulo = COALESCE($2, titulo),
		autor  = COALESCE($3, autor),
		ano    = COALESCE($4, ano),
		isbn   = COALESCE($5, isbn)
		WHERE id=$1 RETURNING id,titulo,autor,ano,isbn`,
		id, f.Title, f.Author, f.Year, f.ISBN)
	return scanOne(row, id)
}

// Delete removes a book by ID.
func (r *Repository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM livros WHERE id=$1", id)
	if err != nil {
		return fmt.Errorf("delete livro %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete livro %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return book.ErrNotFound
	}
	return nil
}

func scanOne(row *sql.Row, id int) (book.Book, error) {
	var b book.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.ISBN)
	if errors.Is(err, sql.ErrNoRows) {
		return book.Book{}, book.ErrNotFound
	}
	if err != nil {
		return book.Book{}, fmt.Errorf("livro %d: %w", id, err)
	}
	return b, nil
}
