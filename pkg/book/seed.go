package book

import (
	"context"
	"fmt"
)

// SeedData returns example books to pre-populate an empty catalog.
func SeedData() []Fields {
	return []Fields{
		newFields("Código Limpo", "Robert Cecil Martin", 2008, "978-8576082675"),
		newFields("Pense em Python", "Allen B. Downey", 2016, "978-8575225080"),
		newFields("1984", "George Orwell", 1949, "978-0451524935"),
		newFields("O Senhor dos Anéis", "J.R.R. Tolkien", 1954, "978-0544003415"),
		newFields("Dom Casmurro", "Machado de Assis", 1899, "978-8535928341"),
	}
}

// Seed creates the given books when repo holds none. It returns the
// number of books created.
func Seed(ctx context.Context, repo Repository, books []Fields) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: list: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, f := range books {
		if _, err := repo.Create(ctx, f); err != nil {
			return i, fmt.Errorf("seed: create %d: %w", i, err)
		}
	}
	return len(books), nil
}

func newFields(title, author string, year int, isbn string) Fields {
	return Fields{Title: &title, Author: &author, Year: &year, ISBN: &isbn}
}
