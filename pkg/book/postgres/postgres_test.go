package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookflow/pkg/book"
)

func ptr[T any](v T) *T { return &v }

// openTestRepo connects to TEST_DATABASE_URL and empties the livros table.
func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	repo, err := Open(ctx, dsn)
	require.NoError(t, err)
	_, err = repo.db.ExecContext(ctx, "TRUNCATE livros RESTART IDENTITY")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, book.Fields{Title: ptr("1984"), Author: ptr("George Orwell"), Year: ptr(1949), ISBN: ptr("978-0451524935")})
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := repo.Update(ctx, created.ID, book.Fields{Title: ptr("1984 - Nova Edição")})
	require.NoError(t, err)
	assert.Equal(t, "1984 - Nova Edição", updated.Title)
	assert.Equal(t, "George Orwell", updated.Author)
	assert.Equal(t, 1949, updated.Year)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, book.ErrNotFound)
}

func TestRepositoryMissing(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.Update(ctx, 999, book.Fields{Title: ptr("x")})
	assert.ErrorIs(t, err, book.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 999), book.ErrNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRepositoryRejectsInvalidCreate(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, book.Fields{Title: ptr("X"), Author: ptr("Y"), Year: ptr(500), ISBN: ptr("z")})
	var verr *book.ValidationError
	assert.ErrorAs(t, err, &verr)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
