package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookflow/pkg/book"
)

var columns = []string{"id", "titulo", "autor", "ano", "isbn"}

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db), mock
}

func TestMigrateCreatesTable(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS livros")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), repo.db))
}

func TestMockCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO livros (titulo,autor,ano,isbn)")).
		WithArgs("1984", "George Orwell", 1949, "978-0451524935").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	b, err := repo.Create(context.Background(), book.Fields{
		Title: ptr("1984"), Author: ptr("George Orwell"), Year: ptr(1949), ISBN: ptr("978-0451524935"),
	})
	require.NoError(t, err)
	assert.Equal(t, book.Book{ID: 7, Title: "1984", Author: "George Orwell", Year: 1949, ISBN: "978-0451524935"}, b)
}

func TestMockCreateInvalidSkipsDatabase(t *testing.T) {
	repo, _ := newMockRepo(t)
	_, err := repo.Create(context.Background(), book.Fields{Title: ptr("1984")})
	var verr *book.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMockIDsComeFromSequence(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	f := book.Fields{Title: ptr("A"), Author: ptr("B"), Year: ptr(2000), ISBN: ptr("C")}
	insert := regexp.QuoteMeta("INSERT INTO livros")

	mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM livros WHERE id=$1")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	first, err := repo.Create(ctx, f)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, first.ID))
	second, err := repo.Create(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)
}

func TestMockList(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,titulo,autor,ano,isbn FROM livros ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(1, "1984", "George Orwell", 1949, "978-0451524935").
			AddRow(2, "Dom Casmurro", "Machado de Assis", 1899, "978-8535928341"))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1984", list[0].Title)
	assert.Equal(t, 2, list[1].ID)
}

func TestMockListEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM livros ORDER BY id")).WillReturnRows(sqlmock.NewRows(columns))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestMockGetMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM livros WHERE id=$1")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Get(context.Background(), 42)
	assert.ErrorIs(t, err, book.ErrNotFound)
}

func TestMockPartialUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE livros SET")).
		WithArgs(1, "1984 - Nova Edição", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(1, "1984 - Nova Edição", "George Orwell", 1949, "978-0451524935"))

	b, err := repo.Update(context.Background(), 1, book.Fields{Title: ptr("1984 - Nova Edição")})
	require.NoError(t, err)
	assert.Equal(t, book.Book{ID: 1, Title: "1984 - Nova Edição", Author: "George Orwell", Year: 1949, ISBN: "978-0451524935"}, b)
}

func TestMockUpdateMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE livros SET")).
		WithArgs(999, "x", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Update(context.Background(), 999, book.Fields{Title: ptr("x")})
	assert.ErrorIs(t, err, book.ErrNotFound)
}

func TestMockDeleteMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM livros WHERE id=$1")).
		WithArgs(999).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 999), book.ErrNotFound)
}

func TestMockDeleteRowsAffectedError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("rows affected unavailable")
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM livros WHERE id=$1")).
		WithArgs(3).
		WillReturnResult(sqlmock.NewErrorResult(boom))

	err := repo.Delete(context.Background(), 3)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, book.ErrNotFound)
}

func TestMockStorageErrorIsWrapped(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("FROM livros WHERE id=$1")).WithArgs(5).WillReturnError(boom)

	_, err := repo.Get(context.Background(), 5)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, book.ErrNotFound)
}
