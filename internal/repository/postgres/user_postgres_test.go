package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "full_name", "email", "password_hash", "created_at", "updated_at"}

func TestUserPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserPostgres(db)
	now := time.Now().UTC()
	name := "Ada Lovelace"
	u := &model.User{FullName: &name, Email: "ada@example.com", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(name, u.Email, "hash", now, now).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("user-id", name, u.Email, "hash", now, now))

	got, err := repo.Create(context.Background(), u)

	require.NoError(t, err)
	assert.Equal(t, "user-id", got.ID)
	assert.Equal(t, &name, got.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgres_Find(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserPostgres(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("by id", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
			WithArgs("user-id").
			WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("user-id", nil, "a@example.com", "hash", now, now))

		u, err := repo.FindByID(ctx, "user-id")

		require.NoError(t, err)
		assert.Nil(t, u.FullName)
		assert.Equal(t, "hash", u.PasswordHash)
	})

	t.Run("by email", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE email = ?").
			WithArgs("a@example.com").
			WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("user-id", "A", "a@example.com", "hash", now, now))

		u, err := repo.FindByEmail(ctx, "a@example.com")

		require.NoError(t, err)
		assert.Equal(t, "user-id", u.ID)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE email = ?").
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		u, err := repo.FindByEmail(ctx, "nobody@example.com")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, u)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserPostgres(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users ORDER BY").
		WithArgs(nil, 0).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", nil, "a@example.com", "h1", now, now).
			AddRow("u2", "Bea", "b@example.com", "h2", now, now))

	users, err := repo.List(context.Background(), repository.PageQuery{})

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "b@example.com", users[1].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgres_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()
	u := &model.User{ID: "user-id", Email: "new@example.com", PasswordHash: "hash", UpdatedAt: now}

	t.Run("updated", func(t *testing.T) {
		mock.ExpectQuery("UPDATE users SET (.+) RETURNING").
			WithArgs("user-id", nil, "new@example.com", "hash", now).
			WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("user-id", nil, "new@example.com", "hash", now, now))

		got, err := repo.Update(ctx, u)

		require.NoError(t, err)
		assert.Equal(t, "new@example.com", got.Email)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery("UPDATE users SET").
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		_, err := repo.Update(ctx, u)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM users WHERE id = ?").
		WithArgs("user-id").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM users WHERE id = ?").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(ctx, "user-id"))
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
