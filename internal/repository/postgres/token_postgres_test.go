package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docvault/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenRowColumns = []string{"id", "user_id", "token_hash", "expires_at", "created_at"}

func TestTokenPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTokenPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("never expires", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO auth_access_tokens").
			WithArgs("user-id", "digest", nil, now).
			WillReturnRows(sqlmock.NewRows(tokenRowColumns).AddRow("tok-id", "user-id", "digest", nil, now))

		tok, err := repo.Create(ctx, &model.AccessToken{UserID: "user-id", TokenHash: "digest", CreatedAt: now})

		require.NoError(t, err)
		assert.Equal(t, "tok-id", tok.ID)
		assert.Nil(t, tok.ExpiresAt)
	})

	t.Run("with expiry", func(t *testing.T) {
		exp := now.Add(time.Hour)
		mock.ExpectQuery("INSERT INTO auth_access_tokens").
			WithArgs("user-id", "digest2", exp, now).
			WillReturnRows(sqlmock.NewRows(tokenRowColumns).AddRow("tok-id2", "user-id", "digest2", exp, now))

		tok, err := repo.Create(ctx, &model.AccessToken{UserID: "user-id", TokenHash: "digest2", ExpiresAt: &exp, CreatedAt: now})

		require.NoError(t, err)
		require.NotNil(t, tok.ExpiresAt)
		assert.True(t, exp.Equal(*tok.ExpiresAt))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenPostgres_FindByHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTokenPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM auth_access_tokens WHERE token_hash = ?").
		WithArgs("digest").
		WillReturnRows(sqlmock.NewRows(tokenRowColumns).AddRow("tok-id", "user-id", "digest", nil, time.Now()))
	mock.ExpectQuery("SELECT (.+) FROM auth_access_tokens WHERE token_hash = ?").
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)

	tok, err := repo.FindByHash(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, "user-id", tok.UserID)

	_, err = repo.FindByHash(ctx, "unknown")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenPostgres_DeleteByHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTokenPostgres(db)

	mock.ExpectExec("DELETE FROM auth_access_tokens WHERE token_hash = ?").
		WithArgs("digest").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.DeleteByHash(context.Background(), "digest"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenPostgres_HashesByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTokenPostgres(db)
	ctx := context.Background()

	t.Run("lists digests", func(t *testing.T) {
		mock.ExpectQuery("SELECT token_hash FROM auth_access_tokens WHERE user_id = \\$1").
			WithArgs("user-id").
			WillReturnRows(sqlmock.NewRows([]string{"token_hash"}).AddRow("d1").AddRow("d2"))

		hashes, err := repo.HashesByUser(ctx, "user-id")
		require.NoError(t, err)
		assert.Equal(t, []string{"d1", "d2"}, hashes)
	})

	t.Run("no tokens", func(t *testing.T) {
		mock.ExpectQuery("SELECT token_hash FROM auth_access_tokens").
			WithArgs("other").
			WillReturnRows(sqlmock.NewRows([]string{"token_hash"}))

		hashes, err := repo.HashesByUser(ctx, "other")
		require.NoError(t, err)
		assert.Empty(t, hashes)
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery("SELECT token_hash FROM auth_access_tokens").
			WithArgs("broken").
			WillReturnError(sql.ErrConnDone)

		_, err := repo.HashesByUser(ctx, "broken")
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
