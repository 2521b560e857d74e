package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTokenService(t *testing.T) (*TokenService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewTokenService(&database.DB{Pool: mock}), mock
}

func TestTokenService_StoreRefreshToken(t *testing.T) {
	svc, mock := setupTokenService(t)
	userID := uuid.New()
	expiresAt := time.Now().Add(24 * time.Hour)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(userID, "abc123hash", expiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := svc.StoreRefreshToken(context.Background(), userID, "abc123hash", expiresAt)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenService_ValidateRefreshToken(t *testing.T) {
	svc, mock := setupTokenService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens`).
		WithArgs("valid-hash").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(userID))
	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens`).
		WithArgs("expired-hash").
		WillReturnError(pgx.ErrNoRows)

	got, err := svc.ValidateRefreshToken(context.Background(), "valid-hash")
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = svc.ValidateRefreshToken(context.Background(), "expired-hash")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenService_RevokeRefreshToken(t *testing.T) {
	svc, mock := setupTokenService(t)

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE token_hash`).
		WithArgs("some-hash").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, svc.RevokeRefreshToken(context.Background(), "some-hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenService_CleanupExpired(t *testing.T) {
	svc, mock := setupTokenService(t)

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE expires_at < NOW`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := svc.CleanupExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
