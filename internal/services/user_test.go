package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/oauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{
	"id", "email", "name", "avatar_url", "provider", "provider_id", "created_at", "updated_at",
}

func setupUserService(t *testing.T) (*UserService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewUserService(&database.DB{Pool: mock}), mock
}

func TestUserService_FindOrCreateFromOAuth_CreateNew(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	info := &oauth.UserInfo{
		Email:     "new@example.com",
		Name:      "New User",
		AvatarURL: "https://example.com/avatar.png",
		ID:        "provider-123",
		Provider:  "github",
	}
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnError(pgx.ErrNoRows)

	rows := pgxmock.NewRows(userRowColumns).
		AddRow(userID, info.Email, info.Name, &info.AvatarURL, info.Provider, info.ID, now, now)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(info.Email, info.Name, &info.AvatarURL, info.Provider, info.ID).
		WillReturnRows(rows)

	user, err := svc.FindOrCreateFromOAuth(ctx, info)

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, info.Email, user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_FindOrCreateFromOAuth_UpdateExisting(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	info := &oauth.UserInfo{
		Email:     "updated@example.com",
		Name:      "Updated Name",
		AvatarURL: "https://example.com/new-avatar.png",
		ID:        "provider-789",
		Provider:  "google",
	}
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(userRowColumns).
		AddRow(userID, "old@example.com", "Old Name", nil, info.Provider, info.ID, now, now)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnRows(rows)
	mock.ExpectExec(`UPDATE users SET email = .+, name = .+, avatar_url`).
		WithArgs(info.Email, info.Name, &info.AvatarURL, userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	user, err := svc.FindOrCreateFromOAuth(ctx, info)

	require.NoError(t, err)
	assert.Equal(t, info.Name, user.Name)
	require.NotNil(t, user.AvatarURL)
	assert.Equal(t, info.AvatarURL, *user.AvatarURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_FindOrCreateFromOAuth_LookupFails(t *testing.T) {
	svc, mock := setupUserService(t)
	info := &oauth.UserInfo{ID: "x", Provider: "github"}

	mock.ExpectQuery(`SELECT .+ FROM users WHERE provider`).
		WithArgs(info.Provider, info.ID).
		WillReturnError(errors.New("connection reset"))

	_, err := svc.FindOrCreateFromOAuth(context.Background(), info)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to look up user")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id`).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(context.Background(), userID)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByEmail(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	email := "find@example.com"
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs(email).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, email, "Test User", nil, "github", "123", now, now))

	user, err := svc.GetByEmail(context.Background(), email)

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Update(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE users SET name = .+ WHERE id`).
		WithArgs("Renamed", userID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "test@example.com", "Renamed", nil, "github", "123", now, now))

	user, err := svc.Update(context.Background(), userID, "Renamed")

	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
