package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/database/dbtest"
	"github.com/mrlokans/bookworms/internal/entities"
)

func setupTestRepo(t *testing.T) *Repository {
	return NewRepository(dbtest.Open(t))
}

func newUser(username, email string) *entities.User {
	return &entities.User{
		Username:     username,
		Email:        email,
		Role:         entities.UserRoleParent,
		PasswordHash: "hash",
		PasswordSalt: "salt",
	}
}

func TestRepository_CreateUser(t *testing.T) {
	repo := setupTestRepo(t)

	user := newUser(" ada ", "Ada@Example.com")
	require.NoError(t, repo.CreateUser(user))

	assert.NotZero(t, user.ID)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestRepository_CreateUser_Duplicate(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.CreateUser(newUser("ada", "ada@example.com")))

	err := repo.CreateUser(newUser("ada", "other@example.com"))
	assert.ErrorIs(t, err, database.ErrConflict)

	err = repo.CreateUser(newUser("grace", "ada@example.com"))
	assert.ErrorIs(t, err, database.ErrConflict)
}

func TestRepository_GetUserByLogin(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.CreateUser(newUser("ada", "ada@example.com")))

	byName, err := repo.GetUserByLogin("ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", byName.Username)

	byEmail, err := repo.GetUserByLogin("ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, byName.ID, byEmail.ID)

	_, err = repo.GetUserByLogin("nobody")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_UpdatePassword(t *testing.T) {
	repo := setupTestRepo(t)
	user := newUser("ada", "ada@example.com")
	require.NoError(t, repo.CreateUser(user))

	require.NoError(t, repo.UpdatePassword(user.ID, "newhash", "newsalt"))

	got, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.PasswordHash)
	assert.Equal(t, "newsalt", got.PasswordSalt)

	assert.ErrorIs(t, repo.UpdatePassword(9999, "h", "s"), database.ErrNotFound)
}

func TestRepository_TouchLastLogin(t *testing.T) {
	repo := setupTestRepo(t)
	user := newUser("ada", "ada@example.com")
	require.NoError(t, repo.CreateUser(user))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastLogin(user.ID, at))

	got, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(at))
}

func TestRepository_UpdateProfile(t *testing.T) {
	repo := setupTestRepo(t)
	user := newUser("ada", "ada@example.com")
	user.FirstName = "Ada"
	require.NoError(t, repo.CreateUser(user))

	last := "Lovelace"
	got, err := repo.UpdateProfile(user.ID, ProfileUpdate{LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)
}

func TestRepository_DeleteUser(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.CreateUser(newUser("ada", "ada@example.com")))
	require.NoError(t, repo.CreateUser(newUser("grace", "grace@example.com")))

	require.NoError(t, repo.DeleteUser("ada"))

	_, err := repo.GetUserByUsername("ada")
	assert.ErrorIs(t, err, database.ErrNotFound)

	users, err := repo.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "grace", users[0].Username)

	assert.ErrorIs(t, repo.DeleteUser("ada"), database.ErrNotFound)
}
