package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookworms/internal/config"
	"github.com/mrlokans/bookworms/internal/entities"
)

func setupTestDB(t *testing.T) *Database {
	db, err := NewDatabase(config.Database{
		Driver:   config.DatabaseDriverSQLite,
		Path:     filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase_SQLite(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Ping(context.Background()))

	for _, model := range Models {
		assert.True(t, db.DB.Migrator().HasTable(model), "missing table for %T", model)
	}
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNewDatabase_PostgresRequiresDSN(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: config.DatabaseDriverPostgres})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DSN")
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, Translate(nil))
	assert.ErrorIs(t, Translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, Translate(gorm.ErrDuplicatedKey), ErrConflict)
	assert.ErrorIs(t, Translate(gorm.ErrForeignKeyViolated), ErrInvalidReference)

	other := errors.New("boom")
	assert.Equal(t, other, Translate(other))
}

func TestUniqueConstraintsAreTranslated(t *testing.T) {
	db := setupTestDB(t)

	user := entities.User{Username: "ada", Email: "ada@example.com", Role: entities.UserRoleParent}
	require.NoError(t, db.DB.Create(&user).Error)

	dup := entities.User{Username: "ada", Email: "other@example.com", Role: entities.UserRoleParent}
	err := db.DB.Create(&dup).Error
	assert.ErrorIs(t, Translate(err), ErrConflict)
}

func TestParseLogLevel(t *testing.T) {
	assert.NotEqual(t, parseLogLevel("silent"), parseLogLevel("info"))
	assert.Equal(t, parseLogLevel("warn"), parseLogLevel("unknown"))
}
