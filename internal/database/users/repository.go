// Package users provides database operations for user accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByLogin("ada")
package users

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookworms/internal/auth"
	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/entities"
)

var _ auth.UserStore = (*Repository)(nil)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ProfileUpdate holds optional profile fields; nil leaves a field untouched.
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// CreateUser inserts a user. Duplicate usernames or emails return
// database.ErrConflict.
func (r *Repository) CreateUser(user *entities.User) error {
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return database.Translate(r.db.Create(user).Error)
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, database.Translate(err)
	}
	return &user, nil
}

// GetUserByLogin matches a username exactly or an email case-insensitively.
func (r *Repository) GetUserByLogin(login string) (*entities.User, error) {
	login = strings.TrimSpace(login)
	var user entities.User
	err := r.db.Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if err != nil {
		return nil, database.Translate(err)
	}
	return &user, nil
}

func (r *Repository) UpdatePassword(userID uint, hash, salt string) error {
	return r.updateColumns(userID, map[string]any{
		"password_hash": hash,
		"password_salt": salt,
	})
}

func (r *Repository) TouchLastLogin(userID uint, at time.Time) error {
	return r.updateColumns(userID, map[string]any{"last_login_at": at})
}

// UpdateProfile applies the non-nil fields of update and returns the result.
func (r *Repository) UpdateProfile(userID uint, update ProfileUpdate) (*entities.User, error) {
	fields := map[string]any{}
	if update.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*update.Email))
	}
	if update.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*update.LastName)
	}
	if len(fields) > 0 {
		if err := r.updateColumns(userID, fields); err != nil {
			return nil, err
		}
	}
	return r.GetUserByID(userID)
}

// ListUsers returns all users ordered by username.
func (r *Repository) ListUsers() ([]entities.User, error) {
	var users []entities.User
	if err := r.db.Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser soft-deletes a user by username.
func (r *Repository) DeleteUser(username string) error {
	result := r.db.Where("username = ?", username).Delete(&entities.User{})
	if result.Error != nil {
		return database.Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// CountUsers returns the number of active users.
func (r *Repository) CountUsers() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

func (r *Repository) updateColumns(userID uint, fields map[string]any) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", userID).Updates(fields)
	if result.Error != nil {
		return database.Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}
