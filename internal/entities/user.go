package entities

import (
	"time"

	"gorm.io/gorm"
)

// UserRole is the closed set of account kinds. Every user has exactly one.
type UserRole string

const (
	UserRoleParent  UserRole = "parent"
	UserRoleTeacher UserRole = "teacher"
	UserRoleAdmin   UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleParent, UserRoleTeacher, UserRoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:64" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:255" json:"email"`
	FirstName    string         `gorm:"size:100" json:"first_name"`
	LastName     string         `gorm:"size:100" json:"last_name"`
	Role         UserRole       `gorm:"size:20;index" json:"role"`
	PasswordHash string         `gorm:"size:128" json:"-"`
	PasswordSalt string         `gorm:"size:64" json:"-"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Child is a reading profile owned by a parent account.
type Child struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ParentID     uint           `gorm:"index;not null" json:"parent_id"`
	Name         string         `gorm:"size:100" json:"name"`
	ReadingLevel *float64       `json:"reading_level,omitempty"`
	AvatarIndex  int            `json:"avatar_index"`
	DateOfBirth  *time.Time     `json:"date_of_birth,omitempty"`
	ClassroomID  *uint          `gorm:"index" json:"classroom_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Child) TableName() string {
	return "children"
}
