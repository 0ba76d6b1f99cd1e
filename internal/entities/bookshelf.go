package entities

import (
	"time"
)

// Names of the shelves every new child starts with.
var DefaultChildShelves = []string{"Currently Reading", "Finished", "Want to Read"}

// Bookshelf is owned by exactly one child or one classroom.
type Bookshelf struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100" json:"name"`
	ChildID     *uint     `gorm:"index" json:"child_id,omitempty"`
	ClassroomID *uint     `gorm:"index" json:"classroom_id,omitempty"`
	Books       []Book    `gorm:"-" json:"books"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Bookshelf) TableName() string {
	return "bookshelves"
}

// BookshelfBook is one ordered entry on a shelf.
type BookshelfBook struct {
	BookshelfID uint      `gorm:"primaryKey" json:"bookshelf_id"`
	BookID      uint      `gorm:"primaryKey" json:"book_id"`
	Position    int       `json:"position"`
	AddedAt     time.Time `json:"added_at"`
}

func (BookshelfBook) TableName() string {
	return "bookshelf_books"
}
