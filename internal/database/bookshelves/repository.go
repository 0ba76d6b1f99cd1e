// Package bookshelves provides database operations for bookshelves and the
// ordered books on them.
//
// A shelf is owned by exactly one child or one classroom. Shelf names are
// unique per owner, compared case-insensitively.
package bookshelves

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/entities"
)

var (
	ErrEmptyName    = errors.New("bookshelf name is required")
	ErrNameTooLong  = errors.New("bookshelf name is too long")
	ErrInvalidOwner = errors.New("bookshelf must belong to exactly one child or classroom")
)

const MaxNameLength = 100

// Repository handles all bookshelf database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new bookshelves repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateShelf inserts a shelf. A name already used by the same owner returns
// database.ErrConflict.
func (r *Repository) CreateShelf(shelf *entities.Bookshelf) error {
	shelf.Name = strings.TrimSpace(shelf.Name)
	if err := validateName(shelf.Name); err != nil {
		return err
	}
	if (shelf.ChildID == nil) == (shelf.ClassroomID == nil) {
		return ErrInvalidOwner
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueName(tx, shelf, 0); err != nil {
			return err
		}
		return database.Translate(tx.Create(shelf).Error)
	})
}

// GetShelf retrieves a shelf with its books in shelf order.
func (r *Repository) GetShelf(id uint) (*entities.Bookshelf, error) {
	var shelf entities.Bookshelf
	if err := r.db.First(&shelf, id).Error; err != nil {
		return nil, database.Translate(err)
	}
	shelves := []entities.Bookshelf{shelf}
	if err := r.loadBooks(shelves); err != nil {
		return nil, err
	}
	return &shelves[0], nil
}

// ListForChild returns a child's shelves with their books.
func (r *Repository) ListForChild(childID uint) ([]entities.Bookshelf, error) {
	return r.list("child_id = ?", childID)
}

// ListForClassroom returns a classroom's shelves with their books.
func (r *Repository) ListForClassroom(classroomID uint) ([]entities.Bookshelf, error) {
	return r.list("classroom_id = ?", classroomID)
}

// RenameShelf changes a shelf's name, keeping it unique for the owner.
func (r *Repository) RenameShelf(id uint, name string) (*entities.Bookshelf, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var shelf entities.Bookshelf
		if err := tx.First(&shelf, id).Error; err != nil {
			return database.Translate(err)
		}
		shelf.Name = name
		if err := ensureUniqueName(tx, &shelf, id); err != nil {
			return err
		}
		return tx.Model(&shelf).Update("name", name).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetShelf(id)
}

// DeleteShelf removes a shelf and its entries.
func (r *Repository) DeleteShelf(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&entities.Bookshelf{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return database.ErrNotFound
		}
		return tx.Where("bookshelf_id = ?", id).Delete(&entities.BookshelfBook{}).Error
	})
}

// AddBook appends a book to the end of a shelf. Adding a book that is
// already on the shelf is a no-op. An unknown book returns
// database.ErrInvalidReference.
func (r *Repository) AddBook(shelfID, bookID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var shelf entities.Bookshelf
		if err := tx.Select("id").First(&shelf, shelfID).Error; err != nil {
			return database.Translate(err)
		}

		var book entities.Book
		if err := tx.Select("id").First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return database.ErrInvalidReference
			}
			return err
		}

		var existing int64
		if err := tx.Model(&entities.BookshelfBook{}).
			Where("bookshelf_id = ? AND book_id = ?", shelfID, bookID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		var last int
		if err := tx.Model(&entities.BookshelfBook{}).
			Select("COALESCE(MAX(position), -1)").
			Where("bookshelf_id = ?", shelfID).
			Row().Scan(&last); err != nil {
			return err
		}

		return database.Translate(tx.Create(&entities.BookshelfBook{
			BookshelfID: shelfID,
			BookID:      bookID,
			Position:    last + 1,
			AddedAt:     time.Now(),
		}).Error)
	})
}

// RemoveBook takes a book off a shelf.
func (r *Repository) RemoveBook(shelfID, bookID uint) error {
	result := r.db.Where("bookshelf_id = ? AND book_id = ?", shelfID, bookID).
		Delete(&entities.BookshelfBook{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *Repository) list(condition string, ownerID uint) ([]entities.Bookshelf, error) {
	var shelves []entities.Bookshelf
	if err := r.db.Where(condition, ownerID).Order("id ASC").Find(&shelves).Error; err != nil {
		return nil, err
	}
	if err := r.loadBooks(shelves); err != nil {
		return nil, err
	}
	return shelves, nil
}

type shelfBookRow struct {
	BookshelfID uint
	entities.Book
}

func (r *Repository) loadBooks(shelves []entities.Bookshelf) error {
	if len(shelves) == 0 {
		return nil
	}
	ids := make([]uint, len(shelves))
	index := make(map[uint]int, len(shelves))
	for i := range shelves {
		ids[i] = shelves[i].ID
		index[shelves[i].ID] = i
		shelves[i].Books = []entities.Book{}
	}

	var rows []shelfBookRow
	err := r.db.Table("bookshelf_books").
		Select("bookshelf_books.bookshelf_id, books.*").
		Joins("JOIN books ON books.id = bookshelf_books.book_id AND books.deleted_at IS NULL").
		Where("bookshelf_books.bookshelf_id IN ?", ids).
		Order("bookshelf_books.position ASC, bookshelf_books.added_at ASC").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	for _, row := range rows {
		i := index[row.BookshelfID]
		shelves[i].Books = append(shelves[i].Books, row.Book)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func ensureUniqueName(tx *gorm.DB, shelf *entities.Bookshelf, excludeID uint) error {
	q := tx.Model(&entities.Bookshelf{}).Where("LOWER(name) = ?", strings.ToLower(shelf.Name))
	if shelf.ChildID != nil {
		q = q.Where("child_id = ?", *shelf.ChildID)
	} else {
		q = q.Where("classroom_id = ?", *shelf.ClassroomID)
	}
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return database.ErrConflict
	}
	return nil
}
