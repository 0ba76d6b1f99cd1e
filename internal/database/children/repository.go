// Package children provides database operations for children profiles.
//
// A child belongs to exactly one parent through ParentID and may be a member
// of one classroom through ClassroomID.
package children

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/entities"
)

var ErrEmptyName = errors.New("child name is required")

// Repository handles all child database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new children repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ChildUpdate holds optional profile fields; nil leaves a field untouched.
type ChildUpdate struct {
	Name         *string
	ReadingLevel *float64
	AvatarIndex  *int
	DateOfBirth  *time.Time
}

// CreateChild inserts a child together with the default bookshelves.
func (r *Repository) CreateChild(child *entities.Child) error {
	child.Name = strings.TrimSpace(child.Name)
	if child.Name == "" {
		return ErrEmptyName
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(child).Error; err != nil {
			return database.Translate(err)
		}
		shelves := make([]entities.Bookshelf, 0, len(entities.DefaultChildShelves))
		for _, name := range entities.DefaultChildShelves {
			childID := child.ID
			shelves = append(shelves, entities.Bookshelf{Name: name, ChildID: &childID})
		}
		return tx.Create(&shelves).Error
	})
}

// GetChild retrieves a child by ID.
func (r *Repository) GetChild(id uint) (*entities.Child, error) {
	var child entities.Child
	if err := r.db.First(&child, id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &child, nil
}

// ListForParent returns a parent's children ordered by name.
func (r *Repository) ListForParent(parentID uint) ([]entities.Child, error) {
	var children []entities.Child
	err := r.db.Where("parent_id = ?", parentID).Order("name ASC, id ASC").Find(&children).Error
	return children, err
}

// ListForClassroom returns the members of a classroom ordered by name.
func (r *Repository) ListForClassroom(classroomID uint) ([]entities.Child, error) {
	var children []entities.Child
	err := r.db.Where("classroom_id = ?", classroomID).Order("name ASC, id ASC").Find(&children).Error
	return children, err
}

// IsParentInClassroom reports whether any of the parent's children belong to
// the classroom.
func (r *Repository) IsParentInClassroom(parentID, classroomID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Child{}).
		Where("parent_id = ? AND classroom_id = ?", parentID, classroomID).
		Count(&count).Error
	return count > 0, err
}

// UpdateChild applies the non-nil fields of update.
func (r *Repository) UpdateChild(id uint, update ChildUpdate) (*entities.Child, error) {
	fields := map[string]any{}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		fields["name"] = name
	}
	if update.ReadingLevel != nil {
		fields["reading_level"] = *update.ReadingLevel
	}
	if update.AvatarIndex != nil {
		fields["avatar_index"] = *update.AvatarIndex
	}
	if update.DateOfBirth != nil {
		fields["date_of_birth"] = *update.DateOfBirth
	}
	if len(fields) > 0 {
		if err := r.updateColumns(id, fields); err != nil {
			return nil, err
		}
	}
	return r.GetChild(id)
}

// SetClassroom moves a child into a classroom, or out of any when
// classroomID is nil.
func (r *Repository) SetClassroom(childID uint, classroomID *uint) error {
	return r.updateColumns(childID, map[string]any{"classroom_id": classroomID})
}

// DeleteChild removes a child with its shelves and goal progress.
func (r *Repository) DeleteChild(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&entities.Child{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return database.ErrNotFound
		}

		shelfIDs := tx.Model(&entities.Bookshelf{}).Select("id").Where("child_id = ?", id)
		if err := tx.Where("bookshelf_id IN (?)", shelfIDs).Delete(&entities.BookshelfBook{}).Error; err != nil {
			return err
		}
		if err := tx.Where("child_id = ?", id).Delete(&entities.Bookshelf{}).Error; err != nil {
			return err
		}
		return tx.Where("child_id = ?", id).Delete(&entities.GoalProgress{}).Error
	})
}

func (r *Repository) updateColumns(id uint, fields map[string]any) error {
	result := r.db.Model(&entities.Child{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return database.Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}
