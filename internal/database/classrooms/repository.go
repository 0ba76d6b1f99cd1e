// Package classrooms provides database operations for classrooms, their
// join codes and reading goals.
package classrooms

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/entities"
)

const (
	ClassCodeLength = 6
	// Ambiguous characters (0/O, 1/I) are left out.
	classCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts   = 5
)

var ErrEmptyName = errors.New("classroom name is required")

// Repository handles all classroom and goal database operations.
type Repository struct {
	db      *gorm.DB
	newCode func() (string, error)
}

// NewRepository creates a new classrooms repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, newCode: GenerateClassCode}
}

// GenerateClassCode returns a random join code.
func GenerateClassCode() (string, error) {
	max := big.NewInt(int64(len(classCodeAlphabet)))
	var sb strings.Builder
	for i := 0; i < ClassCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(classCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeClassCode uppercases and trims a user supplied code.
func NormalizeClassCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateClassroom inserts a classroom with a fresh unique class code.
func (r *Repository) CreateClassroom(classroom *entities.Classroom) error {
	classroom.Name = strings.TrimSpace(classroom.Name)
	if classroom.Name == "" {
		return ErrEmptyName
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return fmt.Errorf("failed to generate class code: %w", err)
		}
		classroom.ID = 0
		classroom.ClassCode = code

		err = database.Translate(r.db.Create(classroom).Error)
		if errors.Is(err, database.ErrConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("could not allocate a unique class code: %w", database.ErrConflict)
}

// GetClassroom retrieves a classroom by ID.
func (r *Repository) GetClassroom(id uint) (*entities.Classroom, error) {
	var classroom entities.Classroom
	if err := r.db.First(&classroom, id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &classroom, nil
}

// GetByClassCode retrieves a classroom by its join code, ignoring case.
func (r *Repository) GetByClassCode(code string) (*entities.Classroom, error) {
	var classroom entities.Classroom
	err := r.db.Where("class_code = ?", NormalizeClassCode(code)).First(&classroom).Error
	if err != nil {
		return nil, database.Translate(err)
	}
	return &classroom, nil
}

// ListForTeacher returns a teacher's classrooms ordered by name.
func (r *Repository) ListForTeacher(teacherID uint) ([]entities.Classroom, error) {
	var classrooms []entities.Classroom
	err := r.db.Where("teacher_id = ?", teacherID).Order("name ASC, id ASC").Find(&classrooms).Error
	return classrooms, err
}

// DeleteClassroom removes a classroom, releases its members and drops its
// shelves and goals.
func (r *Repository) DeleteClassroom(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&entities.Classroom{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return database.ErrNotFound
		}

		if err := tx.Model(&entities.Child{}).Where("classroom_id = ?", id).
			Update("classroom_id", nil).Error; err != nil {
			return err
		}

		shelfIDs := tx.Model(&entities.Bookshelf{}).Select("id").Where("classroom_id = ?", id)
		if err := tx.Where("bookshelf_id IN (?)", shelfIDs).Delete(&entities.BookshelfBook{}).Error; err != nil {
			return err
		}
		if err := tx.Where("classroom_id = ?", id).Delete(&entities.Bookshelf{}).Error; err != nil {
			return err
		}

		goalIDs := tx.Model(&entities.Goal{}).Select("id").Where("classroom_id = ?", id)
		if err := tx.Where("goal_id IN (?)", goalIDs).Delete(&entities.GoalProgress{}).Error; err != nil {
			return err
		}
		return tx.Where("classroom_id = ?", id).Delete(&entities.Goal{}).Error
	})
}
