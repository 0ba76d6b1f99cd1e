package classrooms

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/entities"
)

var (
	ErrInvalidGoal      = errors.New("goal requires a title, a known kind and a positive target")
	ErrInvalidPeriod    = errors.New("goal end date must not be before its start date")
	ErrNegativeProgress = errors.New("progress must not be negative")
)

// CreateGoal inserts a goal for a classroom.
func (r *Repository) CreateGoal(goal *entities.Goal) error {
	goal.Title = strings.TrimSpace(goal.Title)
	if goal.Title == "" || goal.Target <= 0 ||
		(goal.Kind != entities.GoalKindBooks && goal.Kind != entities.GoalKindMinutes) {
		return ErrInvalidGoal
	}
	if !goal.EndDate.IsZero() && goal.EndDate.Before(goal.StartDate) {
		return ErrInvalidPeriod
	}
	goal.Progress = nil
	return database.Translate(r.db.Create(goal).Error)
}

// GetGoal retrieves a goal with the progress of every child.
func (r *Repository) GetGoal(id uint) (*entities.Goal, error) {
	var goal entities.Goal
	err := r.db.Preload("Progress", func(db *gorm.DB) *gorm.DB {
		return db.Order("child_id ASC")
	}).First(&goal, id).Error
	if err != nil {
		return nil, database.Translate(err)
	}
	return &goal, nil
}

// ListGoals returns a classroom's goals, soonest deadline first.
func (r *Repository) ListGoals(classroomID uint) ([]entities.Goal, error) {
	var goals []entities.Goal
	err := r.db.Preload("Progress", func(db *gorm.DB) *gorm.DB {
		return db.Order("child_id ASC")
	}).Where("classroom_id = ?", classroomID).Order("end_date ASC, id ASC").Find(&goals).Error
	return goals, err
}

// DeleteGoal removes a goal and its progress.
func (r *Repository) DeleteGoal(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// progress references the goal, so it goes first
		if err := tx.Where("goal_id = ?", id).Delete(&entities.GoalProgress{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Goal{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}

// SetProgress records a child's progress toward a goal, replacing any
// previous value.
func (r *Repository) SetProgress(goalID, childID uint, progress int) (*entities.GoalProgress, error) {
	if progress < 0 {
		return nil, ErrNegativeProgress
	}
	entry := &entities.GoalProgress{
		GoalID:    goalID,
		ChildID:   childID,
		Progress:  progress,
		UpdatedAt: time.Now(),
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "goal_id"}, {Name: "child_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"progress", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return nil, database.Translate(err)
	}
	return entry, nil
}
