package entities

import (
	"time"

	"gorm.io/gorm"
)

type Classroom struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TeacherID uint           `gorm:"index;not null" json:"teacher_id"`
	Name      string         `gorm:"size:100" json:"name"`
	ClassCode string         `gorm:"uniqueIndex;size:6" json:"class_code"`
	Children  []Child        `gorm:"-" json:"children,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Classroom) TableName() string {
	return "classrooms"
}

type GoalKind string

const (
	GoalKindBooks   GoalKind = "books"
	GoalKindMinutes GoalKind = "minutes"
)

type Goal struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ClassroomID uint           `gorm:"index;not null" json:"classroom_id"`
	Title       string         `gorm:"size:200" json:"title"`
	Kind        GoalKind       `gorm:"size:20" json:"kind"`
	Target      int            `json:"target"`
	StartDate   time.Time      `json:"start_date"`
	EndDate     time.Time      `json:"end_date"`
	Progress    []GoalProgress `gorm:"foreignKey:GoalID" json:"progress,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Goal) TableName() string {
	return "goals"
}

// GoalProgress tracks one child's progress toward a classroom goal.
type GoalProgress struct {
	GoalID    uint      `gorm:"primaryKey" json:"goal_id"`
	ChildID   uint      `gorm:"primaryKey" json:"child_id"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GoalProgress) TableName() string {
	return "goal_progress"
}

// Completed reports whether p has reached the goal's target.
func (p GoalProgress) Completed(goal Goal) bool {
	return goal.Target > 0 && p.Progress >= goal.Target
}
