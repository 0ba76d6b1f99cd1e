package classrooms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/database/dbtest"
	"github.com/mrlokans/bookworms/internal/entities"
)

func setupTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	db := dbtest.Open(t)
	return NewRepository(db), db
}

func TestGenerateClassCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateClassCode()
		require.NoError(t, err)
		assert.Len(t, code, ClassCodeLength)
		for _, c := range code {
			assert.Contains(t, classCodeAlphabet, string(c))
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestRepository_CreateClassroom(t *testing.T) {
	repo, _ := setupTestRepo(t)

	classroom := &entities.Classroom{TeacherID: 1, Name: " Room 4 "}
	require.NoError(t, repo.CreateClassroom(classroom))
	assert.NotZero(t, classroom.ID)
	assert.Equal(t, "Room 4", classroom.Name)
	assert.Len(t, classroom.ClassCode, ClassCodeLength)

	got, err := repo.GetByClassCode(" " + classroom.ClassCode + " ")
	require.NoError(t, err)
	assert.Equal(t, classroom.ID, got.ID)

	_, err = repo.GetByClassCode("NOPE00")
	assert.ErrorIs(t, err, database.ErrNotFound)

	assert.ErrorIs(t, repo.CreateClassroom(&entities.Classroom{TeacherID: 1}), ErrEmptyName)
}

func TestRepository_CreateClassroom_RetriesCodeCollision(t *testing.T) {
	repo, _ := setupTestRepo(t)

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	repo.newCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	first := &entities.Classroom{TeacherID: 1, Name: "One"}
	second := &entities.Classroom{TeacherID: 1, Name: "Two"}
	require.NoError(t, repo.CreateClassroom(first))
	require.NoError(t, repo.CreateClassroom(second))

	assert.Equal(t, "AAAAAA", first.ClassCode)
	assert.Equal(t, "BBBBBB", second.ClassCode)
}

func TestRepository_ListForTeacher(t *testing.T) {
	repo, _ := setupTestRepo(t)
	require.NoError(t, repo.CreateClassroom(&entities.Classroom{TeacherID: 1, Name: "Zeta"}))
	require.NoError(t, repo.CreateClassroom(&entities.Classroom{TeacherID: 1, Name: "Alpha"}))
	require.NoError(t, repo.CreateClassroom(&entities.Classroom{TeacherID: 2, Name: "Other"}))

	rooms, err := repo.ListForTeacher(1)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Alpha", rooms[0].Name)
}

func TestRepository_DeleteClassroom(t *testing.T) {
	repo, db := setupTestRepo(t)
	classroom := &entities.Classroom{TeacherID: 1, Name: "Room 4"}
	require.NoError(t, repo.CreateClassroom(classroom))

	child := &entities.Child{ParentID: 3, Name: "Milo", ClassroomID: &classroom.ID}
	require.NoError(t, db.Create(child).Error)
	shelf := &entities.Bookshelf{Name: "Class picks", ClassroomID: &classroom.ID}
	require.NoError(t, db.Create(shelf).Error)
	require.NoError(t, db.Create(&entities.BookshelfBook{BookshelfID: shelf.ID, BookID: 1}).Error)
	goal := &entities.Goal{ClassroomID: classroom.ID, Title: "Read", Kind: entities.GoalKindBooks, Target: 5}
	require.NoError(t, repo.CreateGoal(goal))
	_, err := repo.SetProgress(goal.ID, child.ID, 2)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteClassroom(classroom.ID))

	_, err = repo.GetClassroom(classroom.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	var reloaded entities.Child
	require.NoError(t, db.First(&reloaded, child.ID).Error)
	assert.Nil(t, reloaded.ClassroomID)

	var count int64
	db.Model(&entities.Bookshelf{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&entities.BookshelfBook{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&entities.Goal{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&entities.GoalProgress{}).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.DeleteClassroom(classroom.ID), database.ErrNotFound)
}

func TestRepository_Goals(t *testing.T) {
	repo, db := setupTestRepo(t)

	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	goal := &entities.Goal{
		ClassroomID: 1,
		Title:       "Autumn reading",
		Kind:        entities.GoalKindBooks,
		Target:      3,
		StartDate:   start,
		EndDate:     start.AddDate(0, 2, 0),
	}
	require.NoError(t, repo.CreateGoal(goal))

	_, err := repo.SetProgress(goal.ID, 10, 1)
	require.NoError(t, err)
	_, err = repo.SetProgress(goal.ID, 11, 3)
	require.NoError(t, err)
	_, err = repo.SetProgress(goal.ID, 10, 2)
	require.NoError(t, err, "progress is replaced, not duplicated")

	got, err := repo.GetGoal(goal.ID)
	require.NoError(t, err)
	require.Len(t, got.Progress, 2)
	assert.Equal(t, 2, got.Progress[0].Progress)
	assert.False(t, got.Progress[0].Completed(*got))
	assert.True(t, got.Progress[1].Completed(*got))

	goals, err := repo.ListGoals(1)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Len(t, goals[0].Progress, 2)

	require.NoError(t, repo.DeleteGoal(goal.ID))
	_, err = repo.GetGoal(goal.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	var count int64
	db.Model(&entities.GoalProgress{}).Where("goal_id = ?", goal.ID).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.DeleteGoal(goal.ID), database.ErrNotFound)
}

func TestRepository_CreateGoal_Validation(t *testing.T) {
	repo, _ := setupTestRepo(t)
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, repo.CreateGoal(&entities.Goal{Title: "x", Kind: "pages", Target: 1}), ErrInvalidGoal)
	assert.ErrorIs(t, repo.CreateGoal(&entities.Goal{Title: "x", Kind: entities.GoalKindBooks}), ErrInvalidGoal)
	assert.ErrorIs(t, repo.CreateGoal(&entities.Goal{
		Title: "x", Kind: entities.GoalKindMinutes, Target: 10,
		StartDate: start, EndDate: start.AddDate(0, 0, -1),
	}), ErrInvalidPeriod)

	_, err := repo.SetProgress(1, 1, -1)
	assert.ErrorIs(t, err, ErrNegativeProgress)
}
