package children

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

func TestRepository_CreateChild_AddsDefaultShelves(t *testing.T) {
	repo, db := setupTestRepo(t)

	child := &entities.Child{ParentID: 1, Name: " Milo "}
	require.NoError(t, repo.CreateChild(child))
	assert.NotZero(t, child.ID)
	assert.Equal(t, "Milo", child.Name)

	var shelves []entities.Bookshelf
	require.NoError(t, db.Where("child_id = ?", child.ID).Order("name ASC").Find(&shelves).Error)
	require.Len(t, shelves, len(entities.DefaultChildShelves))
	for i, name := range entities.DefaultChildShelves {
		assert.Equal(t, name, shelves[i].Name)
	}
}

func TestRepository_CreateChild_RequiresName(t *testing.T) {
	repo, _ := setupTestRepo(t)

	err := repo.CreateChild(&entities.Child{ParentID: 1, Name: "   "})
	assert.ErrorIs(t, err, ErrEmptyName)

	child := &entities.Child{ParentID: 1, Name: "Milo"}
	require.NoError(t, repo.CreateChild(child))
	blank := ""
	_, err = repo.UpdateChild(child.ID, ChildUpdate{Name: &blank})
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestRepository_ListForParent(t *testing.T) {
	repo, _ := setupTestRepo(t)

	require.NoError(t, repo.CreateChild(&entities.Child{ParentID: 1, Name: "Zoe"}))
	require.NoError(t, repo.CreateChild(&entities.Child{ParentID: 1, Name: "Amy"}))
	require.NoError(t, repo.CreateChild(&entities.Child{ParentID: 2, Name: "Bob"}))

	kids, err := repo.ListForParent(1)
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, "Amy", kids[0].Name)
	assert.Equal(t, "Zoe", kids[1].Name)
}

func TestRepository_UpdateChild(t *testing.T) {
	repo, _ := setupTestRepo(t)
	child := &entities.Child{ParentID: 1, Name: "Milo"}
	require.NoError(t, repo.CreateChild(child))

	level := 2.5
	avatar := 3
	got, err := repo.UpdateChild(child.ID, ChildUpdate{ReadingLevel: &level, AvatarIndex: &avatar})
	require.NoError(t, err)
	require.NotNil(t, got.ReadingLevel)
	assert.Equal(t, 2.5, *got.ReadingLevel)
	assert.Equal(t, 3, got.AvatarIndex)
	assert.Equal(t, "Milo", got.Name)

	_, err = repo.UpdateChild(9999, ChildUpdate{AvatarIndex: &avatar})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_Classroom(t *testing.T) {
	repo, _ := setupTestRepo(t)
	child := &entities.Child{ParentID: 1, Name: "Milo"}
	require.NoError(t, repo.CreateChild(child))

	classroomID := uint(7)
	require.NoError(t, repo.SetClassroom(child.ID, &classroomID))

	members, err := repo.ListForClassroom(7)
	require.NoError(t, err)
	require.Len(t, members, 1)

	inClass, err := repo.IsParentInClassroom(1, 7)
	require.NoError(t, err)
	assert.True(t, inClass)

	require.NoError(t, repo.SetClassroom(child.ID, nil))
	got, err := repo.GetChild(child.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ClassroomID)

	inClass, err = repo.IsParentInClassroom(1, 7)
	require.NoError(t, err)
	assert.False(t, inClass)
}

func TestRepository_DeleteChild(t *testing.T) {
	repo, db := setupTestRepo(t)
	child := &entities.Child{ParentID: 1, Name: "Milo"}
	require.NoError(t, repo.CreateChild(child))

	book := &entities.Book{Title: "Frog and Toad", Authors: "Arnold Lobel"}
	require.NoError(t, db.Create(book).Error)
	classroom := &entities.Classroom{TeacherID: 2, Name: "Room 4", ClassCode: "ABC234"}
	require.NoError(t, db.Create(classroom).Error)
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	goal := &entities.Goal{
		ClassroomID: classroom.ID,
		Title:       "Autumn reading",
		Kind:        entities.GoalKindBooks,
		Target:      3,
		StartDate:   start,
		EndDate:     start.AddDate(0, 2, 0),
	}
	require.NoError(t, db.Create(goal).Error)
	require.NoError(t, repo.SetClassroom(child.ID, &classroom.ID))

	var shelves []entities.Bookshelf
	require.NoError(t, db.Where("child_id = ?", child.ID).Find(&shelves).Error)
	require.NotEmpty(t, shelves)
	require.NoError(t, db.Create(&entities.BookshelfBook{BookshelfID: shelves[0].ID, BookID: book.ID}).Error)
	require.NoError(t, db.Create(&entities.GoalProgress{GoalID: goal.ID, ChildID: child.ID, Progress: 2}).Error)

	require.NoError(t, repo.DeleteChild(child.ID))

	_, err := repo.GetChild(child.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	var count int64
	db.Model(&entities.Bookshelf{}).Where("child_id = ?", child.ID).Count(&count)
	assert.Zero(t, count, "shelves")
	db.Model(&entities.BookshelfBook{}).Where("bookshelf_id = ?", shelves[0].ID).Count(&count)
	assert.Zero(t, count, "shelf entries")
	db.Model(&entities.GoalProgress{}).Where("child_id = ?", child.ID).Count(&count)
	assert.Zero(t, count, "goal progress")

	// shared rows stay
	db.Model(&entities.Goal{}).Where("id = ?", goal.ID).Count(&count)
	assert.EqualValues(t, 1, count)
	db.Model(&entities.Book{}).Where("id = ?", book.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	assert.ErrorIs(t, repo.DeleteChild(child.ID), database.ErrNotFound)
}
