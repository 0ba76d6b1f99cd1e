package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookworms/internal/covers"
	"github.com/mrlokans/bookworms/internal/database/users"
	"github.com/mrlokans/bookworms/internal/database/books"
	"github.com/mrlokans/bookworms/internal/database/children"
	"github.com/mrlokans/bookworms/internal/entities"
	"github.com/mrlokans/bookworms/internal/metadata"
	"github.com/mrlokans/bookworms/internal/search"
)

// This file collects the store interfaces used by the controllers. The
// repositories under internal/database satisfy them.

// UserStore provides account lookups and profile changes.
type UserStore interface {
	GetUserByUsername(username string) (*entities.User, error)
	GetUserByID(id uint) (*entities.User, error)
	UpdateProfile(userID uint, update users.ProfileUpdate) (*entities.User, error)
	ListUsers() ([]entities.User, error)
	DeleteUser(username string) error
}

// ChildStore manages child profiles.
type ChildStore interface {
	CreateChild(child *entities.Child) error
	GetChild(id uint) (*entities.Child, error)
	ListForParent(parentID uint) ([]entities.Child, error)
	ListForClassroom(classroomID uint) ([]entities.Child, error)
	IsParentInClassroom(parentID, classroomID uint) (bool, error)
	UpdateChild(id uint, update children.ChildUpdate) (*entities.Child, error)
	SetClassroom(childID uint, classroomID *uint) error
	DeleteChild(id uint) error
}

// ShelfStore manages bookshelves and their entries.
type ShelfStore interface {
	CreateShelf(shelf *entities.Bookshelf) error
	GetShelf(id uint) (*entities.Bookshelf, error)
	ListForChild(childID uint) ([]entities.Bookshelf, error)
	ListForClassroom(classroomID uint) ([]entities.Bookshelf, error)
	RenameShelf(id uint, name string) (*entities.Bookshelf, error)
	DeleteShelf(id uint) error
	AddBook(shelfID, bookID uint) error
	RemoveBook(shelfID, bookID uint) error
}

// BookStore manages the catalog, reviews and search.
type BookStore interface {
	CreateBook(book *entities.Book) error
	GetBookByID(id uint) (*entities.Book, error)
	UpdateBook(id uint, update books.BookUpdate) (*entities.Book, error)
	DeleteBook(id uint) error
	Search(req search.Request) ([]search.Result, error)
	ListReviews(bookID uint) ([]entities.Review, error)
	UpsertReview(bookID, userID uint, stars int, text string) (*entities.Review, error)
	DeleteReview(bookID, userID uint) error
}

// ClassroomStore manages classrooms and their reading goals.
type ClassroomStore interface {
	CreateClassroom(classroom *entities.Classroom) error
	GetClassroom(id uint) (*entities.Classroom, error)
	GetByClassCode(code string) (*entities.Classroom, error)
	ListForTeacher(teacherID uint) ([]entities.Classroom, error)
	DeleteClassroom(id uint) error
	CreateGoal(goal *entities.Goal) error
	GetGoal(id uint) (*entities.Goal, error)
	ListGoals(classroomID uint) ([]entities.Goal, error)
	DeleteGoal(id uint) error
	SetProgress(goalID, childID uint, progress int) (*entities.GoalProgress, error)
}

// BookEnricher fills in catalog metadata inline when no task queue runs.
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID uint) (*metadata.EnrichmentResult, error)
}

// CoverSource returns cover images for books.
type CoverSource interface {
	GetCover(ctx context.Context, bookID uint, url string) (*covers.Cover, error)
	InvalidateCover(ctx context.Context, bookID uint) error
}

// TaskQueue enqueues background work and reports on it.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}
