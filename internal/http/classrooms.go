package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/apierror"
	"github.com/mrlokans/bookworms/internal/entities"
)

// ClassroomsController manages classrooms, their shelves and reading goals.
type ClassroomsController struct {
	users      UserStore
	classrooms ClassroomStore
	children   ChildStore
	shelves    ShelfStore
	access     access
}

// NewClassroomsController creates a new ClassroomsController.
func NewClassroomsController(users UserStore, rooms ClassroomStore, kids ChildStore, shelves ShelfStore) *ClassroomsController {
	return &ClassroomsController{
		users:      users,
		classrooms: rooms,
		children:   kids,
		shelves:    shelves,
		access:     access{children: kids, classrooms: rooms},
	}
}

type classroomRequest struct {
	Name string `json:"name" binding:"required"`
}

type goalRequest struct {
	Title     string            `json:"title" binding:"required"`
	Kind      entities.GoalKind `json:"kind" binding:"required"`
	Target    int               `json:"target" binding:"required"`
	StartDate time.Time         `json:"start_date"`
	EndDate   time.Time         `json:"end_date"`
}

type progressRequest struct {
	ChildID  uint `json:"child_id" binding:"required"`
	Progress int  `json:"progress"`
}

// ClassroomDetail is a classroom with its member children.
type ClassroomDetail struct {
	entities.Classroom
	Children []entities.Child `json:"children"`
}

// ListClassrooms returns the caller's classrooms.
// GET /api/classrooms
func (cc *ClassroomsController) ListClassrooms(c *gin.Context) {
	user, ok := currentUser(c, cc.users)
	if !ok {
		return
	}
	rooms, err := cc.classrooms.ListForTeacher(user.ID)
	if err != nil {
		respondInternalError(c, err, "list classrooms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"classrooms": rooms, "count": len(rooms)})
}

// CreateClassroom opens a classroom with a fresh class code.
// POST /api/classrooms
func (cc *ClassroomsController) CreateClassroom(c *gin.Context) {
	user, ok := currentUser(c, cc.users)
	if !ok {
		return
	}

	var req classroomRequest
	if !bindJSON(c, &req) {
		return
	}

	classroom := &entities.Classroom{TeacherID: user.ID, Name: req.Name}
	if err := cc.classrooms.CreateClassroom(classroom); err != nil {
		respondError(c, err, "classroom")
		return
	}
	c.JSON(http.StatusCreated, classroom)
}

// GetClassroom returns a classroom with its children.
// GET /api/classrooms/:id
func (cc *ClassroomsController) GetClassroom(c *gin.Context) {
	classroom, ok := cc.loadClassroom(c, true)
	if !ok {
		return
	}
	kids, err := cc.children.ListForClassroom(classroom.ID)
	if err != nil {
		respondInternalError(c, err, "list classroom children")
		return
	}
	if kids == nil {
		kids = []entities.Child{}
	}
	c.JSON(http.StatusOK, ClassroomDetail{Classroom: *classroom, Children: kids})
}

// DeleteClassroom closes a classroom. Its children stay with their parents.
// DELETE /api/classrooms/:id
func (cc *ClassroomsController) DeleteClassroom(c *gin.Context) {
	classroom, ok := cc.loadClassroom(c, true)
	if !ok {
		return
	}
	if err := cc.classrooms.DeleteClassroom(classroom.ID); err != nil {
		respondError(c, err, "classroom")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListShelves returns a classroom's bookshelves.
// GET /api/classrooms/:id/bookshelves
func (cc *ClassroomsController) ListShelves(c *gin.Context) {
	classroom, ok := cc.loadClassroom(c, false)
	if !ok {
		return
	}
	shelves, err := cc.shelves.ListForClassroom(classroom.ID)
	if err != nil {
		respondInternalError(c, err, "list classroom bookshelves")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookshelves": shelves, "count": len(shelves)})
}

// CreateShelf adds a bookshelf to a classroom.
// POST /api/classrooms/:id/bookshelves
func (cc *ClassroomsController) CreateShelf(c *gin.Context) {
	classroom, ok := cc.loadClassroom(c, true)
	if !ok {
		return
	}

	var req shelfRequest
	if !bindJSON(c, &req) {
		return
	}

	classroomID := classroom.ID
	shelf := &entities.Bookshelf{Name: req.Name, ClassroomID: &classroomID}
	if err := cc.shelves.CreateShelf(shelf); err != nil {
		respondError(c, err, "bookshelf")
		return
	}
	shelf.Books = []entities.Book{}
	c.JSON(http.StatusCreated, shelf)
}

// ListGoals returns a classroom's goals with progress. Parents of member
// children may read them too.
// GET /api/classrooms/:id/goals
func (cc *ClassroomsController) ListGoals(c *gin.Context) {
	classroom, ok := cc.loadClassroom(c, false)
	if !ok {
		return
	}
	goals, err := cc.classrooms.ListGoals(classroom.ID)
	if err != nil {
		respondInternalError(c, err, "list goals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals, "count": len(goals)})
}

// CreateGoal adds a reading goal to a classroom.
// POST /api/classrooms/:id/goals
func (cc *ClassroomsController) CreateGoal(c *gin.Context) {
	classroom, ok := cc.loadClassroom(c, true)
	if !ok {
		return
	}

	var req goalRequest
	if !bindJSON(c, &req) {
		return
	}

	goal := &entities.Goal{
		ClassroomID: classroom.ID,
		Title:       req.Title,
		Kind:        req.Kind,
		Target:      req.Target,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if goal.StartDate.IsZero() {
		goal.StartDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if err := cc.classrooms.CreateGoal(goal); err != nil {
		respondError(c, err, "goal")
		return
	}
	c.JSON(http.StatusCreated, goal)
}

// DeleteGoal removes a goal and its progress.
// DELETE /api/goals/:id
func (cc *ClassroomsController) DeleteGoal(c *gin.Context) {
	goal, classroom, user, ok := cc.loadGoal(c)
	if !ok {
		return
	}
	if !cc.access.canManageClassroom(user, classroom) {
		respondForbidden(c)
		return
	}
	if err := cc.classrooms.DeleteGoal(goal.ID); err != nil {
		respondError(c, err, "goal")
		return
	}
	c.Status(http.StatusNoContent)
}

// SetProgress records a child's progress toward a goal. The classroom's
// teacher may update any member; a parent only their own child.
// PUT /api/goals/:id/progress
func (cc *ClassroomsController) SetProgress(c *gin.Context) {
	goal, classroom, user, ok := cc.loadGoal(c)
	if !ok {
		return
	}

	var req progressRequest
	if !bindJSON(c, &req) {
		return
	}

	child, err := cc.children.GetChild(req.ChildID)
	if err != nil {
		respondError(c, err, "child")
		return
	}
	if child.ClassroomID == nil || *child.ClassroomID != classroom.ID {
		apierror.Abort(c, http.StatusUnprocessableEntity, "child is not a member of the goal's classroom")
		return
	}
	if !cc.access.canManageClassroom(user, classroom) && !cc.access.canManageChild(user, child) {
		respondForbidden(c)
		return
	}

	progress, err := cc.classrooms.SetProgress(goal.ID, child.ID, req.Progress)
	if err != nil {
		respondError(c, err, "goal")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"goal_id":   progress.GoalID,
		"child_id":  progress.ChildID,
		"progress":  progress.Progress,
		"completed": progress.Completed(*goal),
	})
}

func (cc *ClassroomsController) loadClassroom(c *gin.Context, manage bool) (*entities.Classroom, bool) {
	user, ok := currentUser(c, cc.users)
	if !ok {
		return nil, false
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	classroom, err := cc.classrooms.GetClassroom(id)
	if err != nil {
		respondError(c, err, "classroom")
		return nil, false
	}

	allowed := cc.access.canManageClassroom(user, classroom)
	if !manage && !allowed {
		allowed, err = cc.access.canViewClassroom(user, classroom)
		if err != nil {
			respondInternalError(c, err, "check classroom access")
			return nil, false
		}
	}
	if !allowed {
		respondForbidden(c)
		return nil, false
	}
	return classroom, true
}

func (cc *ClassroomsController) loadGoal(c *gin.Context) (*entities.Goal, *entities.Classroom, *entities.User, bool) {
	user, ok := currentUser(c, cc.users)
	if !ok {
		return nil, nil, nil, false
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, nil, nil, false
	}

	goal, err := cc.classrooms.GetGoal(id)
	if err != nil {
		respondError(c, err, "goal")
		return nil, nil, nil, false
	}
	classroom, err := cc.classrooms.GetClassroom(goal.ClassroomID)
	if err != nil {
		respondError(c, err, "classroom")
		return nil, nil, nil, false
	}
	return goal, classroom, user, true
}
