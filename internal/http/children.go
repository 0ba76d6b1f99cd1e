package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/database/children"
	"github.com/mrlokans/bookworms/internal/database/classrooms"
	"github.com/mrlokans/bookworms/internal/entities"
)

// ChildrenController manages children profiles, classroom membership and
// the children's bookshelves.
type ChildrenController struct {
	users      UserStore
	children   ChildStore
	shelves    ShelfStore
	classrooms ClassroomStore
	access     access
}

// NewChildrenController creates a new ChildrenController.
func NewChildrenController(users UserStore, kids ChildStore, shelves ShelfStore, rooms ClassroomStore) *ChildrenController {
	return &ChildrenController{
		users:      users,
		children:   kids,
		shelves:    shelves,
		classrooms: rooms,
		access:     access{children: kids, classrooms: rooms},
	}
}

type childRequest struct {
	Name         *string    `json:"name"`
	ReadingLevel *float64   `json:"reading_level"`
	AvatarIndex  *int       `json:"avatar_index"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
}

type joinClassroomRequest struct {
	ClassCode string `json:"class_code" binding:"required"`
}

type shelfRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListChildren returns the caller's children.
// GET /api/children
func (cc *ChildrenController) ListChildren(c *gin.Context) {
	user, ok := currentUser(c, cc.users)
	if !ok {
		return
	}
	kids, err := cc.children.ListForParent(user.ID)
	if err != nil {
		respondInternalError(c, err, "list children")
		return
	}
	c.JSON(http.StatusOK, gin.H{"children": kids, "count": len(kids)})
}

// CreateChild adds a child to the caller's account. The child starts with
// the default shelves.
// POST /api/children
func (cc *ChildrenController) CreateChild(c *gin.Context) {
	user, ok := currentUser(c, cc.users)
	if !ok {
		return
	}

	var req childRequest
	if !bindJSON(c, &req) {
		return
	}

	child := &entities.Child{ParentID: user.ID, ReadingLevel: req.ReadingLevel, DateOfBirth: req.DateOfBirth}
	if req.Name != nil {
		child.Name = *req.Name
	}
	if req.AvatarIndex != nil {
		child.AvatarIndex = *req.AvatarIndex
	}
	if err := cc.children.CreateChild(child); err != nil {
		respondError(c, err, "child")
		return
	}
	c.JSON(http.StatusCreated, child)
}

// GetChild returns one child.
// GET /api/children/:id
func (cc *ChildrenController) GetChild(c *gin.Context) {
	_, child, ok := cc.loadChild(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, child)
}

// UpdateChild changes a child's profile.
// PUT /api/children/:id
func (cc *ChildrenController) UpdateChild(c *gin.Context) {
	_, child, ok := cc.loadChild(c, true)
	if !ok {
		return
	}

	var req childRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := cc.children.UpdateChild(child.ID, children.ChildUpdate{
		Name:         req.Name,
		ReadingLevel: req.ReadingLevel,
		AvatarIndex:  req.AvatarIndex,
		DateOfBirth:  req.DateOfBirth,
	})
	if err != nil {
		respondError(c, err, "child")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteChild removes a child with its shelves and goal progress.
// DELETE /api/children/:id
func (cc *ChildrenController) DeleteChild(c *gin.Context) {
	_, child, ok := cc.loadChild(c, true)
	if !ok {
		return
	}
	if err := cc.children.DeleteChild(child.ID); err != nil {
		respondError(c, err, "child")
		return
	}
	c.Status(http.StatusNoContent)
}

// JoinClassroom places a child in the classroom with the given code.
// PUT /api/children/:id/classroom
func (cc *ChildrenController) JoinClassroom(c *gin.Context) {
	_, child, ok := cc.loadChild(c, true)
	if !ok {
		return
	}

	var req joinClassroomRequest
	if !bindJSON(c, &req) {
		return
	}

	classroom, err := cc.classrooms.GetByClassCode(classrooms.NormalizeClassCode(req.ClassCode))
	if err != nil {
		respondError(c, err, "classroom")
		return
	}
	if err := cc.children.SetClassroom(child.ID, &classroom.ID); err != nil {
		respondError(c, err, "child")
		return
	}
	child.ClassroomID = &classroom.ID
	c.JSON(http.StatusOK, child)
}

// LeaveClassroom removes a child from its classroom.
// DELETE /api/children/:id/classroom
func (cc *ChildrenController) LeaveClassroom(c *gin.Context) {
	_, child, ok := cc.loadChild(c, true)
	if !ok {
		return
	}
	if err := cc.children.SetClassroom(child.ID, nil); err != nil {
		respondError(c, err, "child")
		return
	}
	child.ClassroomID = nil
	c.JSON(http.StatusOK, child)
}

// ListShelves returns a child's bookshelves with their books.
// GET /api/children/:id/bookshelves
func (cc *ChildrenController) ListShelves(c *gin.Context) {
	_, child, ok := cc.loadChild(c, false)
	if !ok {
		return
	}
	shelves, err := cc.shelves.ListForChild(child.ID)
	if err != nil {
		respondInternalError(c, err, "list child bookshelves")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookshelves": shelves, "count": len(shelves)})
}

// CreateShelf adds a bookshelf for a child. Names are unique per child.
// POST /api/children/:id/bookshelves
func (cc *ChildrenController) CreateShelf(c *gin.Context) {
	_, child, ok := cc.loadChild(c, true)
	if !ok {
		return
	}

	var req shelfRequest
	if !bindJSON(c, &req) {
		return
	}

	childID := child.ID
	shelf := &entities.Bookshelf{Name: req.Name, ChildID: &childID}
	if err := cc.shelves.CreateShelf(shelf); err != nil {
		respondError(c, err, "bookshelf")
		return
	}
	shelf.Books = []entities.Book{}
	c.JSON(http.StatusCreated, shelf)
}

// loadChild resolves the caller and the child in the :id parameter and
// checks access. manage selects write access over read access.
func (cc *ChildrenController) loadChild(c *gin.Context, manage bool) (*entities.User, *entities.Child, bool) {
	user, ok := currentUser(c, cc.users)
	if !ok {
		return nil, nil, false
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, nil, false
	}

	child, err := cc.children.GetChild(id)
	if err != nil {
		respondError(c, err, "child")
		return nil, nil, false
	}

	allowed := cc.access.canManageChild(user, child)
	if !manage && !allowed {
		allowed, err = cc.access.canViewChild(user, child)
		if err != nil {
			respondInternalError(c, err, "check child access")
			return nil, nil, false
		}
	}
	if !allowed {
		respondForbidden(c)
		return nil, nil, false
	}
	return user, child, true
}
