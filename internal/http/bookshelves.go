package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/entities"
)

// BookshelvesController handles reading, renaming and filling bookshelves.
// Shelves are created through their owning child or classroom.
type BookshelvesController struct {
	users   UserStore
	shelves ShelfStore
	access  access
}

// NewBookshelvesController creates a new BookshelvesController.
func NewBookshelvesController(users UserStore, shelves ShelfStore, kids ChildStore, rooms ClassroomStore) *BookshelvesController {
	return &BookshelvesController{
		users:   users,
		shelves: shelves,
		access:  access{children: kids, classrooms: rooms},
	}
}

type addShelfBookRequest struct {
	BookID uint `json:"book_id" binding:"required"`
}

// GetShelf returns a shelf with its books in shelf order.
// GET /api/bookshelves/:id
func (bc *BookshelvesController) GetShelf(c *gin.Context) {
	shelf, ok := bc.loadShelf(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, shelf)
}

// RenameShelf changes a shelf's name.
// PUT /api/bookshelves/:id
func (bc *BookshelvesController) RenameShelf(c *gin.Context) {
	shelf, ok := bc.loadShelf(c, true)
	if !ok {
		return
	}

	var req shelfRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := bc.shelves.RenameShelf(shelf.ID, req.Name)
	if err != nil {
		respondError(c, err, "bookshelf")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteShelf removes a shelf and its entries. The books stay in the catalog.
// DELETE /api/bookshelves/:id
func (bc *BookshelvesController) DeleteShelf(c *gin.Context) {
	shelf, ok := bc.loadShelf(c, true)
	if !ok {
		return
	}
	if err := bc.shelves.DeleteShelf(shelf.ID); err != nil {
		respondError(c, err, "bookshelf")
		return
	}
	c.Status(http.StatusNoContent)
}

// AddBook puts a catalog book on a shelf. Adding a book twice is a no-op.
// POST /api/bookshelves/:id/books
func (bc *BookshelvesController) AddBook(c *gin.Context) {
	shelf, ok := bc.loadShelf(c, true)
	if !ok {
		return
	}

	var req addShelfBookRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := bc.shelves.AddBook(shelf.ID, req.BookID); err != nil {
		respondError(c, err, "bookshelf")
		return
	}

	updated, err := bc.shelves.GetShelf(shelf.ID)
	if err != nil {
		respondError(c, err, "bookshelf")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// RemoveBook takes a book off a shelf.
// DELETE /api/bookshelves/:id/books/:bookId
func (bc *BookshelvesController) RemoveBook(c *gin.Context) {
	shelf, ok := bc.loadShelf(c, true)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}

	if err := bc.shelves.RemoveBook(shelf.ID, bookID); err != nil {
		respondError(c, err, "book on bookshelf")
		return
	}
	c.Status(http.StatusNoContent)
}

func (bc *BookshelvesController) loadShelf(c *gin.Context, manage bool) (*entities.Bookshelf, bool) {
	user, ok := currentUser(c, bc.users)
	if !ok {
		return nil, false
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	shelf, err := bc.shelves.GetShelf(id)
	if err != nil {
		respondError(c, err, "bookshelf")
		return nil, false
	}

	view, canManage, err := bc.access.shelfPermissions(user, shelf)
	if err != nil {
		respondInternalError(c, err, "check bookshelf access")
		return nil, false
	}
	if (manage && !canManage) || (!manage && !view) {
		respondForbidden(c)
		return nil, false
	}
	return shelf, true
}
