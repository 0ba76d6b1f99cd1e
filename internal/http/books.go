package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/apierror"
	"github.com/mrlokans/bookworms/internal/covers"
	"github.com/mrlokans/bookworms/internal/database/books"
	"github.com/mrlokans/bookworms/internal/entities"
	"github.com/mrlokans/bookworms/internal/metadata"
	"github.com/mrlokans/bookworms/internal/search"
	"github.com/mrlokans/bookworms/internal/tasks"
)

// BooksController serves the catalog, reviews, covers and search.
type BooksController struct {
	users    UserStore
	books    BookStore
	enricher BookEnricher
	covers   CoverSource
	queue    TaskQueue
}

// BooksOption configures optional collaborators of BooksController.
type BooksOption func(*BooksController)

// WithEnricher enables inline enrichment when no task queue is configured.
func WithEnricher(enricher BookEnricher) BooksOption {
	return func(bc *BooksController) { bc.enricher = enricher }
}

// WithCovers enables the cover endpoint.
func WithCovers(source CoverSource) BooksOption {
	return func(bc *BooksController) { bc.covers = source }
}

// WithTaskQueue sends enrichment to background workers.
func WithTaskQueue(queue TaskQueue) BooksOption {
	return func(bc *BooksController) { bc.queue = queue }
}

// NewBooksController creates a new BooksController.
func NewBooksController(users UserStore, store BookStore, opts ...BooksOption) *BooksController {
	bc := &BooksController{users: users, books: store}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

// BookDetail is a catalog entry with its reviews.
type BookDetail struct {
	entities.Book
	SubjectList []string          `json:"subject_list"`
	Reviews     []entities.Review `json:"reviews"`
}

type bookRequest struct {
	Title           *string  `json:"title"`
	Authors         *string  `json:"authors"`
	Description     *string  `json:"description"`
	Subjects        []string `json:"subjects"`
	ISBN            *string  `json:"isbn"`
	PageCount       *int     `json:"page_count"`
	PublicationYear *int     `json:"publication_year"`
	Level           *float64 `json:"level"`
}

type reviewRequest struct {
	Stars int    `json:"stars" binding:"required"`
	Text  string `json:"text"`
}

// GetBook returns a book with its reviews.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.books.GetBookByID(id)
	if err != nil {
		respondError(c, err, "book")
		return
	}
	reviews, err := bc.books.ListReviews(id)
	if err != nil {
		respondInternalError(c, err, "list reviews")
		return
	}
	if reviews == nil {
		reviews = []entities.Review{}
	}

	c.JSON(http.StatusOK, BookDetail{Book: *book, SubjectList: book.SubjectList(), Reviews: reviews})
}

// CreateBook adds a catalog entry and queues metadata enrichment for it.
// POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var req bookRequest
	if !bindJSON(c, &req) {
		return
	}

	book := &entities.Book{Level: req.Level, Subjects: entities.JoinSubjects(req.Subjects)}
	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Authors != nil {
		book.Authors = *req.Authors
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.ISBN != nil {
		book.ISBN = strings.TrimSpace(*req.ISBN)
	}
	if req.PageCount != nil {
		book.PageCount = *req.PageCount
	}
	if req.PublicationYear != nil {
		book.PublicationYear = *req.PublicationYear
	}

	if err := bc.books.CreateBook(book); err != nil {
		respondError(c, err, "book")
		return
	}

	if bc.queue != nil {
		if _, err := bc.queue.Enqueue(tasks.EnrichBookTask{BookID: book.ID}); err != nil {
			log.Printf("Failed to enqueue enrichment for book %d: %v", book.ID, err)
		}
	}
	c.JSON(http.StatusCreated, book)
}

// UpdateBook changes catalog fields.
// PUT /api/books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req bookRequest
	if !bindJSON(c, &req) {
		return
	}

	book, err := bc.books.UpdateBook(id, books.BookUpdate{
		Title:           req.Title,
		Authors:         req.Authors,
		Description:     req.Description,
		Subjects:        req.Subjects,
		ISBN:            req.ISBN,
		PageCount:       req.PageCount,
		PublicationYear: req.PublicationYear,
		Level:           req.Level,
	})
	if err != nil {
		respondError(c, err, "book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook removes a book from the catalog and from every shelf.
// DELETE /api/books/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := bc.books.DeleteBook(id); err != nil {
		respondError(c, err, "book")
		return
	}
	if bc.covers != nil {
		_ = bc.covers.InvalidateCover(c.Request.Context(), id)
	}
	c.Status(http.StatusNoContent)
}

// EnrichBook fetches missing metadata for a book. With a task queue the
// work is enqueued and 202 returned; otherwise it runs inline.
// POST /api/books/:id/enrich
func (bc *BooksController) EnrichBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := bc.books.GetBookByID(id); err != nil {
		respondError(c, err, "book")
		return
	}

	if bc.queue != nil {
		taskID, err := bc.queue.Enqueue(tasks.EnrichBookTask{BookID: id})
		if err != nil {
			respondInternalError(c, err, "enqueue enrichment")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": taskID, "type": "enrich_book"})
		return
	}

	if bc.enricher == nil {
		apierror.Abort(c, http.StatusServiceUnavailable, "metadata enrichment is disabled")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	result, err := bc.enricher.EnrichBook(ctx, id)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			respondNotFound(c, "book metadata")
			return
		}
		respondInternalError(c, err, "enrich book")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCover serves a book's cover image from the cover cache.
// GET /api/books/:id/cover
func (bc *BooksController) GetCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if bc.covers == nil {
		respondNotFound(c, "cover")
		return
	}

	book, err := bc.books.GetBookByID(id)
	if err != nil {
		respondError(c, err, "book")
		return
	}
	if book.CoverURL == "" {
		respondNotFound(c, "cover")
		return
	}

	cover, err := bc.covers.GetCover(c.Request.Context(), id, book.CoverURL)
	if err != nil {
		if errors.Is(err, covers.ErrNoCover) {
			respondNotFound(c, "cover")
			return
		}
		// Fallback: redirect to the original URL
		log.Printf("Cover fetch for book %d failed: %v", id, err)
		c.Redirect(http.StatusTemporaryRedirect, book.CoverURL)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, cover.ContentType, cover.Data)
}

// PutReview creates or replaces the caller's review of a book.
// PUT /api/books/:id/review
func (bc *BooksController) PutReview(c *gin.Context) {
	user, ok := currentUser(c, bc.users)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := bc.books.UpsertReview(id, user.ID, req.Stars, req.Text)
	if err != nil {
		respondError(c, err, "book")
		return
	}
	review.Username = user.Username
	c.JSON(http.StatusOK, review)
}

// DeleteReview removes the caller's review of a book.
// DELETE /api/books/:id/review
func (bc *BooksController) DeleteReview(c *gin.Context) {
	user, ok := currentUser(c, bc.users)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.books.DeleteReview(id, user.ID); err != nil {
		respondError(c, err, "review")
		return
	}
	c.Status(http.StatusNoContent)
}

// Search runs a catalog search.
// GET /api/search
func (bc *BooksController) Search(c *gin.Context) {
	req := search.ParseRequest(c.Request.URL.Query())

	results, err := bc.books.Search(req)
	if err != nil {
		respondInternalError(c, err, "search books")
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}
