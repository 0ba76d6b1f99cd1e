// Package books provides database operations for the book catalog, reviews
// and search.
//
// # Usage
//
//	repo := books.NewRepository(db, books.WithSearchBuilder(search.NewBuilder(0.5, 30)))
//	results, err := repo.Search(search.Request{Query: &q})
package books

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/entities"
	"github.com/mrlokans/bookworms/internal/metadata"
	"github.com/mrlokans/bookworms/internal/search"
)

var _ metadata.BookUpdater = (*Repository)(nil)

var ErrEmptyTitle = errors.New("book title is required")

// Repository handles all book and review database operations.
type Repository struct {
	db      *gorm.DB
	builder search.Builder
}

type Option func(*Repository)

// WithSearchBuilder overrides the default search thresholds.
func WithSearchBuilder(b search.Builder) Option {
	return func(r *Repository) {
		r.builder = b
	}
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB, opts ...Option) *Repository {
	r := &Repository{
		db:      db,
		builder: search.NewBuilder(search.DefaultThreshold, search.DefaultLimit),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BookUpdate holds optional catalog fields; nil leaves a field untouched.
type BookUpdate struct {
	Title           *string
	Authors         *string
	Description     *string
	Subjects        []string
	ISBN            *string
	PageCount       *int
	PublicationYear *int
	Level           *float64
}

// CreateBook inserts a catalog entry.
func (r *Repository) CreateBook(book *entities.Book) error {
	book.Title = strings.TrimSpace(book.Title)
	book.Authors = strings.TrimSpace(book.Authors)
	if book.Title == "" {
		return ErrEmptyTitle
	}
	return database.Translate(r.db.Create(book).Error)
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &book, nil
}

// FindBookByISBN retrieves a book by ISBN.
func (r *Repository) FindBookByISBN(isbn string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.Where("isbn = ?", isbn).First(&book).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &book, nil
}

// GetBooksByIDs returns the books with the given IDs, skipping unknown ones.
func (r *Repository) GetBooksByIDs(ids []uint) ([]entities.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var books []entities.Book
	err := r.db.Where("id IN ?", ids).Find(&books).Error
	return books, err
}

// UpdateBook applies the non-nil fields of update.
func (r *Repository) UpdateBook(id uint, update BookUpdate) (*entities.Book, error) {
	fields := map[string]any{}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, ErrEmptyTitle
		}
		fields["title"] = title
	}
	if update.Authors != nil {
		fields["authors"] = strings.TrimSpace(*update.Authors)
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Subjects != nil {
		fields["subjects"] = entities.JoinSubjects(update.Subjects)
	}
	if update.ISBN != nil {
		fields["isbn"] = strings.TrimSpace(*update.ISBN)
	}
	if update.PageCount != nil {
		fields["page_count"] = *update.PageCount
	}
	if update.PublicationYear != nil {
		fields["publication_year"] = *update.PublicationYear
	}
	if update.Level != nil {
		fields["level"] = *update.Level
	}

	if len(fields) > 0 {
		result := r.db.Model(&entities.Book{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return nil, database.Translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, database.ErrNotFound
		}
	}
	return r.GetBookByID(id)
}

// DeleteBook soft-deletes a book and removes it from every shelf.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return database.Translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return database.ErrNotFound
		}
		return tx.Where("book_id = ?", id).Delete(&entities.BookshelfBook{}).Error
	})
}

// Search runs a catalog search and returns at most the builder's limit.
func (r *Repository) Search(req search.Request) ([]search.Result, error) {
	query, args := r.builder.Build(req)

	var results []search.Result
	if err := r.db.Raw(query, args...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return results, nil
}

// GetBooksMissingMetadata returns books that have never been enriched.
func (r *Repository) GetBooksMissingMetadata() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("enriched_at IS NULL").Order("id ASC").Find(&books).Error
	return books, err
}

// UpdateBookMetadata stores enrichment results and stamps EnrichedAt.
func (r *Repository) UpdateBookMetadata(id uint, update metadata.BookUpdateFields) error {
	fields := map[string]any{"enriched_at": time.Now()}
	if update.ISBN != nil {
		fields["isbn"] = *update.ISBN
	}
	if update.CoverURL != nil {
		fields["cover_url"] = *update.CoverURL
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Subjects != nil {
		fields["subjects"] = entities.JoinSubjects(update.Subjects)
	}
	if update.PageCount != nil {
		fields["page_count"] = *update.PageCount
	}
	if update.PublicationYear != nil {
		fields["publication_year"] = *update.PublicationYear
	}

	result := r.db.Model(&entities.Book{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// GetStats returns catalog totals.
func (r *Repository) GetStats() (totalBooks int64, totalReviews int64, err error) {
	if err = r.db.Model(&entities.Book{}).Count(&totalBooks).Error; err != nil {
		return
	}
	err = r.db.Model(&entities.Review{}).Count(&totalReviews).Error
	return
}

func (r *Repository) recomputeRating(tx *gorm.DB, bookID uint) error {
	var avg sql.NullFloat64
	var count int64
	row := tx.Model(&entities.Review{}).
		Select("AVG(stars), COUNT(*)").
		Where("book_id = ?", bookID).
		Row()
	if err := row.Scan(&avg, &count); err != nil {
		return fmt.Errorf("aggregate reviews: %w", err)
	}

	fields := map[string]any{"review_count": count, "average_rating": nil}
	if avg.Valid && count > 0 {
		fields["average_rating"] = avg.Float64
	}
	return tx.Model(&entities.Book{}).Where("id = ?", bookID).Updates(fields).Error
}
