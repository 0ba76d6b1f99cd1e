package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/mrlokans/bookworms/internal/entities"
)

// ErrEnrichmentRunning is returned when a bulk enrichment is already in
// progress.
var ErrEnrichmentRunning = errors.New("metadata enrichment is already in progress")

// MetadataProvider defines the interface for fetching book metadata.
type MetadataProvider interface {
	SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
}

// BookUpdater defines the interface for updating books in the database.
type BookUpdater interface {
	GetBookByID(id uint) (*entities.Book, error)
	UpdateBookMetadata(id uint, metadata BookUpdateFields) error
	GetBooksMissingMetadata() ([]entities.Book, error)
}

// CoverInvalidator defines the interface for invalidating cached covers.
type CoverInvalidator interface {
	InvalidateCover(ctx context.Context, bookID uint) error
}

// BookUpdateFields contains the fields that can be updated via enrichment.
type BookUpdateFields struct {
	ISBN            *string
	CoverURL        *string
	Description     *string
	Subjects        []string
	PageCount       *int
	PublicationYear *int
}

// EnrichmentResult contains the result of an enrichment operation.
type EnrichmentResult struct {
	Book          *entities.Book `json:"book"`
	FieldsUpdated []string       `json:"fields_updated"`
	Source        string         `json:"source"`
	SearchMethod  string         `json:"search_method"` // "isbn" or "title"
}

// Enricher handles book metadata enrichment from external sources.
type Enricher struct {
	provider         MetadataProvider
	db               BookUpdater
	coverInvalidator CoverInvalidator
	running          atomic.Bool
}

// NewEnricher creates a new Enricher with the given metadata provider and database.
func NewEnricher(provider MetadataProvider, db BookUpdater) *Enricher {
	return &Enricher{
		provider: provider,
		db:       db,
	}
}

// SetCoverInvalidator sets the cover cache invalidator (optional).
func (e *Enricher) SetCoverInvalidator(invalidator CoverInvalidator) {
	e.coverInvalidator = invalidator
}

// EnrichBook fetches metadata for a book and updates it in the database.
// It tries ISBN first (if available), then falls back to title+author search.
// Books OpenLibrary does not know are still stamped as enriched so the
// nightly run does not retry them forever.
func (e *Enricher) EnrichBook(ctx context.Context, bookID uint) (*EnrichmentResult, error) {
	book, err := e.db.GetBookByID(bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	var metadata *BookMetadata
	var searchMethod string

	if book.ISBN != "" {
		metadata, err = e.provider.SearchByISBN(ctx, book.ISBN)
		if err == nil {
			searchMethod = "isbn"
		}
	}

	if metadata == nil {
		metadata, err = e.provider.SearchByTitle(ctx, book.Title, firstAuthor(book.Authors))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				if stampErr := e.db.UpdateBookMetadata(bookID, BookUpdateFields{}); stampErr != nil {
					log.Printf("Failed to mark book %d as enriched: %v", bookID, stampErr)
				}
			}
			return nil, fmt.Errorf("metadata search failed: %w", err)
		}
		searchMethod = "title"
	}

	updates, fieldsUpdated := e.buildUpdates(book, metadata)

	if updates.CoverURL != nil && e.coverInvalidator != nil {
		_ = e.coverInvalidator.InvalidateCover(ctx, bookID)
	}

	if err := e.db.UpdateBookMetadata(bookID, updates); err != nil {
		return nil, fmt.Errorf("update book metadata: %w", err)
	}

	book, err = e.db.GetBookByID(bookID)
	if err != nil {
		return nil, fmt.Errorf("refresh book: %w", err)
	}

	return &EnrichmentResult{
		Book:          book,
		FieldsUpdated: fieldsUpdated,
		Source:        "openlibrary",
		SearchMethod:  searchMethod,
	}, nil
}

// BulkEnrichmentResult contains the summary of a bulk enrichment operation.
type BulkEnrichmentResult struct {
	TotalBooks int      `json:"total_books"`
	Enriched   int      `json:"enriched"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// EnrichAllMissing enriches every book that has never been enriched. Only
// one bulk run may be active at a time.
func (e *Enricher) EnrichAllMissing(ctx context.Context) (*BulkEnrichmentResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrEnrichmentRunning
	}
	defer e.running.Store(false)

	books, err := e.db.GetBooksMissingMetadata()
	if err != nil {
		return nil, fmt.Errorf("get books missing metadata: %w", err)
	}

	result := &BulkEnrichmentResult{
		TotalBooks: len(books),
	}

	for _, book := range books {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, "operation cancelled")
			return result, ctx.Err()
		default:
		}

		enrichResult, err := e.EnrichBook(ctx, book.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				result.Skipped++
				continue
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", book.Title, err))
			continue
		}

		if len(enrichResult.FieldsUpdated) > 0 {
			result.Enriched++
		} else {
			result.Skipped++
		}
	}

	return result, nil
}

// buildUpdates compares existing book data with fetched metadata and returns
// only the fields that should be updated. Values entered by people win over
// fetched ones, except the cover which follows the source.
func (e *Enricher) buildUpdates(book *entities.Book, metadata *BookMetadata) (BookUpdateFields, []string) {
	var updates BookUpdateFields
	var fieldsUpdated []string

	if book.ISBN == "" && metadata.ISBN != "" {
		updates.ISBN = &metadata.ISBN
		fieldsUpdated = append(fieldsUpdated, "isbn")
	}

	if metadata.CoverURL != "" && book.CoverURL != metadata.CoverURL {
		updates.CoverURL = &metadata.CoverURL
		fieldsUpdated = append(fieldsUpdated, "cover_url")
	}

	if book.Description == "" && metadata.Description != "" {
		updates.Description = &metadata.Description
		fieldsUpdated = append(fieldsUpdated, "description")
	}

	if book.Subjects == "" && len(metadata.Subjects) > 0 {
		updates.Subjects = metadata.Subjects
		fieldsUpdated = append(fieldsUpdated, "subjects")
	}

	if book.PageCount == 0 && metadata.PageCount > 0 {
		updates.PageCount = &metadata.PageCount
		fieldsUpdated = append(fieldsUpdated, "page_count")
	}

	if book.PublicationYear == 0 && metadata.PublicationYear > 0 {
		updates.PublicationYear = &metadata.PublicationYear
		fieldsUpdated = append(fieldsUpdated, "publication_year")
	}

	return updates, fieldsUpdated
}

// firstAuthor picks the first name from a comma or semicolon separated list.
func firstAuthor(authors string) string {
	if i := strings.IndexAny(authors, ",;"); i >= 0 {
		authors = authors[:i]
	}
	return strings.TrimSpace(authors)
}
