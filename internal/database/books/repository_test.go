package books

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/database/dbtest"
	"github.com/mrlokans/bookworms/internal/entities"
	"github.com/mrlokans/bookworms/internal/metadata"
	"github.com/mrlokans/bookworms/internal/search"
)

func setupTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	db := dbtest.Open(t)
	return NewRepository(db), db
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func createBook(t *testing.T, repo *Repository, title, authors string) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, Authors: authors}
	require.NoError(t, repo.CreateBook(book))
	return book
}

func titles(results []search.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Title)
	}
	return out
}

func TestRepository_CreateAndGetBook(t *testing.T) {
	repo, _ := setupTestRepo(t)

	book := &entities.Book{
		Title:    " Giving Day ",
		Authors:  "Jane Smith",
		Subjects: entities.JoinSubjects([]string{"Holidays", "Family"}),
	}
	require.NoError(t, repo.CreateBook(book))

	got, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Giving Day", got.Title)
	assert.Equal(t, []string{"Holidays", "Family"}, got.SubjectList())

	_, err = repo.GetBookByID(9999)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_UpdateBook(t *testing.T) {
	repo, _ := setupTestRepo(t)
	book := createBook(t, repo, "Giving Day", "Jane Smith")

	got, err := repo.UpdateBook(book.ID, BookUpdate{Level: floatPtr(3), Subjects: []string{"Family"}})
	require.NoError(t, err)
	require.NotNil(t, got.Level)
	assert.Equal(t, 3.0, *got.Level)
	assert.Equal(t, "Family", got.Subjects)
	assert.Equal(t, "Giving Day", got.Title)

	_, err = repo.UpdateBook(9999, BookUpdate{Title: strPtr("x")})
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = repo.UpdateBook(book.ID, BookUpdate{Title: strPtr("  ")})
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestRepository_CreateBook_RequiresTitle(t *testing.T) {
	repo, _ := setupTestRepo(t)
	assert.ErrorIs(t, repo.CreateBook(&entities.Book{Title: " ", Authors: "Jane Smith"}), ErrEmptyTitle)
}

func TestRepository_DeleteBook(t *testing.T) {
	repo, db := setupTestRepo(t)
	book := createBook(t, repo, "Giving Day", "Jane Smith")

	shelf := &entities.Bookshelf{Name: "Finished"}
	require.NoError(t, db.Create(shelf).Error)
	require.NoError(t, db.Create(&entities.BookshelfBook{BookshelfID: shelf.ID, BookID: book.ID}).Error)

	require.NoError(t, repo.DeleteBook(book.ID))

	_, err := repo.GetBookByID(book.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	var entries int64
	db.Model(&entities.BookshelfBook{}).Where("book_id = ?", book.ID).Count(&entries)
	assert.Zero(t, entries)

	assert.ErrorIs(t, repo.DeleteBook(book.ID), database.ErrNotFound)
}

func TestRepository_Reviews(t *testing.T) {
	repo, db := setupTestRepo(t)
	book := createBook(t, repo, "Giving Day", "Jane Smith")

	ada := &entities.User{Username: "ada", Email: "ada@example.com", Role: entities.UserRoleParent}
	grace := &entities.User{Username: "grace", Email: "grace@example.com", Role: entities.UserRoleTeacher}
	require.NoError(t, db.Create(ada).Error)
	require.NoError(t, db.Create(grace).Error)

	_, err := repo.UpsertReview(book.ID, ada.ID, 4, "Lovely")
	require.NoError(t, err)
	_, err = repo.UpsertReview(book.ID, grace.ID, 2, "")
	require.NoError(t, err)

	got, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AverageRating)
	assert.InDelta(t, 3.0, *got.AverageRating, 0.001)
	assert.Equal(t, 2, got.ReviewCount)

	// Second review by the same user replaces the first
	_, err = repo.UpsertReview(book.ID, ada.ID, 5, "Even better")
	require.NoError(t, err)

	got, err = repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, *got.AverageRating, 0.001)
	assert.Equal(t, 2, got.ReviewCount)

	reviews, err := repo.ListReviews(book.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	names := []string{reviews[0].Username, reviews[1].Username}
	assert.ElementsMatch(t, []string{"ada", "grace"}, names)

	require.NoError(t, repo.DeleteReview(book.ID, ada.ID))
	require.NoError(t, repo.DeleteReview(book.ID, grace.ID))

	got, err = repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AverageRating)
	assert.Zero(t, got.ReviewCount)

	assert.ErrorIs(t, repo.DeleteReview(book.ID, ada.ID), database.ErrNotFound)
}

func TestRepository_UpsertReview_Validation(t *testing.T) {
	repo, _ := setupTestRepo(t)
	book := createBook(t, repo, "Giving Day", "Jane Smith")

	_, err := repo.UpsertReview(book.ID, 1, 6, "")
	assert.ErrorIs(t, err, ErrInvalidStars)

	_, err = repo.UpsertReview(9999, 1, 3, "")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_Search_RankedMatch(t *testing.T) {
	repo, _ := setupTestRepo(t)
	createBook(t, repo, "Giving Day", "Jane Smith")
	createBook(t, repo, "Xyz", "John Doe")

	results, err := repo.Search(search.Request{Query: strPtr("Giving")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Giving Day", results[0].Title)
	assert.InDelta(t, 1.0, results[0].Relevance, 0.001)
}

func TestRepository_Search_NoMatch(t *testing.T) {
	repo, _ := setupTestRepo(t)
	createBook(t, repo, "Giving Day", "Jane Smith")
	createBook(t, repo, "Xyz", "John Doe")

	results, err := repo.Search(search.Request{Query: strPtr("qqzznomatch")})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRepository_Search_FallbackOnPartialWord(t *testing.T) {
	repo, _ := setupTestRepo(t)
	createBook(t, repo, "Giving Day", "Jane Smith")
	createBook(t, repo, "Xyz", "John Doe")

	results, err := repo.Search(search.Request{Query: strPtr("giv")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Giving Day", results[0].Title)
	assert.Zero(t, results[0].Relevance)
}

func TestRepository_Search_RankedSuppressesFallback(t *testing.T) {
	repo, _ := setupTestRepo(t)
	createBook(t, repo, "Day Trip", "Ann Lee")
	createBook(t, repo, "Daydreams", "Bo Park")

	// "day" is a whole word in the first title only; the substring match on
	// the second must not be mixed in.
	results, err := repo.Search(search.Request{Query: strPtr("day")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Day Trip"}, titles(results))
}

func TestRepository_Search_RelevanceOrdering(t *testing.T) {
	repo, _ := setupTestRepo(t)

	createBook(t, repo, "Ocean Tales", "Giving Author")
	createBook(t, repo, "Giving Day", "Jane Smith")

	results, err := repo.Search(search.Request{Query: strPtr("giving")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Giving Day", "Ocean Tales"}, titles(results))
	assert.Greater(t, results[0].Relevance, results[1].Relevance)
}

func TestRepository_Search_DescriptionOnlyIsBelowThreshold(t *testing.T) {
	repo, _ := setupTestRepo(t)
	book := &entities.Book{Title: "Xyz", Authors: "John Doe", Description: "A story about giving"}
	require.NoError(t, repo.CreateBook(book))

	// Description alone scores 0.25 and the title/author fallback has
	// nothing to match.
	results, err := repo.Search(search.Request{Query: strPtr("giving")})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRepository_Search_TitleAndAuthorWithoutQuery(t *testing.T) {
	repo, _ := setupTestRepo(t)
	createBook(t, repo, "Giving Day", "Jane Smith")
	createBook(t, repo, "Giving Tree", "Shel Silverstein")
	createBook(t, repo, "Xyz", "Jane Smith")

	results, err := repo.Search(search.Request{Title: strPtr("giving"), Author: strPtr("smith")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Giving Day"}, titles(results))
}

func TestRepository_Search_LevelRange(t *testing.T) {
	repo, _ := setupTestRepo(t)
	book := &entities.Book{Title: "Giving Day", Authors: "Jane Smith", Level: floatPtr(5)}
	require.NoError(t, repo.CreateBook(book))

	results, err := repo.Search(search.Request{Query: strPtr("Giving"), LevelMin: floatPtr(6)})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = repo.Search(search.Request{Query: strPtr("Giving"), LevelMin: floatPtr(5)})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = repo.Search(search.Request{LevelMax: floatPtr(4)})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRepository_Search_RatingAndSubjects(t *testing.T) {
	repo, db := setupTestRepo(t)
	require.NoError(t, repo.CreateBook(&entities.Book{
		Title: "Space Cats", Subjects: entities.JoinSubjects([]string{"Animals", "Space"}),
	}))
	require.NoError(t, repo.CreateBook(&entities.Book{
		Title: "Farm Life", Subjects: entities.JoinSubjects([]string{"Animals"}),
	}))
	require.NoError(t, repo.CreateBook(&entities.Book{
		Title: "Numbers", Subjects: entities.JoinSubjects([]string{"Math"}),
	}))
	require.NoError(t, db.Model(&entities.Book{}).Where("title = ?", "Space Cats").
		Update("average_rating", 4.5).Error)
	require.NoError(t, db.Model(&entities.Book{}).Where("title = ?", "Farm Life").
		Update("average_rating", 3.0).Error)

	results, err := repo.Search(search.Request{Subjects: []string{"space", "math"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Numbers", "Space Cats"}, titles(results))

	results, err = repo.Search(search.Request{Subjects: []string{"animals"}, RatingMin: floatPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Space Cats"}, titles(results))
}

func TestRepository_Search_ResultCap(t *testing.T) {
	repo, _ := setupTestRepo(t)
	for i := 0; i < 50; i++ {
		createBook(t, repo, fmt.Sprintf("Dragon Tale %02d", i), "Author")
	}

	results, err := repo.Search(search.Request{})
	require.NoError(t, err)
	assert.Len(t, results, 30)

	results, err = repo.Search(search.Request{Query: strPtr("dragon")})
	require.NoError(t, err)
	assert.Len(t, results, 30)
	assert.Equal(t, "Dragon Tale 00", results[0].Title)
}

func TestRepository_Search_ExcludesDeleted(t *testing.T) {
	repo, _ := setupTestRepo(t)
	book := createBook(t, repo, "Giving Day", "Jane Smith")
	require.NoError(t, repo.DeleteBook(book.ID))

	results, err := repo.Search(search.Request{Query: strPtr("giving")})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRepository_Metadata(t *testing.T) {
	repo, _ := setupTestRepo(t)
	book := createBook(t, repo, "Giving Day", "Jane Smith")
	createBook(t, repo, "Xyz", "John Doe")

	missing, err := repo.GetBooksMissingMetadata()
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	isbn := "9780000000001"
	year := 2001
	require.NoError(t, repo.UpdateBookMetadata(book.ID, metadata.BookUpdateFields{
		ISBN:            &isbn,
		PublicationYear: &year,
		Subjects:        []string{"Holidays"},
	}))

	got, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, isbn, got.ISBN)
	assert.Equal(t, 2001, got.PublicationYear)
	assert.Equal(t, "Holidays", got.Subjects)
	assert.NotNil(t, got.EnrichedAt)

	missing, err = repo.GetBooksMissingMetadata()
	require.NoError(t, err)
	assert.Len(t, missing, 1)

	found, err := repo.FindBookByISBN(isbn)
	require.NoError(t, err)
	assert.Equal(t, book.ID, found.ID)
}
