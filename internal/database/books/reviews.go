package books

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/entities"
)

const (
	MinStars = 1
	MaxStars = 5
)

var ErrInvalidStars = errors.New("stars must be between 1 and 5")

type reviewRow struct {
	ID        uint
	BookID    uint
	UserID    uint
	Username  string
	Stars     int
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListReviews returns the reviews of a book, newest first, with usernames.
func (r *Repository) ListReviews(bookID uint) ([]entities.Review, error) {
	var rows []reviewRow
	err := r.db.Table("reviews").
		Select("reviews.id, reviews.book_id, reviews.user_id, users.username, reviews.stars, reviews.text, reviews.created_at, reviews.updated_at").
		Joins("LEFT JOIN users ON users.id = reviews.user_id").
		Where("reviews.book_id = ?", bookID).
		Order("reviews.updated_at DESC, reviews.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	reviews := make([]entities.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, entities.Review{
			ID:        row.ID,
			BookID:    row.BookID,
			UserID:    row.UserID,
			Username:  row.Username,
			Stars:     row.Stars,
			Text:      row.Text,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return reviews, nil
}

// UpsertReview creates or replaces the user's review of a book and refreshes
// the book's average rating.
func (r *Repository) UpsertReview(bookID, userID uint, stars int, text string) (*entities.Review, error) {
	if stars < MinStars || stars > MaxStars {
		return nil, ErrInvalidStars
	}

	var review entities.Review
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.Select("id").First(&book, bookID).Error; err != nil {
			return database.Translate(err)
		}

		err := tx.Where("book_id = ? AND user_id = ?", bookID, userID).First(&review).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			review = entities.Review{BookID: bookID, UserID: userID, Stars: stars, Text: text}
			if err := tx.Create(&review).Error; err != nil {
				return database.Translate(err)
			}
		case err != nil:
			return err
		default:
			review.Stars = stars
			review.Text = text
			if err := tx.Save(&review).Error; err != nil {
				return err
			}
		}

		return r.recomputeRating(tx, bookID)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// DeleteReview removes the user's review of a book.
func (r *Repository) DeleteReview(bookID, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("book_id = ? AND user_id = ?", bookID, userID).Delete(&entities.Review{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return database.ErrNotFound
		}
		return r.recomputeRating(tx, bookID)
	})
}
