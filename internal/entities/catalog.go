package entities

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// SubjectSeparator joins subjects in the Book.Subjects column.
const SubjectSeparator = "; "

type Book struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"index;size:512" json:"title"`
	Authors         string         `gorm:"index;size:512" json:"authors"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	Subjects        string         `gorm:"type:text" json:"subjects,omitempty"`
	ISBN            string         `gorm:"index;size:20" json:"isbn,omitempty"`
	CoverURL        string         `gorm:"size:2048" json:"cover_url,omitempty"`
	PageCount       int            `json:"page_count,omitempty"`
	PublicationYear int            `json:"publication_year,omitempty"`
	Level           *float64       `gorm:"index" json:"level,omitempty"`
	AverageRating   *float64       `gorm:"index" json:"average_rating,omitempty"`
	ReviewCount     int            `json:"review_count"`
	EnrichedAt      *time.Time     `json:"enriched_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// SubjectList splits the stored subjects column.
func (b Book) SubjectList() []string {
	return SplitSubjects(b.Subjects)
}

// JoinSubjects normalizes and joins subjects for storage.
func JoinSubjects(subjects []string) string {
	cleaned := make([]string, 0, len(subjects))
	seen := make(map[string]bool)
	for _, s := range subjects {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		cleaned = append(cleaned, s)
	}
	return strings.Join(cleaned, SubjectSeparator)
}

// SplitSubjects is the inverse of JoinSubjects.
func SplitSubjects(stored string) []string {
	if strings.TrimSpace(stored) == "" {
		return nil
	}
	parts := strings.Split(stored, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookID    uint      `gorm:"uniqueIndex:idx_review_book_user;not null" json:"book_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_review_book_user;not null" json:"user_id"`
	Username  string    `gorm:"-" json:"username,omitempty"`
	Stars     int       `json:"stars"`
	Text      string    `gorm:"type:text" json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}
