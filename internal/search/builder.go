// Package search builds the catalog search statement.
//
// A free-text query is split into words and each word is scored by whole-word
// matches against title, authors, subjects and description. Rows scoring above
// the relevance threshold form the ranked set; when that set is empty the
// query falls back to a plain substring match on title or authors, which
// catches partial words such as "giv". Structured title/author filters apply only when
// there is no free-text query. Rating, level and subject filters narrow
// whichever set was produced.
package search

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultThreshold = 0.5
	DefaultLimit     = 30

	// Terms beyond this are ignored when scoring.
	maxQueryTerms = 8
)

// Per-term weights. A term's combined weight is capped at 1.0.
const (
	titleWeight       = 1.0
	authorsWeight     = 0.75
	subjectsWeight    = 0.5
	descriptionWeight = 0.25
)

// Columns selected by every branch so the UNION lines up.
var bookColumns = []string{
	"id", "title", "authors", "description", "subjects", "isbn", "cover_url",
	"page_count", "publication_year", "level", "average_rating", "review_count",
	"enriched_at", "created_at", "updated_at", "deleted_at",
}

// Builder turns a Request into one SQL statement against the books table.
type Builder struct {
	Threshold float64
	Limit     int
}

func NewBuilder(threshold float64, limit int) Builder {
	return Builder{Threshold: threshold, Limit: limit}
}

// Build returns the statement and its positional arguments.
func (b Builder) Build(req Request) (string, []any) {
	threshold := b.Threshold
	if threshold <= 0 || math.IsNaN(threshold) {
		threshold = DefaultThreshold
	}
	limit := b.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var sb strings.Builder
	var args []any
	cols := strings.Join(bookColumns, ", ")

	query := ""
	if req.Query != nil {
		query = strings.ToLower(strings.TrimSpace(*req.Query))
	}

	if query != "" {
		terms := queryTerms(query)
		score, scoreArgs := scoreExpression(terms)

		sb.WriteString("WITH ranked AS (SELECT ")
		sb.WriteString(cols)
		sb.WriteString(", relevance FROM (SELECT ")
		sb.WriteString(cols)
		sb.WriteString(", ")
		sb.WriteString(score)
		sb.WriteString(" AS relevance FROM books WHERE deleted_at IS NULL) AS scored WHERE relevance > ?) ")
		args = append(args, scoreArgs...)
		args = append(args, threshold)

		sb.WriteString("SELECT ")
		sb.WriteString(cols)
		sb.WriteString(", relevance FROM (SELECT ")
		sb.WriteString(cols)
		sb.WriteString(", relevance FROM ranked UNION ALL SELECT ")
		sb.WriteString(cols)
		sb.WriteString(", 0.0 AS relevance FROM books WHERE deleted_at IS NULL AND (")
		sb.WriteString(like("title"))
		sb.WriteString(" OR ")
		sb.WriteString(like("authors"))
		sb.WriteString(") AND NOT EXISTS (SELECT 1 FROM ranked)) AS matched")
		pattern := containsPattern(query)
		args = append(args, pattern, pattern)
	} else {
		sb.WriteString("SELECT ")
		sb.WriteString(cols)
		sb.WriteString(", relevance FROM (SELECT ")
		sb.WriteString(cols)
		sb.WriteString(", 0.0 AS relevance FROM books WHERE deleted_at IS NULL")
		if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
			sb.WriteString(" AND ")
			sb.WriteString(like("title"))
			args = append(args, containsPattern(*req.Title))
		}
		if req.Author != nil && strings.TrimSpace(*req.Author) != "" {
			sb.WriteString(" AND ")
			sb.WriteString(like("authors"))
			args = append(args, containsPattern(*req.Author))
		}
		sb.WriteString(") AS matched")
	}

	filters, filterArgs := narrowingFilters(req)
	if len(filters) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(filters, " AND "))
		args = append(args, filterArgs...)
	}

	sb.WriteString(" ORDER BY relevance DESC, title ASC LIMIT ?")
	args = append(args, limit)

	return sb.String(), args
}

func narrowingFilters(req Request) ([]string, []any) {
	var filters []string
	var args []any

	if req.RatingMin != nil && !math.IsNaN(*req.RatingMin) {
		filters = append(filters, "average_rating >= ?")
		args = append(args, *req.RatingMin)
	}
	if req.LevelMin != nil && !math.IsNaN(*req.LevelMin) {
		filters = append(filters, "level >= ?")
		args = append(args, *req.LevelMin)
	}
	if req.LevelMax != nil && !math.IsNaN(*req.LevelMax) {
		filters = append(filters, "level <= ?")
		args = append(args, *req.LevelMax)
	}

	var subjectClauses []string
	for _, s := range req.Subjects {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		subjectClauses = append(subjectClauses, like("subjects"))
		args = append(args, containsPattern(s))
	}
	if len(subjectClauses) > 0 {
		filters = append(filters, "("+strings.Join(subjectClauses, " OR ")+")")
	}

	return filters, args
}

// scoreExpression averages the capped per-term weights.
func scoreExpression(terms []string) (string, []any) {
	if len(terms) == 0 {
		return "0.0", nil
	}
	parts := make([]string, 0, len(terms))
	var args []any
	for _, term := range terms {
		pattern := wordPattern(term)
		raw := fmt.Sprintf(
			"(CASE WHEN %s THEN %.2f ELSE 0 END + CASE WHEN %s THEN %.2f ELSE 0 END + CASE WHEN %s THEN %.2f ELSE 0 END + CASE WHEN %s THEN %.2f ELSE 0 END)",
			wordLike("title"), titleWeight,
			wordLike("authors"), authorsWeight,
			wordLike("subjects"), subjectsWeight,
			wordLike("description"), descriptionWeight,
		)
		// raw appears twice, so its arguments do too
		parts = append(parts, fmt.Sprintf("(CASE WHEN %s > 1.0 THEN 1.0 ELSE %s END)", raw, raw))
		for i := 0; i < 2; i++ {
			args = append(args, pattern, pattern, pattern, pattern)
		}
	}
	return fmt.Sprintf("((%s) / %d.0)", strings.Join(parts, " + "), len(terms)), args
}

func queryTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range strings.Fields(wordSeparators.Replace(query)) {
		if seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
		if len(terms) == maxQueryTerms {
			break
		}
	}
	return terms
}

// Characters treated as word boundaries besides whitespace. '?' is left out
// because gorm reads every '?' in raw SQL as a placeholder.
var separatorChars = []string{",", ".", ":", ";", "!", "-", "\"", "(", ")", "/"}

var wordSeparators = func() *strings.Replacer {
	pairs := make([]string, 0, len(separatorChars)*2)
	for _, c := range separatorChars {
		pairs = append(pairs, c, " ")
	}
	return strings.NewReplacer(pairs...)
}()

// wordLike matches a whole word of column. The column is lowercased, its
// separators turned into spaces and the result padded with spaces.
func wordLike(column string) string {
	expr := "LOWER(COALESCE(" + column + ", ''))"
	for _, c := range separatorChars {
		expr = "REPLACE(" + expr + ", '" + c + "', ' ')"
	}
	return "(' ' || " + expr + " || ' ') LIKE ? ESCAPE '\\'"
}

func wordPattern(term string) string {
	return "% " + likeEscaper.Replace(term) + " %"
}

func like(column string) string {
	return "LOWER(COALESCE(" + column + ", '')) LIKE ? ESCAPE '\\'"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern lowercases s, escapes LIKE wildcards and wraps it in %.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}
