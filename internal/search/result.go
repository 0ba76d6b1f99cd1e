package search

import "github.com/mrlokans/bookworms/internal/entities"

// Result is a matched book with its relevance score. Books matched without
// a free-text query, or by the substring fallback, score 0.
type Result struct {
	entities.Book
	Relevance float64 `json:"relevance"`
}
