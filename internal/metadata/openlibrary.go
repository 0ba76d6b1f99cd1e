package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/bookworms/internal/cache"
)

const (
	DefaultBaseURL   = "https://openlibrary.org"
	DefaultCoversURL = "https://covers.openlibrary.org"

	userAgent       = "Bookworms/1.0 (https://github.com/mrlokans/bookworms)"
	maxResponseSize = 2 << 20
	maxSubjects     = 10
)

// ErrNotFound is returned when OpenLibrary has no record for a lookup.
var ErrNotFound = errors.New("metadata not found")

// BookMetadata contains enriched book information from external sources.
type BookMetadata struct {
	Title           string   `json:"title,omitempty"`
	Author          string   `json:"author,omitempty"`
	ISBN            string   `json:"isbn,omitempty"`
	CoverURL        string   `json:"cover_url,omitempty"`
	PublicationYear int      `json:"publication_year,omitempty"`
	Description     string   `json:"description,omitempty"`
	Subjects        []string `json:"subjects,omitempty"`
	PageCount       int      `json:"page_count,omitempty"`
	OpenLibraryKey  string   `json:"open_library_key,omitempty"`
}

// OpenLibraryClient fetches book metadata from the OpenLibrary API. Responses
// are cached by request URL when a cache store is configured.
type OpenLibraryClient struct {
	httpClient *http.Client
	baseURL    string
	coversURL  string
	limiter    *rate.Limiter
	cache      cache.Store
	cacheTTL   time.Duration
}

type ClientOption func(*OpenLibraryClient)

func WithBaseURL(u string) ClientOption {
	return func(c *OpenLibraryClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithCoversURL(u string) ClientOption {
	return func(c *OpenLibraryClient) {
		if u != "" {
			c.coversURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables
// limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *OpenLibraryClient) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithCache(store cache.Store, ttl time.Duration) ClientOption {
	return func(c *OpenLibraryClient) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *OpenLibraryClient) {
		c.httpClient = client
	}
}

// NewOpenLibraryClient creates a new OpenLibrary API client limited to one
// request per second unless overridden.
func NewOpenLibraryClient(opts ...ClientOption) *OpenLibraryClient {
	c := &OpenLibraryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:   DefaultBaseURL,
		coversURL: DefaultCoversURL,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CoverURLForISBN returns the large cover image URL for an ISBN.
func (c *OpenLibraryClient) CoverURLForISBN(isbn string) string {
	return fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, isbn)
}

func (c *OpenLibraryClient) coverURLForID(id int) string {
	return fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, id)
}

// SearchByISBN looks up a book by its ISBN and returns metadata.
func (c *OpenLibraryClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("invalid ISBN")
	}

	var bookData openLibraryBook
	if err := c.getJSON(ctx, fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn), &bookData); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("ISBN %s: %w", isbn, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch ISBN data: %w", err)
	}

	metadata := c.convertToMetadata(&bookData, isbn)

	if len(bookData.Authors) > 0 && metadata.Author == "" {
		if authorName, err := c.fetchAuthorName(ctx, bookData.Authors[0].Key); err == nil {
			metadata.Author = authorName
		}
	}

	// Editions rarely carry descriptions; the work usually does
	if len(bookData.Works) > 0 && (metadata.Description == "" || len(metadata.Subjects) == 0) {
		if work, err := c.fetchWork(ctx, bookData.Works[0].Key); err == nil {
			c.enrichMetadataFromWork(metadata, work)
		}
	}

	return metadata, nil
}

// SearchByTitle looks up a book by title and author, returning the best match.
func (c *OpenLibraryClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title is required")
	}

	q := title
	if author != "" {
		q = fmt.Sprintf("%s %s", title, author)
	}
	params := url.Values{"q": {q}, "limit": {"5"}}

	var searchResult openLibrarySearchResult
	if err := c.getJSON(ctx, c.baseURL+"/search.json?"+params.Encode(), &searchResult); err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	if len(searchResult.Docs) == 0 {
		return nil, fmt.Errorf("no results for %q: %w", title, ErrNotFound)
	}

	bestDoc := c.findBestMatch(searchResult.Docs, title, author)
	metadata := c.convertSearchDocToMetadata(bestDoc)

	if metadata.ISBN == "" && bestDoc.CoverEditionKey != "" {
		if edition, err := c.fetchEditionDetails(ctx, bestDoc.CoverEditionKey); err == nil {
			c.enrichMetadataFromEdition(metadata, edition)
		}
	}

	if metadata.Description == "" && strings.HasPrefix(bestDoc.Key, "/works/") {
		if work, err := c.fetchWork(ctx, bestDoc.Key); err == nil {
			c.enrichMetadataFromWork(metadata, work)
		}
	}

	return metadata, nil
}

func (c *OpenLibraryClient) findBestMatch(docs []openLibrarySearchDoc, title, author string) *openLibrarySearchDoc {
	titleLower := strings.ToLower(title)
	authorLower := strings.ToLower(author)

	var bestMatch *openLibrarySearchDoc
	bestScore := -1

	for i := range docs {
		doc := &docs[i]
		score := 0

		if strings.ToLower(doc.Title) == titleLower {
			score += 10
		} else if strings.Contains(strings.ToLower(doc.Title), titleLower) {
			score += 5
		}

		if author != "" {
			for _, docAuthor := range doc.AuthorName {
				if strings.ToLower(docAuthor) == authorLower {
					score += 10
					break
				} else if strings.Contains(strings.ToLower(docAuthor), authorLower) {
					score += 5
					break
				}
			}
		}

		if len(doc.ISBN) > 0 {
			score += 2
		}
		if doc.CoverI != 0 {
			score++
		}

		if score > bestScore {
			bestScore = score
			bestMatch = doc
		}
	}

	return bestMatch
}

func (c *OpenLibraryClient) fetchEditionDetails(ctx context.Context, editionKey string) (*openLibraryEdition, error) {
	if editionKey == "" {
		return nil, fmt.Errorf("empty edition key")
	}
	var edition openLibraryEdition
	if err := c.getJSON(ctx, fmt.Sprintf("%s/books/%s.json", c.baseURL, editionKey), &edition); err != nil {
		return nil, err
	}
	return &edition, nil
}

func (c *OpenLibraryClient) fetchWork(ctx context.Context, workKey string) (*openLibraryWork, error) {
	if workKey == "" {
		return nil, fmt.Errorf("empty work key")
	}
	var work openLibraryWork
	if err := c.getJSON(ctx, fmt.Sprintf("%s%s.json", c.baseURL, workKey), &work); err != nil {
		return nil, err
	}
	return &work, nil
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	if authorKey == "" {
		return "", fmt.Errorf("empty author key")
	}
	var authorData struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s%s.json", c.baseURL, authorKey), &authorData); err != nil {
		return "", err
	}
	return authorData.Name, nil
}

// getJSON fetches rawURL through the cache and decodes the body into dest.
func (c *OpenLibraryClient) getJSON(ctx context.Context, rawURL string, dest any) error {
	if c.cache != nil {
		if body, ok, err := c.cache.Get(ctx, rawURL); err == nil && ok {
			return json.Unmarshal(body, dest)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, rawURL, body, c.cacheTTL); err != nil {
			log.Printf("Failed to cache OpenLibrary response for %s: %v", rawURL, err)
		}
	}
	return nil
}

func (c *OpenLibraryClient) convertToMetadata(book *openLibraryBook, isbn string) *BookMetadata {
	metadata := &BookMetadata{
		Title:          book.Title,
		ISBN:           isbn,
		OpenLibraryKey: book.Key,
		PageCount:      book.NumberOfPages,
		Description:    textValue(book.Description),
	}

	if isbn != "" {
		metadata.CoverURL = c.CoverURLForISBN(isbn)
	} else if len(book.Covers) > 0 {
		metadata.CoverURL = c.coverURLForID(book.Covers[0])
	}

	if book.PublishDate != "" {
		metadata.PublicationYear = extractYear(book.PublishDate)
	}

	metadata.Subjects = limitSubjects(book.Subjects)

	return metadata
}

func (c *OpenLibraryClient) enrichMetadataFromEdition(metadata *BookMetadata, edition *openLibraryEdition) {
	// Prefer ISBN-13
	if metadata.ISBN == "" {
		if len(edition.ISBN13) > 0 {
			metadata.ISBN = edition.ISBN13[0]
		} else if len(edition.ISBN10) > 0 {
			metadata.ISBN = edition.ISBN10[0]
		}
	}

	if metadata.ISBN != "" && metadata.CoverURL == "" {
		metadata.CoverURL = c.CoverURLForISBN(metadata.ISBN)
	}

	if metadata.PageCount == 0 && edition.NumberOfPages > 0 {
		metadata.PageCount = edition.NumberOfPages
	}

	if metadata.PublicationYear == 0 && edition.PublishDate != "" {
		metadata.PublicationYear = extractYear(edition.PublishDate)
	}
}

func (c *OpenLibraryClient) enrichMetadataFromWork(metadata *BookMetadata, work *openLibraryWork) {
	if metadata.Description == "" {
		metadata.Description = textValue(work.Description)
	}
	if len(metadata.Subjects) == 0 {
		metadata.Subjects = limitSubjects(work.Subjects)
	}
	if metadata.CoverURL == "" && len(work.Covers) > 0 {
		metadata.CoverURL = c.coverURLForID(work.Covers[0])
	}
}

func (c *OpenLibraryClient) convertSearchDocToMetadata(doc *openLibrarySearchDoc) *BookMetadata {
	metadata := &BookMetadata{
		Title:           doc.Title,
		PublicationYear: doc.FirstPublishYear,
		OpenLibraryKey:  doc.Key,
		PageCount:       doc.NumberOfPagesMedian,
		Subjects:        limitSubjects(doc.Subject),
	}

	if len(doc.AuthorName) > 0 {
		metadata.Author = doc.AuthorName[0]
	}

	if len(doc.ISBN) > 0 {
		metadata.ISBN = doc.ISBN[0]
		metadata.CoverURL = c.CoverURLForISBN(doc.ISBN[0])
	} else if doc.CoverI != 0 {
		metadata.CoverURL = c.coverURLForID(doc.CoverI)
	}

	return metadata
}

func limitSubjects(subjects []string) []string {
	if len(subjects) > maxSubjects {
		return subjects[:maxSubjects]
	}
	return subjects
}

// textValue reads OpenLibrary text fields, which are either a plain string or
// {"type": ..., "value": ...}.
func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if val, ok := t["value"].(string); ok {
			return val
		}
	}
	return ""
}

// normalizeISBN removes hyphens and spaces from ISBN.
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	// ISBN-10 or ISBN-13
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}

	return isbn
}

// extractYear tries to extract a 4-digit year from a date string.
func extractYear(dateStr string) int {
	dateStr = strings.TrimSpace(dateStr)
	if len(dateStr) < 4 {
		return 0
	}

	formats := []string{
		"2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2006-01-02",
		"January 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.Year()
		}
	}

	// Last resort: find 4 consecutive digits
	for i := 0; i <= len(dateStr)-4; i++ {
		if dateStr[i] >= '0' && dateStr[i] <= '9' {
			var year int
			if _, err := fmt.Sscanf(dateStr[i:i+4], "%d", &year); err == nil && year > 1000 && year < 3000 {
				return year
			}
		}
	}

	return 0
}

// OpenLibrary API response types

type openLibraryBook struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	Authors       []keyRef `json:"authors"`
	Works         []keyRef `json:"works"`
	PublishDate   string   `json:"publish_date"`
	NumberOfPages int      `json:"number_of_pages"`
	Description   any      `json:"description"`
	Subjects      []string `json:"subjects"`
	Covers        []int    `json:"covers"`
}

type keyRef struct {
	Key string `json:"key"`
}

type openLibraryWork struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description any      `json:"description"`
	Subjects    []string `json:"subjects"`
	Covers      []int    `json:"covers"`
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name"`
	FirstPublishYear    int      `json:"first_publish_year"`
	ISBN                []string `json:"isbn"`
	CoverI              int      `json:"cover_i"`
	CoverEditionKey     string   `json:"cover_edition_key"`
	Subject             []string `json:"subject"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
}

type openLibraryEdition struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	PublishDate   string   `json:"publish_date"`
	ISBN10        []string `json:"isbn_10"`
	ISBN13        []string `json:"isbn_13"`
	NumberOfPages int      `json:"number_of_pages"`
	Covers        []int    `json:"covers"`
}
