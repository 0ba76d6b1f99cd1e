// Package covers fetches book cover images and keeps them in the shared
// cache so repeated requests do not reach the cover host.
package covers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mrlokans/bookworms/internal/cache"
)

const maxCoverSize = 5 << 20

// ErrNoCover is returned when a book has no cover URL or the host has no
// image for it.
var ErrNoCover = errors.New("cover not available")

// Cover is a fetched image.
type Cover struct {
	ContentType string
	Data        []byte
}

// Fetcher downloads covers through a cache.Store.
type Fetcher struct {
	store      cache.Store
	ttl        time.Duration
	httpClient *http.Client
}

// NewFetcher creates a cover fetcher caching images for ttl.
func NewFetcher(store cache.Store, ttl time.Duration) *Fetcher {
	return &Fetcher{
		store: store,
		ttl:   ttl,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetCover returns the cover for a book, fetching and caching it when the
// cache has nothing for the current URL.
func (f *Fetcher) GetCover(ctx context.Context, bookID uint, coverURL string) (*Cover, error) {
	if coverURL == "" {
		return nil, ErrNoCover
	}

	key := coverKey(bookID)
	if raw, ok, err := f.store.Get(ctx, key); err == nil && ok {
		if cachedURL, cover, ok := decodeEntry(raw); ok && cachedURL == coverURL {
			return cover, nil
		}
	}

	cover, err := f.fetch(ctx, coverURL)
	if err != nil {
		return nil, err
	}

	_ = f.store.Set(ctx, key, encodeEntry(coverURL, cover), f.ttl)
	return cover, nil
}

// InvalidateCover removes the cached cover for a book.
func (f *Fetcher) InvalidateCover(ctx context.Context, bookID uint) error {
	return f.store.Delete(ctx, coverKey(bookID))
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*Cover, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Bookworms/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoCover
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxCoverSize {
		return nil, fmt.Errorf("cover exceeds %d bytes", maxCoverSize)
	}
	if len(data) == 0 {
		return nil, ErrNoCover
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("unexpected cover content type %q", contentType)
	}

	return &Cover{ContentType: contentType, Data: data}, nil
}

func coverKey(bookID uint) string {
	return fmt.Sprintf("cover:%d", bookID)
}

// Entries are "<url>\n<content type>\n<bytes>".
func encodeEntry(url string, cover *Cover) []byte {
	var buf bytes.Buffer
	buf.Grow(len(url) + len(cover.ContentType) + len(cover.Data) + 2)
	buf.WriteString(url)
	buf.WriteByte('\n')
	buf.WriteString(cover.ContentType)
	buf.WriteByte('\n')
	buf.Write(cover.Data)
	return buf.Bytes()
}

func decodeEntry(raw []byte) (string, *Cover, bool) {
	parts := bytes.SplitN(raw, []byte{'\n'}, 3)
	if len(parts) != 3 {
		return "", nil, false
	}
	return string(parts[0]), &Cover{ContentType: string(parts[1]), Data: parts[2]}, true
}
