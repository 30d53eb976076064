// Package cache memoizes whole HTTP responses for a fixed TTL.
//
// Entries are keyed by route path plus the raw query string, so two requests
// that differ only in parameter order are cached separately. Expiry is
// checked when an entry is read; nothing sweeps the store in the background.
package cache

import (
	"context"
	"net/http"
	"time"
)

// Entry is a serialized response.
type Entry struct {
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration)
}

func Key(r *http.Request) string {
	return r.URL.Path + "?" + r.URL.RawQuery
}

// Nop never stores anything. Used when caching is disabled.
type Nop struct{}

func (Nop) Get(context.Context, string) (*Entry, bool)         { return nil, false }
func (Nop) Set(context.Context, string, *Entry, time.Duration) {}
