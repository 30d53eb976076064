package cache

import (
	"bytes"
	"net/http"
	"time"

	"query-api/pkg/logger"
	"query-api/pkg/telemetry"
)

const HeaderCache = "X-Cache"

// Middleware serves repeated GET requests from store for ttl. Only 200
// responses are stored. Two concurrent misses for the same key may both run
// the handler; the last write wins.
func Middleware(store Store, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || ttl <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := Key(r)
			if e, ok := store.Get(r.Context(), key); ok {
				telemetry.CacheHits.Inc()
				logger.Ctx(r.Context()).Debug().Str("key", key).Msg("Cache hit")
				if e.ContentType != "" {
					w.Header().Set("Content-Type", e.ContentType)
				}
				w.Header().Set(HeaderCache, "HIT")
				w.WriteHeader(e.StatusCode)
				_, _ = w.Write(e.Body)
				return
			}

			telemetry.CacheMisses.Inc()
			w.Header().Set(HeaderCache, "MISS")
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status == http.StatusOK {
				store.Set(r.Context(), key, &Entry{
					StatusCode:  rec.status,
					ContentType: w.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				}, ttl)
			}
		})
	}
}

// recorder tees the response body so it can be stored after the handler
// returns.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
