package cache

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"query-api/pkg/telemetry"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemory_LazyExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory()
	m.now = clock.Now
	ctx := context.Background()

	m.Set(ctx, "k", &Entry{StatusCode: 200, Body: []byte("v1")}, 300*time.Second)

	clock.Advance(299 * time.Second)
	e, ok := m.Get(ctx, "k")
	if !ok || string(e.Body) != "v1" {
		t.Fatalf("Get() before expiry = %v, %v", e, ok)
	}

	clock.Advance(time.Second)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("Get() at expiry should miss")
	}
	if m.Len() != 1 {
		t.Errorf("expired entry should stay until overwritten, Len() = %d", m.Len())
	}

	m.Set(ctx, "k", &Entry{StatusCode: 200, Body: []byte("v2")}, 300*time.Second)
	e, ok = m.Get(ctx, "k")
	if !ok || string(e.Body) != "v2" {
		t.Fatalf("Get() after overwrite = %v, %v", e, ok)
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			m.Set(ctx, key, &Entry{StatusCode: 200, Body: []byte(key)}, time.Minute)
			m.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	if m.Len() != 5 {
		t.Errorf("Len() = %d, want 5", m.Len())
	}
}

func TestKey_KeepsParameterOrder(t *testing.T) {
	a := httptest.NewRequest(http.MethodGet, "/api/query/x?params=1&params=2", nil)
	b := httptest.NewRequest(http.MethodGet, "/api/query/x?params=2&params=1", nil)
	if Key(a) == Key(b) {
		t.Errorf("keys must differ by parameter order: %q", Key(a))
	}
	if Key(a) != "/api/query/x?params=1&params=2" {
		t.Errorf("Key() = %q", Key(a))
	}
}

func countingHandler(calls *int64, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"call":%d}`, n)
	})
}

func TestMiddleware_ServesHitsByteIdentical(t *testing.T) {
	var calls int64
	h := Middleware(NewMemory(), time.Minute)(countingHandler(&calls, http.StatusOK))

	hitsBefore := testutil.ToFloat64(telemetry.CacheHits)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/metrics?x=1", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/metrics?x=1", nil))

	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("bodies differ: %q vs %q", first.Body.String(), second.Body.String())
	}
	if got := second.Header().Get(HeaderCache); got != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", got)
	}
	if got := first.Header().Get(HeaderCache); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", got)
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type not replayed")
	}
	if got := testutil.ToFloat64(telemetry.CacheHits) - hitsBefore; got != 1 {
		t.Errorf("cache hits delta = %v, want 1", got)
	}
}

func TestMiddleware_DistinctKeys(t *testing.T) {
	var calls int64
	h := Middleware(NewMemory(), time.Minute)(countingHandler(&calls, http.StatusOK))

	for _, target := range []string{"/a", "/a?p=1", "/a?p=1&q=2", "/a?q=2&p=1", "/b"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}
	if calls != 5 {
		t.Errorf("handler calls = %d, want 5", calls)
	}
}

func TestMiddleware_DoesNotCacheErrors(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls int64
			h := Middleware(NewMemory(), time.Minute)(countingHandler(&calls, status))
			for i := 0; i < 2; i++ {
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
				if rec.Code != status {
					t.Fatalf("status = %d, want %d", rec.Code, status)
				}
			}
			if calls != 2 {
				t.Errorf("handler calls = %d, want 2", calls)
			}
		})
	}
}

func TestMiddleware_DisabledTTL(t *testing.T) {
	var calls int64
	h := Middleware(NewMemory(), 0)(countingHandler(&calls, http.StatusOK))
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	}
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
}

func TestMiddleware_NopStore(t *testing.T) {
	var calls int64
	h := Middleware(Nop{}, time.Minute)(countingHandler(&calls, http.StatusOK))
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	}
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
}

func TestRedis_UnreachableDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedis(client)
	ctx := context.Background()

	store.Set(ctx, "k", &Entry{StatusCode: 200, Body: []byte("v")}, time.Minute)
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatal("expected miss when redis is unreachable")
	}

	var calls int64
	h := Middleware(store, time.Minute)(countingHandler(&calls, http.StatusOK))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusOK || calls != 1 {
		t.Errorf("status = %d, calls = %d", rec.Code, calls)
	}
}
