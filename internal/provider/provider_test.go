package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castkit/castkit/internal/domain"
	"github.com/castkit/castkit/internal/log"
	"github.com/castkit/castkit/internal/store"
)

const feedBody = `{"episodes": [
	{"id": "ep-1", "podcastId": "pod", "podcastTitle": "Test Cast", "title": "One", "audioUrl": "http://example.com/1.mp3", "publishDate": "2024-01-01", "duration": 1800},
	{"id": "ep-2", "podcastId": "pod", "podcastTitle": "Test Cast", "title": "Two", "audioUrl": "http://example.com/2.mp3", "publishDate": "2024-01-08"}
]}`

func newTestCache(t *testing.T) *store.FeedCache {
	t.Helper()
	s, err := store.Open("", "podcast", log.NullLogger())
	require.NoError(t, err)
	return store.NewFeedCache(s)
}

// countingServer responds per-call using the handler list; calls beyond the
// list reuse the last handler.
func countingServer(t *testing.T, handlers ...http.HandlerFunc) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(handlers) {
			n = len(handlers) - 1
		}
		handlers[n](w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func serveOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(feedBody))
}

func serveError(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusServiceUnavailable)
}

func TestProvider_FetchSuccess(t *testing.T) {
	srv, calls := countingServer(t, serveOK)
	p := New(srv.URL, newTestCache(t), 0, 0, log.NullLogger())

	episodes, err := p.Episodes(context.Background())
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "ep-1", episodes[0].ID)
	assert.Equal(t, 30*time.Minute, episodes[0].Duration)
	assert.False(t, episodes[1].HasDuration())
	assert.Equal(t, int64(1), calls.Load())
}

func TestProvider_FreshCacheSkipsNetwork(t *testing.T) {
	srv, calls := countingServer(t, serveOK)
	p := New(srv.URL, newTestCache(t), time.Hour, 0, log.NullLogger())

	_, err := p.Episodes(context.Background())
	require.NoError(t, err)

	episodes, err := p.Episodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, episodes, 2)
	assert.Equal(t, int64(1), calls.Load(), "fresh cache must short-circuit the fetch")
}

func TestProvider_ExpiredCacheRefetches(t *testing.T) {
	srv, calls := countingServer(t, serveOK)
	p := New(srv.URL, newTestCache(t), time.Hour, 0, log.NullLogger())

	_, err := p.Episodes(context.Background())
	require.NoError(t, err)

	// Move the provider clock past the TTL.
	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = p.Episodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestProvider_RetryOnceThenSuccess(t *testing.T) {
	srv, calls := countingServer(t, serveError, serveOK)
	p := New(srv.URL, newTestCache(t), 0, 0, log.NullLogger())

	episodes, err := p.Episodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, episodes, 2)
	assert.Equal(t, int64(2), calls.Load(), "exactly two network calls")
}

func TestProvider_DoubleFailureWithStaleCache(t *testing.T) {
	cache := newTestCache(t)
	stale := []domain.Episode{{ID: "old-1", Title: "Old"}}
	cache.Put(stale, time.Now().Add(-24*time.Hour))

	srv, calls := countingServer(t, serveError)
	p := New(srv.URL, cache, time.Hour, 0, log.NullLogger())

	episodes, err := p.Episodes(context.Background())
	require.NoError(t, err, "stale cache beats an error")
	assert.Equal(t, stale, episodes)
	assert.Equal(t, int64(2), calls.Load())
}

func TestProvider_DoubleFailureWithoutCache(t *testing.T) {
	srv, calls := countingServer(t, serveError)
	p := New(srv.URL, newTestCache(t), 0, 0, log.NullLogger())

	_, err := p.Episodes(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(2), calls.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestProvider_TransportErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(serveOK))
	url := srv.URL
	srv.Close() // connection refused from here on

	p := New(url, newTestCache(t), 0, 0, log.NullLogger())

	_, err := p.Episodes(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not API errors")
}

func TestProvider_EmptyResultBypassesCache(t *testing.T) {
	cache := newTestCache(t)
	srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"episodes": []}`))
	})
	p := New(srv.URL, cache, 0, 0, log.NullLogger())

	episodes, err := p.Episodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, episodes)

	_, _, ok := cache.Get()
	assert.False(t, ok, "empty results must not overwrite the cache")
}

func TestProvider_SuccessOverwritesCacheWholesale(t *testing.T) {
	cache := newTestCache(t)
	cache.Put([]domain.Episode{{ID: "old-1"}, {ID: "old-2"}, {ID: "old-3"}}, time.Now().Add(-24*time.Hour))

	srv, _ := countingServer(t, serveOK)
	p := New(srv.URL, cache, time.Hour, 0, log.NullLogger())

	_, err := p.Episodes(context.Background())
	require.NoError(t, err)

	cached, _, ok := cache.Get()
	require.True(t, ok)
	require.Len(t, cached, 2)
	assert.Equal(t, "ep-1", cached[0].ID, "cache is replaced, not merged")
}
