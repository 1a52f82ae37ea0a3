package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/castkit/castkit/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "castkit/1.0"
)

// DefaultCacheTTL is the episode-cache freshness window used when none is
// configured.
const DefaultCacheTTL = time.Hour

// feedCache is the provider's view of the episode cache
// (consumer-defined interface, implemented by store.FeedCache).
type feedCache interface {
	Get() ([]domain.Episode, time.Time, bool)
	Put(episodes []domain.Episode, fetchedAt time.Time)
}

// Provider fetches the playable episode list from a remote feed endpoint.
// Results are cached with a TTL; a failed fetch is retried exactly once,
// and when both attempts fail an expired cache entry is still served as a
// last resort before the error is surfaced.
//
// Overlapping calls are not de-duplicated: two concurrent Episodes calls
// issue two independent fetch sequences.
type Provider struct {
	feedURL    string
	ttl        time.Duration
	httpClient *http.Client
	cache      feedCache
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a feed provider. ttl <= 0 selects DefaultCacheTTL and
// timeout <= 0 the default HTTP timeout.
func New(feedURL string, cache feedCache, ttl, timeout time.Duration, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		feedURL:    feedURL,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Episodes returns the current episode list.
//
// Resolution order:
//  1. A cache entry younger than the TTL is returned without any network call.
//  2. Otherwise a live fetch runs; a failure (transport error or non-2xx
//     status) is retried once more, immediately, with no backoff.
//  3. If both attempts fail, an expired cache entry is returned when
//     present, regardless of its age; otherwise the second attempt's error
//     is surfaced.
//
// A successful fetch with a non-empty result overwrites the cache. An empty
// result is returned directly and leaves the cache untouched.
func (p *Provider) Episodes(ctx context.Context) ([]domain.Episode, error) {
	if episodes, fetchedAt, ok := p.cache.Get(); ok && p.now().Sub(fetchedAt) < p.ttl {
		p.logger.Debug("episode cache fresh", "count", len(episodes), "fetchedAt", fetchedAt)
		return episodes, nil
	}

	episodes, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("feed fetch failed, retrying", "error", err)
		episodes, err = p.fetch(ctx)
	}
	if err != nil {
		if cached, fetchedAt, ok := p.cache.Get(); ok {
			p.logger.Warn("feed fetch failed twice, serving stale cache",
				"count", len(cached), "fetchedAt", fetchedAt, "error", err)
			return cached, nil
		}
		p.logger.Error("feed fetch failed twice with no cache", "error", err)
		return nil, err
	}

	if len(episodes) == 0 {
		p.logger.Info("feed returned no episodes")
		return episodes, nil
	}

	p.cache.Put(episodes, p.now())
	p.logger.Info("loaded episodes", "count", len(episodes))
	return episodes, nil
}

// fetch performs one GET against the feed endpoint.
func (p *Provider) fetch(ctx context.Context) ([]domain.Episode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	p.logger.Debug("feed request", "url", p.feedURL)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var feed feedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return mapEpisodes(feed.Episodes), nil
}
