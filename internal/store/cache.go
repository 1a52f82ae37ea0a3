package store

import (
	"time"

	"github.com/castkit/castkit/internal/domain"
)

const cacheKey = "feed"

// cacheRecord is the persisted shape of the episode-list cache.
type cacheRecord struct {
	Episodes  []domain.Episode `json:"episodes"`
	Timestamp int64            `json:"timestamp"` // ms since epoch
}

// FeedCache persists the last successfully fetched episode list together
// with its fetch time. Freshness policy lives in the provider; the cache
// only stores and reports.
type FeedCache struct {
	store *Store
}

func NewFeedCache(store *Store) *FeedCache {
	return &FeedCache{store: store}
}

// Get returns the cached episode list and when it was fetched. Missing or
// corrupt records read back as absent.
func (c *FeedCache) Get() ([]domain.Episode, time.Time, bool) {
	var rec cacheRecord
	if !c.store.getJSON(suffixCache, cacheKey, &rec) {
		return nil, time.Time{}, false
	}
	return rec.Episodes, time.UnixMilli(rec.Timestamp), true
}

// Put overwrites the cache with episodes fetched at fetchedAt.
func (c *FeedCache) Put(episodes []domain.Episode, fetchedAt time.Time) {
	c.store.putJSON(suffixCache, cacheKey, cacheRecord{
		Episodes:  episodes,
		Timestamp: fetchedAt.UnixMilli(),
	})
}
