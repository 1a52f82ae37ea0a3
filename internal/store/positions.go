package store

import (
	"sync"
	"time"
)

const positionsKey = "entries"

// DefaultMaxPositions bounds the resume-position store when no limit is
// configured.
const DefaultMaxPositions = 100

// Save-eligibility window: an offset is worth persisting only once the
// listener is more than minSaveOffset in, and (when the total duration is
// known) more than endGuard from the end. Offsets outside the window are
// noise from just-started or nearly-finished episodes.
const (
	minSaveOffset = 10 * time.Second
	endGuard      = 30 * time.Second
)

// positionEntry is one persisted resume position. Entries are kept as an
// ordered sequence rather than a plain map so that insertion order survives
// the JSON round trip and drives eviction.
type positionEntry struct {
	ID     string  `json:"id"`
	Offset float64 `json:"offset"` // seconds
}

// PositionStore persists last-known playback offsets keyed by episode ID.
// Capacity is bounded: inserting beyond the maximum evicts the
// oldest-inserted entries first (FIFO, not LRU). Re-saving an existing ID
// updates the offset in place and keeps its original insertion slot.
type PositionStore struct {
	store *Store
	max   int
	mu    sync.Mutex
}

// NewPositionStore creates a position store holding at most maxEntries
// resume positions. maxEntries <= 0 selects DefaultMaxPositions.
func NewPositionStore(store *Store, maxEntries int) *PositionStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxPositions
	}
	return &PositionStore{store: store, max: maxEntries}
}

// eligible applies the save-worthiness rule. duration == 0 means unknown,
// in which case only the lower bound applies.
func eligible(offset, duration time.Duration) bool {
	if offset <= minSaveOffset {
		return false
	}
	if duration > 0 && offset >= duration-endGuard {
		return false
	}
	return true
}

// load reads the ordered entry list, collapsing any failure to empty.
func (p *PositionStore) load() []positionEntry {
	var entries []positionEntry
	p.store.getJSON(suffixPositions, positionsKey, &entries)
	return entries
}

// persist rewrites the full entry list in a single write.
func (p *PositionStore) persist(entries []positionEntry) {
	p.store.putJSON(suffixPositions, positionsKey, entries)
}

// GetAll returns every stored resume position. It never fails: a missing or
// corrupt record reads back as an empty map.
func (p *PositionStore) GetAll() map[string]time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.load()
	all := make(map[string]time.Duration, len(entries))
	for _, e := range entries {
		all[e.ID] = time.Duration(e.Offset * float64(time.Second))
	}
	return all
}

// Get returns the stored offset for id, distinguishing "not found" from a
// zero offset.
func (p *PositionStore) Get(id string) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.load() {
		if e.ID == id {
			return time.Duration(e.Offset * float64(time.Second)), true
		}
	}
	return 0, false
}

// Save persists offset for id if it passes the eligibility window. An
// ineligible offset performs no mutation at all: an existing entry from a
// prior save is left untouched. On success the capacity bound is enforced
// by dropping oldest-inserted entries, then the full list is rewritten
// atomically.
func (p *PositionStore) Save(id string, offset, duration time.Duration) {
	if !eligible(offset, duration) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.load()
	updated := false
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Offset = offset.Seconds()
			updated = true
			break
		}
	}
	if !updated {
		entries = append(entries, positionEntry{ID: id, Offset: offset.Seconds()})
	}
	if len(entries) > p.max {
		entries = entries[len(entries)-p.max:]
	}
	p.persist(entries)
}

// Remove deletes the entry for id regardless of the eligibility rule.
// Removing an absent id is a no-op.
func (p *PositionStore) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.load()
	for i, e := range entries {
		if e.ID == id {
			p.persist(append(entries[:i], entries[i+1:]...))
			return
		}
	}
}

// Prune deletes every stored entry whose ID is not in validIDs. The list is
// rewritten only if something was actually deleted.
func (p *PositionStore) Prune(validIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	valid := make(map[string]struct{}, len(validIDs))
	for _, id := range validIDs {
		valid[id] = struct{}{}
	}

	entries := p.load()
	kept := entries[:0]
	for _, e := range entries {
		if _, ok := valid[e.ID]; ok {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(entries) {
		p.persist(kept)
	}
}
