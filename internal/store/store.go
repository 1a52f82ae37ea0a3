package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket name suffixes. Full bucket names are "<prefix><suffix>" so that
// several widget instances can share one database file without colliding.
const (
	suffixPositions = "PlaybackPositions"
	suffixState     = "PlayerState"
	suffixSpeed     = "PlayerSpeed"
	suffixCache     = "EpisodesCache"
)

// DefaultPrefix is the bucket namespace used when none is configured.
const DefaultPrefix = "podcast"

// Store is the shared persistence layer backing the position, state, and
// feed-cache stores. Values are JSON (or raw bytes for the speed record),
// keyed inside prefix-namespaced BoltDB buckets.
//
// Storage failures never propagate: reads collapse to "absent" and writes
// are logged and dropped, so callers degrade to "nothing saved/loaded".
type Store struct {
	db     *bolt.DB
	prefix string
	logger *slog.Logger

	mu  sync.RWMutex
	mem map[string][]byte // memory-only mode when db is nil
}

// Open opens (or creates) the database at path. An empty path yields a
// memory-only store with no persistence, used by tests and embedders that
// do not want a database file.
func Open(path, prefix string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	if path == "" {
		return &Store{prefix: prefix, logger: logger, mem: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, suffix := range []string{suffixPositions, suffixState, suffixSpeed, suffixCache} {
			if _, err := tx.CreateBucketIfNotExists([]byte(prefix + suffix)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, prefix: prefix, logger: logger, mem: make(map[string][]byte)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *Store) getRaw(suffix, key string) ([]byte, bool) {
	if s.db == nil {
		s.mu.RLock()
		data, ok := s.mem[suffix+":"+key]
		s.mu.RUnlock()
		return data, ok
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.prefix + suffix))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false
	}
	return data, true
}

func (s *Store) putRaw(suffix, key string, data []byte) {
	if s.db == nil {
		s.mu.Lock()
		s.mem[suffix+":"+key] = data
		s.mu.Unlock()
		return
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.prefix + suffix))
		if b == nil {
			return nil
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		s.logger.Warn("store write failed", "bucket", s.prefix+suffix, "key", key, "error", err)
	}
}

func (s *Store) getJSON(suffix, key string, dest interface{}) bool {
	data, ok := s.getRaw(suffix, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.Warn("store record corrupt", "bucket", s.prefix+suffix, "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) putJSON(suffix, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("store marshal failed", "bucket", s.prefix+suffix, "key", key, "error", err)
		return
	}
	s.putRaw(suffix, key, data)
}
