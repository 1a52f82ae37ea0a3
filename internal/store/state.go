package store

import (
	"strconv"
	"strings"

	"github.com/castkit/castkit/internal/domain"
)

const (
	stateKey = "state"
	speedKey = "speed"
)

// Speed preferences outside this closed interval read back as absent.
const (
	minSpeed = 0.5
	maxSpeed = 3.0
)

// StateStore persists the per-widget player state (selected episode index
// and volume) and the playback-speed preference. The two records are
// independent: state is a JSON object overwritten wholesale, speed is a
// plain-text decimal.
type StateStore struct {
	store *Store
}

func NewStateStore(store *Store) *StateStore {
	return &StateStore{store: store}
}

// SaveState overwrites the player state record. No partial merge happens at
// this layer; callers persist the complete record every time.
func (s *StateStore) SaveState(state domain.PlayerState) {
	s.store.putJSON(suffixState, stateKey, state)
}

// LoadState returns the persisted player state. Missing or corrupt data
// reads back as absent, never as an error.
func (s *StateStore) LoadState() (domain.PlayerState, bool) {
	var state domain.PlayerState
	if !s.store.getJSON(suffixState, stateKey, &state) {
		return domain.PlayerState{CurrentEpisodeIndex: -1}, false
	}
	return state, true
}

// SaveSpeed persists the playback-speed multiplier as plain text. Save
// itself never validates; only LoadSpeed applies the validity interval, so
// an out-of-range value can be written but will never be read back as
// present. Intentional contract, pinned by tests.
func (s *StateStore) SaveSpeed(speed float64) {
	s.store.putRaw(suffixSpeed, speedKey, []byte(strconv.FormatFloat(speed, 'f', -1, 64)))
}

// LoadSpeed returns the persisted speed preference. A stored value is
// accepted only if it parses and lies in [minSpeed, maxSpeed]; anything
// else reads back as absent (not clamped, not repaired).
func (s *StateStore) LoadSpeed() (float64, bool) {
	data, ok := s.store.getRaw(suffixSpeed, speedKey)
	if !ok {
		return 0, false
	}
	speed, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil || speed < minSpeed || speed > maxSpeed {
		return 0, false
	}
	return speed, true
}
