package domain

import "time"

// DefaultArtwork is used when neither the episode nor its podcast carries artwork.
const DefaultArtwork = "https://cdn.castkit.dev/artwork/generic.png"

// Episode is a single playable item from a podcast feed.
// Episodes are immutable once fetched; a re-fetch replaces the whole list,
// never merges field-by-field.
type Episode struct {
	ID              string        `json:"id"`           // Unique within one provider call
	PodcastID       string        `json:"podcastId"`    // Parent podcast identifier
	PodcastTitle    string        `json:"podcastTitle"` // Parent podcast display name
	Title           string        `json:"title"`
	AudioURL        string        `json:"audioUrl"`
	PublishDate     string        `json:"publishDate"` // May be a precise timestamp, kept verbatim from the feed
	Duration        time.Duration `json:"duration,omitempty"`
	ImageURL        string        `json:"imageUrl,omitempty"`
	PodcastImageURL string        `json:"podcastImageUrl,omitempty"`
}

// Artwork returns the episode image, falling back to the podcast image,
// falling back to the generic placeholder.
func (e Episode) Artwork() string {
	if e.ImageURL != "" {
		return e.ImageURL
	}
	if e.PodcastImageURL != "" {
		return e.PodcastImageURL
	}
	return DefaultArtwork
}

// HasDuration reports whether the feed provided a total duration.
func (e Episode) HasDuration() bool {
	return e.Duration > 0
}

// PlayerState is the small persisted record of the last selected episode
// and volume, distinct from per-episode resume positions.
type PlayerState struct {
	CurrentEpisodeIndex int     `json:"currentEpisodeIndex"` // -1 means none selected
	Volume              float64 `json:"volume"`              // [0,1]
}
