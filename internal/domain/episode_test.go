package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEpisode_ArtworkFallbackChain(t *testing.T) {
	ep := Episode{ImageURL: "http://img/episode.png", PodcastImageURL: "http://img/podcast.png"}
	assert.Equal(t, "http://img/episode.png", ep.Artwork())

	ep.ImageURL = ""
	assert.Equal(t, "http://img/podcast.png", ep.Artwork())

	ep.PodcastImageURL = ""
	assert.Equal(t, DefaultArtwork, ep.Artwork())
}

func TestEpisode_HasDuration(t *testing.T) {
	assert.False(t, Episode{}.HasDuration())
	assert.True(t, Episode{Duration: time.Minute}.HasDuration())
}
