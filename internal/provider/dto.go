package provider

import (
	"time"

	"github.com/castkit/castkit/internal/domain"
)

// feedResponse is the wire shape of the feed endpoint.
type feedResponse struct {
	Episodes []episodeDTO `json:"episodes"`
}

type episodeDTO struct {
	ID           string  `json:"id"`
	PodcastID    string  `json:"podcastId"`
	PodcastTitle string  `json:"podcastTitle"`
	Title        string  `json:"title"`
	AudioURL     string  `json:"audioUrl"`
	PublishDate  string  `json:"publishDate"`
	Duration     float64 `json:"duration,omitempty"` // seconds
	Image        string  `json:"image,omitempty"`
	PodcastImage string  `json:"podcastImage,omitempty"`
}

// mapEpisodes converts wire episodes to domain entities.
func mapEpisodes(dtos []episodeDTO) []domain.Episode {
	episodes := make([]domain.Episode, 0, len(dtos))
	for _, d := range dtos {
		episodes = append(episodes, domain.Episode{
			ID:              d.ID,
			PodcastID:       d.PodcastID,
			PodcastTitle:    d.PodcastTitle,
			Title:           d.Title,
			AudioURL:        d.AudioURL,
			PublishDate:     d.PublishDate,
			Duration:        time.Duration(d.Duration * float64(time.Second)),
			ImageURL:        d.Image,
			PodcastImageURL: d.PodcastImage,
		})
	}
	return episodes
}
