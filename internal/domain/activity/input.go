package activity

import (
	"strings"
	"time"
)

type CreateInput struct {
	Kind            Kind       `json:"type"`
	Content         string     `json:"content,omitempty"`
	MediaURLs       []string   `json:"mediaUrls,omitempty"`
	GymID           string     `json:"gymId,omitempty"`
	Title           string     `json:"title,omitempty"`
	Description     string     `json:"description,omitempty"`
	EventDate       *time.Time `json:"eventDate,omitempty"`
	Location        string     `json:"location,omitempty"`
	MaxAttendees    int        `json:"maxAttendees,omitempty"`
	VisitDate       *time.Time `json:"visitDate,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty"`
}

func (in *CreateInput) Trim() {
	in.Kind = Kind(strings.TrimSpace(string(in.Kind)))
	in.Content = strings.TrimSpace(in.Content)
	in.GymID = strings.TrimSpace(in.GymID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	urls := make([]string, 0, len(in.MediaURLs))
	for _, u := range in.MediaURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	in.MediaURLs = urls
}

type SetVisitStatusInput struct {
	Status VisitStatus `json:"status"`
}

type SetFeaturedInput struct {
	Featured bool `json:"featured"`
}
