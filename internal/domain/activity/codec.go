package activity

import (
	"time"

	"cragline/backend/internal/domain/gym"
)

// document is the flat Firestore shape of an Item, keyed by "type".
type document struct {
	Type         string    `firestore:"type"`
	Author       Author    `firestore:"author"`
	CreatedAt    time.Time `firestore:"createdAt"`
	LikeCount    int       `firestore:"likeCount"`
	CommentCount int       `firestore:"commentCount"`
	IsFeatured   bool      `firestore:"isFeatured"`

	Content   string   `firestore:"content,omitempty"`
	MediaURLs []string `firestore:"mediaUrls,omitempty"`
	Gym       *gym.Ref `firestore:"gym,omitempty"`
	ViewCount int      `firestore:"viewCount,omitempty"`

	Title        string     `firestore:"title,omitempty"`
	Description  string     `firestore:"description,omitempty"`
	EventDate    *time.Time `firestore:"eventDate,omitempty"`
	Location     string     `firestore:"location,omitempty"`
	MaxAttendees int        `firestore:"maxAttendees,omitempty"`
	Registered   int        `firestore:"registered,omitempty"`

	VisitDate       *time.Time `firestore:"visitDate,omitempty"`
	DurationMinutes int        `firestore:"durationMinutes,omitempty"`
	Attendees       []string   `firestore:"attendees,omitempty"`
	Status          string     `firestore:"status,omitempty"`
}

func toDocument(it Item) document {
	d := document{
		Type:         string(it.Kind),
		Author:       it.Author,
		CreatedAt:    it.CreatedAt,
		LikeCount:    it.LikeCount,
		CommentCount: it.CommentCount,
		IsFeatured:   it.IsFeatured,
	}
	switch it.Kind {
	case KindBasic:
		if p := it.Basic; p != nil {
			d.Content = p.Content
			d.MediaURLs = p.MediaURLs
		}
	case KindBeta:
		if p := it.Beta; p != nil {
			d.Content = p.Content
			d.MediaURLs = p.MediaURLs
			g := p.Gym
			d.Gym = &g
			d.ViewCount = p.ViewCount
		}
	case KindEvent:
		if p := it.Event; p != nil {
			d.Title = p.Title
			d.Description = p.Description
			at := p.EventDate
			d.EventDate = &at
			d.Location = p.Location
			d.MaxAttendees = p.MaxAttendees
			d.Registered = p.Registered
			d.Attendees = p.Registrants
			d.Gym = p.Gym
		}
	case KindGroupVisit:
		if p := it.Visit; p != nil {
			g := p.Gym
			d.Gym = &g
			at := p.VisitDate
			d.VisitDate = &at
			d.DurationMinutes = p.DurationMinutes
			d.Description = p.Description
			d.Attendees = p.Attendees
			d.Status = string(p.Status)
		}
	}
	return d
}

// fromDocument never fails: an unrecognised type yields KindUnknown with the
// shared fields intact.
func fromDocument(id string, d document) Item {
	it := Item{
		ID:           id,
		Kind:         ParseKind(d.Type),
		Author:       d.Author,
		CreatedAt:    d.CreatedAt,
		LikeCount:    clamp(d.LikeCount),
		CommentCount: clamp(d.CommentCount),
		IsFeatured:   d.IsFeatured,
	}
	switch it.Kind {
	case KindBasic:
		it.Basic = &BasicPost{Content: d.Content, MediaURLs: d.MediaURLs}
	case KindBeta:
		b := &BetaPost{Content: d.Content, MediaURLs: d.MediaURLs, ViewCount: d.ViewCount}
		if d.Gym != nil {
			b.Gym = *d.Gym
		}
		it.Beta = b
	case KindEvent:
		e := &EventPost{
			Title:        d.Title,
			Description:  d.Description,
			Location:     d.Location,
			MaxAttendees: d.MaxAttendees,
			Registered:   d.Registered,
			Registrants:  d.Attendees,
			Gym:          d.Gym,
		}
		if d.EventDate != nil {
			e.EventDate = *d.EventDate
		}
		it.Event = e
	case KindGroupVisit:
		v := &GroupVisit{
			DurationMinutes: d.DurationMinutes,
			Description:     d.Description,
			Attendees:       d.Attendees,
			Status:          VisitStatus(d.Status),
		}
		if d.Gym != nil {
			v.Gym = *d.Gym
		}
		if d.VisitDate != nil {
			v.VisitDate = *d.VisitDate
		}
		if v.Status == "" {
			v.Status = VisitPlanned
		}
		if v.Attendees == nil {
			v.Attendees = []string{}
		}
		it.Visit = v
	}
	return it
}
