package activity

import (
	"time"

	"cragline/backend/internal/domain/gym"
	"cragline/backend/internal/domain/user"
)

// Kind is the persisted discriminant of an activity item.
type Kind string

const (
	KindBasic      Kind = "basic"
	KindBeta       Kind = "beta"
	KindEvent      Kind = "event"
	KindGroupVisit Kind = "groupVisit"
	KindUnknown    Kind = "unknown"
)

func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case KindBasic, KindBeta, KindEvent, KindGroupVisit:
		return k
	}
	return KindUnknown
}

// Author is the user snapshot stored on every item.
type Author struct {
	ID       string `firestore:"id" json:"id"`
	Name     string `firestore:"name" json:"name"`
	Username string `firestore:"username,omitempty" json:"username,omitempty"`
	ImageURL string `firestore:"imageUrl,omitempty" json:"imageUrl,omitempty"`
}

func AuthorFrom(u user.User) Author {
	return Author{ID: u.ID, Name: u.Name, Username: u.Username, ImageURL: u.ImageURL}
}

type BasicPost struct {
	Content   string   `json:"content" validate:"required,max=2000"`
	MediaURLs []string `json:"mediaUrls,omitempty" validate:"max=10,dive,url"`
}

type BetaPost struct {
	Content   string   `json:"content" validate:"required,max=2000"`
	MediaURLs []string `json:"mediaUrls,omitempty" validate:"max=10,dive,url"`
	Gym       gym.Ref  `json:"gym"`
	ViewCount int      `json:"viewCount"`
}

type EventPost struct {
	Title        string    `json:"title" validate:"required,max=140"`
	Description  string    `json:"description" validate:"max=4000"`
	EventDate    time.Time `json:"eventDate" validate:"required"`
	Location     string    `json:"location" validate:"required,max=200"`
	MaxAttendees int       `json:"maxAttendees" validate:"gte=0"`
	Registered   int       `json:"registered"`
	Registrants  []string  `json:"registrants,omitempty"`
	Gym          *gym.Ref  `json:"gym,omitempty"`
}

func (e EventPost) IsRegistered(uid string) bool {
	for _, r := range e.Registrants {
		if r == uid {
			return true
		}
	}
	return false
}

// Full reports whether registration is closed. Zero MaxAttendees means
// unbounded.
func (e EventPost) Full() bool {
	return e.MaxAttendees > 0 && e.Registered >= e.MaxAttendees
}

type VisitStatus string

const (
	VisitPlanned   VisitStatus = "planned"
	VisitOngoing   VisitStatus = "ongoing"
	VisitCompleted VisitStatus = "completed"
	VisitCancelled VisitStatus = "cancelled"
)

var visitTransitions = map[VisitStatus][]VisitStatus{
	VisitPlanned: {VisitOngoing, VisitCancelled},
	VisitOngoing: {VisitCompleted, VisitCancelled},
}

func (s VisitStatus) CanTransitionTo(next VisitStatus) bool {
	for _, allowed := range visitTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type GroupVisit struct {
	Gym             gym.Ref     `json:"gym"`
	VisitDate       time.Time   `json:"visitDate" validate:"required"`
	DurationMinutes int         `json:"durationMinutes" validate:"gt=0,lte=1440"`
	Description     string      `json:"description,omitempty" validate:"max=2000"`
	Attendees       []string    `json:"attendees"`
	Status          VisitStatus `json:"status"`
}

func (v GroupVisit) HasAttendee(uid string) bool {
	for _, a := range v.Attendees {
		if a == uid {
			return true
		}
	}
	return false
}

// Item is one feed entry. Exactly one payload pointer is set and it matches
// Kind; KindUnknown carries none.
type Item struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"type"`
	Author       Author    `json:"author"`
	CreatedAt    time.Time `json:"createdAt"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
	IsFeatured   bool      `json:"isFeatured"`

	Basic *BasicPost  `json:"basic,omitempty"`
	Beta  *BetaPost   `json:"beta,omitempty"`
	Event *EventPost  `json:"event,omitempty"`
	Visit *GroupVisit `json:"groupVisit,omitempty"`
}

// AddLikes moves LikeCount by delta, never below zero.
func (it *Item) AddLikes(delta int) {
	it.LikeCount = clamp(it.LikeCount + delta)
}

// AddComments moves CommentCount by delta, never below zero.
func (it *Item) AddComments(delta int) {
	it.CommentCount = clamp(it.CommentCount + delta)
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Gym returns the gym the item is tied to, if any.
func (it Item) Gym() *gym.Ref {
	switch it.Kind {
	case KindBeta:
		if it.Beta != nil {
			g := it.Beta.Gym
			return &g
		}
	case KindEvent:
		if it.Event != nil {
			return it.Event.Gym
		}
	case KindGroupVisit:
		if it.Visit != nil {
			g := it.Visit.Gym
			return &g
		}
	}
	return nil
}

// Text is the free text a reader sees first, used for mentions and previews.
func (it Item) Text() string {
	switch it.Kind {
	case KindBasic:
		if it.Basic != nil {
			return it.Basic.Content
		}
	case KindBeta:
		if it.Beta != nil {
			return it.Beta.Content
		}
	case KindEvent:
		if it.Event != nil {
			return it.Event.Title + "\n" + it.Event.Description
		}
	case KindGroupVisit:
		if it.Visit != nil {
			return it.Visit.Description
		}
	}
	return ""
}

// Clone returns a copy that shares no payload memory with it.
func (it Item) Clone() Item {
	out := it
	if it.Basic != nil {
		b := *it.Basic
		b.MediaURLs = append([]string(nil), it.Basic.MediaURLs...)
		out.Basic = &b
	}
	if it.Beta != nil {
		b := *it.Beta
		b.MediaURLs = append([]string(nil), it.Beta.MediaURLs...)
		out.Beta = &b
	}
	if it.Event != nil {
		e := *it.Event
		e.Registrants = append([]string(nil), it.Event.Registrants...)
		if it.Event.Gym != nil {
			g := *it.Event.Gym
			e.Gym = &g
		}
		out.Event = &e
	}
	if it.Visit != nil {
		v := *it.Visit
		v.Attendees = append([]string(nil), it.Visit.Attendees...)
		out.Visit = &v
	}
	return out
}
