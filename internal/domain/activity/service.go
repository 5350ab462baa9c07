package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/domain/gym"
	"cragline/backend/internal/domain/notifications"
	"cragline/backend/internal/domain/user"
	"cragline/backend/internal/logger"
	"cragline/backend/internal/utils"
	"cragline/backend/internal/validate"

	"cloud.google.com/go/firestore"
)

type UserDirectory interface {
	Get(ctx context.Context, uid string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	IncrementPostCount(ctx context.Context, uid string, delta int) error
}

type GymDirectory interface {
	Get(ctx context.Context, gymID string) (*gym.Gym, error)
	IsAdministrator(ctx context.Context, gymID, uid string) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, input notifications.CreateInput)
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Service struct {
	repo     Repo
	users    UserDirectory
	gyms     GymDirectory
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewService(repo Repo, users UserDirectory, gyms GymDirectory, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, users: users, gyms: gyms, log: log, now: time.Now}
}

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

func (s *Service) Create(ctx context.Context, session authctx.Session, in CreateInput) (*Item, error) {
	if !session.Authenticated() {
		return nil, fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	in.Trim()

	author, err := s.users.Get(ctx, session.UID)
	if err != nil {
		return nil, err
	}

	it := Item{
		Kind:      in.Kind,
		Author:    AuthorFrom(*author),
		CreatedAt: s.now().UTC(),
	}

	var ref *gym.Ref
	if in.GymID != "" {
		g, err := s.gyms.Get(ctx, in.GymID)
		if err != nil {
			return nil, err
		}
		r := g.Ref()
		ref = &r
	}

	var payload any
	switch in.Kind {
	case KindBasic:
		it.Basic = &BasicPost{Content: in.Content, MediaURLs: in.MediaURLs}
		payload = it.Basic
	case KindBeta:
		if ref == nil {
			return nil, fmt.Errorf("%w: gymId is required for beta posts", ErrBadRequest)
		}
		it.Beta = &BetaPost{Content: in.Content, MediaURLs: in.MediaURLs, Gym: *ref}
		payload = it.Beta
	case KindEvent:
		if in.EventDate == nil || in.EventDate.IsZero() {
			return nil, fmt.Errorf("%w: eventDate is required", ErrBadRequest)
		}
		e := &EventPost{
			Title:        in.Title,
			Description:  in.Description,
			Location:     in.Location,
			MaxAttendees: in.MaxAttendees,
			Gym:          ref,
		}
		e.EventDate = in.EventDate.UTC()
		if e.Location == "" && ref != nil {
			e.Location = ref.Location
		}
		it.Event = e
		payload = e
	case KindGroupVisit:
		if ref == nil {
			return nil, fmt.Errorf("%w: gymId is required for group visits", ErrBadRequest)
		}
		if in.VisitDate == nil || in.VisitDate.IsZero() {
			return nil, fmt.Errorf("%w: visitDate is required", ErrBadRequest)
		}
		v := &GroupVisit{
			Gym:             *ref,
			DurationMinutes: in.DurationMinutes,
			Description:     in.Description,
			Attendees:       []string{session.UID},
			Status:          VisitPlanned,
		}
		v.VisitDate = in.VisitDate.UTC()
		it.Visit = v
		payload = v
	default:
		return nil, fmt.Errorf("%w: unknown activity type %q", ErrBadRequest, in.Kind)
	}

	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}

	created, err := s.repo.Create(ctx, it)
	if err != nil {
		return nil, err
	}

	ctx = s.log.WithFields(ctx, map[string]any{"activity_id": created.ID, "type": string(created.Kind)})
	if err := s.users.IncrementPostCount(ctx, session.UID, 1); err != nil {
		s.log.Warn(ctx, "failed to bump post count", err)
	}
	s.notifyMentions(ctx, created)

	s.log.Info(ctx, "activity created")
	return &created, nil
}

func (s *Service) notifyMentions(ctx context.Context, it Item) {
	if s.notifier == nil {
		return
	}
	for _, handle := range utils.Mentions(it.Text()) {
		u, err := s.users.GetByUsername(ctx, handle)
		if err != nil {
			if !user.IsErrNotFound(err) {
				s.log.Warn(ctx, "mention lookup failed", err)
			}
			continue
		}
		s.notifier.Notify(ctx, notifications.CreateInput{
			TargetUID:     u.ID,
			SenderUID:     it.Author.ID,
			Title:         it.Author.Name + " mentioned you",
			Message:       utils.TrimMax(it.Text(), 140),
			Type:          notifications.TypeMention,
			RelatedItemID: it.ID,
		})
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrBadRequest)
	}
	return s.repo.Get(ctx, id)
}

// Recent lists the newest items of every kind.
func (s *Service) Recent(ctx context.Context, limit int) ([]Item, error) {
	return s.repo.Recent(ctx, clampLimit(limit))
}

func (s *Service) ByKind(ctx context.Context, kind Kind, limit int) ([]Item, error) {
	if ParseKind(string(kind)) == KindUnknown {
		return nil, fmt.Errorf("%w: unknown activity type %q", ErrBadRequest, kind)
	}
	return s.repo.ByKind(ctx, kind, clampLimit(limit))
}

// Featured lists curated items of kind; events only while still upcoming.
func (s *Service) Featured(ctx context.Context, kind Kind, now time.Time, limit int) ([]Item, error) {
	if ParseKind(string(kind)) == KindUnknown {
		return nil, fmt.Errorf("%w: unknown activity type %q", ErrBadRequest, kind)
	}
	return s.repo.Featured(ctx, kind, now, clampLimit(limit))
}

func (s *Service) ByAuthor(ctx context.Context, uid string, limit int) ([]Item, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	return s.repo.ByAuthor(ctx, uid, clampLimit(limit))
}

// Delete removes an item. Only its author or a platform admin may do so.
func (s *Service) Delete(ctx context.Context, session authctx.Session, id string) error {
	it, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if it.Author.ID != session.UID && !session.IsAdmin() {
		return fmt.Errorf("%w: only the author can delete this post", ErrUnauthorized)
	}
	if err := s.repo.Delete(ctx, it.ID); err != nil {
		return err
	}
	if err := s.users.IncrementPostCount(ctx, it.Author.ID, -1); err != nil {
		s.log.Warn(s.log.WithField(ctx, "activity_id", it.ID), "failed to drop post count", err)
	}
	return nil
}

// SetFeatured flips the editorial flag. Platform admins may feature anything;
// gym administrators may feature items tied to their gym.
func (s *Service) SetFeatured(ctx context.Context, session authctx.Session, id string, featured bool) (*Item, error) {
	it, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.canCurate(ctx, session, *it)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: only admins can feature content", ErrUnauthorized)
	}

	return s.repo.Mutate(ctx, it.ID, func(it *Item) ([]firestore.Update, error) {
		if it.IsFeatured == featured {
			return nil, nil
		}
		it.IsFeatured = featured
		return []firestore.Update{{Path: "isFeatured", Value: featured}}, nil
	})
}

func (s *Service) canCurate(ctx context.Context, session authctx.Session, it Item) (bool, error) {
	if session.IsAdmin() {
		return true, nil
	}
	g := it.Gym()
	if g == nil || g.ID == "" || !session.Authenticated() {
		return false, nil
	}
	if _, ok := session.GymRole(g.ID); ok {
		return true, nil
	}
	return s.gyms.IsAdministrator(ctx, g.ID, session.UID)
}

func (s *Service) JoinVisit(ctx context.Context, session authctx.Session, id string) (*Item, error) {
	if !session.Authenticated() {
		return nil, fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	return s.repo.Mutate(ctx, id, func(it *Item) ([]firestore.Update, error) {
		if it.Kind != KindGroupVisit || it.Visit == nil {
			return nil, fmt.Errorf("%w: not a group visit", ErrBadRequest)
		}
		if it.Visit.Status != VisitPlanned && it.Visit.Status != VisitOngoing {
			return nil, fmt.Errorf("%w: visit is %s", ErrConflict, it.Visit.Status)
		}
		if it.Visit.HasAttendee(session.UID) {
			return nil, nil
		}
		it.Visit.Attendees = append(it.Visit.Attendees, session.UID)
		return []firestore.Update{{Path: "attendees", Value: firestore.ArrayUnion(session.UID)}}, nil
	})
}

func (s *Service) LeaveVisit(ctx context.Context, session authctx.Session, id string) (*Item, error) {
	if !session.Authenticated() {
		return nil, fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	return s.repo.Mutate(ctx, id, func(it *Item) ([]firestore.Update, error) {
		if it.Kind != KindGroupVisit || it.Visit == nil {
			return nil, fmt.Errorf("%w: not a group visit", ErrBadRequest)
		}
		if it.Author.ID == session.UID {
			return nil, fmt.Errorf("%w: the organiser cannot leave, cancel the visit instead", ErrConflict)
		}
		if !it.Visit.HasAttendee(session.UID) {
			return nil, nil
		}
		kept := make([]string, 0, len(it.Visit.Attendees))
		for _, a := range it.Visit.Attendees {
			if a != session.UID {
				kept = append(kept, a)
			}
		}
		it.Visit.Attendees = kept
		return []firestore.Update{{Path: "attendees", Value: firestore.ArrayRemove(session.UID)}}, nil
	})
}

// SetVisitStatus moves a visit along planned -> ongoing -> completed, or to
// cancelled from either open state. Only the organiser may do it.
func (s *Service) SetVisitStatus(ctx context.Context, session authctx.Session, id string, next VisitStatus) (*Item, error) {
	return s.repo.Mutate(ctx, id, func(it *Item) ([]firestore.Update, error) {
		if it.Kind != KindGroupVisit || it.Visit == nil {
			return nil, fmt.Errorf("%w: not a group visit", ErrBadRequest)
		}
		if it.Author.ID != session.UID {
			return nil, fmt.Errorf("%w: only the organiser can change the visit", ErrUnauthorized)
		}
		if !it.Visit.Status.CanTransitionTo(next) {
			return nil, fmt.Errorf("%w: cannot move visit from %s to %s", ErrConflict, it.Visit.Status, next)
		}
		it.Visit.Status = next
		return []firestore.Update{{Path: "status", Value: string(next)}}, nil
	})
}

// RegisterForEvent adds the caller to an upcoming event. Registering twice is
// a no-op; a full event is a conflict.
func (s *Service) RegisterForEvent(ctx context.Context, session authctx.Session, id string) (*Item, error) {
	if !session.Authenticated() {
		return nil, fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	now := s.now()
	return s.repo.Mutate(ctx, id, func(it *Item) ([]firestore.Update, error) {
		if it.Kind != KindEvent || it.Event == nil {
			return nil, fmt.Errorf("%w: not an event", ErrBadRequest)
		}
		if it.Event.IsRegistered(session.UID) {
			return nil, nil
		}
		if !it.Event.EventDate.After(now) {
			return nil, fmt.Errorf("%w: event has already started", ErrConflict)
		}
		if it.Event.Full() {
			return nil, fmt.Errorf("%w: event is full", ErrConflict)
		}
		it.Event.Registered++
		it.Event.Registrants = append(it.Event.Registrants, session.UID)
		return []firestore.Update{
			{Path: "registered", Value: firestore.Increment(1)},
			{Path: "attendees", Value: firestore.ArrayUnion(session.UID)},
		}, nil
	})
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
