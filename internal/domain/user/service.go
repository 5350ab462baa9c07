package user

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cragline/backend/internal/domain/notifications"
	"cragline/backend/internal/logger"
	"cragline/backend/internal/utils"

	"firebase.google.com/go/v4/auth"
)

// AuthUpdater mirrors profile changes into Firebase Auth. *auth.Client
// satisfies it.
type AuthUpdater interface {
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
}

type Notifier interface {
	Notify(ctx context.Context, input notifications.CreateInput)
}

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.]{2,30}$`)

const (
	defaultListLimit = 50
	// searchScanLimit bounds the substring scan to the newest profiles.
	searchScanLimit = 500
)

type Service struct {
	repo     Repo
	log      *logger.Logger
	auth     AuthUpdater
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repo, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

func (s *Service) SetAuthClient(a AuthUpdater) { s.auth = a }

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

func (s *Service) Get(ctx context.Context, uid string) (*User, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	return s.repo.Get(ctx, uid)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrBadRequest)
	}
	return s.repo.GetByUsername(ctx, username)
}

// Ensure returns the caller's user document, creating it on first sign-in.
func (s *Service) Ensure(ctx context.Context, uid, email string) (*User, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	return s.repo.Ensure(ctx, uid, strings.TrimSpace(email))
}

// Search matches query as a case-insensitive substring of name or username.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []User{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	pool, err := s.repo.List(ctx, searchScanLimit)
	if err != nil {
		return nil, err
	}
	out := []User{}
	for _, u := range pool {
		if utils.FoldContains(u.Name, query) || utils.FoldContains(u.Username, query) {
			out = append(out, u)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Service) UpdateProfile(ctx context.Context, uid string, input UpdateProfileInput) (*User, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	input.Trim()
	if input.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrBadRequest)
	}

	updates := map[string]any{"updatedAt": s.now().UTC()}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrBadRequest)
		}
		updates["name"] = *input.Name
		updates["nameLower"] = utils.NormalizeNameLower(*input.Name)
	}
	if input.Username != nil {
		if !usernameRe.MatchString(*input.Username) {
			return nil, fmt.Errorf("%w: username must be 2-30 letters, digits, '_' or '.'", ErrBadRequest)
		}
		lower := strings.ToLower(*input.Username)
		existing, err := s.repo.GetByUsername(ctx, lower)
		switch {
		case err == nil && existing.ID != uid:
			return nil, fmt.Errorf("%w: username already taken", ErrConflict)
		case err != nil && !IsErrNotFound(err):
			return nil, err
		}
		updates["username"] = *input.Username
		updates["usernameLower"] = lower
	}
	if input.Bio != nil {
		updates["bio"] = utils.TrimMax(*input.Bio, 280)
	}
	if input.ImageURL != nil {
		updates["imageUrl"] = *input.ImageURL
	}

	if err := s.repo.Update(ctx, uid, updates); err != nil {
		return nil, err
	}

	if s.auth != nil && (input.Name != nil || input.ImageURL != nil) {
		u := &auth.UserToUpdate{}
		if input.Name != nil {
			u.DisplayName(*input.Name)
		}
		if input.ImageURL != nil {
			u.PhotoURL(*input.ImageURL)
		}
		if _, err := s.auth.UpdateUser(ctx, uid, u); err != nil {
			s.log.Warn(s.log.WithUserID(ctx, uid), "failed to update auth user", err)
		}
	}

	return s.repo.Get(ctx, uid)
}

func (s *Service) IncrementPostCount(ctx context.Context, uid string, delta int) error {
	if uid == "" || delta == 0 {
		return nil
	}
	return s.repo.IncrementPostCount(ctx, uid, delta)
}

// Follow creates the edge followerID -> followingID. Following yourself is
// rejected and following twice is a no-op.
func (s *Service) Follow(ctx context.Context, followerID, followingID string) (*Relationship, error) {
	followerID = strings.TrimSpace(followerID)
	followingID = strings.TrimSpace(followingID)
	if followerID == "" || followingID == "" {
		return nil, fmt.Errorf("%w: followerId and followingId are required", ErrBadRequest)
	}
	if followerID == followingID {
		return nil, fmt.Errorf("%w: cannot follow yourself", ErrBadRequest)
	}

	target, err := s.repo.Get(ctx, followingID)
	if err != nil {
		return nil, err
	}

	rel := Relationship{
		ID:          RelationshipID(followerID, followingID),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   s.now().UTC(),
	}
	created, err := s.repo.CreateRelationship(ctx, rel)
	if err != nil {
		return nil, err
	}
	if created && s.notifier != nil {
		title := "New follower"
		if follower, err := s.repo.Get(ctx, followerID); err == nil {
			title = follower.DisplayName() + " started following you"
		}
		s.notifier.Notify(ctx, notifications.CreateInput{
			TargetUID:     target.ID,
			SenderUID:     followerID,
			Title:         title,
			Type:          notifications.TypeFollow,
			RelatedItemID: followerID,
		})
	}
	return &rel, nil
}

func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) error {
	followerID = strings.TrimSpace(followerID)
	followingID = strings.TrimSpace(followingID)
	if followerID == "" || followingID == "" {
		return fmt.Errorf("%w: followerId and followingId are required", ErrBadRequest)
	}
	_, err := s.repo.DeleteRelationship(ctx, RelationshipID(followerID, followingID))
	return err
}

func (s *Service) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == "" || followingID == "" {
		return false, fmt.Errorf("%w: followerId and followingId are required", ErrBadRequest)
	}
	return s.repo.RelationshipExists(ctx, RelationshipID(followerID, followingID))
}

func (s *Service) Followers(ctx context.Context, uid string, limit int) ([]Relationship, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	return s.repo.Followers(ctx, uid, clampLimit(limit))
}

func (s *Service) Following(ctx context.Context, uid string, limit int) ([]Relationship, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	return s.repo.Following(ctx, uid, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return defaultListLimit
	}
	return limit
}
