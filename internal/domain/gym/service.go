package gym

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cragline/backend/internal/utils"
)

type Service struct {
	repo Repo
	now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateGym registers a gym with the caller as its owner.
func (s *Service) CreateGym(ctx context.Context, uid string, in CreateGymInput) (*Gym, error) {
	in.Trim()
	if uid == "" {
		return nil, fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	if in.Name == "" || in.Location == "" {
		return nil, fmt.Errorf("%w: name and location are required", ErrBadRequest)
	}
	for _, c := range in.ClimbingTypes {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown climbing type %q", ErrBadRequest, c)
		}
	}

	now := s.now().UTC()
	slug := in.Slug
	if slug == "" {
		slug = utils.Slugify(in.Name)
	}
	g := Gym{
		Name:          in.Name,
		NameLower:     utils.NormalizeNameLower(in.Name),
		Slug:          slug,
		Location:      in.Location,
		ClimbingTypes: in.ClimbingTypes,
		Amenities:     in.Amenities,
		ImageURL:      in.ImageURL,
		CreatedBy:     uid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	owner := Administrator{UserID: uid, Role: RoleOwner, CreatedAt: now}
	return s.repo.CreateGym(ctx, g, owner)
}

func (s *Service) Get(ctx context.Context, gymID string) (*Gym, error) {
	gymID = strings.TrimSpace(gymID)
	if gymID == "" {
		return nil, fmt.Errorf("%w: gymId is required", ErrBadRequest)
	}
	return s.repo.GetGym(ctx, gymID)
}

// Search is a name prefix search. An empty query lists the newest gyms.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]Gym, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.repo.SearchByNamePrefix(ctx, utils.NormalizeNameLower(q), limit)
}

func (s *Service) AddFavorite(ctx context.Context, uid, gymID string) (*Favorite, error) {
	uid = strings.TrimSpace(uid)
	gymID = strings.TrimSpace(gymID)
	if uid == "" || gymID == "" {
		return nil, fmt.Errorf("%w: uid and gymId are required", ErrBadRequest)
	}
	if _, err := s.repo.GetGym(ctx, gymID); err != nil {
		return nil, err
	}
	return s.repo.PutFavorite(ctx, Favorite{
		ID:        FavoriteID(uid, gymID),
		UserID:    uid,
		GymID:     gymID,
		CreatedAt: s.now().UTC(),
	})
}

func (s *Service) RemoveFavorite(ctx context.Context, uid, gymID string) error {
	if uid == "" || gymID == "" {
		return fmt.Errorf("%w: uid and gymId are required", ErrBadRequest)
	}
	return s.repo.DeleteFavorite(ctx, FavoriteID(uid, gymID))
}

func (s *Service) IsFavorite(ctx context.Context, uid, gymID string) (bool, error) {
	if uid == "" || gymID == "" {
		return false, fmt.Errorf("%w: uid and gymId are required", ErrBadRequest)
	}
	return s.repo.FavoriteExists(ctx, FavoriteID(uid, gymID))
}

func (s *Service) Favorites(ctx context.Context, uid string) ([]Favorite, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	return s.repo.ListFavorites(ctx, uid)
}

// AddAdministrator lets an owner or admin appoint another administrator.
// Only owners can appoint owners.
func (s *Service) AddAdministrator(ctx context.Context, callerUID, gymID string, in AddAdministratorInput) (*Administrator, error) {
	in.Trim()
	if gymID == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: gymId and userId are required", ErrBadRequest)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: role must be one of owner, admin, manager", ErrBadRequest)
	}

	caller, ok, err := s.AdministratorRole(ctx, gymID, callerUID)
	if err != nil {
		return nil, err
	}
	if !ok || !caller.CanManageAdmins() {
		return nil, fmt.Errorf("%w: only gym owners and admins can add administrators", ErrUnauthorized)
	}
	if in.Role == RoleOwner && caller != RoleOwner {
		return nil, fmt.Errorf("%w: only owners can add owners", ErrUnauthorized)
	}

	a := Administrator{UserID: in.UserID, GymID: gymID, Role: in.Role, CreatedAt: s.now().UTC()}
	if err := s.repo.PutAdministrator(ctx, a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AdministratorRole returns uid's role at gymID, if any.
func (s *Service) AdministratorRole(ctx context.Context, gymID, uid string) (Role, bool, error) {
	if gymID == "" || uid == "" {
		return "", false, nil
	}
	a, err := s.repo.GetAdministrator(ctx, gymID, uid)
	if IsErrNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return a.Role, a.Role.Valid(), nil
}

func (s *Service) IsAdministrator(ctx context.Context, gymID, uid string) (bool, error) {
	_, ok, err := s.AdministratorRole(ctx, gymID, uid)
	return ok, err
}

// Claims builds the custom-claims fragment mirroring uid's gym roles, read
// back by authctx.Session.GymRole.
func (s *Service) Claims(ctx context.Context, uid string) (map[string]any, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	admins, err := s.repo.AdministratorsForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	gyms := map[string]any{}
	for _, a := range admins {
		if a.Role.Valid() && a.GymID != "" {
			gyms[a.GymID] = string(a.Role)
		}
	}
	return map[string]any{"gyms": gyms}, nil
}
