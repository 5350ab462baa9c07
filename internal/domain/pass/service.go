package pass

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo  Repo
	log   *logger.Logger
	now   func() time.Time
	newID func() string
}

func NewService(repo Repo, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log, now: time.Now, newID: uuid.NewString}
}

func requireSession(session authctx.Session) error {
	if !session.Authenticated() {
		return fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	return nil
}

// List returns the caller's passes, oldest first.
func (s *Service) List(ctx context.Context, session authctx.Session) ([]Pass, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	ps, err := s.repo.List(ctx, session.UID)
	if err != nil {
		return nil, err
	}
	return NewWallet(ps).Passes(), nil
}

func (s *Service) Add(ctx context.Context, session authctx.Session, in AddInput) (*Pass, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	in.Trim()

	now := s.now().UTC()
	p := Pass{
		ID:        s.newID(),
		Title:     in.Title,
		IssueDate: now,
		Barcode:   Barcode{Payload: in.Payload, Symbology: in.Symbology},
		IsPrimary: in.MakePrimary,
		CreatedAt: now,
	}
	if in.IssueDate != nil && !in.IssueDate.IsZero() {
		p.IssueDate = in.IssueDate.UTC()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	w, err := s.repo.Update(ctx, session.UID, func(w *Wallet) error { return w.Add(p) })
	if err != nil {
		return nil, err
	}
	saved, _ := w.Get(p.ID)
	s.log.Info(s.log.WithFields(ctx, map[string]any{"pass_id": p.ID, "symbology": p.Barcode.Symbology}), "pass added")
	return &saved, nil
}

// ImportScan adds a pass read by the device scanner. A scanner that is not
// available yields a *PermissionError and nothing is written.
func (s *Service) ImportScan(ctx context.Context, session authctx.Session, in ImportInput) (*Pass, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := CheckScanner(in.ScannerStatus); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Payload) == "" {
		return nil, fmt.Errorf("%w: scan produced no barcode", ErrBadRequest)
	}
	return s.Add(ctx, session, in.AddInput)
}

func (s *Service) SetPrimary(ctx context.Context, session authctx.Session, id string) ([]Pass, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	w, err := s.repo.Update(ctx, session.UID, func(w *Wallet) error { return w.SetPrimary(id) })
	if err != nil {
		return nil, err
	}
	return w.Passes(), nil
}

func (s *Service) Remove(ctx context.Context, session authctx.Session, id string) ([]Pass, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	w, err := s.repo.Update(ctx, session.UID, func(w *Wallet) error {
		_, err := w.Remove(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w.Passes(), nil
}
