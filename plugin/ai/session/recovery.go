package session

import (
	"context"
	"fmt"
)

// Recovery loads or creates sessions around one handled utterance.
type Recovery struct {
	svc SessionService
}

// NewRecovery creates a session recovery handler.
func NewRecovery(svc SessionService) *Recovery {
	return &Recovery{svc: svc}
}

// Recover returns the stored session, or a new empty one.
// An empty id, or an unknown or expired one, starts a new session; a known id keeps its ID.
func (r *Recovery) Recover(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return New(""), nil
	}
	existing, err := r.svc.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	return New(id), nil
}

// Finish records the turn and saves the session.
func (r *Recovery) Finish(ctx context.Context, s *Session, user, assistant string) error {
	s.AppendTurn(user, assistant)
	if err := r.svc.Save(ctx, s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
