// Package session stores admin console login sessions.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string    `json:"id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	ExpiresAt time.Time `json:"expires_at"` // UTC
}

// Store persists sessions until they expire.
type Store interface {
	// Create starts a session of userID lasting ttl.
	Create(ctx context.Context, userID int, ttl time.Duration) (Session, error)
	// Get returns ErrNotFound when the session does not exist or has expired.
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

func newSession(userID int, ttl time.Duration, now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
