package session

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/shopping-recommender/internal/models"
)

var ErrNotFound = errors.New("session not found")

// Session is the state kept between requests of one visitor.
type Session struct {
	ID        string                       `json:"session_id"`
	Profile   models.UserProfile           `json:"user_data"`
	Results   *models.RecommendationResult `json:"results,omitempty"`
	CreatedAt time.Time                    `json:"created_at"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Store keeps sessions for a bounded time.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}
