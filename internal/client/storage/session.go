package storage

import "context"

// Session holds the authenticated user's session data as persisted in
// the auth store. The access token is issued by the excluded auth
// provider and forwarded as-is in the Authorization header.
type Session struct {
	UserID      string `json:"userId"`
	Email       string `json:"email,omitempty"`
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"` // unix seconds
}

// SessionStorage defines the interface for persisting the auth session
type SessionStorage interface {
	// SaveSession stores or replaces the current session
	SaveSession(ctx context.Context, session *Session) error

	// GetSession retrieves the stored session.
	// Returns ErrSessionNotFound if no session exists.
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession removes the stored session
	DeleteSession(ctx context.Context) error
}
