package auth

import (
	"time"
	"tokengate/common/flux"
)

// Session is a row of auth.sessions.
type Session struct {
	ID        string
	UserID    string
	UserIP    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// credentials never include the token itself; the bearer strategy sets it.
func (s Session) credentials() flux.Credentials {
	return flux.Credentials{
		"session_id": s.ID,
		"user_id":    s.UserID,
		"user_ip":    s.UserIP,
		"created_at": s.CreatedAt,
		"expires_at": s.ExpiresAt,
	}
}
