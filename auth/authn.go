package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
	"tokengate/bearer"
	"tokengate/common/flux"

	"github.com/jackc/pgx/v5"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/sm"
)

// DB is the subset of *pgxpool.Pool used by the validator.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config...
type Config struct {
	// BindIP rejects sessions used from an ip other than the one they were
	// created from. It only applies when the strategy exposes the request.
	BindIP bool
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// SessionValidator validates bearer tokens against the auth.sessions table.
// Only unexpired sessions of users without an active ban are accepted.
type SessionValidator struct {
	db  DB
	cfg Config
}

var (
	_ bearer.Validator        = (*SessionValidator)(nil)
	_ bearer.RequestValidator = (*SessionValidator)(nil)
)

// NewValidator...
func NewValidator(db DB, cfg *Config) *SessionValidator {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &SessionValidator{db: db, cfg: c}
}

// Validate implements bearer.Validator.
func (v *SessionValidator) Validate(ctx context.Context, token string) (flux.Credentials, bool, error) {
	sess, err := v.lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return sess.credentials(), true, nil
}

// ValidateRequest implements bearer.RequestValidator.
func (v *SessionValidator) ValidateRequest(ctx context.Context, token string, f *flux.Flow) (flux.Credentials, bool, error) {
	sess, err := v.lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if v.cfg.BindIP && f != nil && sess.UserIP != f.IP() {
		return nil, false, ErrSessionIPMismatch
	}
	return sess.credentials(), true, nil
}

func (v *SessionValidator) lookup(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrSessionNotFound
	}

	sql, args := sessionQuery(token, v.cfg.Now().UTC())
	var sess Session
	if err := v.db.QueryRow(ctx, sql, args...).Scan(
		&sess.ID,
		&sess.UserID,
		&sess.UserIP,
		&sess.CreatedAt,
		&sess.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}

	sql, args = banQuery(sess.UserID, v.cfg.Now().UTC())
	var banned bool
	if err := v.db.QueryRow(ctx, fmt.Sprintf("SELECT EXISTS (%s)", sql), args...).Scan(&banned); err != nil {
		return Session{}, err
	}
	if banned {
		return Session{}, ErrUserBanned
	}
	return sess, nil
}

func sessionQuery(token string, now time.Time) (string, []any) {
	return psql.Select(
		sm.From("auth.sessions"),
		sm.Columns("id", "user_id", "user_ip", "created_at", "expires_at"),
		sm.Where(psql.Quote("token").EQ(psql.Arg(token))),
		sm.Where(psql.Quote("expires_at").GT(psql.Arg(now))),
	).MustBuild()
}

func banQuery(userID string, now time.Time) (string, []any) {
	return psql.Select(
		sm.From("auth.bans"),
		sm.Columns("user_id"),
		psql.WhereAnd(
			sm.Where(psql.Quote("user_id").EQ(psql.Arg(userID))),
			// banned_at = unbanned_at marks a permanent ban.
			psql.WhereOr(
				sm.Where(psql.Quote("unbanned_at").GT(psql.Arg(now))),
				sm.Where(psql.Quote("banned_at").EQ(psql.Quote("unbanned_at"))),
			),
		),
	).MustBuild()
}
