// Package jwt validates bearer tokens that are signed JWTs. Keys come from a
// JWKS endpoint, configured directly or found through OpenID Connect
// discovery, or from a caller supplied key function.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
	"tokengate/common/flux"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrAudienceMismatch = errors.New("jwt: audience mismatch")
	ErrMissingSubject   = errors.New("jwt: missing sub")
)

// Config controls token validation.
type Config struct {
	Issuer string
	// Audiences lists accepted "aud" values. Empty disables the check.
	Audiences   []string
	AllowedAlgs []string
	Leeway      time.Duration
	// JWKSURL is the key set location. Ignored when Keyfunc is set.
	JWKSURL string
	// Keyfunc overrides JWKS key resolution.
	Keyfunc jwt.Keyfunc
}

// DefaultConfig returns a Config with safe algorithm and leeway defaults.
func DefaultConfig() *Config {
	return &Config{AllowedAlgs: []string{"RS256"}, Leeway: 60 * time.Second}
}

// Validator implements bearer.Validator for JWTs. On success the token claims
// become the credentials.
type Validator struct {
	cfg     Config
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// New builds a validator from cfg, fetching the JWKS if no Keyfunc is set.
func New(ctx context.Context, cfg Config) (*Validator, error) {
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{"RS256"}
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = 60 * time.Second
	}

	kf := cfg.Keyfunc
	if kf == nil {
		if cfg.JWKSURL == "" {
			return nil, errors.New("jwt: jwks url or keyfunc required")
		}
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL})
		if err != nil {
			return nil, fmt.Errorf("jwt: jwks init failed: %w", err)
		}
		kf = jwks.Keyfunc
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Validator{
		cfg:     cfg,
		keyfunc: kf,
		parser:  jwt.NewParser(opts...),
	}, nil
}

// NewFromDiscovery looks up the issuer's jwks_uri through OpenID Connect
// discovery and builds a validator for it.
func NewFromDiscovery(ctx context.Context, cfg Config) (*Validator, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("jwt: issuer required for discovery")
	}
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("jwt: discovery failed: %w", err)
	}
	var meta struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("jwt: discovery metadata: %w", err)
	}
	if meta.JWKSURI == "" {
		return nil, errors.New("jwt: discovery returned no jwks_uri")
	}
	cfg.JWKSURL = meta.JWKSURI
	return New(ctx, cfg)
}

// Validate implements bearer.Validator. Tokens that fail verification are
// reported as invalid with the verification error attached.
func (v *Validator) Validate(ctx context.Context, token string) (flux.Credentials, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.keyfunc); err != nil {
		return nil, false, fmt.Errorf("jwt: verify: %w", err)
	}
	if len(v.cfg.Audiences) > 0 {
		aud, err := claims.GetAudience()
		if err != nil || !slices.ContainsFunc(aud, func(a string) bool {
			return slices.Contains(v.cfg.Audiences, a)
		}) {
			return nil, false, ErrAudienceMismatch
		}
	}
	if sub, _ := claims.GetSubject(); sub == "" {
		return nil, false, ErrMissingSubject
	}
	return flux.Credentials(maps.Clone(map[string]any(claims))), true, nil
}
