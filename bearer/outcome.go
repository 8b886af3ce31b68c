package bearer

import (
	"errors"
	"maps"
	"tokengate/common/flux"
)

// Kind is the outcome category of a single authentication.
type Kind int

const (
	Authenticated Kind = iota + 1
	Rejected
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// Reason explains a rejection.
type Reason int

const (
	NoReason Reason = iota
	MissingCredentials
	SchemeMismatch
	Unauthorized
)

func (r Reason) String() string {
	switch r {
	case MissingCredentials:
		return "missing_credentials"
	case SchemeMismatch:
		return "scheme_mismatch"
	case Unauthorized:
		return "unauthorized"
	}
	return "none"
}

// Outcome is a categorized view of a flux.AuthResult produced by a Strategy.
type Outcome struct {
	Kind   Kind
	Reason Reason
}

// Classify maps a result produced by a Strategy back to its outcome.
func Classify(res flux.AuthResult) Outcome {
	switch res.Status {
	case flux.AuthSuccess:
		return Outcome{Kind: Authenticated}
	case flux.AuthFailed:
		return Outcome{Kind: Rejected, Reason: Unauthorized}
	case flux.AuthMissing:
		if errors.Is(res.Err, ErrSchemeMismatch) {
			return Outcome{Kind: Rejected, Reason: SchemeMismatch}
		}
		return Outcome{Kind: Rejected, Reason: MissingCredentials}
	}
	return Outcome{Kind: Fatal}
}

func extractionFailure(err error) flux.AuthResult {
	return flux.AuthResult{Status: flux.AuthMissing, Err: err}
}

// resolve maps a validator completion to a result. creds is copied before
// the token is set, so validators may return shared maps.
func resolve(v verdict, token string) flux.AuthResult {
	if v.fault != nil {
		return flux.AuthResult{Status: flux.AuthError, Err: v.fault}
	}
	if v.err != nil {
		return flux.AuthResult{
			Status:      flux.AuthFailed,
			Credentials: v.creds,
			Err:         errors.Join(ErrInvalidToken, v.err),
		}
	}
	if !v.valid {
		return flux.AuthResult{Status: flux.AuthFailed, Credentials: v.creds, Err: ErrInvalidToken}
	}
	if v.creds == nil {
		return flux.AuthResult{Status: flux.AuthError, Err: ErrBadImplementation}
	}

	creds := maps.Clone(v.creds)
	creds["token"] = token
	return flux.AuthResult{Status: flux.AuthSuccess, Credentials: creds}
}
