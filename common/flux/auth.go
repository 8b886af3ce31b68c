package flux

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// ErrStrategyNotFound is returned when a route names a strategy that was never registered.
var ErrStrategyNotFound = errors.New("auth strategy not found")

// Credentials is the open mapping of identity data attached to an authenticated flow.
type Credentials map[string]any

// AuthMode controls how strategy results affect request admission.
type AuthMode string

const (
	// AuthRequired rejects the request unless a strategy succeeds.
	AuthRequired AuthMode = "required"
	// AuthOptional admits requests that carry no credentials, but rejects
	// requests whose credentials were presented and found invalid.
	AuthOptional AuthMode = "optional"
	// AuthTry admits every request; failed strategies only fall through to the next one.
	AuthTry AuthMode = "try"
)

// ParseAuthMode parses a mode name. An empty name means AuthRequired.
func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(strings.ToLower(s)) {
	case "", AuthRequired:
		return AuthRequired, nil
	case AuthOptional:
		return AuthOptional, nil
	case AuthTry:
		return AuthTry, nil
	}
	return "", errors.New("unknown auth mode: " + s)
}

// AuthStatus categorizes the result of a single strategy.
type AuthStatus int

const (
	// AuthSuccess means the strategy authenticated the request.
	AuthSuccess AuthStatus = iota + 1
	// AuthMissing means the strategy found nothing it could evaluate.
	AuthMissing
	// AuthFailed means credentials were presented and rejected.
	AuthFailed
	// AuthError means the strategy or one of its collaborators is broken.
	AuthError
)

func (s AuthStatus) String() string {
	switch s {
	case AuthSuccess:
		return "success"
	case AuthMissing:
		return "missing"
	case AuthFailed:
		return "failed"
	case AuthError:
		return "error"
	}
	return "unknown"
}

// AuthResult is produced once per strategy invocation.
type AuthResult struct {
	Status      AuthStatus
	Credentials Credentials
	Err         error
}

// Strategy authenticates a single flow.
type Strategy interface {
	Authenticate(f *Flow) AuthResult
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(f *Flow) AuthResult

// Authenticate calls fn(f).
func (fn StrategyFunc) Authenticate(f *Flow) AuthResult { return fn(f) }

// Challenger is implemented by strategies that advertise a WWW-Authenticate challenge.
type Challenger interface {
	Challenge() string
}

// AuthOptions configures authentication for a route.
type AuthOptions struct {
	Mode AuthMode
	// Strategies are tried in order. At least one is required.
	Strategies []string
}

// AuthStrategy registers a named strategy with the server.
func (s *Server) AuthStrategy(name string, strategy Strategy) {
	if name == "" || strategy == nil {
		panic("flux: auth strategy requires a name and an implementation")
	}
	if _, ok := s.strategies[name]; ok {
		panic("flux: auth strategy already registered: " + name)
	}
	s.strategies[name] = strategy
}

// authenticate runs the mode engine for a flow. A nil error means the
// handler may run, with or without credentials.
func (s *Server) authenticate(f *Flow, opts *AuthOptions) error {
	var challenges []string
	var failure error

	for _, name := range opts.Strategies {
		strategy, ok := s.strategies[name]
		if !ok {
			return InternalError.SetInternal(errors.Join(ErrStrategyNotFound, errors.New(name)))
		}
		if c, ok := strategy.(Challenger); ok {
			challenges = append(challenges, c.Challenge())
		}

		start := time.Now()
		res := strategy.Authenticate(f)
		s.metrics.RecordAuth(name, res.Status.String(), time.Since(start))
		switch res.Status {
		case AuthSuccess:
			if res.Credentials == nil {
				return InternalError.SetInternal(errors.New("strategy " + name + " succeeded without credentials"))
			}
			f.credentials = res.Credentials
			f.strategy = name
			return nil
		case AuthMissing:
			f.logger.Debug("No credentials for strategy.", slog.String("strategy", name), errAttr(res.Err))
			continue
		case AuthFailed:
			f.logger.Debug("Authentication failed.", slog.String("strategy", name), errAttr(res.Err))
			failure = res.Err
			if opts.Mode == AuthTry {
				f.authErr = res.Err
				f.failCreds = res.Credentials
				continue
			}
			return s.unauthorized(f, challenges, res.Err)
		default:
			if ctxErr := f.ctx.Err(); ctxErr != nil && errors.Is(res.Err, ctxErr) {
				return TimeoutError.SetInternal(res.Err)
			}
			return InternalError.SetInternal(res.Err)
		}
	}

	if opts.Mode == AuthRequired {
		return s.unauthorized(f, challenges, failure)
	}
	return nil
}

func (s *Server) unauthorized(f *Flow, challenges []string, cause error) error {
	for _, c := range challenges {
		f.w.Header().Add(HeaderWWWAuthenticate, c)
	}
	// The cause stays out of the response body.
	if cause != nil {
		f.logger.Debug("Rejecting unauthenticated request.", slog.String("error", cause.Error()))
	}
	return UnauthorizedError
}

func errAttr(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
