package bearer

import (
	"errors"
	"log/slog"
	"strconv"
	"tokengate/common/flux"
	"tokengate/common/log"
)

// DefaultRealm is advertised in challenges when Options.Realm is empty.
const DefaultRealm = "tokengate"

// Options configures a Strategy.
type Options struct {
	// Validator verifies extracted tokens. Required.
	Validator Validator
	// ExposeRequest passes the flow to the validator. Validator must then
	// also implement RequestValidator.
	ExposeRequest bool
	// Realm is advertised in the WWW-Authenticate challenge.
	Realm string
	// Logger receives fatal outcomes. Defaults to the flow logger.
	Logger *slog.Logger
}

// Strategy is a flux.Strategy authenticating bearer tokens.
// It holds no per-request state and is safe for concurrent use.
type Strategy struct {
	call   callFunc
	realm  string
	logger *slog.Logger
}

var (
	_ flux.Strategy   = (*Strategy)(nil)
	_ flux.Challenger = (*Strategy)(nil)
)

// New returns a Strategy for the given options.
func New(opts Options) (*Strategy, error) {
	if opts.Validator == nil {
		return nil, ErrNoValidator
	}

	s := &Strategy{
		realm:  opts.Realm,
		logger: opts.Logger,
	}
	if s.realm == "" {
		s.realm = DefaultRealm
	}

	if opts.ExposeRequest {
		rv, ok := opts.Validator.(RequestValidator)
		if !ok {
			return nil, ErrNoRequestValidator
		}
		s.call = withRequest(rv)
	} else {
		s.call = tokenOnly(opts.Validator)
	}
	return s, nil
}

// Must is like New but panics on error.
func Must(opts Options) *Strategy {
	s, err := New(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// Authenticate extracts the token from f, validates it and reports the result.
// Extraction failures are returned without calling the validator.
func (s *Strategy) Authenticate(f *flux.Flow) flux.AuthResult {
	token, err := Extract(f)
	if err != nil {
		return extractionFailure(err)
	}

	res := resolve(invoke(f.Context(), s.call, token, f), token)
	if res.Status == flux.AuthError && errors.Is(res.Err, ErrBadImplementation) {
		s.loggerFor(f).Error("Bearer validator broke its contract.", slog.String("error", res.Err.Error()))
	}
	return res
}

// Challenge implements flux.Challenger.
func (s *Strategy) Challenge() string {
	return "Bearer realm=" + strconv.Quote(s.realm)
}

func (s *Strategy) loggerFor(f *flux.Flow) *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	if l := f.Logger(); l != nil {
		return l
	}
	return log.Discard()
}
