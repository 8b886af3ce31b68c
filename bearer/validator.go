package bearer

import (
	"context"
	"fmt"
	"tokengate/common/flux"
)

// Validator decides whether a token is valid and returns the credentials
// associated with it. An error means the token could not be accepted; it is
// reported to the host as a failed attempt, never as a server fault.
type Validator interface {
	Validate(ctx context.Context, token string) (creds flux.Credentials, valid bool, err error)
}

// RequestValidator is a Validator that also inspects the request. It is
// called instead of Validate when Options.ExposeRequest is set.
type RequestValidator interface {
	ValidateRequest(ctx context.Context, token string, f *flux.Flow) (creds flux.Credentials, valid bool, err error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, token string) (flux.Credentials, bool, error)

// Validate calls fn(ctx, token).
func (fn ValidatorFunc) Validate(ctx context.Context, token string) (flux.Credentials, bool, error) {
	return fn(ctx, token)
}

// RequestValidatorFunc adapts a function to the Validator and
// RequestValidator interfaces.
type RequestValidatorFunc func(ctx context.Context, token string, f *flux.Flow) (flux.Credentials, bool, error)

// Validate calls fn with a nil flow.
func (fn RequestValidatorFunc) Validate(ctx context.Context, token string) (flux.Credentials, bool, error) {
	return fn(ctx, token, nil)
}

// ValidateRequest calls fn(ctx, token, f).
func (fn RequestValidatorFunc) ValidateRequest(ctx context.Context, token string, f *flux.Flow) (flux.Credentials, bool, error) {
	return fn(ctx, token, f)
}

// verdict is the completion of one validator call.
type verdict struct {
	creds flux.Credentials
	valid bool
	err   error
	fault error
}

// callFunc is the call shape selected once by New.
type callFunc func(ctx context.Context, token string, f *flux.Flow) (flux.Credentials, bool, error)

func tokenOnly(v Validator) callFunc {
	return func(ctx context.Context, token string, _ *flux.Flow) (flux.Credentials, bool, error) {
		return v.Validate(ctx, token)
	}
}

func withRequest(v RequestValidator) callFunc {
	return v.ValidateRequest
}

// invoke runs call once and waits for its completion or for ctx to end.
// The result channel is buffered so a completion that arrives after ctx
// ended is dropped without blocking the validator.
func invoke(ctx context.Context, call callFunc, token string, f *flux.Flow) verdict {
	done := make(chan verdict, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- verdict{fault: fmt.Errorf("%w: validator panic: %v", ErrBadImplementation, p)}
			}
		}()
		creds, valid, err := call(ctx, token, f)
		done <- verdict{creds: creds, valid: valid, err: err}
	}()

	select {
	case v := <-done:
		return v
	case <-ctx.Done():
		return verdict{fault: ctx.Err()}
	}
}
