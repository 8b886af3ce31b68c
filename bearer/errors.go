package bearer

import "errors"

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrSchemeMismatch     = errors.New("authorization scheme is not bearer")
	ErrInvalidToken       = errors.New("invalid token")
	ErrBadImplementation  = errors.New("validator returned no usable credentials")
	ErrNoValidator        = errors.New("bearer: validator is required")
	ErrNoRequestValidator = errors.New("bearer: ExposeRequest requires a RequestValidator")
)
