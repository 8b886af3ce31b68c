// Package bearer implements a bearer token authentication strategy for the
// flux host framework.
//
// A Strategy extracts a token from the "access_token" query parameter or the
// "Authorization: Bearer <token>" header, hands it to a caller supplied
// Validator and turns the verdict into a flux.AuthResult:
//
//	no token, or header "undefined"       -> AuthMissing  (ErrMissingCredentials)
//	header with another scheme            -> AuthMissing  (ErrSchemeMismatch)
//	validator error or valid == false     -> AuthFailed   (ErrInvalidToken)
//	valid == true without credentials     -> AuthError    (ErrBadImplementation)
//	valid == true with credentials        -> AuthSuccess, credentials["token"] = token
//
// The query parameter wins over the header and is removed from the request
// once read. Mode handling (required, optional, try) is left to flux, which
// uses the status to tell "no attempt" apart from "failed attempt".
//
// Example:
//
//	s := flux.NewServer(&flux.ServerOptions{})
//	strategy, err := bearer.New(bearer.Options{
//	    Validator: bearer.ValidatorFunc(func(ctx context.Context, token string) (flux.Credentials, bool, error) {
//	        return flux.Credentials{"user": "alice"}, token == "secret", nil
//	    }),
//	})
//	if err != nil { log.Fatal(err) }
//	s.AuthStrategy("default", strategy)
//	flux.New(s, "GET /me", me, &flux.Options{
//	    Auth: &flux.AuthOptions{Mode: flux.AuthRequired, Strategies: []string{"default"}},
//	})
package bearer
