package bearer

import "strings"

const (
	// QueryParam is the query parameter carrying a token.
	QueryParam = "access_token"
	// Scheme is the Authorization scheme accepted by this strategy, compared case-insensitively.
	Scheme = "bearer"

	headerAuthorization = "Authorization"
	// undefinedHeader is sent by some clients that serialize a missing value.
	undefinedHeader = "undefined"
)

// Request is the read view of a request needed to extract a token.
// *flux.Flow implements it.
type Request interface {
	Header(name string) string
	QueryValue(name string) string
	DelQuery(name string)
}

// Extract returns the token carried by r.
//
// A non-empty access_token query parameter takes precedence and is removed
// from r. Otherwise the Authorization header is split on its first space and
// the scheme must be "bearer"; the remainder is returned verbatim, even when
// empty. ErrMissingCredentials is returned when neither source is usable and
// ErrSchemeMismatch when the header names another scheme.
func Extract(r Request) (string, error) {
	if token := r.QueryValue(QueryParam); token != "" {
		r.DelQuery(QueryParam)
		return token, nil
	}

	header := r.Header(headerAuthorization)
	if header == "" || header == undefinedHeader {
		return "", ErrMissingCredentials
	}

	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, Scheme) {
		return "", ErrSchemeMismatch
	}
	return token, nil
}
