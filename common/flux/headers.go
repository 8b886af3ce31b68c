package flux

// Headers
const (
	HeaderAuthorization        = "Authorization"
	HeaderContentEncoding      = "Content-Encoding"
	HeaderContentLength        = "Content-Length"
	HeaderContentType          = "Content-Type"
	ContentTypeApplicationJSON = "application/json; charset=UTF-8"
	HeaderXForwardedFor        = "X-Forwarded-For"
	HeaderXRealIP              = "X-Real-Ip"
	HeaderXRequestID           = "X-Request-Id"
	HeaderWWWAuthenticate      = "WWW-Authenticate"

	// Security
	HeaderStrictTransportSecurity = "Strict-Transport-Security"
	HeaderXContentTypeOptions     = "X-Content-Type-Options"
	HeaderXFrameOptions           = "X-Frame-Options"
	HeaderContentSecurityPolicy   = "Content-Security-Policy"
	HeaderReferrerPolicy          = "Referrer-Policy"
)
