package flux

import (
	"log/slog"
	"net/http"
	"time"
)

// Flux is a registered route handler.
type Flux struct {
	server  *Server
	options *Options
	handler HandlerFunc
}

// Options represent optional parameters of a Flux used to configure its behavior.
type Options struct {
	// Auth configures authentication for this handler. When nil the handler
	// is public and no strategy runs. Every strategy named here must be
	// registered with Server.AuthStrategy before the first request.
	Auth *AuthOptions
	// Set a maximum request size for this handler. This option overrides
	// any value set for ServerOptions.MaxRequestSize.
	MaxRequestSize int64
}

// HandlerFunc handles a flow. A returned error is written as a JSON error response.
type HandlerFunc func(*Flow) error

// New registers handler on s for the given pattern. Patterns follow
// http.ServeMux syntax, e.g. "GET /login/{user}".
func New(s *Server, pattern string, handler HandlerFunc, options *Options) *Flux {
	if options == nil {
		options = &Options{}
	}
	if options.Auth != nil {
		if len(options.Auth.Strategies) == 0 {
			panic("flux: route " + pattern + " enables auth without strategies")
		}
		if options.Auth.Mode == "" {
			options.Auth.Mode = AuthRequired
		}
	}
	f := &Flux{
		server:  s,
		options: options,
		handler: handler,
	}
	s.router.handle(pattern, f)
	return f
}

// ServeHTTP satisfies the http.Handler interface.
func (f *Flux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flow := f.server.pool.Get().(*Flow)
	flow.init(w, r, f.server.requestTimeout)
	defer func() {
		if flow.release() {
			f.server.pool.Put(flow)
		}
	}()

	defer func() {
		status := flow.w.Status
		if status == 0 {
			status = http.StatusOK
		}
		f.server.metrics.RecordRequest(flow.r.Method, flow.r.Pattern, status, time.Since(flow.start))
	}()

	if f.server.debug {
		defer func() {
			flow.logger.With(
				slog.Int64("elapsed_ms", time.Since(flow.start).Milliseconds()),
				slog.Int("http_status", flow.w.Status),
				slog.String("auth_strategy", flow.strategy),
			).Debug("Handled HTTP request.")
		}()
	}

	// Set common headers.
	w.Header().Set(HeaderXRequestID, flow.id)

	// Set security headers.
	if f.server.tls {
		w.Header().Add(HeaderStrictTransportSecurity, "max-age=63072000; includeSubDomains")
	}
	w.Header().Add(HeaderContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
	w.Header().Add(HeaderXContentTypeOptions, "nosniff")
	w.Header().Add(HeaderReferrerPolicy, "same-origin")
	w.Header().Add(HeaderXFrameOptions, "DENY")

	// Limit the size of incoming request bodies.
	if f.options.MaxRequestSize != 0 {
		flow.r.Body = http.MaxBytesReader(w, flow.r.Body, f.options.MaxRequestSize)
	} else if f.server.maxRequestSize != 0 {
		flow.r.Body = http.MaxBytesReader(w, flow.r.Body, f.server.maxRequestSize)
	}

	if f.options.Auth != nil {
		if err := f.server.authenticate(flow, f.options.Auth); err != nil {
			f.server.handleError(flow, err)
			return
		}
	}

	if err := f.handler(flow); err != nil {
		f.server.handleError(flow, err)
	}
}
