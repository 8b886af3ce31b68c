package flux

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Flow carries the state of a single request through authentication and
// into its handler. Flows are pooled; nothing may retain a Flow after the
// handler returns.
type Flow struct {
	r      *http.Request
	w      *statusWriter
	s      *Server
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	id     string
	ip     string
	start  time.Time
	query  url.Values

	credentials Credentials
	strategy    string
	authErr     error
	failCreds   Credentials
}

// Context returns the request context, bounded by the server request timeout.
func (f *Flow) Context() context.Context { return f.ctx }

// Logger returns a logger annotated with request attributes.
func (f *Flow) Logger() *slog.Logger { return f.logger }

// ID returns the request id.
func (f *Flow) ID() string { return f.id }

// IP returns the client ip as reported by the server IPExtractor.
func (f *Flow) IP() string { return f.ip }

// Start returns the time the request was received.
func (f *Flow) Start() time.Time { return f.start }

// Method returns the request method.
func (f *Flow) Method() string { return f.r.Method }

// Path returns the request path.
func (f *Flow) Path() string { return f.r.URL.Path }

// Param returns the value of the named route parameter.
func (f *Flow) Param(name string) string { return f.r.PathValue(name) }

// Header returns the first value of the named request header.
func (f *Flow) Header(name string) string { return f.r.Header.Get(name) }

// Query returns the request query parameters. The returned values are shared
// with the flow; use DelQuery to remove a parameter.
func (f *Flow) Query() url.Values {
	if f.query == nil {
		f.query = f.r.URL.Query()
	}
	return f.query
}

// QueryValue returns the first value of the named query parameter.
func (f *Flow) QueryValue(name string) string { return f.Query().Get(name) }

// DelQuery removes a query parameter from the flow and from the request URL
// seen by everything that runs after it.
func (f *Flow) DelQuery(name string) {
	q := f.Query()
	if _, ok := q[name]; !ok {
		return
	}
	q.Del(name)
	f.r.URL.RawQuery = q.Encode()
}

// Credentials returns the credentials attached by a successful strategy, or nil.
func (f *Flow) Credentials() Credentials { return f.credentials }

// Strategy returns the name of the strategy that authenticated the flow.
func (f *Flow) Strategy() string { return f.strategy }

// AuthError returns the last strategy failure recorded in try mode.
func (f *Flow) AuthError() error { return f.authErr }

// AuthFailureCredentials returns the credentials carried by the failure
// recorded in try mode, if the strategy supplied any. They never
// authenticate the flow.
func (f *Flow) AuthFailureCredentials() Credentials { return f.failCreds }

// Authenticated reports whether a strategy attached credentials.
func (f *Flow) Authenticated() bool { return f.credentials != nil }

// Request returns the underlying request.
func (f *Flow) Request() *http.Request { return f.r }

// Bind decodes the JSON request body into v.
func (f *Flow) Bind(v any) error {
	dec := json.NewDecoder(f.r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if ute, ok := err.(*json.UnmarshalTypeError); ok {
			return InvalidError("Unmarshal type error: expected=%v, got=%v, field=%v, offset=%v", ute.Type, ute.Value, ute.Field, ute.Offset).SetInternal(err)
		} else if se, ok := err.(*json.SyntaxError); ok {
			return InvalidError("Syntax error: offset=%v, error=%v", se.Offset, se.Error()).SetInternal(err)
		} else if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return InvalidError("Invalid input.").SetInternal(err)
		}
		return err
	}
	return nil
}

// Respond writes v as JSON with the given status.
func (f *Flow) Respond(status int, v any) error {
	if v == nil {
		f.w.WriteHeader(status)
		return nil
	}

	f.w.Header().Set(HeaderContentType, ContentTypeApplicationJSON)
	f.w.WriteHeader(status)
	return json.NewEncoder(f.w).Encode(v)
}

// init prepares a pooled flow for a new request.
func (f *Flow) init(w http.ResponseWriter, r *http.Request, timeout time.Duration) {
	if f.w == nil {
		f.w = &statusWriter{ResponseWriter: w}
	} else {
		f.w.reset(w)
	}
	ctx, cancel := r.Context(), context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	id := uuid.New().String()
	ip := f.s.ipExtractor(r)
	now := time.Now().UTC()

	logger := f.s.logger.With(
		slog.String("request_path", r.URL.Path),
		slog.String("request_method", r.Method),
		slog.String("request_id", id),
		slog.String("request_ip", ip),
	)

	f.r = r.WithContext(ctx)
	f.ctx = ctx
	f.cancel = cancel
	f.logger = logger
	f.id = id
	f.ip = ip
	f.start = now
	f.query = nil
	f.credentials = nil
	f.strategy = ""
	f.authErr = nil
	f.failCreds = nil
}

// release ends the flow. It reports whether the flow may be reused: a flow
// whose context ended early may still be referenced by abandoned work.
func (f *Flow) release() bool {
	reusable := f.ctx.Err() == nil
	f.cancel()
	return reusable
}

// statusWriter records the status written to the response.
type statusWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader...
func (w *statusWriter) WriteHeader(status int) {
	if w.Status != 0 {
		return
	}
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// reset...
func (sw *statusWriter) reset(w http.ResponseWriter) {
	sw.ResponseWriter = w
	sw.Status = 0
}
