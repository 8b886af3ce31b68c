package flux

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"tokengate/common/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(status AuthStatus, creds Credentials) Strategy {
	return StrategyFunc(func(f *Flow) AuthResult {
		var err error
		if status == AuthFailed || status == AuthError {
			err = errors.New(status.String())
		}
		return AuthResult{Status: status, Credentials: creds, Err: err}
	})
}

func newTestServer() *Server {
	s := NewServer(&ServerOptions{Logger: log.Discard()})
	s.AuthStrategy("ok", result(AuthSuccess, Credentials{"user": "ok"}))
	s.AuthStrategy("ok2", result(AuthSuccess, Credentials{"user": "ok2"}))
	s.AuthStrategy("missing", result(AuthMissing, nil))
	s.AuthStrategy("failed", result(AuthFailed, nil))
	s.AuthStrategy("error", result(AuthError, nil))
	s.AuthStrategy("nocreds", result(AuthSuccess, nil))
	return s
}

func TestAuthModes(t *testing.T) {
	tests := []struct {
		name       string
		mode       AuthMode
		strategies []string
		wantStatus int
		wantUser   string
	}{
		{"required success", AuthRequired, []string{"ok"}, http.StatusOK, "ok"},
		{"required missing then success", AuthRequired, []string{"missing", "ok"}, http.StatusOK, "ok"},
		{"required first success wins", AuthRequired, []string{"ok", "ok2"}, http.StatusOK, "ok"},
		{"required all missing", AuthRequired, []string{"missing", "missing"}, http.StatusUnauthorized, ""},
		{"required failed stops", AuthRequired, []string{"failed", "ok"}, http.StatusUnauthorized, ""},
		{"required error", AuthRequired, []string{"error", "ok"}, http.StatusInternalServerError, ""},
		{"required success without credentials", AuthRequired, []string{"nocreds"}, http.StatusInternalServerError, ""},
		{"required unknown strategy", AuthRequired, []string{"nope"}, http.StatusInternalServerError, ""},
		{"optional missing", AuthOptional, []string{"missing"}, http.StatusOK, ""},
		{"optional failed", AuthOptional, []string{"failed", "ok"}, http.StatusUnauthorized, ""},
		{"optional missing then success", AuthOptional, []string{"missing", "ok"}, http.StatusOK, "ok"},
		{"try failed then success", AuthTry, []string{"failed", "ok"}, http.StatusOK, "ok"},
		{"try all failed", AuthTry, []string{"failed", "failed"}, http.StatusOK, ""},
		{"try error", AuthTry, []string{"error"}, http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			var user any
			New(s, "GET /x", func(f *Flow) error {
				if f.Authenticated() {
					user = f.Credentials()["user"]
				}
				return f.Respond(http.StatusOK, nil)
			}, &Options{Auth: &AuthOptions{Mode: tt.mode, Strategies: tt.strategies}})

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantUser != "" {
				assert.Equal(t, tt.wantUser, user)
			} else {
				assert.Nil(t, user)
			}
		})
	}
}

func TestTryRecordsFailure(t *testing.T) {
	tests := []struct {
		name       string
		strategies []string
		wantCreds  Credentials
	}{
		{"without credentials", []string{"failed"}, nil},
		{"with credentials", []string{"failedcreds"}, Credentials{"user": "rejected"}},
		{"last failure wins", []string{"failedcreds", "failed"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.AuthStrategy("failedcreds", result(AuthFailed, Credentials{"user": "rejected"}))
			var authErr error
			var failCreds Credentials
			var authenticated bool
			New(s, "GET /x", func(f *Flow) error {
				authErr = f.AuthError()
				failCreds = f.AuthFailureCredentials()
				authenticated = f.Authenticated()
				return nil
			}, &Options{Auth: &AuthOptions{Mode: AuthTry, Strategies: tt.strategies}})

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.EqualError(t, authErr, "failed")
			assert.Equal(t, tt.wantCreds, failCreds)
			assert.False(t, authenticated)
		})
	}
}

func TestChallenges(t *testing.T) {
	s := NewServer(&ServerOptions{Logger: log.Discard()})
	s.AuthStrategy("a", challenger{result(AuthMissing, nil), `Bearer realm="a"`})
	s.AuthStrategy("b", challenger{result(AuthMissing, nil), `Bearer realm="b"`})
	New(s, "GET /x", func(f *Flow) error { return nil }, &Options{
		Auth: &AuthOptions{Strategies: []string{"a", "b"}},
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, []string{`Bearer realm="a"`, `Bearer realm="b"`}, rec.Header().Values(HeaderWWWAuthenticate))
}

type challenger struct {
	Strategy
	challenge string
}

func (c challenger) Challenge() string { return c.challenge }

func TestAuthStrategyRegistration(t *testing.T) {
	s := NewServer(nil)
	assert.Panics(t, func() { s.AuthStrategy("", result(AuthSuccess, nil)) })
	assert.Panics(t, func() { s.AuthStrategy("x", nil) })
	s.AuthStrategy("x", result(AuthSuccess, nil))
	assert.Panics(t, func() { s.AuthStrategy("x", result(AuthSuccess, nil)) })
	assert.Panics(t, func() {
		New(s, "GET /y", func(f *Flow) error { return nil }, &Options{Auth: &AuthOptions{}})
	})
}

func TestRouting(t *testing.T) {
	s := NewServer(&ServerOptions{Logger: log.Discard()})
	New(s, "GET /users/{id}", func(f *Flow) error {
		return f.Respond(http.StatusOK, map[string]string{"id": f.Param("id")})
	}, nil)
	New(s, "GET /panic", func(f *Flow) error { panic("boom") }, nil)
	New(s, "GET /fail", func(f *Flow) error { return errors.New("secret detail") }, nil)

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/users/42", http.StatusOK, `{"id":"42"}`},
		{"/nowhere", http.StatusNotFound, `{"code":"not_found","status":404,"message":"Not found."}`},
		{"/panic", http.StatusInternalServerError, `{"code":"internal","status":500,"message":"Something went wrong."}`},
		{"/fail", http.StatusInternalServerError, `{"code":"internal","status":500,"message":"Something went wrong."}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestDelQuery(t *testing.T) {
	s := NewServer(&ServerOptions{Logger: log.Discard()})
	var before, after, raw string
	New(s, "GET /q", func(f *Flow) error {
		before = f.QueryValue("secret")
		f.DelQuery("secret")
		f.DelQuery("absent")
		after = f.QueryValue("secret")
		raw = f.Request().URL.RawQuery
		return nil
	}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/q?secret=1&keep=2", nil))

	assert.Equal(t, "1", before)
	assert.Empty(t, after)
	assert.Equal(t, "keep=2", raw)
}

func TestSetInternalCopies(t *testing.T) {
	e := UnauthorizedError.SetInternal(errors.New("cause"))
	assert.Nil(t, UnauthorizedError.Internal)
	assert.EqualError(t, errors.Unwrap(e), "cause")
}

func TestParseAuthMode(t *testing.T) {
	for in, want := range map[string]AuthMode{"": AuthRequired, "required": AuthRequired, "Optional": AuthOptional, "TRY": AuthTry} {
		got, err := ParseAuthMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAuthMode("sometimes")
	assert.Error(t, err)
}
