package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"tokengate/bearer"
	"tokengate/common/flux"
	"tokengate/common/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *flux.Server {
	t.Helper()
	s := flux.NewServer(&flux.ServerOptions{Logger: log.Discard()})
	s.AuthStrategy("simple", bearer.Must(bearer.Options{
		Validator: bearer.ValidatorFunc(func(ctx context.Context, token string) (flux.Credentials, bool, error) {
			return flux.Credentials{"email": "test@test.com"}, token == "abc", nil
		}),
	}))
	Handler(s, []string{"simple"})
	return s
}

func get(s *flux.Server, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		authorization string
		wantStatus    int
		wantBody      string
	}{
		{"login", "/login/testuser", "Bearer abc", http.StatusOK, `{"email":"test@test.com","token":"abc"}`},
		{"login query token", "/login/testuser?access_token=abc", "", http.StatusOK, `{"email":"test@test.com","token":"abc"}`},
		{"login anonymous", "/login/testuser", "", http.StatusUnauthorized, ""},
		{"me", "/me", "Bearer abc", http.StatusOK, `{"authenticated":true,"strategy":"simple","credentials":{"email":"test@test.com"}}`},
		{"public anonymous", "/public", "", http.StatusOK, `{"authenticated":false}`},
		{"public bad token", "/public", "Bearer nope", http.StatusUnauthorized, ""},
		{"try bad token", "/try", "Bearer nope", http.StatusOK, `{"authenticated":false}`},
		{"health", "/healthz", "", http.StatusOK, `{"status":"ok"}`},
	}

	s := newServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(s, tt.path, tt.authorization)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestUnauthorizedBody(t *testing.T) {
	rec := get(newServer(t), "/me", "Bearer nope")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["code"])
	assert.Equal(t, `Bearer realm="tokengate"`, rec.Header().Get("WWW-Authenticate"))
}
