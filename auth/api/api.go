package api

import (
	"net/http"
	"tokengate/common/flux"
)

// Handler registers the credential echo routes, authenticated by strategies
// in order. Each route applies a different auth mode.
func Handler(s *flux.Server, strategies []string) {
	auth := func(mode flux.AuthMode) *flux.Options {
		return &flux.Options{Auth: &flux.AuthOptions{Mode: mode, Strategies: strategies}}
	}

	flux.New(s, "GET /login/{user}", login, auth(flux.AuthRequired))
	flux.New(s, "GET /me", me, auth(flux.AuthRequired))
	flux.New(s, "GET /public", me, auth(flux.AuthOptional))
	flux.New(s, "GET /try", me, auth(flux.AuthTry))
	flux.New(s, "GET /healthz", health, nil)
}

// login returns the authenticated credentials.
func login(f *flux.Flow) error {
	return f.Respond(http.StatusOK, f.Credentials())
}

func me(f *flux.Flow) error {
	type response struct {
		Authenticated bool             `json:"authenticated"`
		Strategy      string           `json:"strategy,omitempty"`
		Credentials   flux.Credentials `json:"credentials,omitempty"`
	}

	res := &response{
		Authenticated: f.Authenticated(),
		Strategy:      f.Strategy(),
		Credentials:   redact(f.Credentials()),
	}
	return f.Respond(http.StatusOK, res)
}

func health(f *flux.Flow) error {
	return f.Respond(http.StatusOK, map[string]string{"status": "ok"})
}

// redact drops the raw token from credentials echoed outside /login.
func redact(creds flux.Credentials) flux.Credentials {
	if creds == nil {
		return nil
	}
	out := make(flux.Credentials, len(creds))
	for k, v := range creds {
		if k == "token" {
			continue
		}
		out[k] = v
	}
	return out
}
