package bearer

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeRequest struct {
	headers map[string]string
	query   url.Values
}

func (r *fakeRequest) Header(name string) string      { return r.headers[name] }
func (r *fakeRequest) QueryValue(name string) string { return r.query.Get(name) }
func (r *fakeRequest) DelQuery(name string)          { r.query.Del(name) }

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		query     url.Values
		wantToken string
		wantErr   error
		wantQuery url.Values
	}{
		{
			name:      "bearer header",
			header:    "Bearer abc",
			wantToken: "abc",
		},
		{
			name:      "scheme is case insensitive",
			header:    "bEaReR abc",
			wantToken: "abc",
		},
		{
			name:      "token kept verbatim after first space",
			header:    "Bearer abc def",
			wantToken: "abc def",
		},
		{
			name:      "empty remainder passed through",
			header:    "Bearer ",
			wantToken: "",
		},
		{
			name:      "scheme alone passed through as empty token",
			header:    "Bearer",
			wantToken: "",
		},
		{
			name:    "other scheme",
			header:  "NotBearer abc",
			wantErr: ErrSchemeMismatch,
		},
		{
			name:    "basic scheme",
			header:  "Basic dXNlcjpwYXNz",
			wantErr: ErrSchemeMismatch,
		},
		{
			name:    "no header",
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "undefined header",
			header:  "undefined",
			wantErr: ErrMissingCredentials,
		},
		{
			name:      "query parameter",
			query:     url.Values{"access_token": {"xyz"}, "page": {"2"}},
			wantToken: "xyz",
			wantQuery: url.Values{"page": {"2"}},
		},
		{
			name:      "query parameter wins over header",
			header:    "Bearer abc",
			query:     url.Values{"access_token": {"xyz"}},
			wantToken: "xyz",
			wantQuery: url.Values{},
		},
		{
			name:      "query parameter wins over bad header",
			header:    "NotBearer abc",
			query:     url.Values{"access_token": {"xyz"}},
			wantToken: "xyz",
			wantQuery: url.Values{},
		},
		{
			name:      "empty query parameter falls back to header",
			header:    "Bearer abc",
			query:     url.Values{"access_token": {""}},
			wantToken: "abc",
			wantQuery: url.Values{"access_token": {""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRequest{
				headers: map[string]string{},
				query:   tt.query,
			}
			if r.query == nil {
				r.query = url.Values{}
			}
			if tt.header != "" {
				r.headers["Authorization"] = tt.header
			}

			token, err := Extract(r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
			if tt.wantQuery != nil {
				assert.Equal(t, tt.wantQuery, r.query)
			}
		})
	}
}
