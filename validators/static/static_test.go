package static

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	"tokengate/common/flux"
	"tokengate/common/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenFile = `tokens:
  - token: abc
    credentials:
      email: test@test.com
  - token: def
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestValidate(t *testing.T) {
	v, err := New([]Entry{{Token: "abc", Credentials: flux.Credentials{"email": "test@test.com"}}})
	require.NoError(t, err)

	creds, valid, err := v.Validate(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, flux.Credentials{"email": "test@test.com"}, creds)

	creds["email"] = "changed"
	again, _, _ := v.Validate(context.Background(), "abc")
	assert.Equal(t, "test@test.com", again["email"])

	creds, valid, err = v.Validate(context.Background(), "nope")
	assert.NoError(t, err)
	assert.False(t, valid)
	assert.Nil(t, creds)
}

func TestNewRejectsBadEntries(t *testing.T) {
	_, err := New([]Entry{{Token: "a"}, {Token: "a"}})
	assert.ErrorIs(t, err, ErrDuplicateToken)

	_, err = New([]Entry{{Token: ""}})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	writeFile(t, path, tokenFile)

	v, err := Load(path, log.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	creds, valid, err := v.Validate(context.Background(), "def")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, flux.Credentials{}, creds)
}

func TestReloadKeepsTableOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	writeFile(t, path, tokenFile)
	v, err := Load(path, log.Discard())
	require.NoError(t, err)

	writeFile(t, path, "tokens: [")
	assert.Error(t, v.Reload())
	assert.Equal(t, 2, v.Len())
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	writeFile(t, path, tokenFile)
	v, err := Load(path, log.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, v.Watch(ctx))

	writeFile(t, path, "tokens:\n  - token: ghi\n")

	require.Eventually(t, func() bool {
		_, valid, _ := v.Validate(context.Background(), "ghi")
		return valid
	}, 2*time.Second, 10*time.Millisecond)
	_, valid, _ := v.Validate(context.Background(), "abc")
	assert.False(t, valid)
}

func TestHashedTokens(t *testing.T) {
	hash, err := HashToken("s3cret")
	require.NoError(t, err)

	v, err := New([]Entry{
		{Token: "abc"},
		{TokenHash: hash, Credentials: flux.Credentials{"email": "ops@test.com"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	creds, valid, err := v.Validate(context.Background(), "s3cret")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, "ops@test.com", creds["email"])

	_, valid, err = v.Validate(context.Background(), "wrong")
	assert.NoError(t, err)
	assert.False(t, valid)
}

func TestHashedTokenEntryErrors(t *testing.T) {
	_, err := New([]Entry{{TokenHash: "not-a-hash"}})
	assert.Error(t, err)

	hash, err := HashToken("x")
	require.NoError(t, err)
	_, err = New([]Entry{{Token: "x", TokenHash: hash}})
	assert.Error(t, err)
}
