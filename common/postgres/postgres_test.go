package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfigDefaults(t *testing.T) {
	pc, err := PoolConfig(Config{})
	require.NoError(t, err)
	assert.EqualValues(t, defaultMinOpenConns, pc.MinConns)
	assert.EqualValues(t, defaultMaxOpenConns, pc.MaxConns)
	assert.Equal(t, defaultMaxConnLifetime, pc.MaxConnLifetime)
	assert.Equal(t, "localhost", pc.ConnConfig.Host)
}

func TestPoolConfigOverrides(t *testing.T) {
	pc, err := PoolConfig(Config{
		URL:             "postgresql://u:p@db.internal:6543/app",
		MaxOpenConns:    3,
		MaxConnIdleTime: time.Second,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, pc.MaxConns)
	assert.Equal(t, time.Second, pc.MaxConnIdleTime)
	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.EqualValues(t, 6543, pc.ConnConfig.Port)
}

func TestPoolConfigBadURL(t *testing.T) {
	_, err := PoolConfig(Config{URL: "postgresql://%zz"})
	assert.Error(t, err)
}
