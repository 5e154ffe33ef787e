package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Config{DBDriver: "mongo", JWTSecret: "a", JWTRefreshSecret: "b", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}
	assert.Error(t, cfg.Validate())
}
