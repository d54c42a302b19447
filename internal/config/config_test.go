package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BCRYPT_COST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "debug", cfg.GinMode)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.True(t, cfg.UseMemoryStore())
}

func TestLoadInvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("ACTIVITY_LIMIT", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.ActivityLimit)
}

func TestValidateReleaseRequiresSecrets(t *testing.T) {
	cfg := &Config{GinMode: "release", BcryptCost: 12, ActivityLimit: 10}
	assert.Error(t, cfg.Validate())

	cfg.SessionSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	assert.Error(t, cfg.Validate(), "DATABASE_URL is still missing")

	cfg.DatabaseURL = "postgres://localhost/accounts"
	assert.NoError(t, cfg.Validate())
}

func TestValidateBcryptCostRange(t *testing.T) {
	cfg := &Config{GinMode: "debug", BcryptCost: 2, ActivityLimit: 10}
	assert.Error(t, cfg.Validate())

	cfg.BcryptCost = 4
	assert.NoError(t, cfg.Validate())
}
