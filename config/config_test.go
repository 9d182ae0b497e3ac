package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/loro")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4400", cfg.Port)
	assert.Equal(t, 50, cfg.SalesTipsBatchSize)
	assert.Equal(t, 2*time.Second, cfg.SalesTipsBatchDelay)
	assert.Equal(t, 5*time.Minute, cfg.LicenseCacheTTL)
	assert.Equal(t, "auto", cfg.Storage.Region)
	assert.Equal(t, 15*time.Minute, cfg.Storage.SignedURLTTL)
	assert.False(t, cfg.IdentitySyncEnabled())
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/loro")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " https://a.example , ,https://b.example"}
	assert.Equal(t, "https://a.example,https://b.example", cfg.Origins())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Special"}
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestDefaultFeatureMap(t *testing.T) {
	m := DefaultFeatureMap()

	assert.True(t, m.Allows("starter", FeatureRewards))
	assert.False(t, m.Allows("starter", FeatureShop))
	assert.True(t, m.Allows("Business", FeatureShop))
	assert.True(t, m.Allows("enterprise", FeatureRealtime))
	assert.False(t, m.Allows("unknown", FeatureNews))
	assert.Len(t, m.Features("professional"), 5)
}

func TestParseFeatureMapRejectsEmpty(t *testing.T) {
	_, err := ParseFeatureMap([]byte("plans: {}"))
	assert.Error(t, err)
}
