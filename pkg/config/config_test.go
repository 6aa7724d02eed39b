package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := fromViper(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Second, cfg.Authority.Timeout)
	assert.Equal(t, "Bearer", cfg.Authority.AuthScheme)
	assert.Equal(t, VerificationModeRemote, cfg.Authority.VerificationMode)
	assert.Equal(t, "/list", cfg.Authority.Paths.List)
	assert.Equal(t, BulkStrategyPerRow, cfg.Bulk.Strategy)
	assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
	assert.Equal(t, int64(2*1024*1024), cfg.Bulk.MaxFileSize)
}

func TestFromViperOverrides(t *testing.T) {
	v := newTestViper()
	v.Set("AUTHORITY_BASE_URL", "https://authority.example.com/")
	v.Set("AUTHORITY_AUTH_SCHEME", "none")
	v.Set("AUTHORITY_TIMEOUT", "750ms")
	v.Set("VERIFICATION_MODE", "REGISTRY")
	v.Set("ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "https://authority.example.com", cfg.Authority.BaseURL)
	assert.Empty(t, cfg.Authority.AuthScheme)
	assert.Equal(t, 750*time.Millisecond, cfg.Authority.Timeout)
	assert.Equal(t, VerificationModeRegistry, cfg.Authority.VerificationMode)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestFromViperRejectsUnknownModes(t *testing.T) {
	v := newTestViper()
	v.Set("BULK_STRATEGY", "parallel")
	_, err := fromViper(v)
	require.Error(t, err)

	v = newTestViper()
	v.Set("ENV", EnvProduction)
	_, err = fromViper(v)
	require.Error(t, err)
}

func TestFromViperProductionRequiresEverySecret(t *testing.T) {
	production := func() *viper.Viper {
		v := newTestViper()
		v.Set("ENV", EnvProduction)
		v.Set("SESSION_SECRET", "session-key")
		v.Set("SHARE_SECRET", "share-key")
		v.Set("BULK_REPORTS_SECRET", "reports-key")
		return v
	}

	_, err := fromViper(production())
	require.NoError(t, err)

	for _, key := range []string{"SESSION_SECRET", "SHARE_SECRET", "BULK_REPORTS_SECRET"} {
		v := production()
		v.Set(key, devSecrets[key])
		_, err := fromViper(v)
		assert.ErrorContains(t, err, key, key)
	}
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
