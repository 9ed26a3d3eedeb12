package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsekit/browsekit/utils/apperrors"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BROWSERLESS_API_KEY", "tok")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.BatchDelay)
	assert.Equal(t, 25, cfg.BatchMaxQueries)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.False(t, cfg.MinioEnabled())
	assert.False(t, cfg.DatabaseEnabled())

	bc := cfg.Browserless()
	assert.Equal(t, "tok", bc.Token)
	assert.Equal(t, 60*time.Second, bc.FunctionTimeout)
	assert.Equal(t, 30*time.Second, bc.CapabilityTimeout)
}

func TestLoadConfigMissingCredential(t *testing.T) {
	t.Setenv("BROWSERLESS_API_KEY", "  ")

	_, err := LoadConfig()
	assert.True(t, errors.Is(err, apperrors.ErrMissingCredential))
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("BROWSERLESS_API_KEY", "")
	t.Setenv("BROWSERLESS_URL", "https://env.example")

	cfg, err := LoadConfig(WithBrowserless("flag-token", ""))
	require.NoError(t, err)
	assert.Equal(t, "flag-token", cfg.BrowserlessAPIKey)
	assert.Equal(t, "https://env.example", cfg.BrowserlessURL)

	cfg, err = LoadConfig(WithBrowserless("flag-token", "http://127.0.0.1:9222"))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9222", cfg.Browserless().BaseURL)
}

func TestLoadConfigBadValues(t *testing.T) {
	t.Setenv("BROWSERLESS_API_KEY", "tok")
	t.Setenv("BATCH_DELAY", "soon")

	_, err := LoadConfig()
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "BATCH_DELAY", cfgErr.Key)

	t.Setenv("BATCH_DELAY", "1s")
	t.Setenv("BATCH_MAX_QUERIES", "0")
	_, err = LoadConfig()
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "BATCH_MAX_QUERIES", cfgErr.Key)
}

func TestDSN(t *testing.T) {
	cfg := Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "runs", DBPort: "5432"}
	assert.True(t, cfg.DatabaseEnabled())
	assert.Equal(t, "host=db user=u password=p dbname=runs port=5432 sslmode=disable", cfg.DSN())
}
