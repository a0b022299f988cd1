package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/config"
)

type billingDefaults struct {
	TrialDays int    `env:"TEST_DEFAULT_TRIAL_DAYS" envDefault:"30"`
	GraceDays int    `env:"TEST_DEFAULT_GRACE_DAYS" envDefault:"7"`
	Currency  string `env:"TEST_DEFAULT_CURRENCY" envDefault:"ARS"`
}

type billingOverrides struct {
	TrialDays int  `env:"TEST_OVERRIDE_TRIAL_DAYS" envDefault:"30"`
	Enabled   bool `env:"TEST_OVERRIDE_ENABLED" envDefault:"true"`
}

type cachedConfig struct {
	Secret string `env:"TEST_CACHED_SECRET" envDefault:"first"`
}

type requiredConfig struct {
	Token string `env:"TEST_REQUIRED_TOKEN,required"`
}

type fileConfig struct {
	TrialDays   int    `env:"TEST_BILLING_TRIAL_DAYS"`
	Currency    string `env:"TEST_BILLING_CURRENCY"`
	FallbackURL string `env:"TEST_BILLING_FALLBACK_URL"`
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("TEST_DEFAULT_TRIAL_DAYS")
	os.Unsetenv("TEST_DEFAULT_GRACE_DAYS")
	os.Unsetenv("TEST_DEFAULT_CURRENCY")

	var cfg billingDefaults
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 30, cfg.TrialDays)
	assert.Equal(t, 7, cfg.GraceDays)
	assert.Equal(t, "ARS", cfg.Currency)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TEST_OVERRIDE_TRIAL_DAYS", "14")
	t.Setenv("TEST_OVERRIDE_ENABLED", "false")

	var cfg billingOverrides
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 14, cfg.TrialDays)
	assert.False(t, cfg.Enabled)
}

func TestLoad_CachedPerType(t *testing.T) {
	t.Setenv("TEST_CACHED_SECRET", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("TEST_CACHED_SECRET", "second")
	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Secret)

	config.ResetCache()
	var third cachedConfig
	require.NoError(t, config.Load(&third))
	assert.Equal(t, "second", third.Secret)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("TEST_REQUIRED_TOKEN")

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *billingDefaults
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestLoadEnv(t *testing.T) {
	os.Unsetenv("TEST_BILLING_TRIAL_DAYS")
	os.Unsetenv("TEST_BILLING_CURRENCY")
	os.Unsetenv("TEST_BILLING_FALLBACK_URL")
	t.Cleanup(func() {
		os.Unsetenv("TEST_BILLING_TRIAL_DAYS")
		os.Unsetenv("TEST_BILLING_CURRENCY")
		os.Unsetenv("TEST_BILLING_FALLBACK_URL")
	})

	require.NoError(t, config.LoadEnv("testdata/.env.billing"))

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 14, cfg.TrialDays)
	assert.Equal(t, "ARS", cfg.Currency)
	assert.Equal(t, "https://pay.example.com/link/abc", cfg.FallbackURL)

	err := config.LoadEnv("testdata/does-not-exist.env")
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}
