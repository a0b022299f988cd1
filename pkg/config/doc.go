// Package config loads typed configuration from environment variables.
//
// Each package that needs configuration declares a struct with
// github.com/caarlos0/env/v11 tags, and the binary loads it with Load or
// MustLoad:
//
//	type Config struct {
//		TrialDays int    `env:"BILLING_TRIAL_DAYS" envDefault:"30"`
//		Currency  string `env:"BILLING_CURRENCY" envDefault:"ARS"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// A .env file in the working directory is read once through
// github.com/joho/godotenv before the first parse; real environment variables
// take precedence over it. Parsed values are cached per type, so repeated
// loads are cheap and consistent. ResetCache clears the cache in tests.
package config
