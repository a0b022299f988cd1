package mercadopago

import "time"

type Config struct {
	AccessToken    string        `env:"MERCADOPAGO_ACCESS_TOKEN"`                                      // AccessToken is the seller's private API token. Empty leaves the client unconfigured.
	BaseURL        string        `env:"MERCADOPAGO_BASE_URL" envDefault:"https://api.mercadopago.com"` // BaseURL of the REST API.
	Sandbox        bool          `env:"MERCADOPAGO_SANDBOX" envDefault:"false"`                        // Sandbox makes checkouts use sandbox_init_point.
	Timeout        time.Duration `env:"MERCADOPAGO_TIMEOUT" envDefault:"10s"`                          // Timeout bounds a single HTTP attempt.
	MaxRetries     int           `env:"MERCADOPAGO_MAX_RETRIES" envDefault:"2"`                        // MaxRetries for retryable failures (network, 429, 5xx).
	RetryBaseDelay time.Duration `env:"MERCADOPAGO_RETRY_BASE_DELAY" envDefault:"200ms"`               // RetryBaseDelay is the first backoff step.
	RetryMaxDelay  time.Duration `env:"MERCADOPAGO_RETRY_MAX_DELAY" envDefault:"2s"`                   // RetryMaxDelay caps the backoff.
}
