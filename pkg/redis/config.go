package redis

import "time"

type Config struct {
	ConnectionURL  string        `env:"REDIS_URL"`                                 // ConnectionURL in the form "redis://:password@localhost:6379/0". Empty disables Redis-backed features.
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`       // RetryAttempts is the number of ping attempts at startup.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`      // RetryInterval is the pause between attempts.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`    // ConnectTimeout bounds the whole connect phase.
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"storefront:"` // KeyPrefix namespaces every key this service writes.
}

// Enabled reports whether a Redis URL was configured.
func (c Config) Enabled() bool {
	return c.ConnectionURL != ""
}
