package billing

type Config struct {
	AppURL       string `env:"APP_URL"`                                      // AppURL is the public base URL used for provider callbacks.
	CronSecret   string `env:"BILLING_CRON_SECRET"`                          // CronSecret guards /cron/billing. Empty disables the endpoint.
	CronSchedule string `env:"BILLING_CRON_SCHEDULE" envDefault:"@every 1h"` // CronSchedule runs the job in-process. Empty leaves it to an external scheduler.
	QRSize       int    `env:"BILLING_QR_SIZE" envDefault:"240"`             // QRSize is the payment page QR edge in pixels.
}
