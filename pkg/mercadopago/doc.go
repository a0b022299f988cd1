// Package mercadopago is a small REST client for the parts of the
// MercadoPago API the billing engine needs: creating checkout preferences
// and fetching payments.
//
//	client := mercadopago.NewClient(cfg)
//	pref, err := client.CreatePreference(ctx, mercadopago.PreferenceRequest{
//		Items:             []mercadopago.Item{{Title: "Storefront plan", Quantity: 1, UnitPrice: 4999, CurrencyID: "ARS"}},
//		ExternalReference: invoiceID,
//		NotificationURL:   "https://app.example.com/webhooks/mercadopago",
//	}, invoiceID)
//
// Calls are wrapped with a failsafe-go retry policy (network errors, 429 and
// 5xx, exponential backoff with jitter) inside which a circuit breaker trips
// after repeated server failures. Each attempt is bounded by Config.Timeout.
// Non-2xx answers surface as *APIError, 404 as ErrNotFound, and a missing
// access token as ErrNotConfigured.
package mercadopago
