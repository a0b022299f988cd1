package mercadopago

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured      = errors.New("mercadopago: access token is not configured")
	ErrNotFound           = errors.New("mercadopago: resource not found")
	ErrUnexpectedResponse = errors.New("mercadopago: unexpected response")
	ErrRequestFailed      = errors.New("mercadopago: request failed")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mercadopago: api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("mercadopago: api returned status %d: %s (%s)", e.StatusCode, e.Message, e.Code)
}
