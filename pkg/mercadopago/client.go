package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const maxResponseBody = 1 << 20

// Client talks to the MercadoPago REST API. Every request runs through a
// retry policy and a circuit breaker; POSTs carry an idempotency key so a
// retried preference creation does not produce a second checkout.
type Client struct {
	baseURL  string
	token    string
	sandbox  bool
	http     *http.Client
	executor failsafe.Executor[*http.Response]
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. with httptest's.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// NewClient builds a client from cfg. A client without an access token is
// valid but every call returns ErrNotConfigured.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    cfg.AccessToken,
		sandbox:  cfg.Sandbox,
		http:     &http.Client{Timeout: timeout},
		executor: newExecutor(cfg),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an access token is present.
func (c *Client) Configured() bool {
	return c.token != ""
}

// Sandbox reports whether checkouts should use the sandbox link.
func (c *Client) Sandbox() bool {
	return c.sandbox
}

// CreatePreference opens a hosted checkout. idempotencyKey should be stable
// for the logical checkout, typically the external reference.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest, idempotencyKey string) (*Preference, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: encode preference: %w", err)
	}

	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, idempotencyKey, &pref); err != nil {
		return nil, err
	}
	if pref.ID == "" {
		return nil, fmt.Errorf("%w: preference without id", ErrUnexpectedResponse)
	}
	return &pref, nil
}

// GetPayment fetches a payment by id. Unknown ids yield ErrNotFound.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	var p Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, "", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, idempotencyKey string, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	resp, err := c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idempotencyKey != "" {
			req.Header.Set("X-Idempotency-Key", idempotencyKey)
		}

		resp, err := c.http.Do(req)
		if shouldRetry(resp, err) && resp != nil {
			// the attempt is discarded; free the connection before the next one
			drain(resp)
		}
		return resp, err
	})
	if err != nil {
		if resp != nil {
			drain(resp)
		}
		return errors.Join(ErrRequestFailed, err)
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		_ = json.Unmarshal(raw, apiErr)
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return errors.Join(ErrUnexpectedResponse, err)
	}
	return nil
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
	_ = resp.Body.Close()
}

// shouldRetry treats network errors, 429 and 5xx as transient.
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

//nolint:bodyclose // *http.Response is a type parameter here, not a live response
func newExecutor(cfg Config) failsafe.Executor[*http.Response] {
	base := cfg.RetryBaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	maxDelay := max(cfg.RetryMaxDelay, base)

	retry := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(shouldRetry).
		WithBackoff(base, maxDelay).
		WithJitterFactor(0.1).
		WithMaxRetries(max(cfg.MaxRetries, 0)).
		Build()

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			return err != nil || (resp != nil && resp.StatusCode >= 500)
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		Build()

	return failsafe.With(retry, breaker)
}
