package subscription

import (
	"context"
	"time"
)

// PaymentGateway defines the minimal interface the billing engine needs from a
// payment provider: open a hosted checkout and read back a payment. Card data
// never reaches this process.
//
// Implementations are treated as unreliable. Errors should wrap
// ErrGatewayNotConfigured when credentials are missing and
// ErrGatewayRequestFailed for transport or API failures.
type PaymentGateway interface {
	// Configured reports whether credentials are present.
	Configured() bool

	// CreateCheckout opens a hosted checkout session for a single payment.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// GetPayment fetches the provider's canonical view of a payment.
	// Returns ErrPaymentNotFound for unknown ids.
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	ExternalReference string // Invoice id echoed back on the payment
	Title             string
	AmountCents       int64
	Currency          string
	SuccessURL        string // Browser redirect after approval
	FailureURL        string
	PendingURL        string
	NotificationURL   string // Server-to-server webhook
}

// CheckoutSession represents a hosted checkout session.
type CheckoutSession struct {
	PreferenceID string // Provider's session identifier
	URL          string // Hosted checkout URL
}

// Payment is a provider payment normalized to cents.
type Payment struct {
	ID                string
	Status            string
	ExternalReference string
	AmountCents       int64
	Currency          string
	ApprovedAt        *time.Time
}

// PaymentStatusApproved is the only status that settles an invoice.
const PaymentStatusApproved = "approved"

// Approved reports whether the payment settles an invoice.
func (p *Payment) Approved() bool {
	return p != nil && p.Status == PaymentStatusApproved
}
