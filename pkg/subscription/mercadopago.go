package subscription

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/dmitrymomot/storefront/pkg/mercadopago"
)

// MercadoPagoGateway adapts the MercadoPago REST client to PaymentGateway.
type MercadoPagoGateway struct {
	client *mercadopago.Client
}

// NewMercadoPagoGateway wraps client. Panics on nil to fail fast at wiring time.
func NewMercadoPagoGateway(client *mercadopago.Client) *MercadoPagoGateway {
	if client == nil {
		panic("subscription: mercadopago client is required")
	}
	return &MercadoPagoGateway{client: client}
}

func (g *MercadoPagoGateway) Configured() bool {
	return g.client.Configured()
}

// CreateCheckout opens a preference with a single item. The external
// reference doubles as the idempotency key, so a retried request for the
// same invoice does not open a second checkout.
func (g *MercadoPagoGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	pref, err := g.client.CreatePreference(ctx, mercadopago.PreferenceRequest{
		Items: []mercadopago.Item{{
			ID:         req.ExternalReference,
			Title:      req.Title,
			Quantity:   1,
			UnitPrice:  centsToUnits(req.AmountCents),
			CurrencyID: req.Currency,
		}},
		ExternalReference: req.ExternalReference,
		BackURLs: &mercadopago.BackURLs{
			Success: req.SuccessURL,
			Failure: req.FailureURL,
			Pending: req.PendingURL,
		},
		AutoReturn:      "approved",
		NotificationURL: req.NotificationURL,
	}, req.ExternalReference)
	if err != nil {
		return nil, gatewayError(err)
	}

	link := pref.InitPoint
	if g.client.Sandbox() && pref.SandboxInitPoint != "" {
		link = pref.SandboxInitPoint
	}
	if link == "" {
		return nil, errors.Join(ErrGatewayRequestFailed, mercadopago.ErrUnexpectedResponse)
	}
	return &CheckoutSession{PreferenceID: pref.ID, URL: link}, nil
}

func (g *MercadoPagoGateway) GetPayment(ctx context.Context, id string) (*Payment, error) {
	p, err := g.client.GetPayment(ctx, id)
	if err != nil {
		return nil, gatewayError(err)
	}
	return &Payment{
		ID:                strconv.FormatInt(p.ID, 10),
		Status:            p.Status,
		ExternalReference: p.ExternalReference,
		AmountCents:       unitsToCents(p.TransactionAmount),
		Currency:          p.CurrencyID,
		ApprovedAt:        p.DateApproved,
	}, nil
}

func gatewayError(err error) error {
	switch {
	case errors.Is(err, mercadopago.ErrNotConfigured):
		return errors.Join(ErrGatewayNotConfigured, err)
	case errors.Is(err, mercadopago.ErrNotFound):
		return errors.Join(ErrPaymentNotFound, err)
	default:
		return errors.Join(ErrGatewayRequestFailed, err)
	}
}

func centsToUnits(cents int64) float64 {
	return float64(cents) / 100
}

func unitsToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}
