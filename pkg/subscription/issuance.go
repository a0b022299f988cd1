package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

const (
	// maxIssueAttempts bounds how often issuance re-reads after losing the
	// one-pending-invoice race.
	maxIssueAttempts = 3

	issueTimeout = 30 * time.Second
)

// CurrentInvoice returns the merchant's payable invoice, creating one if
// needed. A pending invoice with a link is reused without calling the
// provider. When the provider cannot open a checkout the configured static
// payment link is used instead.
//
// Errors wrap ErrBillingNotConfigured, ErrProviderUnavailable or
// ErrInvoiceCreateFailed; see ErrorCode.
func (s *service) CurrentInvoice(ctx context.Context, merchantID uuid.UUID) (*IssuedInvoice, error) {
	flight := s.issuing.DoChan(merchantID.String(), func() (any, error) {
		// the flight outlives any single caller that joined it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), issueTimeout)
		defer cancel()
		return s.currentInvoice(ctx, merchantID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-flight:
	}
	if res.Err != nil {
		s.metrics.issued("", "error")
		return nil, res.Err
	}

	issued := res.Val.(*IssuedInvoice)
	s.metrics.issued(issued.Mode, issuanceResult(issued.Reused || res.Shared))
	return &IssuedInvoice{
		Invoice: issued.Invoice.Clone(),
		Mode:    issued.Mode,
		Reused:  issued.Reused || res.Shared,
	}, nil
}

func issuanceResult(reused bool) string {
	if reused {
		return "reused"
	}
	return "created"
}

func (s *service) currentInvoice(ctx context.Context, merchantID uuid.UUID) (*IssuedInvoice, error) {
	sub, err := s.loadSubscription(ctx, merchantID)
	if err != nil {
		return nil, errors.Join(ErrInvoiceCreateFailed, err)
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		issued, err := s.issue(ctx, sub)
		if err == nil {
			return issued, nil
		}
		if !errors.Is(err, ErrPendingInvoiceExists) {
			return nil, err
		}
		s.logger.DebugContext(ctx, "pending invoice created concurrently, re-reading",
			logger.MerchantID(merchantID),
			"attempt", attempt,
		)
	}
	return nil, errors.Join(ErrInvoiceCreateFailed, ErrPendingInvoiceExists)
}

// issue makes one pass: reuse the pending invoice or create a new one.
// ErrPendingInvoiceExists is returned bare so the caller can retry.
func (s *service) issue(ctx context.Context, sub *Subscription) (*IssuedInvoice, error) {
	pending, err := s.store.FindPendingInvoice(ctx, sub.MerchantID)
	switch {
	case err == nil:
		return s.reuse(ctx, pending)
	case !errors.Is(err, ErrInvoiceNotFound):
		return nil, errors.Join(ErrInvoiceCreateFailed, err)
	}

	now := s.clock.Now()
	id := uuid.New()
	inv := &Invoice{
		ID:                id,
		MerchantID:        sub.MerchantID,
		AmountCents:       sub.PlanAmountCents,
		Currency:          sub.Currency,
		Status:            InvoiceStatusPending,
		DueAt:             s.policy.DueAt(sub),
		ExternalReference: id.String(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	session, gwErr := s.openCheckout(ctx, inv)
	switch {
	case gwErr == nil:
		inv.Provider = ProviderMercadoPago
		inv.ProviderPreferenceID = &session.PreferenceID
		inv.PaymentURL = session.URL
	case s.policy.HasFallback():
		s.logger.WarnContext(ctx, "checkout unavailable, issuing fallback invoice",
			logger.MerchantID(sub.MerchantID),
			logger.Error(gwErr),
		)
		inv.Provider = ProviderManual
		inv.PaymentURL = s.policy.FallbackPaymentURL
	default:
		return nil, classifyGatewayError(gwErr)
	}

	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		if errors.Is(err, ErrPendingInvoiceExists) {
			return nil, err
		}
		return nil, errors.Join(ErrInvoiceCreateFailed, err)
	}

	s.logger.InfoContext(ctx, "invoice issued",
		logger.MerchantID(sub.MerchantID),
		logger.InvoiceID(inv.ID),
		"mode", inv.Mode(),
		"amount_cents", inv.AmountCents,
	)
	return &IssuedInvoice{Invoice: inv, Mode: inv.Mode()}, nil
}

// reuse returns a pending invoice, refreshing a stale fallback link or
// attaching a checkout to an invoice left without one.
func (s *service) reuse(ctx context.Context, inv *Invoice) (*IssuedInvoice, error) {
	now := s.clock.Now()

	if inv.PaymentURL != "" {
		if inv.IsFallback() && s.policy.HasFallback() && inv.PaymentURL != s.policy.FallbackPaymentURL {
			if err := s.store.UpdatePaymentURL(ctx, inv.ID, s.policy.FallbackPaymentURL, now); err != nil {
				if errors.Is(err, ErrInvoiceNotFound) {
					return nil, ErrPendingInvoiceExists
				}
				return nil, errors.Join(ErrInvoiceCreateFailed, err)
			}
			inv.PaymentURL = s.policy.FallbackPaymentURL
			inv.UpdatedAt = now
		}
		return &IssuedInvoice{Invoice: inv, Mode: inv.Mode(), Reused: true}, nil
	}

	session, gwErr := s.openCheckout(ctx, inv)
	var provider, preferenceID, link string
	switch {
	case gwErr == nil:
		provider, preferenceID, link = ProviderMercadoPago, session.PreferenceID, session.URL
	case s.policy.HasFallback():
		s.logger.WarnContext(ctx, "checkout unavailable, attaching fallback link",
			logger.MerchantID(inv.MerchantID),
			logger.InvoiceID(inv.ID),
			logger.Error(gwErr),
		)
		provider, link = ProviderManual, s.policy.FallbackPaymentURL
	default:
		return nil, classifyGatewayError(gwErr)
	}

	if err := s.store.AttachCheckout(ctx, inv.ID, provider, preferenceID, link, now); err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			// paid or linked by someone else meanwhile
			return nil, ErrPendingInvoiceExists
		}
		return nil, errors.Join(ErrInvoiceCreateFailed, err)
	}

	inv.Provider = provider
	if preferenceID != "" {
		inv.ProviderPreferenceID = &preferenceID
	}
	inv.PaymentURL = link
	inv.UpdatedAt = now
	return &IssuedInvoice{Invoice: inv, Mode: inv.Mode(), Reused: true}, nil
}

func (s *service) openCheckout(ctx context.Context, inv *Invoice) (*CheckoutSession, error) {
	if !s.gateway.Configured() || s.appURL == "" {
		return nil, ErrGatewayNotConfigured
	}
	started := time.Now()
	session, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		ExternalReference: inv.ExternalReference,
		Title:             s.policy.PlanTitle,
		AmountCents:       inv.AmountCents,
		Currency:          inv.Currency,
		SuccessURL:        s.callbackURL(BillingPath, "payment=success"),
		FailureURL:        s.callbackURL(BillingPath, "payment=failure"),
		PendingURL:        s.callbackURL(BillingPath, "payment=pending"),
		NotificationURL:   s.callbackURL(WebhookPath, ""),
	})
	if err != nil {
		return nil, err
	}
	if session == nil || session.URL == "" {
		return nil, errors.Join(ErrGatewayRequestFailed, errors.New("checkout without payment url"))
	}
	s.logger.DebugContext(ctx, "checkout created",
		logger.InvoiceID(inv.ID),
		logger.Duration(time.Since(started)),
	)
	return session, nil
}

func classifyGatewayError(err error) error {
	if errors.Is(err, ErrGatewayNotConfigured) {
		return errors.Join(ErrBillingNotConfigured, err)
	}
	return errors.Join(ErrProviderUnavailable, err)
}
