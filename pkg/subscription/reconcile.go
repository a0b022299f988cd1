package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Outcome classifies how a payment notification was handled.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"   // invoice paid and subscription extended now
	OutcomeReapplied Outcome = "reapplied" // invoice was paid earlier, activation was missing
	OutcomeDuplicate Outcome = "duplicate" // nothing left to do
	OutcomeIgnored   Outcome = "ignored"
)

// Reasons for OutcomeIgnored.
const (
	ReasonNotPaymentTopic    = "not_payment_topic"
	ReasonMissingPaymentID   = "missing_payment_id"
	ReasonPaymentNotFound    = "payment_not_found"
	ReasonNotApproved        = "not_approved"
	ReasonMissingReference   = "missing_external_reference"
	ReasonInvoiceNotFound    = "invoice_not_found"
	ReasonSubscriptionAbsent = "subscription_not_found"
)

// ReconcileResult describes what a notification did.
type ReconcileResult struct {
	Outcome    Outcome
	Reason     string
	PaymentID  string
	InvoiceID  uuid.UUID
	MerchantID uuid.UUID
}

func ignored(reason, paymentID string) *ReconcileResult {
	return &ReconcileResult{Outcome: OutcomeIgnored, Reason: reason, PaymentID: paymentID}
}

// HandlePaymentNotification reconciles one provider callback. The body is
// never trusted: the payment is re-fetched and only an approved payment with
// a known external reference has any effect. Safe under duplicate,
// concurrent and out-of-order delivery.
//
// The only error callers must surface is ErrGatewayNotConfigured; every
// other outcome is acknowledged.
func (s *service) HandlePaymentNotification(ctx context.Context, n Notification) (*ReconcileResult, error) {
	res, err := s.reconcilePayment(ctx, n)
	if err != nil {
		s.metrics.webhook("error")
		s.logger.ErrorContext(ctx, "payment notification failed",
			logger.PaymentID(n.PaymentID),
			logger.Error(err),
		)
		return nil, err
	}

	s.metrics.webhook(res.Outcome)
	attrs := []any{
		logger.PaymentID(res.PaymentID),
		slog.String("outcome", string(res.Outcome)),
	}
	if res.Reason != "" {
		attrs = append(attrs, slog.String("reason", res.Reason))
	}
	if res.MerchantID != uuid.Nil {
		attrs = append(attrs, logger.MerchantID(res.MerchantID), logger.InvoiceID(res.InvoiceID))
	}
	s.logger.InfoContext(ctx, "payment notification handled", attrs...)
	return res, nil
}

func (s *service) reconcilePayment(ctx context.Context, n Notification) (*ReconcileResult, error) {
	if !n.IsPayment() {
		return ignored(ReasonNotPaymentTopic, n.PaymentID), nil
	}
	if n.PaymentID == "" {
		return ignored(ReasonMissingPaymentID, ""), nil
	}
	if !s.gateway.Configured() {
		return nil, ErrGatewayNotConfigured
	}

	payment, err := s.gateway.GetPayment(ctx, n.PaymentID)
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		return ignored(ReasonPaymentNotFound, n.PaymentID), nil
	case err != nil:
		return nil, err
	}
	if !payment.Approved() {
		return ignored(ReasonNotApproved, n.PaymentID), nil
	}
	if payment.ExternalReference == "" {
		return ignored(ReasonMissingReference, n.PaymentID), nil
	}

	inv, err := s.store.GetInvoiceByReference(ctx, payment.ExternalReference)
	switch {
	case errors.Is(err, ErrInvoiceNotFound):
		return ignored(ReasonInvoiceNotFound, n.PaymentID), nil
	case err != nil:
		return nil, err
	}

	res := &ReconcileResult{
		PaymentID:  n.PaymentID,
		InvoiceID:  inv.ID,
		MerchantID: inv.MerchantID,
	}
	s.checkAmount(ctx, inv, payment)

	approvedAt := s.clock.Now()
	if payment.ApprovedAt != nil && !payment.ApprovedAt.IsZero() {
		approvedAt = payment.ApprovedAt.UTC()
	}

	if inv.IsPending() {
		marked, err := s.store.MarkPaid(ctx, inv.ID, approvedAt, payment.ID)
		if err != nil {
			return nil, err
		}
		if marked {
			if _, err := s.activate(ctx, inv.MerchantID, approvedAt); err != nil {
				// the invoice is paid; a redelivery takes the re-apply path
				return nil, err
			}
			res.Outcome = OutcomeApplied
			return res, nil
		}
		// lost the race to a concurrent delivery
		if inv, err = s.store.GetInvoice(ctx, inv.ID); err != nil {
			return nil, err
		}
	}

	paidAt := approvedAt
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	activated, err := s.activate(ctx, inv.MerchantID, paidAt)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		res.Outcome, res.Reason = OutcomeIgnored, ReasonSubscriptionAbsent
		return res, nil
	case err != nil:
		return nil, err
	}
	if activated {
		res.Outcome = OutcomeReapplied
	} else {
		res.Outcome = OutcomeDuplicate
	}
	return res, nil
}

// activate extends the subscription one period from paidAt. It is a no-op
// when a payment at or after paidAt was already applied.
func (s *service) activate(ctx context.Context, merchantID uuid.UUID, paidAt time.Time) (bool, error) {
	periodEnd := paidAt.Add(s.policy.PeriodLength)
	ok, err := s.store.Activate(ctx, merchantID, periodEnd, paidAt)
	if err != nil {
		return false, err
	}
	if ok {
		s.metrics.transition("payment", StatusActive)
		s.logger.InfoContext(ctx, "subscription activated",
			logger.MerchantID(merchantID),
			slog.Time("current_period_end", periodEnd),
		)
	}
	return ok, nil
}

// checkAmount warns when the provider charged something other than the
// invoice snapshot. The payment still counts.
func (s *service) checkAmount(ctx context.Context, inv *Invoice, p *Payment) {
	if p.AmountCents == inv.AmountCents {
		return
	}
	s.metrics.amountMismatch()
	s.logger.WarnContext(ctx, "payment amount differs from invoice",
		logger.InvoiceID(inv.ID),
		logger.PaymentID(p.ID),
		slog.Int64("expected_cents", inv.AmountCents),
		slog.Int64("paid_cents", p.AmountCents),
		slog.String("currency", p.Currency),
	)
}
