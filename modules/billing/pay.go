package billing

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/qrcode"
	"github.com/dmitrymomot/storefront/pkg/subscription"
)

// serviceError hides lookup misses behind a plain 404.
func serviceError(err error) error {
	if errors.Is(err, subscription.ErrSubscriptionNotFound) || errors.Is(err, subscription.ErrInvoiceNotFound) {
		return handler.ErrNotFound
	}
	return err
}

// caller returns the identity stored by requireOwner.
func caller(ctx handler.Context) Identity {
	id, _ := IdentityFromContext(ctx)
	return id
}

// pay issues or reuses the merchant's pending invoice and sends the owner
// to its payment page. Failures go back to the billing page with a code.
func (m *Module) pay(ctx handler.Context, _ struct{}) handler.Response {
	id := caller(ctx)

	issued, err := m.svc.CurrentInvoice(ctx, id.MerchantID)
	if err != nil {
		code := subscription.ErrorCode(err)
		m.log.WarnContext(ctx, "invoice issuance failed",
			logger.MerchantID(id.MerchantID),
			logger.Error(err),
			"code", code,
		)
		return handler.Redirect(subscription.BillingPath + "?error=" + url.QueryEscape(code))
	}

	q := url.Values{}
	q.Set("invoice", issued.Invoice.ID.String())
	q.Set("mode", string(issued.Mode))
	return handler.Redirect(PaymentPath + "?" + q.Encode())
}

type paymentRequest struct {
	InvoiceID uuid.UUID
}

func bindPaymentRequest(r *http.Request, v any) error {
	req, ok := v.(*paymentRequest)
	if !ok {
		return handler.ErrBinderNotApplicable
	}
	id, err := uuid.Parse(r.URL.Query().Get("invoice"))
	if err != nil {
		return handler.ErrBadRequest
	}
	req.InvoiceID = id
	return nil
}

// payment renders the checkout link of one of the merchant's invoices.
func (m *Module) payment(ctx handler.Context, req paymentRequest) handler.Response {
	id := caller(ctx)

	inv, err := m.svc.GetInvoice(ctx, id.MerchantID, req.InvoiceID)
	if err != nil {
		return handler.Error(serviceError(err))
	}

	notices := m.svc.Notices()
	data := paymentPageData{
		pageCopy: m.text,
		Amount:   notices.FormatMoney(inv.Amount()),
		DueDate:  notices.FormatDate(inv.DueAt),
		Paid:     !inv.IsPending(),
		Fallback: inv.IsFallback(),
		Link:     inv.PaymentURL,
	}
	if inv.IsPending() && inv.PaymentURL != "" {
		qr, err := qrcode.DataURI(inv.PaymentURL, m.cfg.QRSize)
		if err != nil {
			m.log.WarnContext(ctx, "qr code generation failed",
				logger.InvoiceID(inv.ID),
				logger.Error(err),
			)
		} else {
			data.QR = template.URL(qr)
		}
	}
	return handler.Templ(page(paymentTemplate, data))
}

// overview renders the billing page with the subscription state.
func (m *Module) overview(ctx handler.Context, _ struct{}) handler.Response {
	id := caller(ctx)

	acc, err := m.svc.Access(ctx, id.MerchantID)
	if err != nil {
		return handler.Error(serviceError(err))
	}
	sub, err := m.svc.GetSubscription(ctx, id.MerchantID)
	if err != nil {
		return handler.Error(serviceError(err))
	}

	notices := m.svc.Notices()
	c := m.text
	data := overviewPageData{
		pageCopy:  c,
		Status:    c.Statuses[acc.Status],
		Allowed:   acc.Allowed,
		InGrace:   acc.InGrace,
		Price:     notices.FormatMoney(sub.Price()),
		PeriodEnd: notices.FormatDate(currentDeadline(acc)),
		Error:     c.Errors[ctx.Request().URL.Query().Get("error")],
		PayPath:   PayPath,
	}
	if acc.InGrace {
		data.GraceUntil = notices.FormatDate(acc.Boundaries.GraceUntil)
	}
	return handler.Templ(page(overviewTemplate, data))
}

// currentDeadline is the date the merchant has to pay by.
func currentDeadline(acc *subscription.Access) time.Time {
	if acc.Status == subscription.StatusTrialing {
		return acc.Boundaries.TrialEnd
	}
	return acc.Boundaries.PeriodEnd
}

type statusResponse struct {
	OK         bool                `json:"ok"`
	Status     subscription.Status `json:"status"`
	Allowed    bool                `json:"allowed"`
	InGrace    bool                `json:"inGrace"`
	TrialEnd   time.Time           `json:"trialEnd"`
	PeriodEnd  time.Time           `json:"periodEnd"`
	GraceUntil time.Time           `json:"graceUntil"`
	Invoice    *invoiceView        `json:"invoice,omitempty"`
}

type invoiceView struct {
	ID          uuid.UUID              `json:"id"`
	AmountCents int64                  `json:"amountCents"`
	Currency    string                 `json:"currency"`
	DueAt       time.Time              `json:"dueAt"`
	Mode        subscription.IssueMode `json:"mode"`
	PaymentURL  string                 `json:"paymentUrl"`
}

// status reports the entitlement and the pending invoice as JSON.
func (m *Module) status(ctx handler.Context, _ struct{}) handler.Response {
	id := caller(ctx)

	acc, err := m.svc.Access(ctx, id.MerchantID)
	if err != nil {
		return handler.Error(serviceError(err))
	}

	resp := statusResponse{
		OK:         true,
		Status:     acc.Status,
		Allowed:    acc.Allowed,
		InGrace:    acc.InGrace,
		TrialEnd:   acc.Boundaries.TrialEnd,
		PeriodEnd:  acc.Boundaries.PeriodEnd,
		GraceUntil: acc.Boundaries.GraceUntil,
	}

	inv, err := m.svc.PendingInvoice(ctx, id.MerchantID)
	switch {
	case errors.Is(err, subscription.ErrInvoiceNotFound):
	case err != nil:
		m.log.ErrorContext(ctx, "pending invoice lookup failed",
			logger.MerchantID(id.MerchantID),
			logger.Error(err),
		)
		return handler.Error(err)
	default:
		resp.Invoice = &invoiceView{
			ID:          inv.ID,
			AmountCents: inv.AmountCents,
			Currency:    inv.Currency,
			DueAt:       inv.DueAt,
			Mode:        inv.Mode(),
			PaymentURL:  inv.PaymentURL,
		}
	}
	return handler.JSON(resp)
}
