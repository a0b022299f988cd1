package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Invoice is a single billing request for a merchant. The amount and currency
// are a snapshot taken at issuance; later re-pricing does not touch them.
type Invoice struct {
	ID                   uuid.UUID
	MerchantID           uuid.UUID
	AmountCents          int64
	Currency             string
	Status               InvoiceStatus
	DueAt                time.Time
	Provider             string
	ExternalReference    string
	ProviderPreferenceID *string // nil for fallback invoices
	PaymentURL           string
	ProviderPaymentID    string
	PaidAt               *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsFallback reports whether the invoice points at the static payment link
// and therefore has to be reconciled by hand.
func (i *Invoice) IsFallback() bool {
	return i.ProviderPreferenceID == nil
}

// IsPending reports whether the invoice still awaits payment.
func (i *Invoice) IsPending() bool {
	return i.Status == InvoiceStatusPending
}

// Mode returns the payment path of the invoice.
func (i *Invoice) Mode() IssueMode {
	if i.IsFallback() {
		return ModeFallback
	}
	return ModeMercadoPago
}

// Amount returns the snapshot price.
func (i *Invoice) Amount() Money {
	return Money{Amount: i.AmountCents, Currency: i.Currency}
}

func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	c := *i
	if i.ProviderPreferenceID != nil {
		v := *i.ProviderPreferenceID
		c.ProviderPreferenceID = &v
	}
	c.PaidAt = cloneTime(i.PaidAt)
	return &c
}

// IssuedInvoice is the result of CurrentInvoice.
type IssuedInvoice struct {
	Invoice *Invoice
	Mode    IssueMode
	Reused  bool
}
