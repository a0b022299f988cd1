package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStore defines the interface for subscription persistence.
// Each merchant has exactly one subscription, so MerchantID serves as the primary key.
type SubscriptionStore interface {
	// GetSubscription retrieves a subscription by merchant ID.
	// Returns ErrSubscriptionNotFound if no subscription exists.
	GetSubscription(ctx context.Context, merchantID uuid.UUID) (*Subscription, error)

	// CreateSubscription inserts a new subscription.
	// Returns ErrSubscriptionAlreadyExists if the merchant already has one.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// ListSubscriptions returns every subscription. The job tolerates any order.
	ListSubscriptions(ctx context.Context) ([]*Subscription, error)

	// ApplyTransition writes the status change and the frozen grace deadline
	// in one conditional update. It returns ErrStaleSubscription when the
	// stored status or current period end no longer match the transition.
	ApplyTransition(ctx context.Context, merchantID uuid.UUID, t Transition, at time.Time) error

	// Activate sets the subscription active with the given period end, clears
	// the grace deadline and records paidAt, but only if no payment at or
	// after paidAt was applied before. Reports whether a row changed.
	Activate(ctx context.Context, merchantID uuid.UUID, periodEnd, paidAt time.Time) (bool, error)

	// RecordNotice stores the reminder stage and when it was sent.
	RecordNotice(ctx context.Context, merchantID uuid.UUID, stage NoticeStage, at time.Time) error

	// Reprice changes the plan amount for future invoices.
	Reprice(ctx context.Context, merchantID uuid.UUID, amountCents int64, at time.Time) error
}

// InvoiceStore defines the interface for invoice persistence.
type InvoiceStore interface {
	// FindPendingInvoice returns the merchant's pending invoice or ErrInvoiceNotFound.
	FindPendingInvoice(ctx context.Context, merchantID uuid.UUID) (*Invoice, error)

	// GetInvoice returns ErrInvoiceNotFound for unknown ids.
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// GetInvoiceByReference returns ErrInvoiceNotFound for unknown external references.
	GetInvoiceByReference(ctx context.Context, ref string) (*Invoice, error)

	// CreateInvoice inserts a pending invoice. Returns ErrPendingInvoiceExists when
	// another pending invoice for the merchant won the race.
	CreateInvoice(ctx context.Context, inv *Invoice) error

	// UpdatePaymentURL replaces the link of a pending fallback invoice.
	UpdatePaymentURL(ctx context.Context, id uuid.UUID, url string, at time.Time) error

	// AttachCheckout sets provider, preference id and link on a pending
	// invoice that has no link yet.
	AttachCheckout(ctx context.Context, id uuid.UUID, provider, preferenceID, url string, at time.Time) error

	// MarkPaid flips a pending invoice to paid. Reports false when the
	// invoice was not pending anymore.
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, providerPaymentID string) (bool, error)
}

// OwnerDirectory resolves store ownership, maintained outside billing.
type OwnerDirectory interface {
	// OwnerEmail returns ErrOwnerNotFound when the merchant has no owner
	// with an email address.
	OwnerEmail(ctx context.Context, merchantID uuid.UUID) (string, error)
	IsOwner(ctx context.Context, merchantID, userID uuid.UUID) (bool, error)

	// MerchantSince returns when the merchant's first owner was recorded,
	// or ErrOwnerNotFound for an unknown merchant.
	MerchantSince(ctx context.Context, merchantID uuid.UUID) (time.Time, error)
}

// Locker grants a best-effort exclusive lease across replicas.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}
