package subscription

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/storefront/pkg/clock"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Paths the provider redirects and posts back to, relative to the app URL.
const (
	BillingPath = "/billing"
	WebhookPath = "/webhooks/mercadopago"
)

// Service defines the public interface for subscription billing.
type Service interface {
	// Lifecycle
	Provision(ctx context.Context, merchantID uuid.UUID, createdAt time.Time) (*Subscription, error)
	Access(ctx context.Context, merchantID uuid.UUID) (*Access, error)
	Reprice(ctx context.Context, merchantID uuid.UUID, amountCents int64) error
	GetSubscription(ctx context.Context, merchantID uuid.UUID) (*Subscription, error)
	IsOwner(ctx context.Context, merchantID, userID uuid.UUID) (bool, error)

	// Invoices
	CurrentInvoice(ctx context.Context, merchantID uuid.UUID) (*IssuedInvoice, error)
	PendingInvoice(ctx context.Context, merchantID uuid.UUID) (*Invoice, error)
	GetInvoice(ctx context.Context, merchantID, invoiceID uuid.UUID) (*Invoice, error)

	// Reconciliation
	HandlePaymentNotification(ctx context.Context, n Notification) (*ReconcileResult, error)
	Reconcile(ctx context.Context) (*JobSummary, error)

	Policy() Policy
	Notices() *Notices
}

// Store is the persistence the service needs. The Postgres and in-memory
// stores implement both halves.
type Store interface {
	SubscriptionStore
	InvoiceStore
}

type service struct {
	store    Store
	gateway  PaymentGateway
	owners   OwnerDirectory
	notifier Notifier

	policy  Policy
	clock   clock.Clock
	logger  *slog.Logger
	metrics *Metrics
	notices *Notices
	appURL  string

	locker         Locker
	lockTTL        time.Duration
	jobConcurrency int

	issuing singleflight.Group
}

// NewService creates a new Service with the given dependencies.
// Panics if a required dependency is nil to fail fast during initialization.
func NewService(store Store, gateway PaymentGateway, owners OwnerDirectory, notifier Notifier, opts ...ServiceOption) Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if gateway == nil {
		panic("subscription: PaymentGateway is required")
	}
	if owners == nil {
		panic("subscription: OwnerDirectory is required")
	}
	if notifier == nil {
		panic("subscription: Notifier is required")
	}

	s := &service{
		store:          store,
		gateway:        gateway,
		owners:         owners,
		notifier:       notifier,
		policy:         DefaultPolicy(),
		clock:          clock.System(),
		logger:         slog.Default(),
		lockTTL:        defaultJobLockTTL,
		jobConcurrency: defaultJobConcurrency,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.notices == nil {
		s.notices = MustLoadNotices(DefaultLocale)
	}
	s.logger = s.logger.With(logger.Component("billing"))

	return s
}

func (s *service) Policy() Policy {
	return s.policy
}

func (s *service) Notices() *Notices {
	return s.notices
}

// Provision creates the trialing subscription of a new merchant. Calling it
// again for the same merchant returns the stored row unchanged.
func (s *service) Provision(ctx context.Context, merchantID uuid.UUID, createdAt time.Time) (*Subscription, error) {
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}
	createdAt = createdAt.UTC()

	sub := &Subscription{
		MerchantID:      merchantID,
		Status:          StatusTrialing,
		TrialEndsAt:     timePtr(createdAt.Add(s.policy.TrialLength)),
		PlanAmountCents: s.policy.PlanAmountCents,
		Currency:        s.policy.Currency,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	err := s.store.CreateSubscription(ctx, sub)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "subscription provisioned",
			logger.MerchantID(merchantID),
			slog.Time("trial_ends_at", *sub.TrialEndsAt),
		)
		return sub.Clone(), nil
	case errors.Is(err, ErrSubscriptionAlreadyExists):
		return s.store.GetSubscription(ctx, merchantID)
	default:
		return nil, err
	}
}

func (s *service) GetSubscription(ctx context.Context, merchantID uuid.UUID) (*Subscription, error) {
	return s.loadSubscription(ctx, merchantID)
}

// loadSubscription returns the merchant's subscription. A merchant with an
// owner but no row yet gets its trial provisioned from the first ownership
// record, so tenant creation needs no billing call.
func (s *service) loadSubscription(ctx context.Context, merchantID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, merchantID)
	if !errors.Is(err, ErrSubscriptionNotFound) {
		return sub, err
	}

	since, ownerErr := s.owners.MerchantSince(ctx, merchantID)
	switch {
	case errors.Is(ownerErr, ErrOwnerNotFound):
		return nil, err
	case ownerErr != nil:
		return nil, ownerErr
	}
	return s.Provision(ctx, merchantID, since)
}

// Access evaluates the subscription now, persists a due transition and
// reports whether the merchant may use the product.
func (s *service) Access(ctx context.Context, merchantID uuid.UUID) (*Access, error) {
	sub, err := s.loadSubscription(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sub, _, err = s.advance(ctx, sub, now)
	if err != nil {
		return nil, err
	}

	b := s.policy.Boundaries(sub)
	return &Access{
		Status:     sub.Status,
		Allowed:    sub.Status != StatusSuspended,
		InGrace:    sub.Status != StatusSuspended && !now.Before(b.PeriodEnd) && now.Before(b.GraceUntil),
		Boundaries: b,
		CheckedAt:  now,
	}, nil
}

// advance evaluates sub at now and writes the transition if one is due. It
// returns the subscription as it stands afterwards. A lost compare-and-swap
// re-reads and re-evaluates without writing; the next pass retries.
func (s *service) advance(ctx context.Context, sub *Subscription, now time.Time) (*Subscription, Transition, error) {
	t := Evaluate(sub, s.policy, now)
	if !t.Changed() {
		return sub, t, nil
	}

	err := s.store.ApplyTransition(ctx, sub.MerchantID, t, now)
	switch {
	case err == nil:
		s.metrics.transition(t.From, t.To)
		s.logger.InfoContext(ctx, "subscription status changed",
			logger.MerchantID(sub.MerchantID),
			logger.Transition(string(t.From), string(t.To)),
		)
		return t.Apply(sub, now), t, nil
	case errors.Is(err, ErrStaleSubscription):
		s.logger.DebugContext(ctx, "subscription changed concurrently, skipping write",
			logger.MerchantID(sub.MerchantID),
		)
		fresh, err := s.store.GetSubscription(ctx, sub.MerchantID)
		if err != nil {
			return nil, Transition{}, err
		}
		return Evaluate(fresh, s.policy, now).Apply(fresh, now), Transition{From: fresh.Status, To: fresh.Status}, nil
	default:
		return nil, Transition{}, err
	}
}

// Reprice changes the plan price for future invoices. Outstanding invoices
// keep their snapshot.
func (s *service) Reprice(ctx context.Context, merchantID uuid.UUID, amountCents int64) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	if err := s.store.Reprice(ctx, merchantID, amountCents, s.clock.Now()); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "subscription repriced",
		logger.MerchantID(merchantID),
		slog.Int64("amount_cents", amountCents),
	)
	return nil
}

func (s *service) IsOwner(ctx context.Context, merchantID, userID uuid.UUID) (bool, error) {
	return s.owners.IsOwner(ctx, merchantID, userID)
}

// PendingInvoice returns the merchant's outstanding invoice without issuing
// one. Returns ErrInvoiceNotFound when there is none.
func (s *service) PendingInvoice(ctx context.Context, merchantID uuid.UUID) (*Invoice, error) {
	return s.store.FindPendingInvoice(ctx, merchantID)
}

// GetInvoice returns an invoice only if it belongs to merchantID.
func (s *service) GetInvoice(ctx context.Context, merchantID, invoiceID uuid.UUID) (*Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.MerchantID != merchantID {
		return nil, ErrInvoiceNotFound
	}
	return inv, nil
}

// callbackURL joins the app URL with path and an optional query.
func (s *service) callbackURL(path, query string) string {
	u := s.appURL + path
	if query != "" {
		u += "?" + query
	}
	return u
}

func normalizeAppURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.TrimRight(u.String(), "/")
}
