package subscription

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps subscriptions, invoices and owners in process memory.
// It honors the same conditional-update contracts as the Postgres store,
// which makes it suitable for tests and single-instance development.
type MemoryStore struct {
	mu       sync.RWMutex
	subs     map[uuid.UUID]*Subscription
	invoices map[uuid.UUID]*Invoice
	owners   map[uuid.UUID][]owner
}

type owner struct {
	userID    uuid.UUID
	email     string
	createdAt time.Time
}

var (
	_ SubscriptionStore = (*MemoryStore)(nil)
	_ InvoiceStore      = (*MemoryStore)(nil)
	_ OwnerDirectory    = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:     make(map[uuid.UUID]*Subscription),
		invoices: make(map[uuid.UUID]*Invoice),
		owners:   make(map[uuid.UUID][]owner),
	}
}

// AddOwner registers userID as an owner of merchantID.
func (m *MemoryStore) AddOwner(merchantID, userID uuid.UUID, email string) {
	m.AddOwnerAt(merchantID, userID, email, time.Now())
}

// AddOwnerAt registers userID as an owner of merchantID recorded at at.
func (m *MemoryStore) AddOwnerAt(merchantID, userID uuid.UUID, email string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[merchantID] = append(m.owners[merchantID], owner{userID: userID, email: email, createdAt: at.UTC()})
}

func (m *MemoryStore) GetSubscription(_ context.Context, merchantID uuid.UUID) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subs[merchantID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return sub.Clone(), nil
}

func (m *MemoryStore) CreateSubscription(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub.MerchantID]; ok {
		return ErrSubscriptionAlreadyExists
	}
	m.subs[sub.MerchantID] = sub.Clone()
	return nil
}

func (m *MemoryStore) ListSubscriptions(_ context.Context) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s.Clone())
	}
	slices.SortFunc(out, func(a, b *Subscription) int {
		return strings.Compare(a.MerchantID.String(), b.MerchantID.String())
	})
	return out, nil
}

func (m *MemoryStore) ApplyTransition(_ context.Context, merchantID uuid.UUID, t Transition, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[merchantID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	if !t.matches(sub) {
		return ErrStaleSubscription
	}
	m.subs[merchantID] = t.Apply(sub, at)
	return nil
}

func (m *MemoryStore) Activate(_ context.Context, merchantID uuid.UUID, periodEnd, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[merchantID]
	if !ok {
		return false, ErrSubscriptionNotFound
	}
	if sub.paymentApplied(paidAt) {
		return false, nil
	}
	sub.Status = StatusActive
	sub.CurrentPeriodEnd = timePtr(periodEnd)
	sub.GraceUntil = nil
	sub.LastPaymentAt = timePtr(paidAt)
	sub.UpdatedAt = paidAt
	return true, nil
}

func (m *MemoryStore) RecordNotice(_ context.Context, merchantID uuid.UUID, stage NoticeStage, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[merchantID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	sub.LastNoticeStage = stage
	sub.LastNoticeAt = timePtr(at)
	sub.UpdatedAt = at
	return nil
}

func (m *MemoryStore) Reprice(_ context.Context, merchantID uuid.UUID, amountCents int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[merchantID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	sub.PlanAmountCents = amountCents
	sub.UpdatedAt = at
	return nil
}

func (m *MemoryStore) FindPendingInvoice(_ context.Context, merchantID uuid.UUID) (*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.invoices {
		if inv.MerchantID == merchantID && inv.IsPending() {
			return inv.Clone(), nil
		}
	}
	return nil, ErrInvoiceNotFound
}

func (m *MemoryStore) GetInvoice(_ context.Context, id uuid.UUID) (*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return inv.Clone(), nil
}

func (m *MemoryStore) GetInvoiceByReference(_ context.Context, ref string) (*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.invoices {
		if inv.ExternalReference == ref {
			return inv.Clone(), nil
		}
	}
	return nil, ErrInvoiceNotFound
}

// ListInvoices returns every invoice of merchantID, oldest first.
func (m *MemoryStore) ListInvoices(merchantID uuid.UUID) []*Invoice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Invoice
	for _, inv := range m.invoices {
		if inv.MerchantID == merchantID {
			out = append(out, inv.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *Invoice) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

func (m *MemoryStore) CreateInvoice(_ context.Context, inv *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.invoices {
		if existing.MerchantID == inv.MerchantID && existing.IsPending() {
			return ErrPendingInvoiceExists
		}
	}
	m.invoices[inv.ID] = inv.Clone()
	return nil
}

func (m *MemoryStore) UpdatePaymentURL(_ context.Context, id uuid.UUID, url string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || !inv.IsPending() {
		return ErrInvoiceNotFound
	}
	inv.PaymentURL = url
	inv.UpdatedAt = at
	return nil
}

func (m *MemoryStore) AttachCheckout(_ context.Context, id uuid.UUID, provider, preferenceID, url string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || !inv.IsPending() || inv.PaymentURL != "" {
		return ErrInvoiceNotFound
	}
	inv.Provider = provider
	if preferenceID != "" {
		inv.ProviderPreferenceID = &preferenceID
	}
	inv.PaymentURL = url
	inv.UpdatedAt = at
	return nil
}

func (m *MemoryStore) MarkPaid(_ context.Context, id uuid.UUID, paidAt time.Time, providerPaymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return false, ErrInvoiceNotFound
	}
	if !inv.IsPending() {
		return false, nil
	}
	inv.Status = InvoiceStatusPaid
	inv.PaidAt = timePtr(paidAt)
	inv.ProviderPaymentID = providerPaymentID
	inv.UpdatedAt = paidAt
	return true, nil
}

func (m *MemoryStore) OwnerEmail(_ context.Context, merchantID uuid.UUID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.owners[merchantID] {
		if o.email != "" {
			return o.email, nil
		}
	}
	return "", ErrOwnerNotFound
}

func (m *MemoryStore) IsOwner(_ context.Context, merchantID, userID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.owners[merchantID] {
		if o.userID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) MerchantSince(_ context.Context, merchantID uuid.UUID) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owners := m.owners[merchantID]
	if len(owners) == 0 {
		return time.Time{}, ErrOwnerNotFound
	}
	since := owners[0].createdAt
	for _, o := range owners[1:] {
		if o.createdAt.Before(since) {
			since = o.createdAt
		}
	}
	return since, nil
}
