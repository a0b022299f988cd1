package subscription_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/clock"
	"github.com/dmitrymomot/storefront/pkg/subscription"
)

var t0 = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

const (
	day         = 24 * time.Hour
	appURL      = "https://shop.example.com"
	fallbackURL = "https://link.mercadopago.com.ar/storefront"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Configured() bool {
	return m.Called().Bool(0)
}

func (m *mockGateway) CreateCheckout(ctx context.Context, req subscription.CheckoutRequest) (*subscription.CheckoutSession, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*subscription.CheckoutSession)
	return session, args.Error(1)
}

func (m *mockGateway) GetPayment(ctx context.Context, id string) (*subscription.Payment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*subscription.Payment)
	return p, args.Error(1)
}

type sentNotice struct {
	To      string
	Subject string
	Body    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotice{To: to, Subject: subject, Body: body})
	return nil
}

func (n *recordingNotifier) failWith(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

func (n *recordingNotifier) Sent() []sentNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotice(nil), n.sent...)
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
}

func (l *fakeLocker) TryAcquire(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
		return nil
	}, true, nil
}

// failingListStore breaks ListSubscriptions only.
type failingListStore struct {
	*subscription.MemoryStore
}

func (failingListStore) ListSubscriptions(context.Context) ([]*subscription.Subscription, error) {
	return nil, errors.New("connection reset")
}

type fixture struct {
	store    *subscription.MemoryStore
	gateway  *mockGateway
	notifier *recordingNotifier
	clock    *clock.Mock
	policy   subscription.Policy
	svc      subscription.Service
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	policy   subscription.Policy
	appURL   string
	opts     []subscription.ServiceOption
	store    subscription.Store
	gateway  *mockGateway
	memStore *subscription.MemoryStore
}

func withFallback(url string) fixtureOption {
	return func(c *fixtureConfig) { c.policy.FallbackPaymentURL = url }
}

func withoutAppURL() fixtureOption {
	return func(c *fixtureConfig) { c.appURL = "" }
}

func withServiceOptions(opts ...subscription.ServiceOption) fixtureOption {
	return func(c *fixtureConfig) { c.opts = append(c.opts, opts...) }
}

func withStoreWrapper(wrap func(*subscription.MemoryStore) subscription.Store) fixtureOption {
	return func(c *fixtureConfig) { c.store = wrap(c.memStore) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	mem := subscription.NewMemoryStore()
	cfg := fixtureConfig{
		policy:   subscription.DefaultPolicy(),
		appURL:   appURL,
		gateway:  &mockGateway{},
		memStore: mem,
		store:    mem,
	}
	for _, o := range opts {
		o(&cfg)
	}

	f := &fixture{
		store:    cfg.memStore,
		gateway:  cfg.gateway,
		notifier: &recordingNotifier{},
		clock:    clock.NewMock(t0),
		policy:   cfg.policy,
	}

	svcOpts := []subscription.ServiceOption{
		subscription.WithPolicy(cfg.policy),
		subscription.WithClock(f.clock),
		subscription.WithAppURL(cfg.appURL),
		subscription.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	svcOpts = append(svcOpts, cfg.opts...)
	f.svc = subscription.NewService(cfg.store, f.gateway, f.store, f.notifier, svcOpts...)
	return f
}

// provision creates a merchant at the current mock time with an owner.
func (f *fixture) provision(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := f.svc.Provision(context.Background(), id, f.clock.Now())
	require.NoError(t, err)
	f.store.AddOwner(id, uuid.New(), "owner+"+id.String()[:8]+"@example.com")
	return id
}

func (f *fixture) sub(t *testing.T, id uuid.UUID) *subscription.Subscription {
	t.Helper()
	s, err := f.store.GetSubscription(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (f *fixture) expectCheckout(prefID string) *mock.Call {
	f.gateway.On("Configured").Return(true).Maybe()
	return f.gateway.On("CreateCheckout", mock.Anything, mock.Anything).
		Return(&subscription.CheckoutSession{PreferenceID: prefID, URL: "https://mp.test/checkout/" + prefID}, nil)
}

func approvedPayment(id, ref string, cents int64, at time.Time) *subscription.Payment {
	return &subscription.Payment{
		ID:                id,
		Status:            subscription.PaymentStatusApproved,
		ExternalReference: ref,
		AmountCents:       cents,
		Currency:          "ARS",
		ApprovedAt:        &at,
	}
}
