package billing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/subscription"
)

// Route paths served by the module.
const (
	CronPath    = "/cron/billing"
	PayPath     = subscription.BillingPath + "/pay"
	PaymentPath = subscription.BillingPath + "/payment"
	StatusPath  = subscription.BillingPath + "/status"
)

// Module exposes subscription billing over HTTP.
type Module struct {
	cfg          Config
	svc          subscription.Service
	identify     IdentifyFunc
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
	text         pageCopy
}

// Option configures a Module.
type Option func(*Module)

// WithIdentify replaces HeaderIdentity.
func WithIdentify(fn IdentifyFunc) Option {
	return func(m *Module) {
		if fn != nil {
			m.identify = fn
		}
	}
}

// WithLogger sets the module logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.log = l
		}
	}
}

// WithErrorHandler sets the handler for failures rendered as pages.
func WithErrorHandler(h handler.ErrorHandler[handler.Context]) Option {
	return func(m *Module) {
		if h != nil {
			m.errorHandler = h
		}
	}
}

// New creates the billing module. Panics on a nil service. Pages use the
// language closest to the service's notice locale.
func New(cfg Config, svc subscription.Service, opts ...Option) *Module {
	if svc == nil {
		panic("billing: subscription service is required")
	}
	if cfg.QRSize <= 0 {
		cfg.QRSize = 240
	}
	m := &Module{
		cfg:      cfg,
		svc:      svc,
		identify: HeaderIdentity,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.Component("billing_http"))

	tr, err := loadPageTranslator()
	if err != nil {
		panic("billing: page copy: " + err.Error())
	}
	locale := ""
	if n := svc.Notices(); n != nil {
		locale = n.Lang()
	}
	m.text = newPageCopy(tr, locale)

	if m.errorHandler == nil {
		m.errorHandler = handler.NewErrorHandler(m.log, handler.ErrorHandlerConfig{ErrorPage: m.errorPage})
	}
	return m
}

// Handle returns the module router. Mount it at the root: the provider
// callbacks and the cron trigger use absolute paths.
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get(CronPath, m.cron)
	r.Get(subscription.WebhookPath, m.webhook)
	r.Post(subscription.WebhookPath, m.webhook)

	r.Group(func(r chi.Router) {
		r.Use(m.requireOwner)
		r.Get(subscription.BillingPath, handler.Wrap(m.overview, m.wrapOpts()...))
		r.Get(PayPath, handler.Wrap(m.pay, m.wrapOpts()...))
		r.Post(PayPath, handler.Wrap(m.pay, m.wrapOpts()...))
		r.Get(PaymentPath, handler.Wrap(m.payment,
			handler.WithBinders[handler.Context, paymentRequest](bindPaymentRequest),
			handler.WithErrorHandler[handler.Context, paymentRequest](m.errorHandler),
		))
		r.Get(StatusPath, handler.Wrap(m.status, m.wrapOpts()...))
	})

	return r
}

func (m *Module) wrapOpts() []handler.WrapOption[handler.Context, struct{}] {
	return []handler.WrapOption[handler.Context, struct{}]{
		handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler),
	}
}

// Schedule registers the reconciliation job on c. A blank schedule leaves
// triggering to /cron/billing and returns false.
func (m *Module) Schedule(ctx context.Context, c *cron.Cron) (bool, error) {
	if m.cfg.CronSchedule == "" {
		return false, nil
	}
	_, err := c.AddFunc(m.cfg.CronSchedule, func() {
		if _, err := m.svc.Reconcile(context.WithoutCancel(ctx)); err != nil {
			m.log.ErrorContext(ctx, "scheduled billing job failed", logger.Error(err))
		}
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
