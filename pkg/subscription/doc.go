// Package subscription implements the billing lifecycle of a storefront
// merchant: the subscription status state machine, invoice issuance with a
// static-link fallback, idempotent reconciliation of payment notifications
// and the periodic job that advances statuses and sends due-date reminders.
//
// The product has exactly one recurring plan. Refunds, proration, plan
// changes and multi-currency pricing are out of scope.
//
// # Architecture
//
//   - Service: entry point for HTTP handlers and the scheduler
//   - Policy: trial, grace and period lengths, plan price, fallback link
//   - Evaluate: pure status evaluation, no I/O
//   - SubscriptionStore, InvoiceStore: persistence with conditional updates
//   - PaymentGateway: hosted checkout and payment lookup (MercadoPago)
//   - OwnerDirectory, Notifier: external collaborators for reminders
//
// PostgresStore and MemoryStore implement both stores and OwnerDirectory.
// MercadoPagoGateway adapts pkg/mercadopago. EmailNotifier adapts pkg/email.
//
// # Status machine
//
// Status is computed from the clock rather than driven by events:
//
//	trialing --(grace over)--------------> suspended
//	active ---(period over)--> past_due --(grace over)--> suspended
//	any -----(approved payment)----------> active
//
// Boundaries default lazily: trial end is created_at plus the trial length,
// the period end defaults to the trial end and the grace deadline to the
// period end plus the grace length. Suspension freezes the grace deadline.
// Every write is a compare-and-swap on the stored status and period end,
// so a stale evaluation simply loses and is retried on the next pass.
//
// # Invoices
//
// A merchant has at most one pending invoice. CurrentInvoice reuses it when
// it has a link and otherwise opens a provider checkout, tagging it with the
// invoice id as external reference. When the provider is unreachable or
// unconfigured and BILLING_FALLBACK_PAYMENT_URL is set, the invoice points
// at that link and is settled by hand. Concurrent clicks collapse through
// singleflight; concurrent replicas collide on a partial unique index and
// re-read the winner.
//
// # Payment notifications
//
// ParseNotification accepts both callback shapes and string or numeric ids.
// HandlePaymentNotification never trusts the body: it fetches the payment, and
// only an approved payment whose external reference matches an invoice has an
// effect. Marking the invoice paid is a pending-to-paid CAS; activation only
// applies when the recorded last payment is older than this one. A crash
// between the two writes heals on redelivery.
//
// # Reconciliation job
//
// Reconcile walks every subscription with bounded concurrency, applies due
// transitions and sends the due_in_3, due_in_1 and due_today reminders. A
// stage already sent within the dedup window (20h by default) is skipped,
// and a stage is recorded only after the notifier accepted it. With a Locker
// configured, overlapping runs from several replicas are skipped.
//
// # Quick Start
//
//	cfg := config.MustLoad[subscription.Config]()
//	store := subscription.NewPostgresStore(pool)
//	gateway := subscription.NewMercadoPagoGateway(mercadopago.NewClient(mpCfg))
//	svc := subscription.NewService(store, gateway, store,
//		subscription.NewEmailNotifier(sender),
//		subscription.WithPolicy(cfg.Policy()),
//		subscription.WithAppURL(appURL),
//		subscription.WithNotices(subscription.MustLoadNotices(cfg.Locale)),
//	)
//
//	issued, err := svc.CurrentInvoice(ctx, merchantID)
//	if err != nil {
//		code := subscription.ErrorCode(err) // missing_billing_env, ...
//	}
package subscription
