package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/storefront/pkg/pg"
)

const pendingInvoiceIndex = "billing_invoices_one_pending_idx"

// PostgresStore persists billing state in the tables created by the
// 00001_billing migration. Every state change is a single conditional
// UPDATE, so concurrent writers never need explicit transactions.
type PostgresStore struct {
	db pg.DB
}

var (
	_ Store          = (*PostgresStore)(nil)
	_ OwnerDirectory = (*PostgresStore)(nil)
)

// NewPostgresStore accepts a pool or a transaction.
func NewPostgresStore(db pg.DB) *PostgresStore {
	if db == nil {
		panic("subscription: db is required")
	}
	return &PostgresStore{db: db}
}

const subscriptionColumns = `merchant_id, status, trial_ends_at, current_period_end, grace_until,
	plan_amount_cents, currency, last_payment_at, last_notice_stage, last_notice_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub    Subscription
		status string
		stage  *string
	)
	err := row.Scan(
		&sub.MerchantID,
		&status,
		&sub.TrialEndsAt,
		&sub.CurrentPeriodEnd,
		&sub.GraceUntil,
		&sub.PlanAmountCents,
		&sub.Currency,
		&sub.LastPaymentAt,
		&stage,
		&sub.LastNoticeAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Status = Status(status)
	if stage != nil {
		sub.LastNoticeStage = NoticeStage(*stage)
	}
	return &sub, nil
}

func (p *PostgresStore) GetSubscription(ctx context.Context, merchantID uuid.UUID) (*Subscription, error) {
	sub, err := scanSubscription(p.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM merchant_subscriptions WHERE merchant_id = $1`, merchantID))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (p *PostgresStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	tag, err := p.db.Exec(ctx, `
		INSERT INTO merchant_subscriptions (
			merchant_id, status, trial_ends_at, current_period_end, grace_until,
			plan_amount_cents, currency, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (merchant_id) DO NOTHING`,
		sub.MerchantID,
		string(sub.Status),
		sub.TrialEndsAt,
		sub.CurrentPeriodEnd,
		sub.GraceUntil,
		sub.PlanAmountCents,
		sub.Currency,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionAlreadyExists
	}
	return nil
}

func (p *PostgresStore) ListSubscriptions(ctx context.Context) ([]*Subscription, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM merchant_subscriptions ORDER BY merchant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ApplyTransition(ctx context.Context, merchantID uuid.UUID, t Transition, at time.Time) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE merchant_subscriptions
		SET status = $2,
		    grace_until = COALESCE($3::timestamptz, grace_until),
		    updated_at = $4
		WHERE merchant_id = $1
		  AND status = $5
		  AND current_period_end IS NOT DISTINCT FROM $6::timestamptz`,
		merchantID,
		string(t.To),
		t.GraceUntil,
		at,
		string(t.From),
		t.ExpectedCurrentPeriodEnd,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if err := p.subscriptionExists(ctx, merchantID); err != nil {
			return err
		}
		return ErrStaleSubscription
	}
	return nil
}

func (p *PostgresStore) Activate(ctx context.Context, merchantID uuid.UUID, periodEnd, paidAt time.Time) (bool, error) {
	tag, err := p.db.Exec(ctx, `
		UPDATE merchant_subscriptions
		SET status = 'active',
		    current_period_end = $2,
		    grace_until = NULL,
		    last_payment_at = $3,
		    updated_at = now()
		WHERE merchant_id = $1
		  AND (last_payment_at IS NULL OR last_payment_at < $3)`,
		merchantID, periodEnd, paidAt,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, p.subscriptionExists(ctx, merchantID)
	}
	return true, nil
}

func (p *PostgresStore) RecordNotice(ctx context.Context, merchantID uuid.UUID, stage NoticeStage, at time.Time) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE merchant_subscriptions
		SET last_notice_stage = $2, last_notice_at = $3, updated_at = $3
		WHERE merchant_id = $1`,
		merchantID, string(stage), at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (p *PostgresStore) Reprice(ctx context.Context, merchantID uuid.UUID, amountCents int64, at time.Time) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE merchant_subscriptions
		SET plan_amount_cents = $2, updated_at = $3
		WHERE merchant_id = $1`,
		merchantID, amountCents, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (p *PostgresStore) subscriptionExists(ctx context.Context, merchantID uuid.UUID) error {
	var exists bool
	if err := p.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM merchant_subscriptions WHERE merchant_id = $1)`, merchantID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrSubscriptionNotFound
	}
	return nil
}

const invoiceColumns = `id, merchant_id, amount_cents, currency, status, due_at, provider, external_reference,
	provider_preference_id, payment_url, provider_payment_id, paid_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var (
		inv       Invoice
		status    string
		link      *string
		paymentID *string
	)
	err := row.Scan(
		&inv.ID,
		&inv.MerchantID,
		&inv.AmountCents,
		&inv.Currency,
		&status,
		&inv.DueAt,
		&inv.Provider,
		&inv.ExternalReference,
		&inv.ProviderPreferenceID,
		&link,
		&paymentID,
		&inv.PaidAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	inv.Status = InvoiceStatus(status)
	if link != nil {
		inv.PaymentURL = *link
	}
	if paymentID != nil {
		inv.ProviderPaymentID = *paymentID
	}
	return &inv, nil
}

func (p *PostgresStore) FindPendingInvoice(ctx context.Context, merchantID uuid.UUID) (*Invoice, error) {
	return scanInvoice(p.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM billing_invoices WHERE merchant_id = $1 AND status = 'pending'`, merchantID))
}

func (p *PostgresStore) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(p.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM billing_invoices WHERE id = $1`, id))
}

func (p *PostgresStore) GetInvoiceByReference(ctx context.Context, ref string) (*Invoice, error) {
	return scanInvoice(p.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM billing_invoices WHERE external_reference = $1`, ref))
}

func (p *PostgresStore) CreateInvoice(ctx context.Context, inv *Invoice) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO billing_invoices (
			id, merchant_id, amount_cents, currency, status, due_at, provider,
			external_reference, provider_preference_id, payment_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12)`,
		inv.ID,
		inv.MerchantID,
		inv.AmountCents,
		inv.Currency,
		string(inv.Status),
		inv.DueAt,
		inv.Provider,
		inv.ExternalReference,
		inv.ProviderPreferenceID,
		inv.PaymentURL,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case pg.IsDuplicateKeyError(err) && pg.ConstraintName(err) == pendingInvoiceIndex:
		return ErrPendingInvoiceExists
	case pg.IsForeignKeyViolationError(err):
		return errors.Join(ErrSubscriptionNotFound, err)
	default:
		return err
	}
}

func (p *PostgresStore) UpdatePaymentURL(ctx context.Context, id uuid.UUID, url string, at time.Time) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE billing_invoices
		SET payment_url = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending' AND provider_preference_id IS NULL`,
		id, url, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (p *PostgresStore) AttachCheckout(ctx context.Context, id uuid.UUID, provider, preferenceID, url string, at time.Time) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE billing_invoices
		SET provider = $2,
		    provider_preference_id = NULLIF($3, ''),
		    payment_url = $4,
		    updated_at = $5
		WHERE id = $1 AND status = 'pending' AND COALESCE(payment_url, '') = ''`,
		id, provider, preferenceID, url, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (p *PostgresStore) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, providerPaymentID string) (bool, error) {
	tag, err := p.db.Exec(ctx, `
		UPDATE billing_invoices
		SET status = 'paid',
		    paid_at = $2,
		    provider_payment_id = NULLIF($3, ''),
		    updated_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id, paidAt, providerPaymentID,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := p.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM billing_invoices WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrInvoiceNotFound
	}
	return false, nil
}

func (p *PostgresStore) OwnerEmail(ctx context.Context, merchantID uuid.UUID) (string, error) {
	var email string
	err := p.db.QueryRow(ctx, `
		SELECT email FROM merchant_owners
		WHERE merchant_id = $1 AND email <> ''
		ORDER BY created_at
		LIMIT 1`, merchantID,
	).Scan(&email)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return "", ErrOwnerNotFound
		}
		return "", err
	}
	return email, nil
}

func (p *PostgresStore) IsOwner(ctx context.Context, merchantID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := p.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM merchant_owners WHERE merchant_id = $1 AND user_id = $2)`,
		merchantID, userID,
	).Scan(&ok)
	return ok, err
}

func (p *PostgresStore) MerchantSince(ctx context.Context, merchantID uuid.UUID) (time.Time, error) {
	var since *time.Time
	err := p.db.QueryRow(ctx,
		`SELECT min(created_at) FROM merchant_owners WHERE merchant_id = $1`,
		merchantID,
	).Scan(&since)
	if err != nil {
		return time.Time{}, err
	}
	if since == nil {
		return time.Time{}, ErrOwnerNotFound
	}
	return since.UTC(), nil
}
