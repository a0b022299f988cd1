package subscription

import (
	"strings"
	"time"
)

const day = 24 * time.Hour

// Config holds the billing policy knobs read from the environment.
type Config struct {
	TrialDays          int           `env:"BILLING_TRIAL_DAYS" envDefault:"30"`
	GraceDays          int           `env:"BILLING_GRACE_DAYS" envDefault:"7"`
	PeriodDays         int           `env:"BILLING_PERIOD_DAYS" envDefault:"30"`
	PlanAmountCents    int64         `env:"BILLING_PLAN_AMOUNT_CENTS" envDefault:"1500000"`
	Currency           string        `env:"BILLING_CURRENCY" envDefault:"ARS"`
	PlanTitle          string        `env:"BILLING_PLAN_TITLE" envDefault:"Storefront subscription"`
	FallbackPaymentURL string        `env:"BILLING_FALLBACK_PAYMENT_URL"`
	NoticeDedupWindow  time.Duration `env:"BILLING_NOTICE_DEDUP_WINDOW" envDefault:"20h"`
	JobConcurrency     int           `env:"BILLING_JOB_CONCURRENCY" envDefault:"4"`
	JobLockTTL         time.Duration `env:"BILLING_JOB_LOCK_TTL" envDefault:"10m"`
	Locale             string        `env:"BILLING_LOCALE" envDefault:"es-AR"`
}

// Policy is the pure, immutable set of billing rules.
type Policy struct {
	TrialLength        time.Duration
	GraceLength        time.Duration
	PeriodLength       time.Duration
	PlanAmountCents    int64
	Currency           string
	PlanTitle          string
	FallbackPaymentURL string
	NoticeDedupWindow  time.Duration
}

// DefaultPolicy mirrors the Config defaults.
func DefaultPolicy() Policy {
	return Policy{
		TrialLength:       30 * day,
		GraceLength:       7 * day,
		PeriodLength:      30 * day,
		PlanAmountCents:   1500000,
		Currency:          "ARS",
		PlanTitle:         "Storefront subscription",
		NoticeDedupWindow: 20 * time.Hour,
	}
}

// Policy converts the configuration into billing rules. Non-positive values
// fall back to the defaults.
func (c Config) Policy() Policy {
	p := DefaultPolicy()
	if c.TrialDays > 0 {
		p.TrialLength = time.Duration(c.TrialDays) * day
	}
	if c.GraceDays > 0 {
		p.GraceLength = time.Duration(c.GraceDays) * day
	}
	if c.PeriodDays > 0 {
		p.PeriodLength = time.Duration(c.PeriodDays) * day
	}
	if c.PlanAmountCents > 0 {
		p.PlanAmountCents = c.PlanAmountCents
	}
	if cur := strings.ToUpper(strings.TrimSpace(c.Currency)); cur != "" {
		p.Currency = cur
	}
	if c.PlanTitle != "" {
		p.PlanTitle = c.PlanTitle
	}
	if c.NoticeDedupWindow > 0 {
		p.NoticeDedupWindow = c.NoticeDedupWindow
	}
	p.FallbackPaymentURL = strings.TrimSpace(c.FallbackPaymentURL)
	return p
}

// HasFallback reports whether a static payment link is configured.
func (p Policy) HasFallback() bool {
	return p.FallbackPaymentURL != ""
}

// TrialEnd is the stored trial end or created_at plus the trial length.
func (p Policy) TrialEnd(sub *Subscription) time.Time {
	if sub.TrialEndsAt != nil {
		return *sub.TrialEndsAt
	}
	return sub.CreatedAt.Add(p.TrialLength)
}

// PeriodEnd is the stored current period end or the trial end.
func (p Policy) PeriodEnd(sub *Subscription) time.Time {
	if sub.CurrentPeriodEnd != nil {
		return *sub.CurrentPeriodEnd
	}
	return p.TrialEnd(sub)
}

// GraceUntil is the stored grace deadline or the period end plus the grace length.
func (p Policy) GraceUntil(sub *Subscription) time.Time {
	if sub.GraceUntil != nil {
		return *sub.GraceUntil
	}
	return p.PeriodEnd(sub).Add(p.GraceLength)
}

// Boundaries returns all effective instants at once.
func (p Policy) Boundaries(sub *Subscription) Boundaries {
	return Boundaries{
		TrialEnd:   p.TrialEnd(sub),
		PeriodEnd:  p.PeriodEnd(sub),
		GraceUntil: p.GraceUntil(sub),
	}
}

// DueAt is the later of the period end and the trial end.
func (p Policy) DueAt(sub *Subscription) time.Time {
	pe, te := p.PeriodEnd(sub), p.TrialEnd(sub)
	if te.After(pe) {
		return te
	}
	return pe
}

// DaysUntilDue returns the whole days from now until the effective period
// end, rounded down: exactly 72h out is 3, one nanosecond less is 2. ok is
// false once the period end has passed.
func (p Policy) DaysUntilDue(sub *Subscription, now time.Time) (days int, ok bool) {
	diff := p.PeriodEnd(sub).Sub(now)
	if diff < 0 {
		return 0, false
	}
	return int(diff / day), true
}
