package subscription_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/subscription"
)

func ptr(t time.Time) *time.Time { return &t }

func trialing(createdAt time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		MerchantID:      uuid.New(),
		Status:          subscription.StatusTrialing,
		PlanAmountCents: 1500000,
		Currency:        "ARS",
		CreatedAt:       createdAt,
	}
}

func active(periodEnd time.Time) *subscription.Subscription {
	s := trialing(periodEnd.Add(-60 * day))
	s.Status = subscription.StatusActive
	s.CurrentPeriodEnd = ptr(periodEnd)
	s.LastPaymentAt = ptr(periodEnd.Add(-30 * day))
	return s
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	p := subscription.DefaultPolicy()
	periodEnd := t0.Add(30 * day)

	tests := []struct {
		name      string
		sub       *subscription.Subscription
		now       time.Time
		want      subscription.Status
		wantGrace *time.Time
	}{
		{
			name: "trial in progress",
			sub:  trialing(t0),
			now:  t0.Add(10 * day),
			want: subscription.StatusTrialing,
		},
		{
			name: "trial over but in grace stays trialing",
			sub:  trialing(t0),
			now:  t0.Add(33 * day),
			want: subscription.StatusTrialing,
		},
		{
			name:      "trial grace over suspends",
			sub:       trialing(t0),
			now:       t0.Add(37 * day),
			want:      subscription.StatusSuspended,
			wantGrace: ptr(t0.Add(37 * day)),
		},
		{
			name: "active before period end",
			sub:  active(periodEnd),
			now:  periodEnd.Add(-time.Second),
			want: subscription.StatusActive,
		},
		{
			name: "active at period end becomes past due",
			sub:  active(periodEnd),
			now:  periodEnd,
			want: subscription.StatusPastDue,
		},
		{
			name:      "active far past grace suspends directly",
			sub:       active(periodEnd),
			now:       periodEnd.Add(40 * day),
			want:      subscription.StatusSuspended,
			wantGrace: ptr(periodEnd.Add(7 * day)),
		},
		{
			name: "past due inside grace is unchanged",
			sub: func() *subscription.Subscription {
				s := active(periodEnd)
				s.Status = subscription.StatusPastDue
				return s
			}(),
			now:  periodEnd.Add(3 * day),
			want: subscription.StatusPastDue,
		},
		{
			name: "stored grace wins over computed",
			sub: func() *subscription.Subscription {
				s := active(periodEnd)
				s.Status = subscription.StatusPastDue
				s.GraceUntil = ptr(periodEnd.Add(2 * day))
				return s
			}(),
			now:       periodEnd.Add(2 * day),
			want:      subscription.StatusSuspended,
			wantGrace: ptr(periodEnd.Add(2 * day)),
		},
		{
			name: "suspended stays suspended",
			sub: func() *subscription.Subscription {
				s := trialing(t0)
				s.Status = subscription.StatusSuspended
				s.GraceUntil = ptr(t0.Add(37 * day))
				return s
			}(),
			now:  t0.Add(400 * day),
			want: subscription.StatusSuspended,
		},
		{
			name: "explicit trial end overrides created at",
			sub: func() *subscription.Subscription {
				s := trialing(t0)
				s.TrialEndsAt = ptr(t0.Add(5 * day))
				return s
			}(),
			now:       t0.Add(12 * day),
			want:      subscription.StatusSuspended,
			wantGrace: ptr(t0.Add(12 * day)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			before := tt.sub.Clone()

			tr := subscription.Evaluate(tt.sub, p, tt.now)

			assert.Equal(t, tt.want, tr.To)
			assert.Equal(t, tt.sub.Status, tr.From)
			if tt.wantGrace != nil {
				require.NotNil(t, tr.GraceUntil)
				assert.True(t, tt.wantGrace.Equal(*tr.GraceUntil), "grace %s, want %s", tr.GraceUntil, tt.wantGrace)
			} else {
				assert.Nil(t, tr.GraceUntil)
			}
			assert.Equal(t, before, tt.sub, "Evaluate must not mutate its input")
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	t.Parallel()

	p := subscription.DefaultPolicy()
	sub := active(t0)

	for _, now := range []time.Time{t0.Add(time.Hour), t0.Add(8 * day), t0.Add(90 * day)} {
		first := subscription.Evaluate(sub, p, now)
		applied := first.Apply(sub, now)
		second := subscription.Evaluate(applied, p, now)

		assert.False(t, second.Changed(), "re-evaluating at %s must be a no-op", now)
		assert.Equal(t, applied.Status, second.To)
	}
}

func TestEvaluate_SuspensionFreezesGrace(t *testing.T) {
	t.Parallel()

	p := subscription.DefaultPolicy()
	sub := trialing(t0)
	now := t0.Add(38 * day)

	tr := subscription.Evaluate(sub, p, now)
	require.Equal(t, subscription.StatusSuspended, tr.To)
	suspended := tr.Apply(sub, now)
	require.NotNil(t, suspended.GraceUntil)
	frozen := *suspended.GraceUntil

	// a longer grace policy later does not move the stored deadline
	p.GraceLength = 30 * day
	assert.True(t, frozen.Equal(p.GraceUntil(suspended)))
	assert.False(t, subscription.Evaluate(suspended, p, now.Add(day)).Changed())
}

func TestPolicy_Boundaries(t *testing.T) {
	t.Parallel()

	p := subscription.DefaultPolicy()

	t.Run("defaults chain from created at", func(t *testing.T) {
		t.Parallel()
		b := p.Boundaries(trialing(t0))
		assert.Equal(t, t0.Add(30*day), b.TrialEnd)
		assert.Equal(t, t0.Add(30*day), b.PeriodEnd)
		assert.Equal(t, t0.Add(37*day), b.GraceUntil)
	})

	t.Run("period end drives grace", func(t *testing.T) {
		t.Parallel()
		sub := active(t0.Add(90 * day))
		b := p.Boundaries(sub)
		assert.Equal(t, t0.Add(90*day), b.PeriodEnd)
		assert.Equal(t, t0.Add(97*day), b.GraceUntil)
		assert.False(t, b.GraceUntil.Before(b.PeriodEnd))
	})

	t.Run("due at is the later of trial and period end", func(t *testing.T) {
		t.Parallel()
		sub := trialing(t0)
		sub.CurrentPeriodEnd = ptr(t0.Add(10 * day))
		assert.Equal(t, t0.Add(30*day), p.DueAt(sub))
	})
}

func TestPolicy_DaysUntilDue(t *testing.T) {
	t.Parallel()

	p := subscription.DefaultPolicy()
	sub := active(t0)

	tests := []struct {
		now    time.Time
		days   int
		wantOK bool
	}{
		{t0.Add(-3 * day), 3, true},
		{t0.Add(-3*day + time.Nanosecond), 2, true},
		{t0.Add(-3*day + time.Minute), 2, true},
		{t0.Add(-47 * time.Hour), 1, true},
		{t0.Add(-day), 1, true},
		{t0.Add(-day + time.Nanosecond), 0, true},
		{t0.Add(-time.Hour), 0, true},
		{t0, 0, true},
		{t0.Add(time.Nanosecond), 0, false},
		{t0.Add(time.Second), 0, false},
	}
	for _, tt := range tests {
		days, ok := p.DaysUntilDue(sub, tt.now)
		assert.Equal(t, tt.wantOK, ok, "now=%s", tt.now)
		if tt.wantOK {
			assert.Equal(t, tt.days, days, "now=%s", tt.now)
		}
	}
}

func TestConfig_Policy(t *testing.T) {
	t.Parallel()

	cfg := subscription.Config{
		TrialDays:          14,
		GraceDays:          3,
		PeriodDays:         30,
		PlanAmountCents:    999900,
		Currency:           " usd ",
		FallbackPaymentURL: " " + fallbackURL + " ",
	}
	p := cfg.Policy()

	assert.Equal(t, 14*day, p.TrialLength)
	assert.Equal(t, 3*day, p.GraceLength)
	assert.Equal(t, int64(999900), p.PlanAmountCents)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, fallbackURL, p.FallbackPaymentURL)
	assert.True(t, p.HasFallback())
	assert.Equal(t, 20*time.Hour, p.NoticeDedupWindow)

	assert.Equal(t, subscription.DefaultPolicy(), subscription.Config{}.Policy())
}
