package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/subscription"
)

// provisionAt provisions a merchant as if it had signed up at createdAt.
func (f *fixture) provisionAt(t *testing.T, createdAt time.Time) uuid.UUID {
	t.Helper()
	now := f.clock.Now()
	f.clock.Set(createdAt)
	id := f.provision(t)
	f.clock.Set(now)
	return id
}

func TestService_Reconcile_Counts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	now := t0.Add(28*day + time.Hour)

	reminded := f.provisionAt(t, t0)
	suspended := f.provisionAt(t, t0.Add(-10*day))
	fresh := f.provisionAt(t, t0.Add(25*day))

	lapsed := uuid.New()
	require.NoError(t, f.store.CreateSubscription(ctx, &subscription.Subscription{
		MerchantID:       lapsed,
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: ptr(now.Add(-time.Hour)),
		LastPaymentAt:    ptr(now.Add(-30*day - time.Hour)),
		PlanAmountCents:  f.policy.PlanAmountCents,
		Currency:         f.policy.Currency,
		CreatedAt:        t0.Add(-60 * day),
	}))

	f.clock.Set(now)
	summary, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, &subscription.JobSummary{
		OK:        true,
		Suspended: 1,
		PastDue:   1,
		Emailed:   1,
		Checked:   4,
	}, summary)

	assert.Equal(t, subscription.StatusTrialing, f.sub(t, reminded).Status)
	assert.Equal(t, subscription.StatusSuspended, f.sub(t, suspended).Status)
	assert.Equal(t, subscription.StatusTrialing, f.sub(t, fresh).Status)
	assert.Equal(t, subscription.StatusPastDue, f.sub(t, lapsed).Status)

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "owner+"+reminded.String()[:8]+"@example.com", sent[0].To)
	assert.Equal(t, "Tu suscripción vence mañana", sent[0].Subject)
	assert.Contains(t, sent[0].Body, appURL+"/billing")
	assert.Contains(t, sent[0].Body, "31/03/2025")

	sub := f.sub(t, reminded)
	assert.Equal(t, subscription.StageDueIn1, sub.LastNoticeStage)
	require.NotNil(t, sub.LastNoticeAt)
	assert.True(t, sub.LastNoticeAt.Equal(now))

	// a second run at the same instant changes nothing
	summary, err = f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Suspended+summary.PastDue+summary.Emailed+summary.Failed)
	assert.Len(t, f.notifier.Sent(), 1)
}

func TestService_Reconcile_ReminderStages(t *testing.T) {
	t.Parallel()

	// the trial of a merchant provisioned at t0 ends at t0+30d
	tests := []struct {
		name  string
		at    time.Duration
		stage subscription.NoticeStage
	}{
		{"three days out", 26*day + time.Hour, subscription.StageDueIn3},
		{"exactly 72h out", 27 * day, subscription.StageDueIn3},
		{"72h minus 1ns out", 27*day + time.Nanosecond, subscription.StageNone},
		{"two days out", 28*day - time.Hour, subscription.StageNone},
		{"one day out", 28*day + time.Hour, subscription.StageDueIn1},
		{"exactly 24h out", 29 * day, subscription.StageDueIn1},
		{"24h minus 1ns out", 29*day + time.Nanosecond, subscription.StageDueToday},
		{"due today", 29*day + time.Hour, subscription.StageDueToday},
		{"exactly at the period end", 30 * day, subscription.StageDueToday},
		{"1ns past the period end", 30*day + time.Nanosecond, subscription.StageNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			merchant := f.provision(t)
			f.clock.Set(t0.Add(tt.at))

			summary, err := f.svc.Reconcile(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.stage, f.sub(t, merchant).LastNoticeStage)
			if tt.stage == subscription.StageNone {
				assert.Zero(t, summary.Emailed)
				assert.Empty(t, f.notifier.Sent())
				return
			}
			assert.Equal(t, 1, summary.Emailed)
			assert.Len(t, f.notifier.Sent(), 1)
		})
	}
}

// payingStore confirms a payment for merchant right after the job lists
// subscriptions, as a webhook landing mid-run would.
type payingStore struct {
	*subscription.MemoryStore
	merchant *uuid.UUID
	paidAt   time.Time
}

func (s payingStore) ListSubscriptions(ctx context.Context) ([]*subscription.Subscription, error) {
	subs, err := s.MemoryStore.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.MemoryStore.Activate(ctx, *s.merchant, s.paidAt.Add(30*day), s.paidAt); err != nil {
		return nil, err
	}
	return subs, nil
}

func TestService_Reconcile_PaymentDuringRun(t *testing.T) {
	t.Parallel()

	var merchant uuid.UUID
	now := t0.Add(28*day + time.Hour)
	f := newFixture(t, withStoreWrapper(func(m *subscription.MemoryStore) subscription.Store {
		return payingStore{MemoryStore: m, merchant: &merchant, paidAt: now}
	}))
	merchant = f.provision(t)
	f.clock.Set(now)

	summary, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Emailed, "the listed row was due in one day, the stored one is paid")
	assert.Zero(t, summary.Failed)
	assert.Empty(t, f.notifier.Sent())

	sub := f.sub(t, merchant)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Equal(t, subscription.StageNone, sub.LastNoticeStage)
}

func TestService_Reconcile_NoticeDedup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.provision(t)

	first := t0.Add(28*day + time.Hour)
	f.clock.Set(first)
	summary, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Emailed)

	f.clock.Set(first.Add(30 * time.Minute))
	summary, err = f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Emailed, "same stage inside the window is deduplicated")
	assert.Zero(t, summary.Failed)

	f.clock.Set(first.Add(21 * time.Hour))
	summary, err = f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Emailed, "same stage after the window goes out again")

	assert.Len(t, f.notifier.Sent(), 2)
}

func TestService_Reconcile_NoticeFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing owner", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		merchant := uuid.New()
		_, err := f.svc.Provision(ctx, merchant, t0)
		require.NoError(t, err)

		f.clock.Set(t0.Add(28*day + time.Hour))
		summary, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
		assert.Zero(t, summary.Emailed)
		assert.Equal(t, subscription.StageNone, f.sub(t, merchant).LastNoticeStage)
	})

	t.Run("notifier error is retried next run", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		merchant := f.provision(t)
		f.notifier.failWith(errors.New("smtp: 421"))

		f.clock.Set(t0.Add(28*day + time.Hour))
		summary, err := f.svc.Reconcile(ctx)
		require.NoError(t, err, "one failing merchant never fails the run")
		assert.True(t, summary.OK)
		assert.Equal(t, 1, summary.Failed)
		assert.Nil(t, f.sub(t, merchant).LastNoticeAt, "a failed send is not recorded")

		f.notifier.failWith(nil)
		f.clock.Advance(10 * time.Minute)
		summary, err = f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Emailed)
		assert.Equal(t, subscription.StageDueIn1, f.sub(t, merchant).LastNoticeStage)
	})
}

func TestService_Reconcile_Lock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("held elsewhere", func(t *testing.T) {
		t.Parallel()
		locker := &fakeLocker{held: true}
		f := newFixture(t, withServiceOptions(subscription.WithLocker(locker, time.Minute)))
		f.provision(t)
		f.clock.Set(t0.Add(40 * day))

		summary, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, &subscription.JobSummary{OK: true, Skipped: true}, summary)
	})

	t.Run("acquired and released", func(t *testing.T) {
		t.Parallel()
		locker := &fakeLocker{}
		f := newFixture(t, withServiceOptions(subscription.WithLocker(locker, time.Minute)))
		f.provision(t)
		f.clock.Set(t0.Add(40 * day))

		summary, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Suspended)
		assert.Equal(t, 1, locker.released)
		assert.False(t, locker.held)
	})

	t.Run("lock backend down still runs", func(t *testing.T) {
		t.Parallel()
		locker := &fakeLocker{err: errors.New("dial tcp: connection refused")}
		f := newFixture(t, withServiceOptions(subscription.WithLocker(locker, time.Minute)))
		f.provision(t)
		f.clock.Set(t0.Add(40 * day))

		summary, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.False(t, summary.Skipped)
		assert.Equal(t, 1, summary.Suspended)
	})
}

func TestService_Reconcile_ListFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, withStoreWrapper(func(m *subscription.MemoryStore) subscription.Store {
		return failingListStore{m}
	}))

	summary, err := f.svc.Reconcile(context.Background())
	assert.ErrorIs(t, err, subscription.ErrFailedToListAll)
	assert.Nil(t, summary)
}

func TestService_Reconcile_Many(t *testing.T) {
	t.Parallel()

	f := newFixture(t, withServiceOptions(subscription.WithJobConcurrency(3)))
	for range 25 {
		f.provisionAt(t, t0)
	}
	for range 5 {
		f.provisionAt(t, t0.Add(20*day))
	}
	f.clock.Set(t0.Add(29*day + time.Hour))

	summary, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, summary.Checked)
	assert.Equal(t, 25, summary.Emailed)
	assert.Len(t, f.notifier.Sent(), 25)
}

func TestService_Reconcile_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	f := newFixture(t, withServiceOptions(subscription.WithMetrics(subscription.NewMetrics(reg))))
	f.provision(t)
	f.clock.Set(t0.Add(38 * day))

	_, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	series := map[string]int{}
	for _, mf := range families {
		series[mf.GetName()] = len(mf.GetMetric())
	}
	assert.Equal(t, 1, series["storefront_billing_job_runs_total"])
	assert.Equal(t, 1, series["storefront_billing_status_transitions_total"], "one trialing to suspended series")
	assert.Contains(t, series, "storefront_billing_job_duration_seconds")
}
