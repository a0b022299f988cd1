package subscription

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

const jobLockKey = "billing:reconcile"

// JobSummary aggregates one reconciliation run.
type JobSummary struct {
	OK        bool `json:"ok"`
	Suspended int  `json:"suspended"`
	PastDue   int  `json:"pastDue"`
	Emailed   int  `json:"emailed"`
	Checked   int  `json:"checked"`
	Failed    int  `json:"failed"`
	Skipped   bool `json:"skipped,omitempty"` // another replica held the run lock
}

type jobTally struct {
	suspended atomic.Int64
	pastDue   atomic.Int64
	emailed   atomic.Int64
	failed    atomic.Int64
	checked   atomic.Int64
}

// Reconcile advances every subscription and sends due-date reminders.
// A failure on one merchant is logged and counted, never fatal to the run;
// only failing to list subscriptions returns an error.
func (s *service) Reconcile(ctx context.Context) (*JobSummary, error) {
	started := time.Now()

	if s.locker != nil {
		release, ok, err := s.locker.TryAcquire(ctx, jobLockKey, s.lockTTL)
		switch {
		case err != nil:
			// every step is a conditional write, so running unlocked is safe
			s.logger.WarnContext(ctx, "job lock unavailable, running without it", logger.Error(err))
		case !ok:
			s.metrics.jobRun("skipped", 0)
			s.logger.InfoContext(ctx, "billing job already running elsewhere, skipping")
			return &JobSummary{OK: true, Skipped: true}, nil
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					s.logger.WarnContext(ctx, "failed to release job lock", logger.Error(err))
				}
			}()
		}
	}

	subs, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		s.metrics.jobRun("error", time.Since(started))
		return nil, errors.Join(ErrFailedToListAll, err)
	}

	var tally jobTally
	g := new(errgroup.Group)
	g.SetLimit(s.jobConcurrency)
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.reconcileSubscription(ctx, sub, &tally)
			return nil
		})
	}
	_ = g.Wait()

	summary := &JobSummary{
		OK:        true,
		Suspended: int(tally.suspended.Load()),
		PastDue:   int(tally.pastDue.Load()),
		Emailed:   int(tally.emailed.Load()),
		Checked:   int(tally.checked.Load()),
		Failed:    int(tally.failed.Load()),
	}
	s.metrics.jobRun("ok", time.Since(started))
	s.logger.InfoContext(ctx, "billing job finished",
		"suspended", summary.Suspended,
		"past_due", summary.PastDue,
		"emailed", summary.Emailed,
		"checked", summary.Checked,
		"failed", summary.Failed,
		logger.Duration(time.Since(started)),
	)
	return summary, nil
}

func (s *service) reconcileSubscription(ctx context.Context, sub *Subscription, tally *jobTally) {
	tally.checked.Add(1)
	now := s.clock.Now()
	log := s.logger.With(logger.MerchantID(sub.MerchantID))

	if _, t, err := s.advance(ctx, sub, now); err != nil {
		tally.failed.Add(1)
		log.ErrorContext(ctx, "failed to advance subscription", logger.Error(err))
		return
	} else if t.Changed() {
		switch t.To {
		case StatusSuspended:
			tally.suspended.Add(1)
		case StatusPastDue:
			tally.pastDue.Add(1)
		}
	}

	// a payment only moves the period end later, so a snapshot with no
	// stage due cannot gain one
	if days, ok := s.policy.DaysUntilDue(sub, now); !ok || stageForDays(days) == StageNone {
		return
	}

	stage, sent, err := s.sendNotice(ctx, sub.MerchantID, now)
	if err != nil {
		tally.failed.Add(1)
		if stage != StageNone {
			s.metrics.notice(stage, "failed")
		}
		log.WarnContext(ctx, "reminder not sent", logger.Stage(string(stage)), logger.Error(err))
		return
	}
	if sent {
		tally.emailed.Add(1)
	}
}

// sendNotice delivers the reminder due at now unless the same stage went
// out within the dedup window. The stage is taken from a fresh read, so a
// payment landing mid-run suppresses it. It is recorded only after a
// successful send.
func (s *service) sendNotice(ctx context.Context, merchantID uuid.UUID, now time.Time) (NoticeStage, bool, error) {
	fresh, err := s.store.GetSubscription(ctx, merchantID)
	if err != nil {
		return StageNone, false, err
	}
	days, ok := s.policy.DaysUntilDue(fresh, now)
	if !ok {
		return StageNone, false, nil
	}
	stage := stageForDays(days)
	if stage == StageNone {
		return StageNone, false, nil
	}
	if fresh.noticeRecentlySent(stage, now, s.policy.NoticeDedupWindow) {
		s.metrics.notice(stage, "deduplicated")
		return stage, false, nil
	}

	to, err := s.owners.OwnerEmail(ctx, merchantID)
	if err != nil {
		return stage, false, err
	}

	subject, body, err := s.notices.Render(ctx, stage, NoticeData{
		Amount:  s.notices.FormatMoney(fresh.Price()),
		DueDate: s.notices.FormatDate(s.policy.PeriodEnd(fresh)),
		PayURL:  s.callbackURL(BillingPath, ""),
		Days:    days,
	})
	if err != nil {
		return stage, false, err
	}

	if err := s.notifier.Send(ctx, to, subject, body); err != nil {
		return stage, false, err
	}
	s.metrics.notice(stage, "sent")

	if err := s.store.RecordNotice(ctx, merchantID, stage, now); err != nil {
		// sent but not recorded: the next tick may repeat it
		s.logger.ErrorContext(ctx, "failed to record notice",
			logger.MerchantID(merchantID),
			logger.Stage(string(stage)),
			logger.Error(err),
		)
	}
	s.logger.InfoContext(ctx, "reminder sent",
		logger.MerchantID(merchantID),
		logger.Stage(string(stage)),
	)
	return stage, true, nil
}
