package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is the billing state of one merchant. Each merchant has exactly
// one row, so MerchantID serves as the primary key. Rows are never deleted.
//
// Nil boundaries are defaulted at evaluation time; see Policy.Boundaries.
type Subscription struct {
	MerchantID       uuid.UUID
	Status           Status
	TrialEndsAt      *time.Time
	CurrentPeriodEnd *time.Time
	GraceUntil       *time.Time
	PlanAmountCents  int64
	Currency         string
	LastPaymentAt    *time.Time
	LastNoticeStage  NoticeStage
	LastNoticeAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Price returns the current plan price of the subscription.
func (s *Subscription) Price() Money {
	return Money{Amount: s.PlanAmountCents, Currency: s.Currency}
}

// Clone returns a deep copy so stores can hand out values callers may mutate.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	c.TrialEndsAt = cloneTime(s.TrialEndsAt)
	c.CurrentPeriodEnd = cloneTime(s.CurrentPeriodEnd)
	c.GraceUntil = cloneTime(s.GraceUntil)
	c.LastPaymentAt = cloneTime(s.LastPaymentAt)
	c.LastNoticeAt = cloneTime(s.LastNoticeAt)
	return &c
}

// noticeRecentlySent reports whether stage was recorded less than window ago.
func (s *Subscription) noticeRecentlySent(stage NoticeStage, now time.Time, window time.Duration) bool {
	if s.LastNoticeStage != stage || s.LastNoticeAt == nil {
		return false
	}
	return now.Sub(*s.LastNoticeAt) < window
}

// paymentApplied reports whether a payment approved at t is already reflected.
func (s *Subscription) paymentApplied(t time.Time) bool {
	return s.LastPaymentAt != nil && !s.LastPaymentAt.Before(t)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
