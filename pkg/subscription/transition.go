package subscription

import "time"

// Transition is the outcome of evaluating a subscription at an instant.
// Expected* carry the stored values the write must still observe.
type Transition struct {
	From                     Status
	To                       Status
	GraceUntil               *time.Time // frozen deadline written with a suspension
	ExpectedCurrentPeriodEnd *time.Time
}

// Changed reports whether the evaluation requires a write.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Evaluate decides the status of sub at now. It never mutates sub and never
// re-activates: only a confirmed payment moves a subscription to active.
//
// Rules, first match wins:
//   - now >= grace deadline and not suspended: suspended, deadline frozen
//   - now >= period end and active: past_due
//   - otherwise unchanged
//
// A trialing subscription goes straight to suspended once grace runs out.
func Evaluate(sub *Subscription, p Policy, now time.Time) Transition {
	t := Transition{
		From:                     sub.Status,
		To:                       sub.Status,
		ExpectedCurrentPeriodEnd: cloneTime(sub.CurrentPeriodEnd),
	}

	grace := p.GraceUntil(sub)
	if !now.Before(grace) && sub.Status != StatusSuspended {
		t.To = StatusSuspended
		t.GraceUntil = timePtr(grace)
		return t
	}
	if !now.Before(p.PeriodEnd(sub)) && sub.Status == StatusActive {
		t.To = StatusPastDue
	}
	return t
}

// Apply returns a copy of sub with the transition applied, mirroring what a
// store writes. Stores without conditional updates use it directly.
func (t Transition) Apply(sub *Subscription, now time.Time) *Subscription {
	c := sub.Clone()
	if !t.Changed() {
		return c
	}
	c.Status = t.To
	if t.GraceUntil != nil {
		c.GraceUntil = cloneTime(t.GraceUntil)
	}
	c.UpdatedAt = now
	return c
}

// matches reports whether sub still holds the values the transition was
// computed from.
func (t Transition) matches(sub *Subscription) bool {
	if sub.Status != t.From {
		return false
	}
	return sameTime(sub.CurrentPeriodEnd, t.ExpectedCurrentPeriodEnd)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
