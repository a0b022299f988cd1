package subscription

import "time"

// Status represents the entitlement state of a merchant subscription.
type Status string

const (
	StatusTrialing  Status = "trialing"
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusSuspended:
		return true
	}
	return false
}

// InvoiceStatus is monotonic: pending may become paid, never the reverse.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// NoticeStage names a due-date reminder milestone. The empty stage means no
// notice was ever recorded.
type NoticeStage string

const (
	StageNone     NoticeStage = ""
	StageDueIn3   NoticeStage = "due_in_3"
	StageDueIn1   NoticeStage = "due_in_1"
	StageDueToday NoticeStage = "due_today"
)

// stageForDays maps whole days until the period end to a reminder stage.
func stageForDays(days int) NoticeStage {
	switch days {
	case 3:
		return StageDueIn3
	case 1:
		return StageDueIn1
	case 0:
		return StageDueToday
	}
	return StageNone
}

// Invoice providers.
const (
	ProviderMercadoPago = "mercadopago"
	ProviderManual      = "manual"
)

// IssueMode tells the caller which payment path an issued invoice uses.
type IssueMode string

const (
	ModeMercadoPago IssueMode = "mercadopago"
	ModeFallback    IssueMode = "fallback"
)

// Money represents a monetary amount in the smallest currency unit.
// For example, ARS 15.000,50 would be Amount: 1500050, Currency: "ARS".
type Money struct {
	Amount   int64  // Amount in cents
	Currency string // ISO 4217 currency code
}

// Boundaries are the effective lifecycle instants of a subscription after
// defaults are applied.
type Boundaries struct {
	TrialEnd   time.Time
	PeriodEnd  time.Time
	GraceUntil time.Time
}

// Access is the entitlement answer for a merchant at a point in time.
type Access struct {
	Status     Status
	Allowed    bool
	InGrace    bool
	Boundaries Boundaries
	CheckedAt  time.Time
}
