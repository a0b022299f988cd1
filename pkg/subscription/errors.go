package subscription

import "errors"

var (
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
	ErrStaleSubscription         = errors.New("subscription changed since it was read")
	ErrInvalidAmount             = errors.New("plan amount must be positive")

	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrPendingInvoiceExists = errors.New("merchant already has a pending invoice")

	// Issuance outcomes surfaced to the merchant.
	ErrBillingNotConfigured = errors.New("billing is not configured")
	ErrProviderUnavailable  = errors.New("payment provider unavailable")
	ErrInvoiceCreateFailed  = errors.New("failed to create invoice")

	// Gateway errors.
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	ErrGatewayRequestFailed = errors.New("payment gateway request failed")
	ErrPaymentNotFound      = errors.New("payment not found")

	ErrOwnerNotFound      = errors.New("merchant owner not found")
	ErrNotifierFailed     = errors.New("failed to deliver notice")
	ErrFailedToListAll    = errors.New("failed to list subscriptions")
	ErrInvalidTemplate    = errors.New("invalid notice copy")
	ErrUnknownNoticeStage = errors.New("unknown notice stage")
)

// Error codes shown to merchants. They map to fixed copy in the UI and never
// carry internal identifiers.
const (
	CodeMissingBillingEnv     = "missing_billing_env"
	CodePaymentProviderFailed = "payment_provider_failed"
	CodeInvoiceCreateFailed   = "invoice_create_failed"
)

// ErrorCode maps an issuance error to its merchant-facing code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBillingNotConfigured):
		return CodeMissingBillingEnv
	case errors.Is(err, ErrProviderUnavailable):
		return CodePaymentProviderFailed
	default:
		return CodeInvoiceCreateFailed
	}
}
