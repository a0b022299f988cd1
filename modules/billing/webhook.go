package billing

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/pkg/subscription"
)

// ReasonTemporaryFailure is reported when a notification could not be
// processed. The provider retries on its own schedule.
const ReasonTemporaryFailure = "temporary_failure"

type webhookResponse struct {
	OK      bool                 `json:"ok"`
	Outcome subscription.Outcome `json:"outcome"`
	Reason  string               `json:"reason,omitempty"`
}

// webhook acknowledges every provider callback. Only a missing gateway is
// reported as a failure so the misconfiguration surfaces in the provider
// dashboard.
func (m *Module) webhook(w http.ResponseWriter, r *http.Request) {
	n := subscription.ParseNotification(r)

	res, err := m.svc.HandlePaymentNotification(r.Context(), n)
	switch {
	case errors.Is(err, subscription.ErrGatewayNotConfigured):
		_ = handler.JSON(handler.ErrorBody{Error: subscription.CodeMissingBillingEnv},
			handler.WithJSONStatus(http.StatusInternalServerError)).Render(w, r)
		return
	case err != nil:
		res = &subscription.ReconcileResult{
			Outcome: subscription.OutcomeIgnored,
			Reason:  ReasonTemporaryFailure,
		}
	}

	_ = handler.JSON(webhookResponse{OK: true, Outcome: res.Outcome, Reason: res.Reason}).Render(w, r)
}
