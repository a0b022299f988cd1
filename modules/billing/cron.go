package billing

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// cronSecret returns the secret presented as a bearer token or ?secret=.
func cronSecret(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("secret")
}

func (m *Module) authorizedCron(r *http.Request) bool {
	if m.cfg.CronSecret == "" {
		return false
	}
	got := cronSecret(r)
	return subtle.ConstantTimeCompare([]byte(got), []byte(m.cfg.CronSecret)) == 1
}

// cron runs the reconciliation job on behalf of an external scheduler.
func (m *Module) cron(w http.ResponseWriter, r *http.Request) {
	if !m.authorizedCron(r) {
		_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
		return
	}

	summary, err := m.svc.Reconcile(r.Context())
	if err != nil {
		m.log.ErrorContext(r.Context(), "billing job failed", logger.Error(err))
		_ = handler.JSON(handler.ErrorBody{Error: "reconcile_failed"},
			handler.WithJSONStatus(http.StatusInternalServerError)).Render(w, r)
		return
	}
	_ = handler.JSON(summary).Render(w, r)
}
