package billing

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/subscription"
)

var (
	identityKey = handler.NewContextKey("billing.identity")
	accessKey   = handler.NewContextKey("billing.access")
)

// IdentityFromContext returns the caller stored by the owner check.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	return handler.ContextValueOK[Identity](ctx, identityKey)
}

// AccessFromContext returns the entitlement evaluated by RequireAccess.
func AccessFromContext(ctx context.Context) *subscription.Access {
	return handler.ContextValue[*subscription.Access](ctx, accessKey)
}

func (m *Module) fail(w http.ResponseWriter, r *http.Request, err error) {
	m.errorHandler(handler.NewContext(w, r), err)
}

// requireOwner admits only an owner of the identified merchant.
func (m *Module) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.identify(r)
		if !ok {
			m.fail(w, r, handler.ErrUnauthorized)
			return
		}
		owner, err := m.svc.IsOwner(r.Context(), id.MerchantID, id.UserID)
		if err != nil {
			m.fail(w, r, err)
			return
		}
		if !owner {
			m.fail(w, r, handler.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// RequireAccess gates product routes on the merchant's subscription.
// Suspended merchants are sent to the billing page, or get 402 JSON on API
// requests. Anonymous requests pass through; authentication is not this
// middleware's concern. Billing routes must not be wrapped.
func (m *Module) RequireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.identify(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		acc, err := m.svc.Access(r.Context(), id.MerchantID)
		if err != nil {
			m.log.ErrorContext(r.Context(), "access check failed",
				logger.MerchantID(id.MerchantID),
				logger.Error(err),
			)
			m.fail(w, r, handler.ErrServiceUnavailable)
			return
		}

		if !acc.Allowed {
			if handler.WantsJSON(r) {
				_ = handler.JSONError(handler.ErrPaymentRequired).Render(w, r)
				return
			}
			_ = handler.Redirect(subscription.BillingPath).Render(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), accessKey, acc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
