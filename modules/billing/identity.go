package billing

import (
	"net/http"

	"github.com/google/uuid"
)

// Headers set by the identity gateway in front of the storefront.
const (
	HeaderMerchantID = "X-Merchant-ID"
	HeaderUserID     = "X-User-ID"
)

// Identity is the authenticated caller of a billing route.
type Identity struct {
	MerchantID uuid.UUID
	UserID     uuid.UUID
}

// IdentifyFunc resolves the caller. ok is false for anonymous requests.
type IdentifyFunc func(r *http.Request) (Identity, bool)

// HeaderIdentity reads the merchant and user ids forwarded by the trusted
// identity gateway. Malformed ids count as anonymous.
func HeaderIdentity(r *http.Request) (Identity, bool) {
	merchantID, err := uuid.Parse(r.Header.Get(HeaderMerchantID))
	if err != nil {
		return Identity{}, false
	}
	userID, err := uuid.Parse(r.Header.Get(HeaderUserID))
	if err != nil {
		return Identity{}, false
	}
	return Identity{MerchantID: merchantID, UserID: userID}, true
}
