package subscription

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxNotificationBody caps how much of a webhook body is read.
const maxNotificationBody = 64 << 10

const topicPayment = "payment"

// Notification is a decoded payment provider callback. It only names a
// payment; the payment itself is always fetched from the provider.
type Notification struct {
	PaymentID string
	Topic     string // "payment", "merchant_order", ... empty when not sent
	Action    string // e.g. "payment.created"
}

// IsPayment reports whether the notification concerns a payment. A missing
// topic is assumed to be a payment.
func (n Notification) IsPayment() bool {
	return n.Topic == "" || n.Topic == topicPayment
}

// notificationBody accepts both callback shapes the provider sends:
// {"type":"payment","data":{"id":"123"}} and {"topic":"payment","id":123}.
type notificationBody struct {
	ID     flexibleID `json:"id"`
	Type   string     `json:"type"`
	Topic  string     `json:"topic"`
	Action string     `json:"action"`
	Data   *struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// flexibleID decodes a JSON string or number into its string form.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

// ParseNotification extracts the payment reference from a provider callback.
// Query parameters win over the body. Malformed input yields an empty
// Notification, which reconciliation acknowledges and ignores.
func ParseNotification(r *http.Request) Notification {
	q := r.URL.Query()
	n := Notification{
		PaymentID: strings.TrimSpace(q.Get("data.id")),
		Topic:     firstNonEmpty(q.Get("type"), q.Get("topic")),
	}

	var body notificationBody
	if r.Body != nil && r.Body != http.NoBody {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBody))
		if err == nil && len(bytes.TrimSpace(raw)) > 0 {
			if json.Unmarshal(raw, &body) != nil {
				body = notificationBody{}
			}
		}
	}

	if n.Topic == "" {
		n.Topic = firstNonEmpty(body.Type, body.Topic)
	}
	n.Action = strings.TrimSpace(body.Action)
	if n.Topic == "" && strings.HasPrefix(n.Action, topicPayment+".") {
		n.Topic = topicPayment
	}
	n.Topic = strings.ToLower(n.Topic)

	if n.PaymentID == "" && body.Data != nil {
		n.PaymentID = string(body.Data.ID)
	}
	if n.PaymentID == "" {
		n.PaymentID = strings.TrimSpace(q.Get("id"))
	}
	if n.PaymentID == "" && body.Data == nil {
		// in the data-wrapped shape the top-level id is the event id
		n.PaymentID = string(body.ID)
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
