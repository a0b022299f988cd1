package logger

import (
	"log/slog"
	"time"
)

// Error records err under the key "error". A nil error yields an empty Attr,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the subsystem emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records a named domain event, e.g. "invoice.paid".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// RequestID records the request correlation id.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// MerchantID records the tenant the record is about.
func MerchantID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("merchant_id", id)
}

// InvoiceID records a billing invoice id.
func InvoiceID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("invoice_id", id)
}

// PaymentID records the payment provider's payment id.
func PaymentID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("payment_id", id)
}

// Status records a subscription or invoice status.
func Status(s string) slog.Attr {
	return slog.String("status", s)
}

// Transition records a status change as "from -> to".
func Transition(from, to string) slog.Attr {
	return slog.Group("transition", slog.String("from", from), slog.String("to", to))
}

// Stage records a reminder notice stage.
func Stage(s string) slog.Attr {
	if s == "" {
		return slog.Attr{}
	}
	return slog.String("stage", s)
}

// Duration records an elapsed time in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64("duration_ms", d.Milliseconds())
}
