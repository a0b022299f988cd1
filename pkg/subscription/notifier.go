package subscription

import (
	"context"
	"errors"

	"github.com/dmitrymomot/storefront/pkg/email"
)

// Notifier delivers a rendered notice. Billing only decides whether and how
// often to send; delivery is somebody else's job.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, to, subject, htmlBody string) error

func (f NotifierFunc) Send(ctx context.Context, to, subject, htmlBody string) error {
	return f(ctx, to, subject, htmlBody)
}

const noticeEmailTag = "billing-notice"

// EmailNotifier sends notices through an email.EmailSender.
type EmailNotifier struct {
	sender email.EmailSender
}

func NewEmailNotifier(sender email.EmailSender) *EmailNotifier {
	if sender == nil {
		panic("subscription: email sender is required")
	}
	return &EmailNotifier{sender: sender}
}

func (n *EmailNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	params := email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: htmlBody,
		Tag:      noticeEmailTag,
	}
	if err := params.Validate(); err != nil {
		return errors.Join(ErrNotifierFailed, err)
	}
	if err := n.sender.SendEmail(ctx, params); err != nil {
		return errors.Join(ErrNotifierFailed, err)
	}
	return nil
}
