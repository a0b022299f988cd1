// Package email sends transactional email through a provider-agnostic
// EmailSender.
//
// Production uses Postmark (github.com/mrz1836/postmark); local development
// uses DevSender, which drops each message into a directory as HTML plus JSON
// metadata. NewSender chooses between them based on Config:
//
//	sender, err := email.NewSender(cfg)
//	if err != nil {
//		return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "owner@example.com",
//		Subject:  "Your plan renews in 3 days",
//		BodyHTML: body,
//		Tag:      "billing-due_in_3",
//	})
//
// Bodies are typically produced from templ components with Render.
// SendEmailParams.Validate rejects messages without a valid recipient,
// subject or body before any provider call; such errors wrap ErrInvalidParams.
package email
