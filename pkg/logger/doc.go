// Package logger builds structured slog loggers for the storefront services.
//
// New returns a *slog.Logger configured with functional options. The handler is
// wrapped by LogHandlerDecorator, which runs registered ContextExtractor
// callbacks on every record so request-scoped values such as the request id
// land in the output without being passed around explicitly.
//
//	log := logger.New(
//		logger.WithEnvironment(os.Getenv("APP_ENV"), "storefront"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "invoice paid",
//		logger.MerchantID(merchantID),
//		logger.InvoiceID(invoiceID),
//	)
//
// Attribute helpers in attr.go keep key names consistent across packages.
// Helpers that receive a nil or empty value return an empty slog.Attr, which
// slog omits, so callers never need a nil check before logging.
package logger
