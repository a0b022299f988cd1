// Package handler provides typed HTTP handlers and response values for the
// storefront's server-rendered and JSON endpoints.
//
// A HandlerFunc receives a Context and a bound request value and returns a
// Response. Wrap turns it into an http.HandlerFunc, running binders,
// decorators and the error handler:
//
//	func (h *Handler) status(ctx handler.Context, _ struct{}) handler.Response {
//		acc, err := h.svc.Access(ctx, merchantID(ctx))
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(acc)
//	}
//
//	r.Get("/billing/status", handler.Wrap(h.status))
//
// # Responses
//
//   - JSON and JSONError write raw JSON bodies. Errors become
//     {"ok":false,"error":key}; only HTTPError keys reach the client.
//   - Redirect answers 303 See Other, or an SSE redirect event for Datastar
//     requests, so a "pay now" button works with and without JavaScript.
//   - Templ renders a templ.Component as a page, or as an element patch over
//     SSE for Datastar requests.
//   - Error hands an error to the configured ErrorHandler.
//
// # Errors
//
// NewErrorHandler logs every failure with the request id from
// pkg/requestid and answers in the format the client asked for: JSON for
// API and Datastar requests, the configured error page otherwise.
package handler
