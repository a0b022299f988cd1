// Package requestid tags every HTTP request with a correlation id.
//
// Middleware accepts a client supplied X-Request-ID when it is short and
// made of [a-zA-Z0-9_-], otherwise it generates a UUID. The id is stored in
// the request context (FromContext) and echoed in the response header.
// LoggerExtractor plugs the id into logger.New so every log line written
// with the request context carries it.
package requestid
