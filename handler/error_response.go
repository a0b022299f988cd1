package handler

import "net/http"

// Error returns a Response that hands err to the configured ErrorHandler,
// so pages and API routes share one failure path.
func Error(err error) Response {
	return ResponseFunc(func(http.ResponseWriter, *http.Request) error {
		if err == nil {
			return ErrInternalServerError
		}
		return err
	})
}
