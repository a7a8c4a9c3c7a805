package middleware

import "net/http"

type Middleware func(http.Handler) http.Handler

// Wrap applies mws in order, so the last middleware sees a request first.
func Wrap(h http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}
