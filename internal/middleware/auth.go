package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/maze-server/internal/config"
)

type CtxKey int

const (
	CtxControlClaims CtxKey = iota
)

// ControlClaims returns the claims stored by [Bearer], if any.
func ControlClaims(ctx context.Context) (*config.ControlClaims, bool) {
	claims, ok := ctx.Value(CtxControlClaims).(*config.ControlClaims)
	return claims, ok
}

// Bearer parses an "Authorization: Bearer <token>" header into control
// claims. Requests without a valid token pass through unchanged; handlers
// decide whether claims are required.
func Bearer(log logrus.FieldLogger, j *config.JWT) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				h.ServeHTTP(w, r)
				return
			}
			claims, err := j.ParseControlClaims(token)
			if err != nil {
				log.WithError(err).Debug("rejected control token")
				h.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), CtxControlClaims, claims)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
