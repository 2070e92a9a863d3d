package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireScope ensures the authenticated operator token grants scope
func RequireScope(scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetOperator(r.Context())
			if !ok {
				logger.Warn("Operator not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !claims.HasScope(scope) {
				logger.Warn("Operator token lacks required scope",
					zap.String("operator", claims.Subject),
					zap.String("scope", scope),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Passthrough is used in place of auth middleware when tokens are disabled
func Passthrough(next http.Handler) http.Handler {
	return next
}
