package middleware

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/auth"
	"github.com/frahmantamala/expense-assistant/internal/transport"
	"github.com/frahmantamala/expense-assistant/pkg/logger"
)

type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*auth.Claims, error)
}

// BearerAuth rejects requests without a valid bearer token and stores the
// token subject on the request context.
func BearerAuth(validator TokenValidator, lg *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := base.ExtractTokenFromHeader(r)
			if token == "" {
				base.WriteAppError(w, errors.NewUnauthorizedError("missing authorization token", errors.ErrCodeInvalidToken))
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				base.Logger.Warn("token validation failed", "error", err)
				base.WriteAppError(w, err)
				return
			}

			ctx := errors.ContextWithSubject(r.Context(), claims.Subject)
			ctx = logger.With(ctx, "subject", claims.Subject, "subject_kind", claims.Kind)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
