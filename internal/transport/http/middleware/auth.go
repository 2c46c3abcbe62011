package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/requestctx"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/transport/http/api"
)

// ActorResolver reloads the actor behind a token so role and org-chart
// changes apply without waiting for the token to expire.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID string) (auth.Actor, error)
}

// Auth attaches the bearer token's actor to the request context. Requests
// without a valid token pass through anonymous; RequireAuth rejects them.
func Auth(secret string, resolver ActorResolver, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http.auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				log.Debug("bearer token rejected", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			actor := claims.Actor()
			if resolver != nil {
				resolved, err := resolver.ResolveActor(r.Context(), claims.UserID)
				if err != nil {
					log.Info("token user could not be resolved", zap.String("userId", claims.UserID), zap.Error(err))
					next.ServeHTTP(w, r)
					return
				}
				actor = resolved
			}

			next.ServeHTTP(w, r.WithContext(requestctx.WithActor(r.Context(), actor)))
		})
	}
}

func GetActor(ctx context.Context) (auth.Actor, bool) {
	return requestctx.GetActor(ctx)
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r.Context()); !ok {
			api.FailError(w, apperror.ErrUnauthorized, GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only actors holding one of roles.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				api.FailError(w, apperror.ErrUnauthorized, GetRequestID(r.Context()))
				return
			}
			if !slices.Contains(roles, actor.Role) {
				api.FailError(w, apperror.ErrForbidden, GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
