package middleware

import (
	"net/http"
	"strings"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/responses"
	pkgAuth "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/auth"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/auth/session"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/config"
	pkgerrors "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/errors"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
)

// websocketTokenParam carries the token on upgrade requests, where browsers
// cannot set an Authorization header.
const websocketTokenParam = "token"

// Auth validates a bearer token and seeds the request context with the caller.
// A nil sessions checker or cfg.RequireSession=false skips the Redis session
// lookup.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	verifier, verifierErr := pkgAuth.NewVerifier(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifierErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, verifierErr, "token verifier misconfigured"))
				return
			}
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			caller, err := verifier.Verify(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if sessions != nil && cfg.RequireSession {
				if caller.AccessID == "" {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
					return
				}
				ok, err := sessions.HasSession(r.Context(), caller.AccessID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: caller.UserID, Role: caller.Role})
			if logg != nil {
				ctx = logg.WithUserID(ctx, caller.UserID.String())
				ctx = logg.WithActorRole(ctx, string(caller.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return raw
	}
	if isWebsocketUpgrade(r) {
		return strings.TrimSpace(r.URL.Query().Get(websocketTokenParam))
	}
	return ""
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
