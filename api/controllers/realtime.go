package controllers

import (
	"net/http"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/middleware"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/responses"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/realtime"
	pkgerrors "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/errors"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
)

// RealtimeServer accepts an authenticated websocket connection.
type RealtimeServer interface {
	Serve(w http.ResponseWriter, r *http.Request, identity realtime.Identity) error
}

// Realtime upgrades the request into a gateway connection for the caller.
func Realtime(server RealtimeServer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		err := server.Serve(w, r, realtime.Identity{UserID: identity.UserID, Role: identity.Role})
		if err == nil {
			return
		}
		// failed upgrades have already been answered by the upgrader
		if typed := pkgerrors.As(err); typed != nil {
			responses.WriteError(r.Context(), logg, w, typed)
			return
		}
		if logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "realtime upgrade failed")
		}
	}
}
