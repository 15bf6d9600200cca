package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

// Identity is the authenticated caller attached by Auth.
type Identity struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return string(id.Role)
	}
	return ""
}

// IdentityFromContext returns the caller identity when Auth has run.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	userID, ok := ctx.Value(ctxUserID).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return Identity{}, false
	}
	role, _ := ctx.Value(ctxRole).(enums.ActorRole)
	return Identity{UserID: userID, Role: role}, true
}

// WithIdentity injects the caller identity into the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, identity.UserID)
	return context.WithValue(ctx, ctxRole, identity.Role)
}
