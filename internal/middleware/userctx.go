package middleware

import (
	"context"

	"github.com/tastyfund/backend/internal/models"
)

type userKey struct{}

type UserCtx struct {
	UserID string
	Role   models.Role
}

func WithUser(ctx context.Context, u UserCtx) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// FromCtx returns the authenticated user; ok is false on unauthenticated requests.
func FromCtx(ctx context.Context) (UserCtx, bool) {
	u, ok := ctx.Value(userKey{}).(UserCtx)
	return u, ok && u.UserID != ""
}
