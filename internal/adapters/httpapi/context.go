package httpapi

import (
	"context"

	"github.com/evcharge/charging-stations-api/internal/domain"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	v, ok := ctx.Value(identityKey{}).(domain.Identity)
	return v, ok && v.Subject != ""
}
