package middleware

import (
	"context"

	"github.com/orgnet-app/identity-service/internal/identity"
)

type ctxKey string

const ctxIdentity ctxKey = "idp_identity"

func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	v, ok := ctx.Value(ctxIdentity).(identity.Identity)
	return v, ok && v.SubjectID != ""
}
