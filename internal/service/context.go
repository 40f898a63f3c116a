package service

import (
	"context"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
)

type requestMetaKey struct{}

// WithRequestMeta attaches client details so audit events can record them.
func WithRequestMeta(ctx context.Context, meta domain.RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func RequestMetaFrom(ctx context.Context) domain.RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(domain.RequestMeta)
	return meta
}
