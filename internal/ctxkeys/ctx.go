package ctxkeys

import (
	"context"

	"github.com/trinnux/gallery/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	AdminKey     contextKey = "admin"
	RequestIDKey contextKey = "request_id"
)

func Admin(ctx context.Context) *model.Admin {
	admin, _ := ctx.Value(AdminKey).(*model.Admin)
	return admin
}

func WithAdmin(ctx context.Context, admin *model.Admin) context.Context {
	return context.WithValue(ctx, AdminKey, admin)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
