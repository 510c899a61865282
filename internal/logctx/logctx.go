// Package logctx enriches slog records with interaction-scoped
// attributes carried in the context, so every log line emitted while
// handling an event identifies the event without threading fields
// through every call site.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps another slog.Handler and appends context-carried groups.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(interactionDataKey{}).(*InteractionData); ok {
		tenant := id.TenantName
		if tenant == "" {
			tenant = "direct message"
		}
		r.AddAttrs(slog.Group("interaction",
			slog.String("id", id.ID),
			slog.String("kind", id.Kind),
			slog.String("route", id.Route),
			slog.String("user", id.Username),
			slog.String("tenant", tenant),
		))
	}
	return h.Handler.Handle(ctx, r)
}

type interactionDataKey struct{}

// InteractionData identifies the inbound event being handled.
type InteractionData struct {
	ID       string
	Kind     string
	Route    string
	Username string
	// TenantName is empty for direct-message contexts.
	TenantName string
}

// WithInteraction attaches interaction data to the context.
func WithInteraction(ctx context.Context, data *InteractionData) context.Context {
	return context.WithValue(ctx, interactionDataKey{}, data)
}
