// Package whitelist decides whether a tenant may use the bot at all.
package whitelist

import (
	"log/slog"

	"github.com/grl-racing/grlbot/gateway"
)

// Gate holds the configured set of authorized tenant ids. The set is
// immutable after construction; lookups need no locking.
type Gate struct {
	allowed map[gateway.TenantID]struct{}
	log     *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets a custom logger for the Gate.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

// New builds a Gate from the configured tenant ids. An empty list is a
// legal but almost certainly unintended configuration: every
// tenant-scoped interaction will be denied. That condition is logged
// once as a warning here rather than on every request.
func New(tenants []gateway.TenantID, opts ...Option) *Gate {
	g := &Gate{
		allowed: make(map[gateway.TenantID]struct{}, len(tenants)),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	for _, t := range tenants {
		g.allowed[t] = struct{}{}
	}
	if len(g.allowed) == 0 {
		g.log.Warn("tenant whitelist is empty; all tenant-scoped interactions will be denied")
	}
	return g
}

// IsAuthorized reports whether an interaction from the given tenant may
// proceed. A nil tenant is a direct-message context and is always
// allowed; the whitelist constrains tenant contexts only. With an empty
// whitelist every tenant is denied (fail closed).
func (g *Gate) IsAuthorized(tenant *gateway.TenantID) bool {
	if tenant == nil {
		return true
	}
	_, ok := g.allowed[*tenant]
	return ok
}
