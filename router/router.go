// Package router is the single entry point for inbound gateway events.
// It enforces the tenant whitelist before any handler runs, dispatches
// to the registered handler, and converts failures into a bounded set of
// user-visible responses. A failure while handling one event never
// affects any other event.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/grl-racing/grlbot/gateway"
	"github.com/grl-racing/grlbot/internal/logctx"
	"github.com/grl-racing/grlbot/whitelist"
)

// Fixed user-visible messages. Every denial path gets a specific,
// non-alarming message; only unexpected errors degrade to the generic
// one.
const (
	// ContactMessage is shown to users on non-whitelisted tenants,
	// regardless of interaction kind.
	ContactMessage = "Tento bot funguje jen na schválených serverech. Pokud ho chceš používat i u vás, ozvi se správcům GRL."
	// GenericFailureMessage covers unknown routes and unexpected errors.
	GenericFailureMessage = "Něco se pokazilo. Zkus to prosím znovu."
)

// State is the router's lifecycle state.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Router dispatches inbound interactions. Construct with New, hand it
// every route via registrations, then Start. The route table is built
// once during Start and treated as read-only; Dispatch may run
// concurrently for distinct events.
type Router struct {
	conn gateway.Conn
	gate *whitelist.Gate
	regs []Registration
	log  *slog.Logger

	mu       sync.Mutex
	state    State
	registry *Registry
	unsubs   []func()
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets a custom logger for the Router.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// New builds a Router over an established gateway connection.
func New(conn gateway.Conn, gate *whitelist.Gate, regs []Registration, opts ...Option) *Router {
	r := &Router{
		conn: conn,
		gate: gate,
		regs: regs,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// State reports the router's lifecycle state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start compiles the route table and subscribes to the gateway's ready
// and interaction signals. It fails if the router is not stopped or the
// registrations do not compile.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Stopped {
		return fmt.Errorf("router: cannot start while %s", r.state)
	}
	r.state = Starting

	registry, err := NewRegistry(r.regs...)
	if err != nil {
		r.state = Stopped
		return fmt.Errorf("router: build registry: %w", err)
	}
	r.registry = registry

	unsubReady := r.conn.OnReady(func(ctx context.Context) {
		if err := r.conn.RegisterCommands(ctx, registry.CommandSpecs()); err != nil {
			r.log.Error("command registration failed", "error", err)
			return
		}
		r.log.Info("commands registered", "count", len(registry.CommandSpecs()))
	})
	unsubInteraction := r.conn.OnInteraction(r.dispatch)
	r.unsubs = []func(){unsubReady, unsubInteraction}

	r.state = Running
	return nil
}

// Stop unsubscribes from the gateway and releases the route table. It is
// idempotent; stopping a stopped router is a no-op.
func (r *Router) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Stopped {
		return
	}
	r.state = Stopping
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
	r.registry = nil
	r.state = Stopped
}

func (r *Router) dispatch(ctx context.Context, ev *gateway.Event) {
	r.mu.Lock()
	registry := r.registry
	running := r.state == Running
	r.mu.Unlock()
	if !running {
		r.log.Warn("interaction dropped; router not running", "route", ev.Interaction.Route)
		return
	}
	r.dispatchWith(ctx, registry, ev)
}

// Dispatch processes one event against the current route table. It is
// exposed for tests; the gateway subscription uses the same path.
func (r *Router) Dispatch(ctx context.Context, ev *gateway.Event) {
	r.dispatch(ctx, ev)
}

func (r *Router) dispatchWith(ctx context.Context, registry *Registry, ev *gateway.Event) {
	in := ev.Interaction
	ctx = logctx.WithInteraction(ctx, &logctx.InteractionData{
		ID:         in.ID,
		Kind:       in.Kind.String(),
		Route:      in.Route,
		Username:   in.User.Username,
		TenantName: in.TenantName,
	})

	resp := &trackedResponder{inner: ev.Responder}
	tracked := *ev
	tracked.Responder = resp

	var err error
	switch {
	case !r.gate.IsAuthorized(in.TenantID):
		// Expected traffic, not an error. Same fixed message on every
		// interaction kind; no handler runs, no state changes.
		err = errors.New("tenant not whitelisted")
		r.reply(ctx, resp, ContactMessage)
	default:
		reg, ok := registry.Lookup(in.Route)
		if !ok {
			err = ErrUnknownRoute
			r.log.Warn("no handler registered", "route", in.Route)
			r.reply(ctx, resp, GenericFailureMessage)
			break
		}
		err = r.invoke(ctx, registry, reg, &tracked)
		if err != nil {
			r.respondFailure(ctx, resp, err)
		}
	}

	tenant := in.TenantName
	if in.TenantID == nil {
		tenant = "direct message"
	}
	r.log.InfoContext(ctx, "interaction executed",
		"handler", in.Route,
		"ok", err == nil,
		"tenant", tenant,
		"user", in.User.Username,
	)
}

// invoke decodes declared arguments and runs the handler with panic
// containment. A panicking handler degrades to an error for this one
// event; the router keeps serving.
func (r *Router) invoke(ctx context.Context, registry *Registry, reg *Registration, ev *gateway.Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
			r.log.ErrorContext(ctx, "handler panicked",
				"route", reg.Route, "panic", p, "stack", string(debug.Stack()))
		}
	}()
	if reg.Args != nil && ev.Interaction.Kind == gateway.KindCommand {
		dst := reflect.New(reflect.TypeOf(reg.Args).Elem()).Interface()
		if err := registry.DecodeArgs(reg.Route, ev.Interaction.Args, dst); err != nil {
			return err
		}
		ev.ParsedArgs = dst
	}
	return reg.Handler.Handle(ctx, ev)
}

// respondFailure maps a handler failure onto the user-visible response
// for this event. Declared failures carry their own message; everything
// else degrades to the generic one, after tearing down any partial
// response.
func (r *Router) respondFailure(ctx context.Context, resp *trackedResponder, err error) {
	var ve *ValidationError
	var pe *PermissionError
	switch {
	case errors.As(err, &ve):
		r.replyDeclared(ctx, resp, ve.Msg)
	case errors.As(err, &pe):
		r.replyDeclared(ctx, resp, pe.Msg)
	default:
		r.log.ErrorContext(ctx, "handler failed", "error", err)
		if resp.Responded() {
			// Tear down whatever partial response the user can see
			// before delivering the generic apology.
			if delErr := resp.DeleteOriginal(ctx); delErr != nil {
				r.log.DebugContext(ctx, "could not delete partial response", "error", delErr)
			}
		}
		r.reply(ctx, resp, GenericFailureMessage)
	}
}

// replyDeclared answers a declared failure. The transport allows a
// single response per event; if the handler already sent one, a second
// attempt would itself be an error, so it is suppressed rather than
// escalated.
func (r *Router) replyDeclared(ctx context.Context, resp *trackedResponder, content string) {
	if resp.Responded() {
		r.log.DebugContext(ctx, "handler already responded; suppressing failure message")
		return
	}
	if err := resp.Respond(ctx, gateway.Reply{Content: content, Ephemeral: true}); err != nil {
		r.log.DebugContext(ctx, "could not deliver failure response", "error", err)
	}
}

// reply sends an ephemeral message on whichever channel is still open
// for this event: the initial response if unused, a follow-up otherwise.
// The transport allows one initial response per event; a send failure
// here is suppressed, never propagated.
func (r *Router) reply(ctx context.Context, resp *trackedResponder, content string) {
	payload := gateway.Reply{Content: content, Ephemeral: true}
	var err error
	if resp.Responded() {
		err = resp.Followup(ctx, payload)
	} else {
		err = resp.Respond(ctx, payload)
	}
	if err != nil {
		r.log.DebugContext(ctx, "could not deliver failure response", "error", err)
	}
}

// trackedResponder records whether the initial response was used so the
// router can decide between Respond and Followup after the handler ran.
type trackedResponder struct {
	inner gateway.Responder

	mu        sync.Mutex
	responded bool
}

func (t *trackedResponder) Respond(ctx context.Context, r gateway.Reply) error {
	err := t.inner.Respond(ctx, r)
	if err == nil {
		t.mu.Lock()
		t.responded = true
		t.mu.Unlock()
	}
	return err
}

func (t *trackedResponder) Followup(ctx context.Context, r gateway.Reply) error {
	return t.inner.Followup(ctx, r)
}

func (t *trackedResponder) EditOriginal(ctx context.Context, r gateway.Reply) error {
	return t.inner.EditOriginal(ctx, r)
}

func (t *trackedResponder) DeleteOriginal(ctx context.Context) error {
	return t.inner.DeleteOriginal(ctx)
}

func (t *trackedResponder) Responded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.responded
}

// Interface compliance
var _ gateway.Responder = (*trackedResponder)(nil)
