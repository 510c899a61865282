package router_test

import (
	"context"
	"errors"
	"testing"

	"github.com/grl-racing/grlbot/gateway"
	"github.com/grl-racing/grlbot/gateway/gatewaytest"
	"github.com/grl-racing/grlbot/router"
	"github.com/grl-racing/grlbot/whitelist"
)

func tenant(id string) *gateway.TenantID {
	t := gateway.TenantID(id)
	return &t
}

type countingHandler struct {
	calls int
	fn    router.HandlerFunc
}

func (h *countingHandler) Handle(ctx context.Context, ev *gateway.Event) error {
	h.calls++
	if h.fn != nil {
		return h.fn(ctx, ev)
	}
	return nil
}

func startRouter(t *testing.T, conn *gatewaytest.Conn, gate *whitelist.Gate, regs ...router.Registration) *router.Router {
	t.Helper()
	r := router.New(conn, gate, regs)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(r.Stop)
	return r
}

func TestDeniedTenantGetsContactMessage(t *testing.T) {
	h := &countingHandler{}
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "practice", Kind: gateway.KindCommand, Handler: h},
	)

	ev, resp, _ := gatewaytest.CommandEvent("practice", gateway.User{ID: "u1", Username: "alice"}, tenant("t2"), "{}")
	r.Dispatch(context.Background(), ev)

	if h.calls != 0 {
		t.Errorf("handler invoked %d times on denied tenant, want 0", h.calls)
	}
	if len(resp.Responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(resp.Responses))
	}
	if got := resp.Responses[0]; got.Content != router.ContactMessage || !got.Ephemeral {
		t.Errorf("response = %+v, want ephemeral contact message", got)
	}
}

func TestDeniedTenantSameMessageForComponents(t *testing.T) {
	h := &countingHandler{}
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "cancel_training", Kind: gateway.KindComponent, Handler: h},
	)

	msg := gatewaytest.NewMessage("m1")
	ev, resp := gatewaytest.ComponentEvent("cancel_training", gateway.User{ID: "u1"}, tenant("t2"), msg)
	r.Dispatch(context.Background(), ev)

	if h.calls != 0 {
		t.Errorf("handler invoked %d times on denied tenant, want 0", h.calls)
	}
	if len(resp.Responses) != 1 || resp.Responses[0].Content != router.ContactMessage {
		t.Errorf("responses = %+v, want the contact message", resp.Responses)
	}
}

func TestDirectMessageBypassesWhitelist(t *testing.T) {
	h := &countingHandler{}
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "roulette", Kind: gateway.KindCommand, Handler: h},
	)

	ev, _, _ := gatewaytest.CommandEvent("roulette", gateway.User{ID: "u1"}, nil, "{}")
	r.Dispatch(context.Background(), ev)

	if h.calls != 1 {
		t.Errorf("handler invoked %d times from DM, want 1", h.calls)
	}
}

func TestUnknownRouteGenericFailure(t *testing.T) {
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}))

	ev, resp, _ := gatewaytest.CommandEvent("nope", gateway.User{ID: "u1"}, tenant("t1"), "{}")
	r.Dispatch(context.Background(), ev)

	if len(resp.Responses) != 1 || resp.Responses[0].Content != router.GenericFailureMessage {
		t.Errorf("responses = %+v, want the generic failure message", resp.Responses)
	}
}

func TestValidationFailureShowsSpecificMessage(t *testing.T) {
	h := &countingHandler{fn: func(ctx context.Context, ev *gateway.Event) error {
		return router.Validationf("neplatné datum")
	}}
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "practice", Kind: gateway.KindCommand, Handler: h},
	)

	ev, resp, _ := gatewaytest.CommandEvent("practice", gateway.User{ID: "u1"}, tenant("t1"), "{}")
	r.Dispatch(context.Background(), ev)

	if len(resp.Responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(resp.Responses))
	}
	if got := resp.Responses[0]; got.Content != "neplatné datum" || !got.Ephemeral {
		t.Errorf("response = %+v, want ephemeral validation message", got)
	}
}

func TestPermissionFailureShowsSpecificMessage(t *testing.T) {
	h := &countingHandler{fn: func(ctx context.Context, ev *gateway.Event) error {
		return router.Permissionf("tohle nemůžeš")
	}}
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "cancel_training", Kind: gateway.KindComponent, Handler: h},
	)

	msg := gatewaytest.NewMessage("m1")
	ev, resp := gatewaytest.ComponentEvent("cancel_training", gateway.User{ID: "u2"}, tenant("t1"), msg)
	r.Dispatch(context.Background(), ev)

	if len(resp.Responses) != 1 || resp.Responses[0].Content != "tohle nemůžeš" {
		t.Errorf("responses = %+v, want the permission message", resp.Responses)
	}
}

func TestDeclaredFailureSuppressedAfterHandlerResponse(t *testing.T) {
	h := &countingHandler{fn: func(ctx context.Context, ev *gateway.Event) error {
		if err := ev.Responder.Respond(ctx, gateway.Reply{Content: "pracuju na tom"}); err != nil {
			return err
		}
		return router.Validationf("pozdní chyba")
	}}
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "practice", Kind: gateway.KindCommand, Handler: h},
	)

	ev, resp, _ := gatewaytest.CommandEvent("practice", gateway.User{ID: "u1"}, tenant("t1"), "{}")
	r.Dispatch(context.Background(), ev)

	if len(resp.Responses) != 1 || resp.Responses[0].Content != "pracuju na tom" {
		t.Errorf("responses = %+v, want only the handler's own response", resp.Responses)
	}
	if len(resp.Followups) != 0 {
		t.Errorf("followups = %+v, want none", resp.Followups)
	}
}

func TestHandlerSuccessNoExtraResponse(t *testing.T) {
	h := &countingHandler{fn: func(ctx context.Context, ev *gateway.Event) error {
		return ev.Responder.Respond(ctx, gateway.Reply{Content: "hotovo"})
	}}
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "practice", Kind: gateway.KindCommand, Handler: h},
	)

	ev, resp, _ := gatewaytest.CommandEvent("practice", gateway.User{ID: "u1"}, tenant("t1"), "{}")
	r.Dispatch(context.Background(), ev)

	if len(resp.Responses) != 1 || len(resp.Followups) != 0 {
		t.Errorf("responses = %+v followups = %+v, want exactly the handler's response",
			resp.Responses, resp.Followups)
	}
}

func TestPanicContainedAndCleanedUp(t *testing.T) {
	h := &countingHandler{fn: func(ctx context.Context, ev *gateway.Event) error {
		if err := ev.Responder.Respond(ctx, gateway.Reply{Content: "částečná odpověď"}); err != nil {
			return err
		}
		panic("boom")
	}}
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "practice", Kind: gateway.KindCommand, Handler: h},
	)

	ev, resp, _ := gatewaytest.CommandEvent("practice", gateway.User{ID: "u1"}, tenant("t1"), "{}")
	r.Dispatch(context.Background(), ev)

	if !resp.Deleted() {
		t.Error("partial response was not deleted after panic")
	}
	if len(resp.Followups) != 1 || resp.Followups[0].Content != router.GenericFailureMessage {
		t.Errorf("followups = %+v, want the generic failure message", resp.Followups)
	}

	// The router must keep serving subsequent events.
	ev2, _, _ := gatewaytest.CommandEvent("practice", gateway.User{ID: "u2"}, tenant("t1"), "{}")
	r.Dispatch(context.Background(), ev2)
	if h.calls != 2 {
		t.Errorf("handler invoked %d times, want 2", h.calls)
	}
}

func TestPanicWithoutResponseGetsGenericMessage(t *testing.T) {
	h := &countingHandler{fn: func(ctx context.Context, ev *gateway.Event) error {
		panic("boom")
	}}
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "practice", Kind: gateway.KindCommand, Handler: h},
	)

	ev, resp, _ := gatewaytest.CommandEvent("practice", gateway.User{ID: "u1"}, tenant("t1"), "{}")
	r.Dispatch(context.Background(), ev)

	if len(resp.Responses) != 1 || resp.Responses[0].Content != router.GenericFailureMessage {
		t.Errorf("responses = %+v, want the generic failure message", resp.Responses)
	}
}

func TestStartRegistersCommandsOnReady(t *testing.T) {
	conn := gatewaytest.NewConn()
	startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "practice", Kind: gateway.KindCommand, Description: "Create a practice", Handler: &countingHandler{}},
		router.Registration{Route: "cancel_training", Kind: gateway.KindComponent, Handler: &countingHandler{}},
	)

	conn.Ready(context.Background())

	if len(conn.Registered) != 1 {
		t.Fatalf("RegisterCommands called %d times, want 1", len(conn.Registered))
	}
	specs := conn.Registered[0]
	if len(specs) != 1 || specs[0].Name != "practice" {
		t.Errorf("registered specs = %+v, want just the practice command", specs)
	}
}

func TestDuplicateRouteFailsStart(t *testing.T) {
	conn := gatewaytest.NewConn()
	r := router.New(conn, whitelist.New(nil), []router.Registration{
		{Route: "practice", Kind: gateway.KindCommand, Handler: &countingHandler{}},
		{Route: "practice", Kind: gateway.KindComponent, Handler: &countingHandler{}},
	})

	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Start() succeeded with duplicate routes, want error")
	}
	if r.State() != router.Stopped {
		t.Errorf("State() = %v after failed start, want Stopped", r.State())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	conn := gatewaytest.NewConn()
	r := router.New(conn, whitelist.New(nil), nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	r.Stop()
	r.Stop() // must not panic

	if r.State() != router.Stopped {
		t.Errorf("State() = %v, want Stopped", r.State())
	}
	if conn.Subscribers() != 0 {
		t.Errorf("%d gateway subscriptions left after Stop(), want 0", conn.Subscribers())
	}
}

func TestStoppedRouterDropsEvents(t *testing.T) {
	h := &countingHandler{}
	conn := gatewaytest.NewConn()
	r := router.New(conn, whitelist.New(nil), []router.Registration{
		{Route: "roulette", Kind: gateway.KindCommand, Handler: h},
	})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	r.Stop()

	ev, resp, _ := gatewaytest.CommandEvent("roulette", gateway.User{ID: "u1"}, nil, "{}")
	r.Dispatch(context.Background(), ev)

	if h.calls != 0 {
		t.Errorf("handler invoked %d times on stopped router, want 0", h.calls)
	}
	if len(resp.Responses) != 0 {
		t.Errorf("responses = %+v on stopped router, want none", resp.Responses)
	}
}

func TestRestartAfterStop(t *testing.T) {
	h := &countingHandler{}
	conn := gatewaytest.NewConn()
	r := router.New(conn, whitelist.New(nil), []router.Registration{
		{Route: "roulette", Kind: gateway.KindCommand, Handler: h},
	})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("first Start() failed: %v", err)
	}
	r.Stop()
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("second Start() failed: %v", err)
	}
	defer r.Stop()

	ev, _, _ := gatewaytest.CommandEvent("roulette", gateway.User{ID: "u1"}, nil, "{}")
	r.Dispatch(context.Background(), ev)
	if h.calls != 1 {
		t.Errorf("handler invoked %d times after restart, want 1", h.calls)
	}
}

func TestUnexpectedErrorWrapsNotTyped(t *testing.T) {
	h := &countingHandler{fn: func(ctx context.Context, ev *gateway.Event) error {
		return errors.New("database on fire")
	}}
	conn := gatewaytest.NewConn()
	r := startRouter(t, conn, whitelist.New([]gateway.TenantID{"t1"}),
		router.Registration{Route: "practice", Kind: gateway.KindCommand, Handler: h},
	)

	ev, resp, _ := gatewaytest.CommandEvent("practice", gateway.User{ID: "u1"}, tenant("t1"), "{}")
	r.Dispatch(context.Background(), ev)

	if len(resp.Responses) != 1 || resp.Responses[0].Content != router.GenericFailureMessage {
		t.Errorf("responses = %+v, want the generic failure message", resp.Responses)
	}
}
