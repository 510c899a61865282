package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grl-racing/grlbot/gateway"
	"github.com/grl-racing/grlbot/gateway/gatewaytest"
	"github.com/grl-racing/grlbot/router"
)

func pruneEvent(t *testing.T, h *Handlers, args *PruneArgs, history []gateway.ChannelMessage) (*gatewaytest.Responder, *gatewaytest.Channel, error) {
	t.Helper()
	ev, resp, ch := gatewaytest.CommandEvent("prune", creator, &tenantID, "{}")
	ev.ParsedArgs = args
	ch.History = history
	return resp, ch, h.handlePrune(context.Background(), ev)
}

func TestPruneDeletesBackToDate(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	// Newest first, as channel history arrives.
	history := []gateway.ChannelMessage{
		{ID: "m4", Timestamp: cutoff.AddDate(0, 0, 3).Unix()},
		{ID: "m3", Timestamp: cutoff.AddDate(0, 0, 2).Unix()},
		{ID: "m2", Timestamp: cutoff.Unix()},
		{ID: "m1", Timestamp: cutoff.AddDate(0, 0, -5).Unix()},
	}

	resp, ch, err := pruneEvent(t, h, &PruneArgs{DateTo: "01.06.2026"}, history)
	if err != nil {
		t.Fatalf("handlePrune: %v", err)
	}

	// m1 predates the cutoff; m2 is the oldest match and kept by default.
	want := []gateway.MessageID{"m4", "m3"}
	if len(ch.Deleted) != len(want) {
		t.Fatalf("deleted %v, want %v", ch.Deleted, want)
	}
	for i, id := range want {
		if ch.Deleted[i] != id {
			t.Errorf("deleted[%d] = %s, want %s", i, ch.Deleted[i], id)
		}
	}
	if len(resp.Responses) != 1 || resp.Responses[0].Content != "Deleted 2 messages." {
		t.Errorf("responses = %+v, want deletion summary", resp.Responses)
	}
}

func TestPruneCanDeleteOldestMatch(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	history := []gateway.ChannelMessage{
		{ID: "m2", Timestamp: cutoff.AddDate(0, 0, 1).Unix()},
		{ID: "m1", Timestamp: cutoff.Unix()},
	}

	keep := false
	_, ch, err := pruneEvent(t, h, &PruneArgs{DateTo: "1.6.2026", IgnoreFirstMessage: &keep}, history)
	if err != nil {
		t.Fatalf("handlePrune: %v", err)
	}
	if len(ch.Deleted) != 2 {
		t.Errorf("deleted %v, want both messages", ch.Deleted)
	}
}

func TestPruneAcceptsDateVariants(t *testing.T) {
	for _, in := range []string{"01.06.2026", "1.6.2026", "1.6.26", "01/06/2026", "01-06-2026"} {
		if _, err := parsePruneDate(in); err != nil {
			t.Errorf("parsePruneDate(%q): %v", in, err)
		}
	}
}

func TestPruneRejectsBadDate(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	resp, ch, err := pruneEvent(t, h, &PruneArgs{DateTo: "June 1st"}, nil)

	var ve *router.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if len(ch.Deleted) != 0 || resp.Responded() {
		t.Error("nothing should happen on a bad date")
	}
}

func TestPruneOutsideTenantDenied(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	ev, _, _ := gatewaytest.CommandEvent("prune", creator, nil, "{}")
	ev.ParsedArgs = &PruneArgs{DateTo: "01.06.2026"}

	err := h.handlePrune(context.Background(), ev)
	var pe *router.PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want PermissionError", err)
	}
}
