package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/grl-racing/grlbot/gateway"
	"github.com/grl-racing/grlbot/router"
)

// pruneFetchLimit bounds how much channel history one prune inspects.
const pruneFetchLimit = 100

// pruneDateLayouts are the accepted spellings of the cutoff date.
var pruneDateLayouts = []string{
	"02.01.2006", "2.1.2006", "02.1.2006", "2.01.2006",
	"2.1.06", "02.1.06", "2.01.06", "02.01.06",
	"2/01/2006", "02/01/2006", "2-01-2006", "02-01-2006",
}

// PruneArgs are the /prune arguments.
type PruneArgs struct {
	DateTo string `json:"date_to" jsonschema:"description=Delete messages newer than this date"`
	// IgnoreFirstMessage keeps the oldest matching message, typically the
	// channel's pinned opener. Defaults to true when omitted.
	IgnoreFirstMessage *bool `json:"ignore_first_message,omitempty" jsonschema:"description=Keep the oldest matching message"`
}

// handlePrune deletes recent channel messages back to a cutoff date.
// Admin-only and tenant-only; both are advertised to the platform and
// the tenant check is repeated here.
func (h *Handlers) handlePrune(ctx context.Context, ev *gateway.Event) error {
	args, ok := ev.ParsedArgs.(*PruneArgs)
	if !ok {
		return fmt.Errorf("prune: unexpected argument type %T", ev.ParsedArgs)
	}
	if ev.Interaction.TenantID == nil {
		return router.Permissionf("Tenhle příkaz funguje jen na serveru.")
	}

	cutoff, err := parsePruneDate(args.DateTo)
	if err != nil {
		return router.Validationf("Invalid date format. Please use the dd.MM.yyyy format.")
	}

	history, err := ev.Channel.Messages(ctx, pruneFetchLimit)
	if err != nil {
		return fmt.Errorf("prune: list messages: %w", err)
	}

	// History arrives newest first; everything at or after the cutoff
	// goes, except optionally the oldest match.
	var targets []gateway.MessageID
	for _, m := range history {
		if m.Timestamp >= cutoff.Unix() {
			targets = append(targets, m.ID)
		}
	}
	if (args.IgnoreFirstMessage == nil || *args.IgnoreFirstMessage) && len(targets) > 0 {
		targets = targets[:len(targets)-1]
	}

	reason := fmt.Sprintf("Removing messages up to %s", args.DateTo)
	deleted := 0
	for _, id := range targets {
		if err := ev.Channel.DeleteMessage(ctx, id, reason); err != nil {
			h.log.Warn("could not delete message", "message_id", id, "error", err)
			continue
		}
		deleted++
	}

	return ev.Responder.Respond(ctx, gateway.Reply{
		Content:   fmt.Sprintf("Deleted %d messages.", deleted),
		Ephemeral: true,
	})
}

func parsePruneDate(s string) (time.Time, error) {
	for _, layout := range pruneDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
