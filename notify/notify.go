// Package notify delivers a direct message to a set of users,
// best-effort, at most once per user.
package notify

import (
	"context"
	"log/slog"

	"github.com/grl-racing/grlbot/gateway"
)

// Status classifies what happened to one recipient.
type Status int

const (
	// Delivered means the direct message was sent.
	Delivered Status = iota
	// SkippedBot means the recipient is an automated account.
	SkippedBot
	// SkippedDuplicate means the recipient already appeared earlier in
	// the batch.
	SkippedDuplicate
	// Failed means opening the DM channel or sending failed.
	Failed
)

func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case SkippedBot:
		return "skipped_bot"
	case SkippedDuplicate:
		return "skipped_duplicate"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Delivery is the per-recipient outcome of one batch.
type Delivery struct {
	User   gateway.UserID
	Status Status
	Err    error
}

// Outcome aggregates a batch. It exists so callers and tests can assert
// on partial-failure behavior instead of relying on swallowed errors.
type Outcome struct {
	Deliveries []Delivery
}

// Delivered counts recipients that actually received the message.
func (o Outcome) Delivered() int { return o.count(Delivered) }

// Failed counts recipients whose delivery failed.
func (o Outcome) Failed() int { return o.count(Failed) }

func (o Outcome) count(s Status) int {
	n := 0
	for _, d := range o.Deliveries {
		if d.Status == s {
			n++
		}
	}
	return n
}

// Notifier fans a message out over direct messages.
type Notifier struct {
	dm  gateway.DMOpener
	log *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets a custom logger for the Notifier.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.log = l
		}
	}
}

// New builds a Notifier that opens DM channels through dm.
func New(dm gateway.DMOpener, opts ...Option) *Notifier {
	n := &Notifier{dm: dm, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Notify sends message to every distinct non-bot recipient. A failure
// for one recipient is logged and recorded but never stops the batch,
// and Notify itself never fails. Each recipient is attempted at most
// once even if it appears multiple times in recipients.
func (n *Notifier) Notify(ctx context.Context, recipients []gateway.User, message string) Outcome {
	out := Outcome{Deliveries: make([]Delivery, 0, len(recipients))}
	seen := make(map[gateway.UserID]struct{}, len(recipients))

	for _, u := range recipients {
		if u.Bot {
			out.Deliveries = append(out.Deliveries, Delivery{User: u.ID, Status: SkippedBot})
			continue
		}
		if _, dup := seen[u.ID]; dup {
			out.Deliveries = append(out.Deliveries, Delivery{User: u.ID, Status: SkippedDuplicate})
			continue
		}
		seen[u.ID] = struct{}{}

		if err := n.deliver(ctx, u.ID, message); err != nil {
			n.log.Error("failed to notify user", "user_id", u.ID, "error", err)
			out.Deliveries = append(out.Deliveries, Delivery{User: u.ID, Status: Failed, Err: err})
			continue
		}
		out.Deliveries = append(out.Deliveries, Delivery{User: u.ID, Status: Delivered})
	}
	return out
}

func (n *Notifier) deliver(ctx context.Context, user gateway.UserID, message string) error {
	ch, err := n.dm.OpenDM(ctx, user)
	if err != nil {
		return err
	}
	return ch.Send(ctx, message)
}
