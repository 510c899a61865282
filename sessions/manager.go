package sessions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grl-racing/grlbot/gateway"
	"github.com/grl-racing/grlbot/notify"
)

// RSVPEmoji is the fixed set of reactions that mark interest in a
// session. Users who reacted with any of these are notified when the
// session is cancelled.
var RSVPEmoji = []string{"✅", "❓"}

// CancelledMarker replaces the advertising message content once a
// session is cancelled.
const CancelledMarker = "🚫 **TRÉNINK ZRUŠEN**"

// CancellationNotice is the direct message sent to everyone who RSVPed
// on a cancelled session.
const CancellationNotice = "Trénink na GRL zrušený. Klidně založ svůj vlastní v kanálu pro tréninkové registrace."

// Notifier is the slice of the notify package the manager needs.
type Notifier interface {
	Notify(ctx context.Context, recipients []gateway.User, message string) notify.Outcome
}

// Manager implements session create and cancel on top of a Store and a
// Notifier. It keeps no in-memory session state: every operation reads
// the store directly, so concurrent cancels resolve on the store's
// atomic delete.
type Manager struct {
	store    Store
	notifier Notifier
	log      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a custom logger for the Manager.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager builds a Manager.
func NewManager(store Store, notifier Notifier, opts ...Option) *Manager {
	m := &Manager{store: store, notifier: notifier, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Create records a new session keyed by the advertising message id. The
// message is already public by the time this runs; if the store write
// fails the resulting live-message-without-row inconsistency is
// accepted and logged, and the error propagates to the caller.
func (m *Manager) Create(ctx context.Context, id gateway.MessageID, creator gateway.UserID, tenant *gateway.TenantID, channel *gateway.ChannelID) error {
	err := m.store.Insert(ctx, Session{
		ID:        id,
		CreatorID: creator,
		TenantID:  tenant,
		ChannelID: channel,
	})
	if err != nil {
		m.log.Error("session not recorded; advertising message is already public",
			"message_id", id, "creator_id", creator, "error", err)
		return fmt.Errorf("insert session %s: %w", id, err)
	}
	return nil
}

// Cancel tears down the session advertised by advert, provided requester
// created it. On success the advertising message is marked cancelled,
// every distinct non-bot RSVP reactor is notified over DM, and the row
// is removed. Marking and notification are best-effort: their failures
// are logged and never block removal or surface to the requester.
//
// advert may be nil when the advertising message is already gone; the
// row is still removed, since the store is the authority on whether the
// session exists.
func (m *Manager) Cancel(ctx context.Context, advert gateway.Message, id gateway.MessageID, requester gateway.UserID) error {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup session %s: %w", id, err)
	}
	if s == nil {
		return ErrNotFound
	}
	if s.CreatorID != requester {
		m.log.Info("cancel denied", "message_id", id, "creator_id", s.CreatorID, "requester_id", requester)
		return ErrNotOwner
	}

	if advert != nil {
		m.markCancelled(ctx, advert)
		reactors := m.collectReactors(ctx, advert)
		if len(reactors) > 0 {
			out := m.notifier.Notify(ctx, reactors, CancellationNotice)
			m.log.Info("cancellation notices sent",
				"message_id", id, "delivered", out.Delivered(), "failed", out.Failed())
		}
	}

	deleted, err := m.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if !deleted {
		// Lost a race with another cancel; the row is gone either way.
		return ErrNotFound
	}
	return nil
}

// markCancelled rewrites the advertising message and strips its
// components. The message may already be deleted externally; that is
// not a reason to keep the session alive.
func (m *Manager) markCancelled(ctx context.Context, advert gateway.Message) {
	err := advert.Edit(ctx, gateway.Reply{
		Content:    CancelledMarker,
		Components: &gateway.Components{},
	})
	if err != nil {
		m.log.Warn("could not mark advertising message as cancelled",
			"message_id", advert.ID(), "error", err)
	}
}

// collectReactors gathers every user who reacted with an RSVP emoji.
// Duplicates across emoji are fine; the notifier deduplicates. A failed
// reaction listing degrades to notifying fewer people, never to a
// failed cancel.
func (m *Manager) collectReactors(ctx context.Context, advert gateway.Message) []gateway.User {
	var users []gateway.User
	for _, emoji := range RSVPEmoji {
		reacted, err := advert.ReactionUsers(ctx, emoji)
		if err != nil {
			m.log.Warn("could not list reactions",
				"message_id", advert.ID(), "emoji", emoji, "error", err)
			continue
		}
		users = append(users, reacted...)
	}
	return users
}
