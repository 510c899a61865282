// Package sessions owns the lifecycle of a training session: created by
// one user, advertised through a persistent message, cancelled by its
// creator. The advertising message id is the session's identity; a
// session exists exactly as long as its row exists in the store.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/grl-racing/grlbot/gateway"
)

// RetentionWindow is how long a session row is kept before the store
// expires it on its own. Expiry is a storage policy, not a lifecycle
// transition; the manager never drives it.
const RetentionWindow = 14 * 24 * time.Hour

var (
	// ErrNotFound means no session exists for the message id; it either
	// never existed, was cancelled, or aged out.
	ErrNotFound = errors.New("sessions: session not found")
	// ErrNotOwner means the requesting user did not create the session.
	ErrNotOwner = errors.New("sessions: requester is not the session creator")
)

// Session is one scheduled training awaiting or past RSVP collection.
// Identifying fields never change after creation.
type Session struct {
	// ID is the platform-assigned id of the advertising message.
	ID        gateway.MessageID
	CreatorID gateway.UserID
	// TenantID is nil when the session was created from a direct-message
	// context.
	TenantID  *gateway.TenantID
	ChannelID *gateway.ChannelID
	// CreatedAt is stamped by the store at insert time, never by the
	// caller.
	CreatedAt time.Time
}

// Store is durable keyed persistence for sessions. Implementations must
// support concurrent use across distinct ids and atomic per-key delete:
// of two racing Delete calls for the same id, exactly one observes
// deleted == true.
type Store interface {
	// Insert writes a new session row, stamping CreatedAt.
	Insert(ctx context.Context, s Session) error
	// Get returns the session for id, or (nil, nil) when absent.
	Get(ctx context.Context, id gateway.MessageID) (*Session, error)
	// Delete removes the row for id and reports whether a row existed.
	Delete(ctx context.Context, id gateway.MessageID) (bool, error)
	Close() error
}
