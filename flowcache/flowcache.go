// Package flowcache holds partially-built command state between an
// initial command and its follow-up component step, keyed by user and
// flow. Entries are small, short-lived and bounded: a user who abandons
// a flow mid-way costs one entry until its TTL runs out, never a
// permanent leak.
package flowcache

import (
	"context"
	"time"

	"github.com/grl-racing/grlbot/gateway"
)

// DefaultTTL is how long an abandoned flow entry survives.
const DefaultTTL = 10 * time.Minute

// Key identifies one in-progress flow. A user has at most one live entry
// per flow id; starting the flow again overwrites the previous entry.
type Key struct {
	User gateway.UserID
	Flow string
}

func (k Key) String() string { return string(k.User) + ":" + k.Flow }

// Cache stores pending flow state. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Put stores value under key for at most ttl.
	Put(ctx context.Context, key Key, value []byte, ttl time.Duration) error
	// Take returns the value for key and removes it, or (nil, nil) when
	// the key is absent or expired. A value is handed out at most once.
	Take(ctx context.Context, key Key) ([]byte, error)
	Close() error
}
