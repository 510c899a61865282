// Package memorystore is an in-memory sessions.Store used by tests and
// single-process development runs. It honors the same retention window
// as the durable store: rows older than the TTL are invisible to Get and
// swept by a background goroutine.
package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/grl-racing/grlbot/gateway"
	"github.com/grl-racing/grlbot/sessions"
)

const sweepInterval = time.Minute

// Store implements sessions.Store with a mutex-guarded map.
type Store struct {
	mu   sync.RWMutex
	rows map[gateway.MessageID]sessions.Session

	ttl  time.Duration
	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the retention window. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Store with the default 14-day retention window.
func New(opts ...Option) *Store {
	s := &Store{
		rows: make(map[gateway.MessageID]sessions.Session),
		ttl:  sessions.RetentionWindow,
		now:  time.Now,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	go s.sweep()
	return s
}

// Insert writes a new session row, stamping CreatedAt.
func (s *Store) Insert(ctx context.Context, sess sessions.Session) error {
	sess.CreatedAt = s.now().UTC()
	s.mu.Lock()
	s.rows[sess.ID] = sess
	s.mu.Unlock()
	return nil
}

// Get returns the live session for id, or (nil, nil) when absent or
// expired. Expired rows are removed lazily.
func (s *Store) Get(ctx context.Context, id gateway.MessageID) (*sessions.Session, error) {
	s.mu.RLock()
	sess, ok := s.rows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.expired(sess) {
		s.mu.Lock()
		delete(s.rows, id)
		s.mu.Unlock()
		return nil, nil
	}
	out := sess
	return &out, nil
}

// Delete removes the row for id and reports whether one existed. The
// check and removal happen under one lock, so of two racing deletes
// exactly one observes true.
func (s *Store) Delete(ctx context.Context, id gateway.MessageID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.rows[id]
	if !ok || s.expired(sess) {
		delete(s.rows, id)
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

// Close stops the background sweeper.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *Store) expired(sess sessions.Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.CreatedAt) > s.ttl
}

func (s *Store) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			for id, sess := range s.rows {
				if s.expired(sess) {
					delete(s.rows, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Interface compliance
var _ sessions.Store = (*Store)(nil)
