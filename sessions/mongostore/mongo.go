// Package mongostore is the durable sessions.Store backed by MongoDB.
// The advertising message id is the document _id, and a TTL index on
// createdAt enforces the retention window inside the database, so rows
// age out even if the process is down.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/grl-racing/grlbot/gateway"
	"github.com/grl-racing/grlbot/sessions"
)

const (
	defaultDatabase   = "grlbot"
	defaultCollection = "training_sessions"
)

// Config contains configuration options for the Mongo store.
type Config struct {
	// Client is the connected Mongo client instance.
	Client *mongo.Client
	// Database name. Default: "grlbot".
	Database string
	// Collection name. Default: "training_sessions".
	Collection string
	// TTL for session rows. Default: sessions.RetentionWindow.
	TTL time.Duration
}

// Store implements sessions.Store on a Mongo collection.
type Store struct {
	client *mongo.Client
	col    *mongo.Collection
	ttl    time.Duration
}

type record struct {
	ID        string    `bson:"_id"`
	CreatorID string    `bson:"creatorId"`
	TenantID  *string   `bson:"tenantId,omitempty"`
	ChannelID *string   `bson:"channelId,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

// New builds a Store. Call EnsureIndexes once at startup before serving.
func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, errors.New("mongostore: mongo client is required")
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}
	if cfg.TTL <= 0 {
		cfg.TTL = sessions.RetentionWindow
	}
	return &Store{
		client: cfg.Client,
		col:    cfg.Client.Database(cfg.Database).Collection(cfg.Collection),
		ttl:    cfg.TTL,
	}, nil
}

// EnsureIndexes creates the TTL index that expires rows after the
// retention window. Safe to call on every startup; Mongo treats an
// identical existing index as a no-op.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(s.ttl / time.Second)),
	})
	if err != nil {
		return fmt.Errorf("create ttl index: %w", err)
	}
	return nil
}

// Insert writes a new session row, stamping CreatedAt. The message id is
// assigned by the platform and never reused, so a duplicate key is a
// genuine storage failure, not a conflict to resolve.
func (s *Store) Insert(ctx context.Context, sess sessions.Session) error {
	rec := record{
		ID:        string(sess.ID),
		CreatorID: string(sess.CreatorID),
		CreatedAt: time.Now().UTC(),
	}
	if sess.TenantID != nil {
		t := string(*sess.TenantID)
		rec.TenantID = &t
	}
	if sess.ChannelID != nil {
		c := string(*sess.ChannelID)
		rec.ChannelID = &c
	}
	if _, err := s.col.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get returns the session for id, or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id gateway.MessageID) (*sessions.Session, error) {
	var rec record
	err := s.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return rec.toSession(), nil
}

// Delete removes the row for id. DeleteOne is atomic per key, so of two
// racing cancels exactly one observes deleted == true.
func (s *Store) Delete(ctx context.Context, id gateway.MessageID) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping verifies the database is reachable, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (r *record) toSession() *sessions.Session {
	sess := &sessions.Session{
		ID:        gateway.MessageID(r.ID),
		CreatorID: gateway.UserID(r.CreatorID),
		CreatedAt: r.CreatedAt,
	}
	if r.TenantID != nil {
		t := gateway.TenantID(*r.TenantID)
		sess.TenantID = &t
	}
	if r.ChannelID != nil {
		c := gateway.ChannelID(*r.ChannelID)
		sess.ChannelID = &c
	}
	return sess
}

// Interface compliance
var _ sessions.Store = (*Store)(nil)
