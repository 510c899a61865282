package memorycache

import (
	"context"
	"testing"
	"time"

	"github.com/grl-racing/grlbot/flowcache"
)

func TestPutTake(t *testing.T) {
	c, err := New(16)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer c.Close()
	ctx := context.Background()
	key := flowcache.Key{User: "u1", Flow: "practice"}

	if err := c.Put(ctx, key, []byte("pending"), time.Minute); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := c.Take(ctx, key)
	if err != nil {
		t.Fatalf("Take() failed: %v", err)
	}
	if string(got) != "pending" {
		t.Fatalf("Take() = %q, want %q", got, "pending")
	}
}

func TestTakeRemoves(t *testing.T) {
	c, err := New(16)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer c.Close()
	ctx := context.Background()
	key := flowcache.Key{User: "u1", Flow: "practice"}

	if err := c.Put(ctx, key, []byte("pending"), time.Minute); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if _, err := c.Take(ctx, key); err != nil {
		t.Fatalf("Take() failed: %v", err)
	}

	got, err := c.Take(ctx, key)
	if err != nil {
		t.Fatalf("second Take() failed: %v", err)
	}
	if got != nil {
		t.Fatalf("second Take() = %q, want nil", got)
	}
}

func TestTakeAbsent(t *testing.T) {
	c, err := New(16)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer c.Close()

	got, err := c.Take(context.Background(), flowcache.Key{User: "nobody", Flow: "practice"})
	if err != nil {
		t.Fatalf("Take() failed: %v", err)
	}
	if got != nil {
		t.Fatalf("Take() = %q, want nil", got)
	}
}

func TestExpiredEntryNotReturned(t *testing.T) {
	c, err := New(16)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer c.Close()
	ctx := context.Background()
	key := flowcache.Key{User: "u1", Flow: "practice"}

	if err := c.Put(ctx, key, []byte("pending"), time.Nanosecond); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	got, err := c.Take(ctx, key)
	if err != nil {
		t.Fatalf("Take() failed: %v", err)
	}
	if got != nil {
		t.Fatalf("Take() = %q after TTL, want nil", got)
	}
}

func TestDistinctUsersDistinctEntries(t *testing.T) {
	c, err := New(16)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Put(ctx, flowcache.Key{User: "u1", Flow: "practice"}, []byte("one"), time.Minute); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := c.Put(ctx, flowcache.Key{User: "u2", Flow: "practice"}, []byte("two"), time.Minute); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := c.Take(ctx, flowcache.Key{User: "u2", Flow: "practice"})
	if err != nil {
		t.Fatalf("Take() failed: %v", err)
	}
	if string(got) != "two" {
		t.Fatalf("Take(u2) = %q, want %q", got, "two")
	}
}
