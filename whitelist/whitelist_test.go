package whitelist

import (
	"testing"

	"github.com/grl-racing/grlbot/gateway"
)

func tenant(id string) *gateway.TenantID {
	t := gateway.TenantID(id)
	return &t
}

func TestAllowsWhitelistedTenant(t *testing.T) {
	g := New([]gateway.TenantID{"t1", "t2"})

	if !g.IsAuthorized(tenant("t1")) {
		t.Error("IsAuthorized(t1) = false, want true")
	}
	if !g.IsAuthorized(tenant("t2")) {
		t.Error("IsAuthorized(t2) = false, want true")
	}
}

func TestDeniesUnknownTenant(t *testing.T) {
	g := New([]gateway.TenantID{"t1"})

	if g.IsAuthorized(tenant("t2")) {
		t.Error("IsAuthorized(t2) = true, want false")
	}
}

func TestNoPartialMatches(t *testing.T) {
	g := New([]gateway.TenantID{"t1"})

	for _, id := range []string{"t", "t11", " t1", "t1 "} {
		if g.IsAuthorized(tenant(id)) {
			t.Errorf("IsAuthorized(%q) = true, want false", id)
		}
	}
}

func TestDirectMessageAlwaysAllowed(t *testing.T) {
	if !New([]gateway.TenantID{"t1"}).IsAuthorized(nil) {
		t.Error("IsAuthorized(nil) = false with non-empty whitelist, want true")
	}
	if !New(nil).IsAuthorized(nil) {
		t.Error("IsAuthorized(nil) = false with empty whitelist, want true")
	}
}

func TestEmptyWhitelistFailsClosed(t *testing.T) {
	g := New(nil)

	for _, id := range []string{"t1", "t2", ""} {
		if g.IsAuthorized(tenant(id)) {
			t.Errorf("IsAuthorized(%q) = true with empty whitelist, want false", id)
		}
	}
}
