package router_test

import (
	"context"
	"errors"
	"testing"

	"github.com/grl-racing/grlbot/gateway"
	"github.com/grl-racing/grlbot/router"
)

type echoArgs struct {
	Name  string `json:"name" jsonschema:"description=Who to greet"`
	Count int    `json:"count" jsonschema:"description=How many times"`
	Loud  bool   `json:"loud,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

func noopHandler() router.Handler {
	return router.HandlerFunc(func(ctx context.Context, ev *gateway.Event) error { return nil })
}

func echoRegistration() router.Registration {
	return router.Registration{
		Route:       "echo",
		Kind:        gateway.KindCommand,
		Description: "Echo a greeting",
		Handler:     noopHandler(),
		Args:        &echoArgs{},
		Choices: map[string][]gateway.Choice{
			"mode": {{Name: "Plain", Value: "plain"}, {Name: "Fancy", Value: "fancy"}},
		},
	}
}

func TestCommandSpecFromPrototype(t *testing.T) {
	registry, err := router.NewRegistry(echoRegistration())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	specs := registry.CommandSpecs()
	if len(specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(specs))
	}
	spec := specs[0]
	if spec.Name != "echo" || spec.Description != "Echo a greeting" {
		t.Errorf("spec header = %q/%q", spec.Name, spec.Description)
	}
	if len(spec.Options) != 4 {
		t.Fatalf("got %d options, want 4", len(spec.Options))
	}

	opts := make(map[string]gateway.CommandOption, len(spec.Options))
	for _, o := range spec.Options {
		opts[o.Name] = o
	}
	if got := opts["name"]; !got.Required || got.Type != "string" {
		t.Errorf("name option = %+v, want required string", got)
	}
	if got := opts["count"]; !got.Required || got.Type != "integer" {
		t.Errorf("count option = %+v, want required integer", got)
	}
	if got := opts["loud"]; got.Required || got.Type != "boolean" {
		t.Errorf("loud option = %+v, want optional boolean", got)
	}
	if got := len(opts["mode"].Choices); got != 2 {
		t.Errorf("mode has %d choices, want 2", got)
	}
	if opts["name"].Description != "Who to greet" {
		t.Errorf("name description = %q", opts["name"].Description)
	}
}

func TestDecodeArgsHappyPath(t *testing.T) {
	registry, err := router.NewRegistry(echoRegistration())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	var dst echoArgs
	raw := []byte(`{"name":"svetlana","count":3,"mode":"fancy"}`)
	if err := registry.DecodeArgs("echo", raw, &dst); err != nil {
		t.Fatalf("DecodeArgs: %v", err)
	}
	if dst.Name != "svetlana" || dst.Count != 3 || dst.Mode != "fancy" {
		t.Errorf("decoded = %+v", dst)
	}
}

func TestDecodeArgsMissingRequired(t *testing.T) {
	registry, err := router.NewRegistry(echoRegistration())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	var dst echoArgs
	err = registry.DecodeArgs("echo", []byte(`{"name":"svetlana"}`), &dst)
	var ve *router.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}

func TestDecodeArgsRejectsUnknownChoice(t *testing.T) {
	registry, err := router.NewRegistry(echoRegistration())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	var dst echoArgs
	err = registry.DecodeArgs("echo", []byte(`{"name":"s","count":1,"mode":"sparkly"}`), &dst)
	var ve *router.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}

func TestDecodeArgsUnknownRoute(t *testing.T) {
	registry, err := router.NewRegistry(echoRegistration())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	var dst echoArgs
	if err := registry.DecodeArgs("nope", nil, &dst); !errors.Is(err, router.ErrUnknownRoute) {
		t.Fatalf("got %v, want ErrUnknownRoute", err)
	}
}

func TestRegistryRejectsNonStructPrototype(t *testing.T) {
	bad := router.Registration{
		Route:   "bad",
		Kind:    gateway.KindCommand,
		Handler: noopHandler(),
		Args:    "not a struct",
	}
	if _, err := router.NewRegistry(bad); err == nil {
		t.Fatal("expected build error for non-struct prototype")
	}
}

func TestComponentRouteHasNoSpec(t *testing.T) {
	registry, err := router.NewRegistry(router.Registration{
		Route:   "press_me",
		Kind:    gateway.KindComponent,
		Handler: noopHandler(),
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := len(registry.CommandSpecs()); got != 0 {
		t.Errorf("component routes advertised %d specs, want 0", got)
	}
}
