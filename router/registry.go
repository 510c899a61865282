package router

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/grl-racing/grlbot/gateway"
)

// Handler executes one interaction. Handlers own their success
// responses; failures they want mapped to user-visible messages are
// returned as ValidationError or PermissionError.
type Handler interface {
	Handle(ctx context.Context, ev *gateway.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev *gateway.Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev *gateway.Event) error { return f(ctx, ev) }

// Registration declares one route: a slash command or a component
// action id, bound to a handler.
type Registration struct {
	// Route is the command name (KindCommand) or component action id
	// (KindComponent, KindModal).
	Route string
	Kind  gateway.InteractionKind
	// Description is advertised to the platform for commands.
	Description string
	Handler     Handler
	// Args, for commands, is a pointer to the argument struct prototype.
	// Its JSON schema drives the advertised option list and required-
	// field validation on decode.
	Args any
	// Choices constrains string arguments to enumerated values, keyed by
	// the argument's JSON name.
	Choices    map[string][]gateway.Choice
	AdminOnly  bool
	TenantOnly bool
}

type compiledRoute struct {
	Registration
	spec     *gateway.CommandSpec
	required []string
}

// Registry is the immutable routing table. It is built exactly once at
// router start and only read afterwards, so lookups need no locking.
type Registry struct {
	routes map[string]*compiledRoute
	specs  []gateway.CommandSpec
}

// NewRegistry compiles registrations into a routing table. Duplicate
// routes and malformed argument prototypes are build errors: the router
// refuses to start rather than shadow a handler.
func NewRegistry(regs ...Registration) (*Registry, error) {
	r := &Registry{routes: make(map[string]*compiledRoute, len(regs))}
	for _, reg := range regs {
		if reg.Route == "" {
			return nil, fmt.Errorf("registration with empty route")
		}
		if reg.Handler == nil {
			return nil, fmt.Errorf("route %q has no handler", reg.Route)
		}
		if _, dup := r.routes[reg.Route]; dup {
			return nil, fmt.Errorf("route %q registered twice", reg.Route)
		}

		cr := &compiledRoute{Registration: reg}
		if reg.Kind == gateway.KindCommand {
			spec, required, err := compileCommand(reg)
			if err != nil {
				return nil, fmt.Errorf("route %q: %w", reg.Route, err)
			}
			cr.spec = spec
			cr.required = required
			r.specs = append(r.specs, *spec)
		}
		r.routes[reg.Route] = cr
	}
	return r, nil
}

// Lookup returns the registration for route.
func (r *Registry) Lookup(route string) (*Registration, bool) {
	cr, ok := r.routes[route]
	if !ok {
		return nil, false
	}
	return &cr.Registration, true
}

// CommandSpecs returns the advertised command set.
func (r *Registry) CommandSpecs() []gateway.CommandSpec {
	return append([]gateway.CommandSpec(nil), r.specs...)
}

// DecodeArgs unmarshals an interaction's argument object into dst,
// enforcing the route's required fields and enumerated choices. Failures
// come back as ValidationError so the router can answer the user with
// the specific problem.
func (r *Registry) DecodeArgs(route string, raw json.RawMessage, dst any) error {
	cr, ok := r.routes[route]
	if !ok {
		return ErrUnknownRoute
	}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Validationf("argumenty příkazu se nepodařilo přečíst")
	}
	for _, name := range cr.required {
		if _, present := fields[name]; !present {
			return Validationf("chybí povinný argument %q", name)
		}
	}
	for name, choices := range cr.Choices {
		rawVal, present := fields[name]
		if !present {
			continue
		}
		var val string
		if err := json.Unmarshal(rawVal, &val); err != nil {
			return Validationf("argument %q má neplatnou hodnotu", name)
		}
		if !choiceAllowed(choices, val) {
			return Validationf("argument %q má neplatnou hodnotu %q", name, val)
		}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return Validationf("argumenty příkazu se nepodařilo přečíst")
	}
	return nil
}

func choiceAllowed(choices []gateway.Choice, val string) bool {
	for _, c := range choices {
		if c.Value == val {
			return true
		}
	}
	return false
}

// compileCommand derives the advertised option list from the argument
// prototype's reflected JSON schema, merging in any declared choices.
func compileCommand(reg Registration) (*gateway.CommandSpec, []string, error) {
	spec := &gateway.CommandSpec{
		Name:        reg.Route,
		Description: reg.Description,
		AdminOnly:   reg.AdminOnly,
		TenantOnly:  reg.TenantOnly,
	}
	if reg.Args == nil {
		return spec, nil, nil
	}
	rt := reflect.TypeOf(reg.Args)
	if rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("argument prototype must be a pointer to struct, got %T", reg.Args)
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(reg.Args)
	if schema.Type != "object" {
		return nil, nil, fmt.Errorf("argument prototype must be a struct, got schema type %q", schema.Type)
	}

	requiredSet := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		requiredSet[name] = true
	}

	if schema.Properties == nil {
		return spec, schema.Required, nil
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name, prop := pair.Key, pair.Value
		switch prop.Type {
		case "string", "integer", "boolean":
		default:
			return nil, nil, fmt.Errorf("argument %q has unsupported schema type %q", name, prop.Type)
		}
		spec.Options = append(spec.Options, gateway.CommandOption{
			Name:        name,
			Description: prop.Description,
			Type:        prop.Type,
			Required:    requiredSet[name],
			Choices:     reg.Choices[name],
		})
	}
	return spec, schema.Required, nil
}
