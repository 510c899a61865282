// Package commands implements the bot's slash commands and their
// component follow-ups. Each command is a Registration handed to the
// router; multi-step flows park their intermediate state in a flowcache
// between steps.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/grl-racing/grlbot/flowcache"
	"github.com/grl-racing/grlbot/gateway"
	"github.com/grl-racing/grlbot/router"
	"github.com/grl-racing/grlbot/sessions"
)

// Component action ids for the practice flow. They are baked into
// published messages, so changing them orphans live widgets.
const (
	actionRoleSelect = "role_select_menu"
	actionNoRoles    = "no_roles_selected"
	actionCancel     = "cancel_training"
)

// flowPractice keys pending practice data in the flowcache.
const flowPractice = "practice"

// discussionThreadName is the thread opened under every announcement.
const discussionThreadName = "Diskuze zde"

// PracticeArgs are the /practice arguments. The JSON schema reflected
// from this struct drives both the advertised option list and decode
// validation.
type PracticeArgs struct {
	Track            string `json:"track" jsonschema:"description=Okruh"`
	Date             string `json:"date" jsonschema:"description=Datum tréninku"`
	Time             string `json:"time" jsonschema:"description=Čas startu"`
	DriversRequired  int    `json:"drivers_required" jsonschema:"description=Minimální počet pilotů"`
	QualifyingFormat string `json:"qualifying_format" jsonschema:"description=Formát kvalifikace"`
	RaceFormat       string `json:"race_format" jsonschema:"description=Formát závodu"`
	Comment          string `json:"comment,omitempty" jsonschema:"description=Poznámka (nepovinné)"`
}

// Handlers bundles the command handlers over their shared dependencies.
type Handlers struct {
	manager *sessions.Manager
	flows   flowcache.Cache
	log     *slog.Logger

	// rollDie returns a value in [0,6); 0 loses the roulette.
	rollDie func() int
}

// Option configures Handlers.
type Option func(*Handlers)

// WithLogger sets a custom logger for the Handlers.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handlers) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandlers builds the command handler set.
func NewHandlers(manager *sessions.Manager, flows flowcache.Cache, opts ...Option) *Handlers {
	h := &Handlers{
		manager: manager,
		flows:   flows,
		log:     slog.Default(),
		rollDie: defaultRoll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Registrations returns every route the bot serves, ready to hand to the
// router.
func (h *Handlers) Registrations() []router.Registration {
	return []router.Registration{
		{
			Route:       "practice",
			Kind:        gateway.KindCommand,
			Description: "Create a practice",
			Handler:     router.HandlerFunc(h.handlePractice),
			Args:        &PracticeArgs{},
			Choices: map[string][]gateway.Choice{
				"track":             TrackChoices(),
				"time":              TimeSlotChoices(),
				"qualifying_format": QualifyingChoices(),
				"race_format":       RaceChoices(),
			},
		},
		{
			Route:   actionRoleSelect,
			Kind:    gateway.KindComponent,
			Handler: router.HandlerFunc(h.handleRoleSelect),
		},
		{
			Route:   actionNoRoles,
			Kind:    gateway.KindComponent,
			Handler: router.HandlerFunc(h.handleNoRoles),
		},
		{
			Route:   actionCancel,
			Kind:    gateway.KindComponent,
			Handler: router.HandlerFunc(h.handleCancel),
		},
		{
			Route:       "prune",
			Kind:        gateway.KindCommand,
			Description: "Prune messages from recent until a specific date",
			Handler:     router.HandlerFunc(h.handlePrune),
			Args:        &PruneArgs{},
			AdminOnly:   true,
			TenantOnly:  true,
		},
		{
			Route:       "roulette",
			Kind:        gateway.KindCommand,
			Description: "Can you survive the roulette?",
			Handler:     router.HandlerFunc(h.handleRoulette),
		},
	}
}

// handlePractice parks the command arguments in the flowcache and asks
// the creator which roles to ping. The announcement is not published
// until the role step completes.
func (h *Handlers) handlePractice(ctx context.Context, ev *gateway.Event) error {
	args, ok := ev.ParsedArgs.(*PracticeArgs)
	if !ok {
		return fmt.Errorf("practice: unexpected argument type %T", ev.ParsedArgs)
	}
	if args.DriversRequired < 1 {
		return router.Validationf("počet pilotů musí být alespoň 1")
	}

	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("practice: encode pending data: %w", err)
	}
	key := flowcache.Key{User: ev.Interaction.User.ID, Flow: flowPractice}
	if err := h.flows.Put(ctx, key, data, flowcache.DefaultTTL); err != nil {
		return fmt.Errorf("practice: store pending data: %w", err)
	}

	drivers := driverRoles(ev.TenantRoles)
	prompt := RoleSelectPrompt
	if len(drivers) == 0 {
		prompt = NoRolesAvailablePrompt
	}
	maxValues := len(drivers)
	if maxValues == 0 {
		maxValues = 1
	}
	options := make([]gateway.Choice, 0, len(drivers))
	for _, r := range drivers {
		options = append(options, gateway.Choice{Name: r.Name, Value: r.ID})
	}

	return ev.Responder.Respond(ctx, gateway.Reply{
		Content:   prompt,
		Ephemeral: true,
		Components: &gateway.Components{
			Select: &gateway.SelectMenu{
				ActionID:    actionRoleSelect,
				Placeholder: "Vyber role pro ping (nepovinné)",
				MinValues:   0,
				MaxValues:   maxValues,
				Options:     options,
			},
			Buttons: []gateway.Button{
				{ActionID: actionNoRoles, Label: "Pokračovat bez rolí", Style: gateway.ButtonSecondary},
			},
		},
	})
}

// handleRoleSelect resumes the flow with the chosen roles.
func (h *Handlers) handleRoleSelect(ctx context.Context, ev *gateway.Event) error {
	args, err := h.takeFlow(ctx, ev.Interaction.User.ID)
	if err != nil {
		return err
	}
	roles := resolveRoles(ev.TenantRoles, ev.Interaction.Values)
	return h.finalize(ctx, ev, args, roles)
}

// handleNoRoles resumes the flow without any ping roles.
func (h *Handlers) handleNoRoles(ctx context.Context, ev *gateway.Event) error {
	args, err := h.takeFlow(ctx, ev.Interaction.User.ID)
	if err != nil {
		return err
	}
	return h.finalize(ctx, ev, args, nil)
}

func (h *Handlers) takeFlow(ctx context.Context, user gateway.UserID) (*PracticeArgs, error) {
	data, err := h.flows.Take(ctx, flowcache.Key{User: user, Flow: flowPractice})
	if err != nil {
		return nil, fmt.Errorf("practice: load pending data: %w", err)
	}
	if data == nil {
		return nil, router.Validationf("%s", FlowExpiredMessage)
	}
	var args PracticeArgs
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("practice: decode pending data: %w", err)
	}
	return &args, nil
}

// finalize publishes the announcement, records the session, seeds the
// RSVP reactions and opens the discussion thread. Reactions and thread
// creation are best-effort; a published announcement with a recorded
// session is a success even if decorations fail.
func (h *Handlers) finalize(ctx context.Context, ev *gateway.Event, args *PracticeArgs, roles []gateway.Role) error {
	if ev.Channel == nil {
		return errors.New("practice: component event has no channel")
	}
	creator := ev.Interaction.User

	msg, err := ev.Channel.Publish(ctx, gateway.Reply{
		Content: TrainingAnnouncement(args, roles, creator),
		Components: &gateway.Components{
			Buttons: []gateway.Button{
				{ActionID: actionCancel, Label: "Zrušit trénink", Style: gateway.ButtonDanger},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("practice: publish announcement: %w", err)
	}

	channelID := ev.Channel.ID()
	if err := h.manager.Create(ctx, msg.ID(), creator.ID, ev.Interaction.TenantID, &channelID); err != nil {
		return err
	}

	for _, emoji := range sessions.RSVPEmoji {
		if err := msg.React(ctx, emoji); err != nil {
			h.log.Warn("could not seed reaction", "message_id", msg.ID(), "emoji", emoji, "error", err)
		}
	}
	if err := ev.Channel.StartThread(ctx, msg.ID(), discussionThreadName); err != nil {
		h.log.Warn("could not open discussion thread", "message_id", msg.ID(), "error", err)
	}

	err = ev.Responder.EditOriginal(ctx, gateway.Reply{
		Content:    CreationConfirmation(creator, len(roles) > 0),
		Components: &gateway.Components{},
	})
	if err != nil {
		h.log.Warn("could not edit role prompt", "error", err)
	}
	return nil
}

// handleCancel runs when someone presses the cancel button on an
// announcement. Ownership is checked by the session manager; denials map
// to the fixed user-visible messages.
func (h *Handlers) handleCancel(ctx context.Context, ev *gateway.Event) error {
	if ev.Message == nil {
		return errors.New("cancel: component event has no message")
	}
	id := ev.Message.ID()
	err := h.manager.Cancel(ctx, ev.Message, id, ev.Interaction.User.ID)
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		return router.Validationf("Tenhle trénink neexistuje nebo už byl zrušen.")
	case errors.Is(err, sessions.ErrNotOwner):
		return router.Permissionf("Tenhle trénink nemůžeš zrušit.")
	case err != nil:
		return fmt.Errorf("cancel session %s: %w", id, err)
	}
	return ev.Responder.Respond(ctx, gateway.Reply{Content: CancelConfirmation, Ephemeral: true})
}

// driverRoles filters tenant roles down to the ones offered for pinging.
func driverRoles(roles []gateway.Role) []gateway.Role {
	var out []gateway.Role
	for _, r := range roles {
		if strings.Contains(strings.ToLower(r.Name), "driver") {
			out = append(out, r)
		}
	}
	return out
}

// resolveRoles maps selected role ids back to tenant roles, dropping ids
// that no longer resolve (deleted between prompt and selection).
func resolveRoles(roles []gateway.Role, selected []string) []gateway.Role {
	byID := make(map[string]gateway.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	var out []gateway.Role
	for _, id := range selected {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
