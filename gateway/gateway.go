package gateway

import (
	"context"
	"encoding/json"
)

// Opaque platform identifiers. They are strings end to end; the bot never
// does arithmetic on them.
type (
	UserID    string
	TenantID  string
	ChannelID string
	MessageID string
)

// InteractionKind discriminates the three inbound event shapes the
// platform can deliver. Each has its own response channel but the router
// treats them uniformly.
type InteractionKind int

const (
	KindCommand InteractionKind = iota
	KindComponent
	KindModal
)

func (k InteractionKind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindComponent:
		return "component"
	case KindModal:
		return "modal"
	default:
		return "unknown"
	}
}

// User is the acting or reacting platform account.
type User struct {
	ID       UserID
	Username string
	Bot      bool
}

// Mention renders the platform mention token for the user.
func (u User) Mention() string { return "<@" + string(u.ID) + ">" }

// Interaction is one inbound event, already deserialized by the adapter.
//
// Route carries the command name for KindCommand and the component action
// id for KindComponent and KindModal. Args is the structured argument
// object for commands; Values holds selected option values for select
// menu components. TenantID is nil for direct-message contexts.
type Interaction struct {
	ID         string
	Kind       InteractionKind
	Route      string
	User       User
	TenantID   *TenantID
	TenantName string
	ChannelID  *ChannelID
	Args       json.RawMessage
	Values     []string
}

// Reply is an outbound response payload.
type Reply struct {
	Content    string
	Components *Components
	Ephemeral  bool
}

// Responder is the per-interaction response channel. The platform accepts
// at most one Respond per interaction; later output must go through
// Followup or EditOriginal. For component interactions EditOriginal
// updates the message the component is attached to and doubles as the
// acknowledgement.
type Responder interface {
	Respond(ctx context.Context, r Reply) error
	Followup(ctx context.Context, r Reply) error
	EditOriginal(ctx context.Context, r Reply) error
	DeleteOriginal(ctx context.Context) error
}

// Message is a live handle on a published channel message, such as a
// session's advertising message.
type Message interface {
	ID() MessageID
	Edit(ctx context.Context, r Reply) error
	React(ctx context.Context, emoji string) error
	// ReactionUsers lists every user who reacted with the given emoji.
	ReactionUsers(ctx context.Context, emoji string) ([]User, error)
}

// ChannelMessage is a lightweight view of channel history, used by prune.
type ChannelMessage struct {
	ID        MessageID
	Timestamp int64 // unix seconds
}

// Channel is a text channel the bot can publish into.
type Channel interface {
	ID() ChannelID
	Publish(ctx context.Context, r Reply) (Message, error)
	// StartThread opens a discussion thread under the given message.
	StartThread(ctx context.Context, parent MessageID, name string) error
	Messages(ctx context.Context, limit int) ([]ChannelMessage, error)
	DeleteMessage(ctx context.Context, id MessageID, reason string) error
}

// DMChannel is an open direct-message channel to a single user.
type DMChannel interface {
	Send(ctx context.Context, content string) error
}

// DMOpener opens direct-message channels. Opening can fail per user
// (closed DMs, deleted account); callers treat those failures as
// per-recipient outcomes, not batch failures.
type DMOpener interface {
	OpenDM(ctx context.Context, user UserID) (DMChannel, error)
}

// Role is a tenant-scoped role the creation flow can offer for pinging.
type Role struct {
	ID   string
	Name string
}

// Mention renders the platform mention token for the role.
func (r Role) Mention() string { return "<@&" + r.ID + ">" }

// Event bundles everything the router hands to a handler for one
// interaction: the event itself, its response channel, and handles on the
// surrounding platform objects. Message is non-nil only for component
// interactions (the message the component lives on). TenantRoles is
// empty in direct-message contexts.
type Event struct {
	Interaction Interaction
	Responder   Responder
	Channel     Channel
	Message     Message
	TenantRoles []Role

	// ParsedArgs is populated by the router for command routes that
	// declare an argument prototype: a pointer to a freshly decoded and
	// validated argument struct.
	ParsedArgs any
}

// Choice is one enumerated value a command argument can take.
type Choice struct {
	Name  string
	Value string
}

// CommandOption describes one argument of a registered command in
// platform-neutral terms. Type is the JSON schema primitive ("string",
// "integer" or "boolean").
type CommandOption struct {
	Name        string
	Description string
	Type        string
	Required    bool
	Choices     []Choice
}

// CommandSpec is what the router advertises to the platform for one
// slash command at registration time.
type CommandSpec struct {
	Name        string
	Description string
	Options     []CommandOption
	AdminOnly   bool
	TenantOnly  bool
}

// InteractionHandlerFunc receives one inbound event. The connection may
// invoke it concurrently for distinct events.
type InteractionHandlerFunc func(ctx context.Context, ev *Event)

// Conn is an established gateway connection. Subscriptions return an
// unsubscribe function; both are safe to call from any goroutine and
// unsubscribe functions are idempotent.
type Conn interface {
	// OnReady fires when the connection has completed its handshake and
	// command registration may proceed.
	OnReady(fn func(ctx context.Context)) (unsubscribe func())
	OnInteraction(fn InteractionHandlerFunc) (unsubscribe func())
	// RegisterCommands replaces the advertised command set.
	RegisterCommands(ctx context.Context, specs []CommandSpec) error
}

// Components describes the interactive widgets attached to a reply. The
// zero value attaches nothing; an empty non-nil value strips existing
// widgets on edit.
type Components struct {
	Select  *SelectMenu
	Buttons []Button
}

// SelectMenu is a multi-select widget routed by its action id.
type SelectMenu struct {
	ActionID    string
	Placeholder string
	MinValues   int
	MaxValues   int
	Options     []Choice
}

// ButtonStyle selects the platform rendering of a button.
type ButtonStyle int

const (
	ButtonSecondary ButtonStyle = iota
	ButtonPrimary
	ButtonDanger
)

// Button is a clickable widget routed by its action id.
type Button struct {
	ActionID string
	Label    string
	Style    ButtonStyle
}
