// Package gatewaytest provides in-memory fakes for the gateway boundary.
// They record every call so tests can assert on outbound traffic, and
// they enforce the platform's at-most-one-respond rule the same way the
// real adapter does.
package gatewaytest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/grl-racing/grlbot/gateway"
)

// ErrAlreadyResponded mirrors the platform error returned when a second
// initial response is attempted on one interaction.
var ErrAlreadyResponded = errors.New("gatewaytest: interaction already has a response")

// Responder records replies. Safe for concurrent use.
type Responder struct {
	mu        sync.Mutex
	responded bool
	deleted   bool

	Responses []gateway.Reply
	Followups []gateway.Reply
	Edits     []gateway.Reply

	// RespondErr, when set, is returned by Respond.
	RespondErr error
}

func (r *Responder) Respond(ctx context.Context, reply gateway.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RespondErr != nil {
		return r.RespondErr
	}
	if r.responded {
		return ErrAlreadyResponded
	}
	r.responded = true
	r.Responses = append(r.Responses, reply)
	return nil
}

func (r *Responder) Followup(ctx context.Context, reply gateway.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Followups = append(r.Followups, reply)
	return nil
}

// EditOriginal records an edit. Component interactions may edit their
// source message without a prior Respond, so no responded check here.
func (r *Responder) EditOriginal(ctx context.Context, reply gateway.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Edits = append(r.Edits, reply)
	return nil
}

func (r *Responder) DeleteOriginal(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.responded {
		return errors.New("gatewaytest: no original response to delete")
	}
	r.deleted = true
	return nil
}

// Responded reports whether an initial response was sent.
func (r *Responder) Responded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.responded
}

// Deleted reports whether the original response was deleted.
func (r *Responder) Deleted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleted
}

// Message is a fake published message. Reactions are seeded by tests via
// SeedReaction and returned from ReactionUsers.
type Message struct {
	mu        sync.Mutex
	id        gateway.MessageID
	reactions map[string][]gateway.User

	Edits        []gateway.Reply
	Reacted      []string
	EditErr      error
	ReactErr     error
	ReactionsErr error
}

// NewMessage builds a fake message. An empty id gets a random one.
func NewMessage(id gateway.MessageID) *Message {
	if id == "" {
		id = gateway.MessageID(uuid.NewString())
	}
	return &Message{id: id, reactions: make(map[string][]gateway.User)}
}

func (m *Message) ID() gateway.MessageID { return m.id }

func (m *Message) Edit(ctx context.Context, r gateway.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EditErr != nil {
		return m.EditErr
	}
	m.Edits = append(m.Edits, r)
	return nil
}

func (m *Message) React(ctx context.Context, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReactErr != nil {
		return m.ReactErr
	}
	m.Reacted = append(m.Reacted, emoji)
	return nil
}

func (m *Message) ReactionUsers(ctx context.Context, emoji string) ([]gateway.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReactionsErr != nil {
		return nil, m.ReactionsErr
	}
	return append([]gateway.User(nil), m.reactions[emoji]...), nil
}

// SeedReaction registers users as having reacted with emoji.
func (m *Message) SeedReaction(emoji string, users ...gateway.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions[emoji] = append(m.reactions[emoji], users...)
}

// Channel is a fake text channel. Published messages are retained for
// inspection.
type Channel struct {
	mu sync.Mutex
	id gateway.ChannelID

	Published  []*Message
	Threads    []string
	Deleted    []gateway.MessageID
	History    []gateway.ChannelMessage
	PublishErr error
	ThreadErr  error
}

func NewChannel(id gateway.ChannelID) *Channel {
	if id == "" {
		id = gateway.ChannelID(uuid.NewString())
	}
	return &Channel{id: id}
}

func (c *Channel) ID() gateway.ChannelID { return c.id }

func (c *Channel) Publish(ctx context.Context, r gateway.Reply) (gateway.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PublishErr != nil {
		return nil, c.PublishErr
	}
	msg := NewMessage("")
	c.Published = append(c.Published, msg)
	return msg, nil
}

func (c *Channel) StartThread(ctx context.Context, parent gateway.MessageID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ThreadErr != nil {
		return c.ThreadErr
	}
	c.Threads = append(c.Threads, name)
	return nil
}

func (c *Channel) Messages(ctx context.Context, limit int) ([]gateway.ChannelMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit > 0 && limit < len(c.History) {
		return append([]gateway.ChannelMessage(nil), c.History[:limit]...), nil
	}
	return append([]gateway.ChannelMessage(nil), c.History...), nil
}

func (c *Channel) DeleteMessage(ctx context.Context, id gateway.MessageID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deleted = append(c.Deleted, id)
	return nil
}

// DMOpener records direct messages sent per user. Failures can be
// injected per user id through FailFor.
type DMOpener struct {
	mu      sync.Mutex
	sent    map[gateway.UserID][]string
	FailFor map[gateway.UserID]error
}

func NewDMOpener() *DMOpener {
	return &DMOpener{sent: make(map[gateway.UserID][]string), FailFor: make(map[gateway.UserID]error)}
}

func (d *DMOpener) OpenDM(ctx context.Context, user gateway.UserID) (gateway.DMChannel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.FailFor[user]; ok {
		return nil, err
	}
	return &dmChannel{opener: d, user: user}, nil
}

// Sent returns the messages delivered to a user, in order.
func (d *DMOpener) Sent(user gateway.UserID) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.sent[user]...)
}

type dmChannel struct {
	opener *DMOpener
	user   gateway.UserID
}

func (c *dmChannel) Send(ctx context.Context, content string) error {
	c.opener.mu.Lock()
	defer c.opener.mu.Unlock()
	c.opener.sent[c.user] = append(c.opener.sent[c.user], content)
	return nil
}

// Conn is a fake gateway connection. Tests fire events through Ready and
// Deliver; subscriptions behave like the real adapter's.
type Conn struct {
	mu           sync.Mutex
	readySubs    map[int]func(ctx context.Context)
	interactSubs map[int]gateway.InteractionHandlerFunc
	nextSub      int

	Registered  [][]gateway.CommandSpec
	RegisterErr error
}

func NewConn() *Conn {
	return &Conn{
		readySubs:    make(map[int]func(ctx context.Context)),
		interactSubs: make(map[int]gateway.InteractionHandlerFunc),
	}
}

func (c *Conn) OnReady(fn func(ctx context.Context)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.readySubs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.readySubs, id)
	}
}

func (c *Conn) OnInteraction(fn gateway.InteractionHandlerFunc) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.interactSubs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.interactSubs, id)
	}
}

func (c *Conn) RegisterCommands(ctx context.Context, specs []gateway.CommandSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.RegisterErr != nil {
		return c.RegisterErr
	}
	c.Registered = append(c.Registered, specs)
	return nil
}

// Ready fires the ready signal to all subscribers.
func (c *Conn) Ready(ctx context.Context) {
	c.mu.Lock()
	subs := make([]func(ctx context.Context), 0, len(c.readySubs))
	for _, fn := range c.readySubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(ctx)
	}
}

// Deliver hands one event to all interaction subscribers synchronously.
func (c *Conn) Deliver(ctx context.Context, ev *gateway.Event) {
	c.mu.Lock()
	subs := make([]gateway.InteractionHandlerFunc, 0, len(c.interactSubs))
	for _, fn := range c.interactSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(ctx, ev)
	}
}

// Subscribers reports the number of live subscriptions of both kinds.
func (c *Conn) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.readySubs) + len(c.interactSubs)
}

// CommandEvent assembles a command interaction event with fresh fakes.
// args must marshal to a JSON object via fmt.Sprintf-compatible raw JSON.
func CommandEvent(route string, user gateway.User, tenant *gateway.TenantID, rawArgs string) (*gateway.Event, *Responder, *Channel) {
	resp := &Responder{}
	ch := NewChannel("")
	chID := ch.ID()
	ev := &gateway.Event{
		Interaction: gateway.Interaction{
			ID:        uuid.NewString(),
			Kind:      gateway.KindCommand,
			Route:     route,
			User:      user,
			TenantID:  tenant,
			ChannelID: &chID,
			Args:      []byte(rawArgs),
		},
		Responder: resp,
		Channel:   ch,
	}
	if tenant != nil {
		ev.Interaction.TenantName = fmt.Sprintf("tenant-%s", *tenant)
	}
	return ev, resp, ch
}

// ComponentEvent assembles a component interaction event against msg.
// A nil msg leaves the event's Message unset.
func ComponentEvent(route string, user gateway.User, tenant *gateway.TenantID, msg *Message, values ...string) (*gateway.Event, *Responder) {
	resp := &Responder{}
	ev := &gateway.Event{
		Interaction: gateway.Interaction{
			ID:       uuid.NewString(),
			Kind:     gateway.KindComponent,
			Route:    route,
			User:     user,
			TenantID: tenant,
			Values:   values,
		},
		Responder: resp,
	}
	if msg != nil {
		ev.Message = msg
	}
	return ev, resp
}

// Interface compliance
var (
	_ gateway.Responder = (*Responder)(nil)
	_ gateway.Message   = (*Message)(nil)
	_ gateway.Channel   = (*Channel)(nil)
	_ gateway.DMOpener  = (*DMOpener)(nil)
	_ gateway.Conn      = (*Conn)(nil)
)
