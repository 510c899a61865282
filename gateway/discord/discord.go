// Package discord implements the gateway boundary over the Discord API.
// Everything platform-specific lives here: payload translation, the
// one-initial-response rule, component wire formats. Nothing above this
// package imports discordgo.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/grl-racing/grlbot/gateway"
)

// threadAutoArchiveMinutes keeps discussion threads for one week.
const threadAutoArchiveMinutes = 10080

// Conn is a live Discord gateway connection.
type Conn struct {
	s   *discordgo.Session
	log *slog.Logger
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets a custom logger for the Conn.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.log = l
		}
	}
}

// Connect authenticates and opens the websocket. The returned Conn is
// ready for subscriptions; command registration should wait for OnReady.
func Connect(token string, opts ...Option) (*Conn, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c := &Conn{s: s, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("open gateway: %w", err)
	}
	return c, nil
}

// Close tears down the websocket.
func (c *Conn) Close() error { return c.s.Close() }

// OnReady subscribes to the gateway ready signal.
func (c *Conn) OnReady(fn func(ctx context.Context)) func() {
	return c.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		fn(context.Background())
	})
}

// OnInteraction subscribes to inbound interactions. Each interaction is
// translated into a gateway.Event before the handler sees it.
func (c *Conn) OnInteraction(fn gateway.InteractionHandlerFunc) func() {
	return c.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		ev, err := c.translate(ic)
		if err != nil {
			c.log.Warn("dropping untranslatable interaction", "type", ic.Type, "error", err)
			return
		}
		fn(context.Background(), ev)
	})
}

// RegisterCommands replaces the global command set.
func (c *Conn) RegisterCommands(ctx context.Context, specs []gateway.CommandSpec) error {
	cmds := make([]*discordgo.ApplicationCommand, 0, len(specs))
	for _, spec := range specs {
		cmds = append(cmds, commandFromSpec(spec))
	}
	_, err := c.s.ApplicationCommandBulkOverwrite(c.s.State.User.ID, "", cmds)
	if err != nil {
		return fmt.Errorf("overwrite commands: %w", err)
	}
	return nil
}

func commandFromSpec(spec gateway.CommandSpec) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        spec.Name,
		Description: spec.Description,
	}
	if spec.AdminOnly {
		perms := int64(discordgo.PermissionAdministrator)
		cmd.DefaultMemberPermissions = &perms
	}
	if spec.TenantOnly {
		dm := false
		cmd.DMPermission = &dm
	}
	for _, opt := range spec.Options {
		o := &discordgo.ApplicationCommandOption{
			Name:        opt.Name,
			Description: opt.Description,
			Required:    opt.Required,
		}
		if o.Description == "" {
			o.Description = opt.Name
		}
		switch opt.Type {
		case "integer":
			o.Type = discordgo.ApplicationCommandOptionInteger
		case "boolean":
			o.Type = discordgo.ApplicationCommandOptionBoolean
		default:
			o.Type = discordgo.ApplicationCommandOptionString
		}
		for _, ch := range opt.Choices {
			o.Choices = append(o.Choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  ch.Name,
				Value: ch.Value,
			})
		}
		cmd.Options = append(cmd.Options, o)
	}
	return cmd
}

// translate builds a gateway.Event from a raw interaction.
func (c *Conn) translate(ic *discordgo.InteractionCreate) (*gateway.Event, error) {
	in := gateway.Interaction{ID: ic.ID}

	var user *discordgo.User
	if ic.Member != nil {
		user = ic.Member.User
	} else {
		user = ic.User
	}
	if user == nil {
		return nil, fmt.Errorf("interaction %s has no user", ic.ID)
	}
	in.User = gateway.User{
		ID:       gateway.UserID(user.ID),
		Username: user.Username,
		Bot:      user.Bot,
	}

	var roles []gateway.Role
	if ic.GuildID != "" {
		tid := gateway.TenantID(ic.GuildID)
		in.TenantID = &tid
		if g, err := c.s.State.Guild(ic.GuildID); err == nil {
			in.TenantName = g.Name
			for _, r := range g.Roles {
				roles = append(roles, gateway.Role{ID: r.ID, Name: r.Name})
			}
		}
	}
	if ic.ChannelID != "" {
		cid := gateway.ChannelID(ic.ChannelID)
		in.ChannelID = &cid
	}

	ev := &gateway.Event{
		Responder:   &responder{s: c.s, ic: ic.Interaction},
		TenantRoles: roles,
	}
	if ic.ChannelID != "" {
		ev.Channel = &channel{s: c.s, id: ic.ChannelID}
	}

	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		data := ic.ApplicationCommandData()
		in.Kind = gateway.KindCommand
		in.Route = data.Name
		args, err := encodeOptions(data.Options)
		if err != nil {
			return nil, err
		}
		in.Args = args
	case discordgo.InteractionMessageComponent:
		data := ic.MessageComponentData()
		in.Kind = gateway.KindComponent
		in.Route = data.CustomID
		in.Values = data.Values
		if ic.Message != nil {
			ev.Message = &message{s: c.s, channelID: ic.ChannelID, id: ic.Message.ID}
		}
	case discordgo.InteractionModalSubmit:
		data := ic.ModalSubmitData()
		in.Kind = gateway.KindModal
		in.Route = data.CustomID
	default:
		return nil, fmt.Errorf("unsupported interaction type %d", ic.Type)
	}

	ev.Interaction = in
	return ev, nil
}

// encodeOptions flattens command options into the JSON argument object
// the registry decodes.
func encodeOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) (json.RawMessage, error) {
	fields := make(map[string]any, len(opts))
	for _, opt := range opts {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			fields[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			fields[opt.Name] = opt.IntValue()
		case discordgo.ApplicationCommandOptionBoolean:
			fields[opt.Name] = opt.BoolValue()
		default:
			fields[opt.Name] = opt.Value
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	return raw, nil
}

// responder answers one interaction. For component interactions the
// first EditOriginal is sent as an update-message acknowledgement, which
// is how Discord expects the source message to be rewritten.
type responder struct {
	s  *discordgo.Session
	ic *discordgo.Interaction

	mu    sync.Mutex
	acked bool
}

func (r *responder) Respond(ctx context.Context, reply gateway.Reply) error {
	err := r.s.InteractionRespond(r.ic, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(reply),
	}, discordgo.WithContext(ctx))
	if err == nil {
		r.mu.Lock()
		r.acked = true
		r.mu.Unlock()
	}
	return err
}

func (r *responder) Followup(ctx context.Context, reply gateway.Reply) error {
	params := &discordgo.WebhookParams{Content: reply.Content}
	if reply.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if reply.Components != nil {
		params.Components = componentRows(reply.Components)
	}
	_, err := r.s.FollowupMessageCreate(r.ic, true, params, discordgo.WithContext(ctx))
	return err
}

func (r *responder) EditOriginal(ctx context.Context, reply gateway.Reply) error {
	r.mu.Lock()
	firstAck := !r.acked && r.ic.Type == discordgo.InteractionMessageComponent
	if firstAck {
		r.acked = true
	}
	r.mu.Unlock()

	if firstAck {
		return r.s.InteractionRespond(r.ic, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: responseData(reply),
		}, discordgo.WithContext(ctx))
	}

	edit := &discordgo.WebhookEdit{Content: &reply.Content}
	if reply.Components != nil {
		rows := componentRows(reply.Components)
		edit.Components = &rows
	}
	_, err := r.s.InteractionResponseEdit(r.ic, edit, discordgo.WithContext(ctx))
	return err
}

func (r *responder) DeleteOriginal(ctx context.Context) error {
	return r.s.InteractionResponseDelete(r.ic, discordgo.WithContext(ctx))
}

func responseData(reply gateway.Reply) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{Content: reply.Content}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if reply.Components != nil {
		data.Components = componentRows(reply.Components)
	}
	return data
}

// componentRows lays widgets out in action rows: the select menu on its
// own row, buttons together on another. A non-nil empty Components
// yields an empty slice, which strips widgets on edit.
func componentRows(c *gateway.Components) []discordgo.MessageComponent {
	rows := []discordgo.MessageComponent{}
	if c.Select != nil {
		minValues := c.Select.MinValues
		options := make([]discordgo.SelectMenuOption, 0, len(c.Select.Options))
		for _, o := range c.Select.Options {
			options = append(options, discordgo.SelectMenuOption{Label: o.Name, Value: o.Value})
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    c.Select.ActionID,
				Placeholder: c.Select.Placeholder,
				MinValues:   &minValues,
				MaxValues:   c.Select.MaxValues,
				Options:     options,
			},
		}})
	}
	if len(c.Buttons) > 0 {
		buttons := make([]discordgo.MessageComponent, 0, len(c.Buttons))
		for _, b := range c.Buttons {
			buttons = append(buttons, discordgo.Button{
				CustomID: b.ActionID,
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

func buttonStyle(s gateway.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case gateway.ButtonPrimary:
		return discordgo.PrimaryButton
	case gateway.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.SecondaryButton
	}
}

// message adapts one published Discord message.
type message struct {
	s         *discordgo.Session
	channelID string
	id        string
}

func (m *message) ID() gateway.MessageID { return gateway.MessageID(m.id) }

func (m *message) Edit(ctx context.Context, r gateway.Reply) error {
	edit := discordgo.NewMessageEdit(m.channelID, m.id)
	edit.SetContent(r.Content)
	if r.Components != nil {
		rows := componentRows(r.Components)
		edit.Components = &rows
	}
	_, err := m.s.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func (m *message) React(ctx context.Context, emoji string) error {
	return m.s.MessageReactionAdd(m.channelID, m.id, emoji, discordgo.WithContext(ctx))
}

func (m *message) ReactionUsers(ctx context.Context, emoji string) ([]gateway.User, error) {
	var out []gateway.User
	after := ""
	for {
		batch, err := m.s.MessageReactions(m.channelID, m.id, emoji, 100, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list reactions: %w", err)
		}
		for _, u := range batch {
			out = append(out, gateway.User{ID: gateway.UserID(u.ID), Username: u.Username, Bot: u.Bot})
		}
		if len(batch) < 100 {
			return out, nil
		}
		after = batch[len(batch)-1].ID
	}
}

// channel adapts one Discord text channel.
type channel struct {
	s  *discordgo.Session
	id string
}

func (c *channel) ID() gateway.ChannelID { return gateway.ChannelID(c.id) }

func (c *channel) Publish(ctx context.Context, r gateway.Reply) (gateway.Message, error) {
	send := &discordgo.MessageSend{
		Content: r.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{
				discordgo.AllowedMentionTypeUsers,
				discordgo.AllowedMentionTypeRoles,
				discordgo.AllowedMentionTypeEveryone,
			},
		},
	}
	if r.Components != nil {
		send.Components = componentRows(r.Components)
	}
	msg, err := c.s.ChannelMessageSendComplex(c.id, send, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &message{s: c.s, channelID: c.id, id: msg.ID}, nil
}

func (c *channel) StartThread(ctx context.Context, parent gateway.MessageID, name string) error {
	_, err := c.s.MessageThreadStartComplex(c.id, string(parent), &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: threadAutoArchiveMinutes,
	}, discordgo.WithContext(ctx))
	return err
}

func (c *channel) Messages(ctx context.Context, limit int) ([]gateway.ChannelMessage, error) {
	msgs, err := c.s.ChannelMessages(c.id, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]gateway.ChannelMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, gateway.ChannelMessage{
			ID:        gateway.MessageID(m.ID),
			Timestamp: m.Timestamp.Unix(),
		})
	}
	return out, nil
}

func (c *channel) DeleteMessage(ctx context.Context, id gateway.MessageID, reason string) error {
	return c.s.ChannelMessageDelete(c.id, string(id),
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

// DMOpener opens direct-message channels through the connection.
type DMOpener struct {
	c *Conn
}

// NewDMOpener builds a DMOpener over an established connection.
func NewDMOpener(c *Conn) *DMOpener { return &DMOpener{c: c} }

func (d *DMOpener) OpenDM(ctx context.Context, user gateway.UserID) (gateway.DMChannel, error) {
	ch, err := d.c.s.UserChannelCreate(string(user), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("open dm channel: %w", err)
	}
	return &dmChannel{s: d.c.s, id: ch.ID}, nil
}

type dmChannel struct {
	s  *discordgo.Session
	id string
}

func (c *dmChannel) Send(ctx context.Context, content string) error {
	_, err := c.s.ChannelMessageSend(c.id, content, discordgo.WithContext(ctx))
	return err
}

// Interface compliance
var (
	_ gateway.Conn      = (*Conn)(nil)
	_ gateway.Responder = (*responder)(nil)
	_ gateway.Message   = (*message)(nil)
	_ gateway.Channel   = (*channel)(nil)
	_ gateway.DMOpener  = (*DMOpener)(nil)
)
