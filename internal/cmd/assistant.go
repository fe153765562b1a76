package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/godigitalafrica/gdchat/internal/fallback"
	"github.com/godigitalafrica/gdchat/internal/relay"
	"github.com/godigitalafrica/gdchat/internal/session"
	"github.com/godigitalafrica/gdchat/internal/snapshot"
)

// localAssistantID is the sender id used for replies the local responder
// produces while the realtime channel is down.
const localAssistantID = "assistant"

// assistantTypingDelay is how long the typing indicator is shown before
// a local reply lands. Tests set it to zero.
var assistantTypingDelay = 600 * time.Millisecond

// agentGraceDelay is how long after a no_agents_available the widget
// waits for a late agent_joined before telling the visitor nobody is
// around.
var agentGraceDelay = time.Second

// newAssistantCmd runs the customer-facing chat widget in the terminal
func newAssistantCmd() *cobra.Command {
	var (
		name      string
		room      string
		noSave    bool
		redisAddr string
	)

	cmd := &cobra.Command{
		Use:     "assistant",
		Aliases: []string{"chat"},
		Short:   "Chat with Go Digital Africa support",
		Long: `Open an interactive support conversation.

The session connects to the realtime relay when it can and degrades to
a local assistant when it cannot; either way you can keep typing. Ask
to speak to an agent and a human is paged into the conversation.

The conversation is cached locally on exit so you can resume it within
a day with --room.`,
		Example: `  gdchat assistant --name "Amina"
  gdchat assistant --room room-1692273458000`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			cfg, err := getRelayConfig()
			if err != nil {
				return err
			}
			store, err := openConversationStore(redisAddr)
			if err != nil {
				return err
			}

			a := newAssistantSession(cmd, cfg.RelayURL, name)
			if room != "" {
				a.roomID = room
				if conv, ok, err := store.Load(cmd.Context(), room); err == nil && ok {
					a.restore(conv)
				}
			}

			err = a.run(cmd.Context())

			if !noSave {
				if msgs := a.transcript(); len(msgs) > 0 {
					conv := snapshot.Conversation{RoomID: a.roomID, Guest: a.guest, Messages: msgs}
					if saveErr := store.Save(cmd.Context(), conv); saveErr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not save conversation: %v\n", saveErr)
					}
				}
			}
			return err
		}),
	}

	cmd.Flags().StringVar(&name, "name", "Guest", "Display name shown to the agent")
	cmd.Flags().StringVar(&room, "room", "", "Resume a cached conversation by room id")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not cache the conversation on exit")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address of the shared conversation cache (env GDCHAT_REDIS_ADDR)")
	return cmd
}

// assistantSession is the widget state: one implicit room, an optimistic
// message pipeline, and a canned responder for when the channel is down.
type assistantSession struct {
	relayURL string
	roomID   string
	guest    string

	conn      *session.Conn
	pipeline  *session.Pipeline
	responder *fallback.Responder

	out    io.Writer
	errOut io.Writer
	in     io.Reader

	events chan relay.Event
	cancel context.CancelFunc

	mu           sync.Mutex
	client       *relay.Client
	agentPresent bool
	grace        *time.Timer
	graceFired   chan string // carries the pending agent request text
}

func newAssistantSession(cmd *cobra.Command, relayURL, guest string) *assistantSession {
	a := &assistantSession{
		relayURL:   relayURL,
		roomID:     fmt.Sprintf("room-%d", time.Now().UnixMilli()),
		guest:      guest,
		pipeline:   session.NewPipeline(session.WithSelfRole(session.RoleUser)),
		responder:  fallback.New(),
		out:        cmd.OutOrStdout(),
		errOut:     cmd.ErrOrStderr(),
		in:         cmd.InOrStdin(),
		events:     make(chan relay.Event, 64),
		graceFired: make(chan string, 1),
	}
	a.conn = session.NewConn(a.dial, session.DefaultReconnectPolicy())
	return a
}

// restore preloads a cached conversation into the pipeline and replays
// it on screen.
func (a *assistantSession) restore(conv snapshot.Conversation) {
	if conv.Guest != "" && a.guest == "Guest" {
		a.guest = conv.Guest
	}
	for _, msg := range a.pipeline.LoadHistory(a.roomID, conv.Messages) {
		fmt.Fprintln(a.out, formatMessageLine(msg))
	}
}

func (a *assistantSession) transcript() []session.Message {
	var out []session.Message
	for _, msg := range a.pipeline.History(a.roomID) {
		if msg.Typing {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// run drives the conversation until the visitor quits or input ends.
// Connection failures are absorbed silently; the visitor only ever sees
// replies.
func (a *assistantSession) run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	a.cancel = cancel

	a.conn.Connect(ctx)
	defer a.conn.Close()

	fmt.Fprintf(a.out, "Welcome to Go Digital Africa support. Type your question, or /quit to leave.\n\n")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.eventLoop(gctx) })
	g.Go(func() error { return a.inputLoop(gctx) })
	err := g.Wait()

	a.mu.Lock()
	if a.grace != nil {
		a.grace.Stop()
	}
	client := a.client
	a.mu.Unlock()
	if client != nil {
		_ = client.Close()
	}

	if err != nil && ctx.Err() != nil {
		return nil // visitor quit
	}
	return err
}

// dial is the Conn dial function: connect, join the room, start the
// reader pump.
func (a *assistantSession) dial(ctx context.Context) error {
	client, err := relay.Dial(ctx, a.relayURL)
	if err != nil {
		return err
	}
	join := relay.JoinPayload{RoomID: a.roomID, AgentName: a.guest}
	if err := client.Emit(ctx, relay.EventJoinRoom, join); err != nil {
		_ = client.Close()
		return err
	}

	a.mu.Lock()
	a.client = client
	a.mu.Unlock()
	a.pipeline.SetSelfID(client.SenderID())

	go a.pump(ctx, client)
	return nil
}

// pump forwards relay events from one connection into the session's
// event channel and reports the drop when the reader fails.
func (a *assistantSession) pump(ctx context.Context, client *relay.Client) {
	for ev := range client.Listen(ctx) {
		if ev.Err != nil {
			a.conn.ConnectionLost(ev.Err)
			return
		}
		select {
		case a.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (a *assistantSession) currentClient() *relay.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

func (a *assistantSession) eventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-a.events:
			a.handleEvent(ev)
		case input := <-a.graceFired:
			a.handleAgentsUnavailable(input)
		}
	}
}

func (a *assistantSession) handleEvent(ev relay.Event) {
	switch ev.Name {
	case relay.EventNewMessage:
		var p relay.MessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		msg, err := a.pipeline.Ingest(messageFromPayload(p))
		if err != nil {
			return // duplicate or confirmation of our own echo
		}
		if msg.Role == session.RoleUser {
			return // our own message echoed back
		}
		fmt.Fprintln(a.out, formatMessageLine(msg))

	case relay.EventChatHistory:
		var p relay.HistoryPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		msgs := make([]session.Message, 0, len(p.Messages))
		for _, mp := range p.Messages {
			msgs = append(msgs, messageFromPayload(mp))
		}
		for _, msg := range a.pipeline.LoadHistory(a.roomID, msgs) {
			if msg.Role == session.RoleUser {
				continue
			}
			fmt.Fprintln(a.out, formatMessageLine(msg))
		}

	case relay.EventAgentJoined:
		var p relay.PresencePayload
		_ = json.Unmarshal(ev.Data, &p)
		a.mu.Lock()
		a.agentPresent = true
		if a.grace != nil {
			a.grace.Stop()
			a.grace = nil
		}
		a.mu.Unlock()
		who := p.AgentName
		if who == "" {
			who = "An agent"
		}
		fmt.Fprintf(a.out, "%s joined the conversation.\n", who)

	case relay.EventAgentLeft:
		var p relay.PresencePayload
		_ = json.Unmarshal(ev.Data, &p)
		a.mu.Lock()
		a.agentPresent = false
		a.mu.Unlock()
		who := p.AgentName
		if who == "" {
			who = "The agent"
		}
		fmt.Fprintf(a.out, "%s left the conversation.\n", who)

	case relay.EventRoomLeft:
		var p relay.PresencePayload
		_ = json.Unmarshal(ev.Data, &p)
		a.mu.Lock()
		a.agentPresent = false
		a.mu.Unlock()
		if p.Reason != "" {
			fmt.Fprintf(a.out, "The conversation was closed (%s). You can keep asking questions here.\n", p.Reason)
		} else {
			fmt.Fprintln(a.out, "The conversation was closed. You can keep asking questions here.")
		}

	case relay.EventNoAgentsAvailable:
		a.armGrace("")
	}
}

// armGrace waits a beat before declaring no agent is coming, so an
// agent_joined racing the no_agents_available still wins.
func (a *assistantSession) armGrace(input string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.agentPresent {
		return
	}
	if a.grace != nil {
		a.grace.Stop()
	}
	a.grace = time.AfterFunc(agentGraceDelay, func() {
		select {
		case a.graceFired <- input:
		default:
		}
	})
}

// handleAgentsUnavailable delivers the channel-down handoff reply once
// the grace period passes without an agent.
func (a *assistantSession) handleAgentsUnavailable(input string) {
	a.mu.Lock()
	present := a.agentPresent
	a.grace = nil
	a.mu.Unlock()
	if present {
		return
	}
	if input == "" {
		input = "talk to agent"
	}
	a.localReply(input)
}

func (a *assistantSession) inputLoop(ctx context.Context) error {
	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		a.handleInput(ctx, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Goodbye!")
	a.cancel()
	return nil
}

func (a *assistantSession) handleInput(ctx context.Context, line string) {
	echo := a.pipeline.AppendLocal(a.roomID, line)

	if a.conn.Sendable() {
		if client := a.currentClient(); client != nil {
			payload := relay.MessagePayload{
				ID:        echo.ID,
				RoomID:    a.roomID,
				SenderID:  echo.SenderID,
				Sender:    a.guest,
				Role:      string(session.RoleUser),
				Content:   line,
				Timestamp: echo.SentAt,
			}
			if err := client.Emit(ctx, relay.EventSendMessage, payload); err != nil {
				a.conn.ConnectionLost(err)
				a.localReply(line)
				return
			}
			if fallback.IsAgentRequest(line) {
				req := relay.RequestAgentPayload{RoomID: a.roomID, UserName: a.guest}
				if err := client.Emit(ctx, relay.EventRequestAgent, req); err != nil {
					a.conn.ConnectionLost(err)
				}
			}
			return
		}
	}

	a.localReply(line)
}

// localReply answers from the canned responder: typing indicator first,
// then the reply replaces it in place.
func (a *assistantSession) localReply(input string) {
	a.mu.Lock()
	present := a.agentPresent
	a.mu.Unlock()
	if present {
		return // a human owns the conversation
	}

	a.pipeline.AppendTyping(a.roomID, localAssistantID, session.RoleAssistant)
	fmt.Fprintln(a.out, "assistant is typing...")
	if assistantTypingDelay > 0 {
		time.Sleep(assistantTypingDelay)
	}

	msg, err := a.pipeline.Ingest(session.Message{
		RoomID:   a.roomID,
		SenderID: localAssistantID,
		Sender:   "Assistant",
		Role:     session.RoleAssistant,
		Content:  a.responder.Reply(input),
	})
	if err != nil {
		return
	}
	fmt.Fprintln(a.out, formatMessageLine(msg))
}

// messageFromPayload converts a wire message to the session model.
func messageFromPayload(p relay.MessagePayload) session.Message {
	return session.Message{
		ID:       p.ID,
		RoomID:   p.RoomID,
		SenderID: p.SenderID,
		Sender:   p.Sender,
		Role:     session.Role(p.Role),
		Content:  p.Content,
		SentAt:   p.Timestamp,
	}
}
