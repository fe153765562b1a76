package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/godigitalafrica/gdchat/internal/config"
	"github.com/godigitalafrica/gdchat/internal/notify"
	"github.com/godigitalafrica/gdchat/internal/prefs"
	"github.com/godigitalafrica/gdchat/internal/relay"
	"github.com/godigitalafrica/gdchat/internal/resolve"
	"github.com/godigitalafrica/gdchat/internal/session"
)

// newAgentCmd runs the agent console: a terminal worklist of guest
// conversations with join/leave/close and inactivity auto-close.
func newAgentCmd() *cobra.Command {
	var idleTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the support agent console",
		Long: `Open the agent console. Incoming guest conversations appear in a
worklist; join one to chat, and switch rooms as new guests arrive.

Commands inside the console:
  /rooms            show the worklist
  /join <id|name>   join a room by id or by guest name (fuzzy)
  /leave            leave the current room
  /close            close the current room
  /status <s>       set availability (online, busy, offline)
  /quit             log out and exit

Anything else you type is sent to the room you joined. A room idle for
the timeout period is closed automatically.`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ResolveClientConfig(flags.APIURL, flags.RelayURL, flags.Token)
			if err != nil {
				return err
			}
			if cfg.AgentID == "" {
				return fmt.Errorf("no agent identity on this profile: %w", config.ErrNotConfigured)
			}

			store, err := prefs.DefaultStore()
			if err != nil {
				return err
			}
			c := newAgentConsole(cmd, cfg, store, idleTimeout)
			return c.run(cmd.Context())
		}),
	}

	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", session.DefaultInactivityTimeout,
		"Close the joined room after this much inactivity")
	return cmd
}

type roomTimeout struct {
	roomID string
	reason string
}

// agentConsole is the agent-side session: identity on the channel, a
// room worklist, and one joined room at a time.
type agentConsole struct {
	relayURL  string
	agentID   string
	agentName string

	conn     *session.Conn
	registry *session.Registry
	pipeline *session.Pipeline
	monitor  *session.Monitor
	notifier *notify.Dispatcher

	out    io.Writer
	errOut io.Writer
	in     io.Reader

	events   chan relay.Event
	timeouts chan roomTimeout
	cancel   context.CancelFunc

	mu     sync.Mutex
	client *relay.Client
}

func newAgentConsole(cmd *cobra.Command, cfg config.ClientConfig, prefStore *prefs.Store, idleTimeout time.Duration) *agentConsole {
	c := &agentConsole{
		relayURL:  cfg.RelayURL,
		agentID:   cfg.AgentID,
		agentName: cfg.AgentName,
		registry:  session.NewRegistry(),
		out:       cmd.OutOrStdout(),
		errOut:    cmd.ErrOrStderr(),
		in:        cmd.InOrStdin(),
		events:    make(chan relay.Event, 64),
		timeouts:  make(chan roomTimeout, 4),
	}
	if c.agentName == "" {
		c.agentName = c.agentID
	}
	c.pipeline = session.NewPipeline(
		session.WithSelfRole(session.RoleAgent),
		session.WithRoomSink(c.registry),
	)
	c.conn = session.NewConn(c.dial, session.DefaultReconnectPolicy())
	if idleTimeout <= 0 {
		idleTimeout = session.DefaultInactivityTimeout
	}
	c.monitor = session.NewMonitor(c.onIdleTimeout, session.WithInactivityTimeout(idleTimeout))
	c.notifier = notify.NewDispatcher(prefStore, &notify.BellPlayer{W: cmd.ErrOrStderr()})
	return c
}

func (c *agentConsole) run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	c.cancel = cancel

	c.conn.Connect(ctx)
	defer c.conn.Close()

	if !c.conn.Sendable() {
		// Unlike the widget, the console is useless without the channel.
		return session.ErrChannelUnavailable
	}

	fmt.Fprintf(c.out, "Logged in as %s. Waiting for conversations; /help for commands.\n\n", c.agentName)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.eventLoop(gctx) })
	g.Go(func() error { return c.inputLoop(gctx) })
	err := g.Wait()

	c.monitor.Stop()
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client != nil {
		_ = client.Close()
	}

	if err != nil && ctx.Err() != nil {
		return nil // agent quit
	}
	return err
}

// dial connects, registers the agent identity, and rejoins the room the
// agent had open before the drop.
func (c *agentConsole) dial(ctx context.Context) error {
	client, err := relay.Dial(ctx, c.relayURL)
	if err != nil {
		return err
	}
	identity := relay.IdentityPayload{AgentID: c.agentID, AgentName: c.agentName}
	if err := client.Emit(ctx, relay.EventRegisterIdentity, identity); err != nil {
		_ = client.Close()
		return err
	}
	if active, ok := c.registry.Active(); ok {
		join := relay.JoinPayload{RoomID: active.ID, AgentName: c.agentName}
		if err := client.Emit(ctx, relay.EventJoinRoom, join); err != nil {
			_ = client.Close()
			return err
		}
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	c.pipeline.SetSelfID(client.SenderID())

	go c.pump(ctx, client)
	return nil
}

func (c *agentConsole) pump(ctx context.Context, client *relay.Client) {
	for ev := range client.Listen(ctx) {
		if ev.Err != nil {
			c.conn.ConnectionLost(ev.Err)
			fmt.Fprintln(c.errOut, "Connection lost, reconnecting...")
			return
		}
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (c *agentConsole) emit(ctx context.Context, event string, payload any) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if err := c.conn.SendBlocked(); err != nil {
		return err
	}
	if client == nil {
		return session.ErrNotSendable
	}
	if err := client.Emit(ctx, event, payload); err != nil {
		c.conn.ConnectionLost(err)
		return err
	}
	return nil
}

// onIdleTimeout runs on the monitor's timer goroutine; the event loop
// does the actual close.
func (c *agentConsole) onIdleTimeout(roomID, reason string) {
	select {
	case c.timeouts <- roomTimeout{roomID: roomID, reason: reason}:
	default:
	}
}

func (c *agentConsole) eventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.handleEvent(ev)
		case to := <-c.timeouts:
			c.closeIdleRoom(ctx, to)
		}
	}
}

func (c *agentConsole) handleEvent(ev relay.Event) {
	switch ev.Name {
	case relay.EventAvailableRooms:
		var p relay.RoomListPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		rooms := make([]session.Room, 0, len(p.Rooms))
		for _, rp := range p.Rooms {
			rooms = append(rooms, roomFromPayload(rp))
		}
		c.registry.ReplaceAvailable(rooms)
		c.printWorklist()

	case relay.EventRoomUpdated:
		var p relay.RoomPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		_, known := c.registry.Get(p.RoomID)
		room := c.registry.Upsert(roomFromPayload(p))
		if !known && room.Status == session.RoomStatusActive {
			fmt.Fprintf(c.out, "New conversation from %s (%s). /join to answer.\n",
				counterpartOr(room, "a visitor"), room.ID)
			if err := c.notifier.Notify(); err != nil {
				var perr *notify.PlaybackError
				if errors.As(err, &perr) {
					fmt.Fprintf(c.errOut, "Warning: %v\n", perr)
				}
			}
		}

	case relay.EventNewMessage:
		var p relay.MessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		msg, err := c.pipeline.Ingest(messageFromPayload(p))
		if err != nil {
			return
		}
		if active, ok := c.registry.Active(); ok && active.ID == msg.RoomID {
			c.monitor.Touch()
			if msg.Role != session.RoleAgent {
				fmt.Fprintln(c.out, formatMessageLine(msg))
			}
			return
		}
		if msg.Role == session.RoleAgent {
			return
		}
		room, _ := c.registry.Get(msg.RoomID)
		fmt.Fprintf(c.out, "[%s] new message from %s (%d unread)\n",
			msg.RoomID, counterpartOr(room, "visitor"), room.Unread)
		if err := c.notifier.Notify(); err != nil {
			var perr *notify.PlaybackError
			if errors.As(err, &perr) {
				fmt.Fprintf(c.errOut, "Warning: %v\n", perr)
			}
		}

	case relay.EventChatHistory:
		var p relay.HistoryPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		msgs := make([]session.Message, 0, len(p.Messages))
		for _, mp := range p.Messages {
			msgs = append(msgs, messageFromPayload(mp))
		}
		for _, msg := range c.pipeline.LoadHistory(p.RoomID, msgs) {
			fmt.Fprintln(c.out, formatMessageLine(msg))
		}

	case relay.EventAgentJoined:
		var p relay.PresencePayload
		_ = json.Unmarshal(ev.Data, &p)
		if p.AgentName != "" && p.AgentName != c.agentName {
			fmt.Fprintf(c.out, "%s joined %s.\n", p.AgentName, p.RoomID)
		}

	case relay.EventAgentLeft:
		var p relay.PresencePayload
		_ = json.Unmarshal(ev.Data, &p)
		if p.AgentName != "" && p.AgentName != c.agentName {
			fmt.Fprintf(c.out, "%s left %s.\n", p.AgentName, p.RoomID)
		}

	case relay.EventRoomLeft:
		var p relay.PresencePayload
		_ = json.Unmarshal(ev.Data, &p)
		active, wasActive := c.registry.Active()
		c.registry.Remove(p.RoomID)
		c.pipeline.Reset(p.RoomID)
		if wasActive && active.ID == p.RoomID {
			c.monitor.Stop()
			if p.Reason != "" {
				fmt.Fprintf(c.out, "Room %s closed (%s).\n", p.RoomID, p.Reason)
			} else {
				fmt.Fprintf(c.out, "Room %s closed.\n", p.RoomID)
			}
		}
	}
}

// closeIdleRoom closes a room the inactivity monitor timed out. The
// room may already be gone if the guest or another agent closed it
// while the timeout was in flight.
func (c *agentConsole) closeIdleRoom(ctx context.Context, to roomTimeout) {
	if _, ok := c.registry.Get(to.roomID); !ok {
		return
	}
	payload := relay.LeavePayload{RoomID: to.roomID, Reason: to.reason}
	if err := c.emit(ctx, relay.EventCloseRoom, payload); err != nil {
		fmt.Fprintf(c.errOut, "Warning: could not close idle room %s: %v\n", to.roomID, err)
	}
	_ = c.registry.Close(to.roomID)
	fmt.Fprintf(c.out, "Room %s closed after inactivity.\n", to.roomID)
}

func (c *agentConsole) inputLoop(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := c.handleCommand(ctx, line); quit {
				break
			}
			continue
		}
		if err := c.sendToActive(ctx, line); err != nil {
			if errors.Is(err, session.ErrNoActiveRoom) {
				fmt.Fprintln(c.errOut, "No room joined. /rooms to see the worklist, /join to answer one.")
			} else {
				fmt.Fprintf(c.errOut, "Could not send: %v\n", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	c.logout(ctx)
	c.cancel()
	return nil
}

// handleCommand runs one slash command. Returns true on /quit.
func (c *agentConsole) handleCommand(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(c.out, "Commands: /rooms /join <id|name> /leave /close /status <online|busy|offline> /quit")
	case "/rooms":
		c.printWorklist()
	case "/join":
		c.joinRoom(ctx, arg)
	case "/leave":
		if err := c.leaveActive(ctx, session.ReasonManualExit, relay.EventLeaveRoom); errors.Is(err, session.ErrNoActiveRoom) {
			fmt.Fprintln(c.errOut, "No room joined.")
		}
	case "/close":
		if err := c.leaveActive(ctx, session.ReasonManualExit, relay.EventCloseRoom); errors.Is(err, session.ErrNoActiveRoom) {
			fmt.Fprintln(c.errOut, "No room joined.")
		}
	case "/status":
		c.setStatus(ctx, arg)
	default:
		fmt.Fprintf(c.errOut, "Unknown command %s. Try /help.\n", cmd)
	}
	return false
}

// joinRoom resolves the argument as a room id first, then as a fuzzy
// guest-name match over the worklist.
func (c *agentConsole) joinRoom(ctx context.Context, arg string) {
	if arg == "" {
		fmt.Fprintln(c.errOut, "Usage: /join <room-id|guest-name>")
		return
	}

	roomID := arg
	if _, ok := c.registry.Get(arg); !ok {
		items := make([]resolve.Named, 0, c.registry.Len())
		for _, room := range c.registry.Available() {
			if room.Counterpart == "" {
				continue
			}
			items = append(items, resolve.Named{ID: room.ID, Name: room.Counterpart})
		}
		id, err := resolve.FuzzyMatch(arg, items)
		if err != nil {
			fmt.Fprintf(c.errOut, "No room matches %q: %v\n", arg, err)
			return
		}
		roomID = id
	}

	if active, ok := c.registry.Active(); ok && active.ID != roomID {
		_ = c.leaveActive(ctx, session.ReasonManualExit, relay.EventLeaveRoom)
	}

	join := relay.JoinPayload{RoomID: roomID, AgentName: c.agentName}
	if err := c.emit(ctx, relay.EventJoinRoom, join); err != nil {
		fmt.Fprintf(c.errOut, "Could not join %s: %v\n", roomID, err)
		return
	}
	c.registry.Upsert(session.Room{ID: roomID})
	_ = c.registry.SetActive(roomID)
	c.monitor.Watch(roomID)
	room, _ := c.registry.Get(roomID)
	fmt.Fprintf(c.out, "Joined %s with %s.\n", roomID, counterpartOr(room, "the visitor"))
}

func (c *agentConsole) leaveActive(ctx context.Context, reason, event string) error {
	active, ok := c.registry.Active()
	if !ok {
		return session.ErrNoActiveRoom
	}
	payload := relay.LeavePayload{RoomID: active.ID, Reason: reason}
	if err := c.emit(ctx, event, payload); err != nil {
		fmt.Fprintf(c.errOut, "Warning: %v\n", err)
	}
	c.monitor.Stop()
	if event == relay.EventCloseRoom {
		_ = c.registry.Close(active.ID)
		fmt.Fprintf(c.out, "Closed %s.\n", active.ID)
	} else {
		c.registry.ClearActive()
		fmt.Fprintf(c.out, "Left %s.\n", active.ID)
	}
	return nil
}

func (c *agentConsole) setStatus(ctx context.Context, status string) {
	switch status {
	case "online", "busy", "offline":
	default:
		fmt.Fprintln(c.errOut, "Usage: /status <online|busy|offline>")
		return
	}
	if err := c.emit(ctx, relay.EventUpdateAgentStatus, relay.AgentStatusPayload{Status: status}); err != nil {
		fmt.Fprintf(c.errOut, "Could not update status: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Status set to %s.\n", status)
}

func (c *agentConsole) sendToActive(ctx context.Context, line string) error {
	active, ok := c.registry.Active()
	if !ok {
		return session.ErrNoActiveRoom
	}
	echo := c.pipeline.AppendLocal(active.ID, line)
	payload := relay.MessagePayload{
		ID:        echo.ID,
		RoomID:    active.ID,
		SenderID:  echo.SenderID,
		Sender:    c.agentName,
		Role:      string(session.RoleAgent),
		Content:   line,
		Timestamp: echo.SentAt,
	}
	if err := c.emit(ctx, relay.EventSendMessage, payload); err != nil {
		return err
	}
	c.monitor.Touch()
	return nil
}

// logout leaves the joined room with the logout reason and marks the
// agent offline before the connection drops.
func (c *agentConsole) logout(ctx context.Context) {
	if active, ok := c.registry.Active(); ok {
		payload := relay.LeavePayload{RoomID: active.ID, Reason: session.ReasonAgentLogout}
		_ = c.emit(ctx, relay.EventLeaveRoom, payload)
	}
	_ = c.emit(ctx, relay.EventUpdateAgentStatus, relay.AgentStatusPayload{Status: "offline"})
	fmt.Fprintln(c.out, "Logged out.")
}

func (c *agentConsole) printWorklist() {
	rooms := c.registry.Available()
	if len(rooms) == 0 {
		fmt.Fprintln(c.out, "No open conversations.")
		return
	}
	active, _ := c.registry.Active()
	w := newTabWriter(c.out)
	fmt.Fprintln(w, "ROOM\tGUEST\tUNREAD\tLAST ACTIVITY\tLAST MESSAGE")
	for _, room := range rooms {
		marker := ""
		if room.ID == active.ID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%d\t%s\t%s\n",
			marker, room.ID, counterpartOr(room, "-"), room.Unread,
			room.LastActivityAt.Local().Format(time.Kitchen), truncate(room.LastMessage, 40))
	}
	_ = w.Flush()
}

func counterpartOr(room session.Room, fallbackName string) string {
	if room.Counterpart != "" {
		return room.Counterpart
	}
	return fallbackName
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// roomFromPayload converts a wire room to the session model.
func roomFromPayload(p relay.RoomPayload) session.Room {
	return session.Room{
		ID:             p.RoomID,
		Counterpart:    p.UserName,
		LastMessage:    p.LastMessage,
		LastActivityAt: p.LastActivityTime,
		Status:         p.Status,
	}
}
