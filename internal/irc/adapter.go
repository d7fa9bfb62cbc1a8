// Package irc adapts an asynchronous IRC event stream into a synchronous
// multi-user chat model: rooms, rosters, roles, topics and admin operations.
package irc

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/rs/zerolog"

	"github.com/dalnet/ircmuc/internal/metrics"
)

const (
	DefaultJoinTimeout      = 10 * time.Second
	DefaultOperationTimeout = 5 * time.Second

	maxMessageBytes = 400
)

var errConnectionClosed = errors.New("connection closed")

// Transport is the line-protocol connection the adapter drives. Parsed
// lines come back through Adapter.HandleMessage and HandleDisconnect.
type Transport interface {
	Connect(server, password string) error
	Send(command string, params ...string) error
	Quit(reason string)
}

// Options configures an Adapter. Zero values select the defaults.
type Options struct {
	Nick             string
	JoinTimeout      time.Duration
	OperationTimeout time.Duration
	Listener         Listener
	Logger           *zerolog.Logger
	Metrics          *metrics.Metrics
}

// Adapter is the multi-user chat view of one IRC connection.
//
// Mutable state is guarded by mu. Protocol events arrive one at a time from
// the transport; public operations may be called from any goroutine.
// Notifications are delivered after mu is released.
type Adapter struct {
	transport Transport
	listener  Listener
	log       zerolog.Logger
	metrics   *metrics.Metrics

	joinTimeout time.Duration
	opTimeout   time.Duration

	mu       sync.Mutex
	state    State
	nick     string
	server   string
	autoNick bool
	welcome  chan error
	rooms    *registry
	system   *ChatRoom
	whois    *whoisTable
	pending  rendezvous
	joins    *joinSupervisor
	queue    []joinRequest
	names    map[string][]string

	listMu      sync.Mutex
	serverRooms []string
}

// New creates a disconnected adapter on top of t.
func New(t Transport, opts Options) *Adapter {
	a := &Adapter{
		transport:   t,
		listener:    opts.Listener,
		metrics:     opts.Metrics,
		joinTimeout: opts.JoinTimeout,
		opTimeout:   opts.OperationTimeout,
		nick:        opts.Nick,
		rooms:       newRegistry(),
		whois:       newWhoisTable(),
		joins:       newJoinSupervisor(),
		names:       make(map[string][]string),
	}
	if opts.Logger != nil {
		a.log = *opts.Logger
	} else {
		a.log = zerolog.Nop()
	}
	if a.joinTimeout <= 0 {
		a.joinTimeout = DefaultJoinTimeout
	}
	if a.opTimeout <= 0 {
		a.opTimeout = DefaultOperationTimeout
	}
	a.system = newChatRoom("server")
	a.system.System = true
	return a
}

// withLock runs fn under mu, then delivers what it emitted.
func (a *Adapter) withLock(fn func(out *outbox)) {
	var out outbox
	a.mu.Lock()
	fn(&out)
	if a.metrics != nil {
		a.metrics.SetJoinedRooms(len(a.rooms.joined()))
		a.metrics.SetPendingOperations(a.pending.len())
	}
	a.mu.Unlock()

	if a.listener != nil {
		for _, n := range out.notes {
			a.listener.Notify(n)
		}
	}
	for _, fn := range out.after {
		fn()
	}
}

// HandleMessage decodes and dispatches one line from the transport.
func (a *Adapter) HandleMessage(msg ircmsg.Message) {
	a.HandleEvent(Decode(msg))
}

// HandleEvent dispatches one protocol event.
func (a *Adapter) HandleEvent(ev Event) {
	a.metrics.EventDispatched(kindOf(ev))
	a.withLock(func(out *outbox) {
		a.dispatch(ev, out)
	})
}

// Connect opens the connection and blocks until the server accepts the
// registration, the server rejects it, or ctx ends.
func (a *Adapter) Connect(ctx context.Context, server string, port int, password string, autoNickChange bool) error {
	const op = "connect"
	addr := net.JoinHostPort(server, strconv.Itoa(port))
	welcome := make(chan error, 1)

	a.mu.Lock()
	if a.state != Disconnected {
		a.mu.Unlock()
		return a.finish(op, opError(op, ConnectionFailure, "already connected"))
	}
	a.state = Connecting
	a.server = server
	a.system.Name = server
	a.autoNick = autoNickChange
	a.welcome = welcome
	a.mu.Unlock()

	a.log.Info().Str("server", addr).Msg("connecting")

	if err := a.transport.Connect(addr, password); err != nil {
		a.mu.Lock()
		a.state = Disconnected
		a.welcome = nil
		a.mu.Unlock()
		return a.finish(op, &OperationError{Op: op, Kind: ConnectionFailure, Message: "could not connect to " + addr, Err: err})
	}

	a.mu.Lock()
	if a.state == Connecting {
		a.state = AwaitingHandshake
		a.system.Joined = true
	}
	a.mu.Unlock()

	select {
	case err := <-welcome:
		if err != nil {
			a.transport.Quit("")
			a.HandleDisconnect()
			return a.finish(op, err)
		}
	case <-ctx.Done():
		a.transport.Quit("")
		a.HandleDisconnect()
		return a.finish(op, &OperationError{Op: op, Kind: ConnectionFailure, Message: "registration did not complete", Err: ctx.Err()})
	}

	a.log.Info().Str("server", addr).Str("nick", a.Nick()).Msg("registered")
	return a.finish(op, nil)
}

// signalWelcome ends a blocked Connect. Called with mu held.
func (a *Adapter) signalWelcome(err error) {
	if a.welcome == nil {
		return
	}
	a.welcome <- err
	a.welcome = nil
}

// Disconnect quits with reason and resets all room state.
func (a *Adapter) Disconnect(reason string) {
	a.transport.Quit(reason)
	a.HandleDisconnect()
}

// HandleDisconnect resets the session after the transport lost the link.
// Rooms are marked left and rosters cleared without per-room notifications;
// queued joins are reported as failed and blocked operations are released
// with ConnectionFailure.
func (a *Adapter) HandleDisconnect() {
	a.withLock(func(out *outbox) {
		if a.state == Disconnected {
			return
		}
		a.log.Warn().Str("state", a.state.String()).Msg("disconnected")

		a.signalWelcome(opError("connect", ConnectionFailure, "connection closed during registration"))
		a.state = Disconnected
		a.system.Joined = false
		for _, r := range a.rooms.all() {
			r.markLeft()
		}
		a.rooms.dropAllPrivate()
		a.joins.cancelAll()
		for _, req := range a.queue {
			out.emit(LocalUserPresence{
				Room:   req.room,
				Kind:   LocalUserJoinFailed,
				Reason: "Failed to join the " + req.room + " chat room, because the connection was closed.",
			})
		}
		a.queue = nil
		a.names = make(map[string][]string)
		a.whois = newWhoisTable()
		a.pending.abort(errConnectionClosed)
	})
}

// Join joins a channel. See JoinWithKey.
func (a *Adapter) Join(room string) error {
	return a.JoinWithKey(room, "")
}

// JoinWithKey joins a channel protected by key. Before the handshake
// completes the request is queued and replayed afterwards; once ready the
// JOIN is sent and an unconfirmed join is reported as LocalUserJoinFailed
// after the join timeout.
func (a *Adapter) JoinWithKey(room, key string) error {
	const op = "join"
	if !IsChannel(room) {
		return opError(op, InvalidArgument, "not a channel name: "+room)
	}
	var err error
	a.withLock(func(out *outbox) {
		err = a.requestJoin(room, key, out)
	})
	return err
}

// requestJoin is the join path shared by callers and the queue replay.
// Called with mu held.
func (a *Adapter) requestJoin(name, key string, out *outbox) error {
	switch a.state {
	case Disconnected, Connecting:
		return opError("join", ConnectionFailure, "not connected")
	case AwaitingHandshake:
		a.rooms.create(name)
		a.queue = append(a.queue, joinRequest{room: name, key: key})
		a.log.Debug().Str("room", name).Msg("join queued until handshake completes")
		return nil
	}

	room := a.rooms.create(name)
	if room.Joined {
		return nil
	}
	roomName := room.Name
	token := a.joins.start(roomName, a.joinTimeout, func(token uint64) {
		a.joinTimedOut(roomName, token)
	})

	params := []string{roomName}
	if key != "" {
		params = append(params, key)
	}
	out.then(func() {
		err := a.transport.Send("JOIN", params...)
		if err == nil {
			return
		}
		a.log.Warn().Err(err).Str("room", roomName).Msg("could not send join")
		a.withLock(func(out *outbox) {
			if a.joins.take(roomName, token) {
				out.emit(LocalUserPresence{
					Room:   roomName,
					Kind:   LocalUserJoinFailed,
					Reason: "Failed to join the " + roomName + " chat room: " + err.Error(),
				})
			}
		})
	})
	return nil
}

func (a *Adapter) joinTimedOut(room string, token uint64) {
	a.withLock(func(out *outbox) {
		if !a.joins.take(room, token) {
			return
		}
		a.metrics.JoinTimedOut()
		a.log.Warn().Str("room", room).Dur("timeout", a.joinTimeout).Msg("join was not confirmed")
		out.emit(LocalUserPresence{
			Room:   room,
			Kind:   LocalUserJoinFailed,
			Reason: "Failed to join the " + room + " chat room, because there is no response from the server.",
		})
	})
}

// Leave parts a channel or closes a private conversation. The room is marked
// left when the server echoes the PART.
func (a *Adapter) Leave(name string) error {
	const op = "leave"
	var err error
	a.withLock(func(out *outbox) {
		if !IsChannel(name) {
			if a.rooms.findPrivate(name) == nil {
				err = opError(op, RoomNotJoined, "no conversation with "+name)
				return
			}
			a.rooms.dropPrivate(name)
			out.emit(LocalUserPresence{Room: name, Kind: LocalUserLeft})
			return
		}

		queued := a.queue[:0]
		for _, req := range a.queue {
			if !sameName(req.room, name) {
				queued = append(queued, req)
			}
		}
		if len(queued) < len(a.queue) {
			a.queue = queued
			return
		}

		room := a.rooms.resolve(name)
		inFlight := room != nil && a.joins.cancel(room.Name) > 0
		if room == nil || (!room.Joined && !inFlight) {
			err = opError(op, RoomNotJoined, "not joined to "+name)
			return
		}
		roomName := room.Name
		out.then(func() {
			if sendErr := a.transport.Send("PART", roomName); sendErr != nil {
				a.log.Warn().Err(sendErr).Str("room", roomName).Msg("could not send part")
			}
		})
	})
	return err
}

// SetUserNickname changes the local nickname and waits for the server's
// verdict. A nickname in use fails with NicknameConflict, a malformed one
// with InvalidArgument.
func (a *Adapter) SetUserNickname(nick string) error {
	if nick == "" {
		return a.finish(opNick.String(), opError(opNick.String(), InvalidArgument, "a valid nickname is required"))
	}
	return a.await(opNick, "", "NICK", []string{nick}, nick)
}

// SetSubject changes a channel's topic.
func (a *Adapter) SetSubject(room, topic string) error {
	return a.await(opTopic, room, "TOPIC", []string{room, topic}, room)
}

// KickParticipant kicks who from room.
func (a *Adapter) KickParticipant(room, who, reason string) error {
	params := []string{room, who}
	if reason != "" {
		params = append(params, reason)
	}
	return a.await(opKick, room, "KICK", params, room, who)
}

// BanParticipant sets a ban on mask in room. IRC bans carry no reason; it is
// only logged.
func (a *Adapter) BanParticipant(room, mask, reason string) error {
	a.log.Debug().Str("room", room).Str("mask", mask).Str("reason", reason).Msg("ban requested")
	return a.await(opBan, room, "MODE", []string{room, "+b", mask}, room, mask)
}

// await sends an admin command and blocks until a correlated reply arrives
// or the operation timeout elapses. A timeout is treated as success since
// servers confirm most of these commands only by echoing them.
func (a *Adapter) await(kind opKind, room, command string, params []string, targets ...string) error {
	op := kind.String()

	a.mu.Lock()
	if a.state == Disconnected || a.state == Connecting {
		a.mu.Unlock()
		return a.finish(op, opError(op, ConnectionFailure, "not connected"))
	}
	if room != "" {
		r := a.rooms.resolve(room)
		if r == nil || !r.Joined {
			a.mu.Unlock()
			return a.finish(op, opError(op, RoomNotJoined, "not joined to "+room))
		}
	}
	p := a.pending.register(kind, targets...)
	a.metrics.SetPendingOperations(a.pending.len())
	a.mu.Unlock()

	log := a.log.With().Str("op", op).Str("request_id", p.id.String()).Logger()
	log.Debug().Strs("params", params).Msg("sending")

	if err := a.transport.Send(command, params...); err != nil {
		a.mu.Lock()
		a.pending.remove(p)
		a.metrics.SetPendingOperations(a.pending.len())
		a.mu.Unlock()
		return a.finish(op, &OperationError{Op: op, Kind: ConnectionFailure, Message: "could not send " + command, Err: err})
	}

	timer := time.NewTimer(a.opTimeout)
	defer timer.Stop()

	var res opResult
	select {
	case res = <-p.result:
	case <-timer.C:
		a.mu.Lock()
		removed := a.pending.remove(p)
		a.metrics.SetPendingOperations(a.pending.len())
		a.mu.Unlock()
		if removed {
			log.Warn().Dur("timeout", a.opTimeout).Msg("no reply from server, assuming success")
			a.metrics.OperationFinished(op, "timeout")
			return nil
		}
		// resolved between the timer firing and the removal
		res = <-p.result
	}

	log.Debug().Dur("elapsed", time.Since(p.started)).Str("code", res.code).Msg("reply received")

	switch {
	case res.err != nil:
		return a.finish(op, &OperationError{Op: op, Kind: ConnectionFailure, Message: "connection lost while waiting for the server", Err: res.err})
	case res.fail != nil:
		msg := res.fail.message
		if res.message != "" {
			msg += ": " + res.message
		}
		return a.finish(op, &OperationError{Op: op, Kind: res.fail.kind, Code: res.code, Message: msg})
	}
	return a.finish(op, nil)
}

// finish records the outcome of a synchronous operation.
func (a *Adapter) finish(op string, err error) error {
	result := "ok"
	var oe *OperationError
	if errors.As(err, &oe) {
		result = oe.Kind.String()
	} else if err != nil {
		result = "error"
	}
	a.metrics.OperationFinished(op, result)
	return err
}

// Whois queries a user; the aggregated answer arrives as a system message.
func (a *Adapter) Whois(nick string) error {
	return a.sendConnected("whois", "WHOIS", nick)
}

// ListServerRooms asks the server for its channel list; see ServerRooms.
func (a *Adapter) ListServerRooms() error {
	return a.sendConnected("list", "LIST")
}

func (a *Adapter) sendConnected(op, command string, params ...string) error {
	if !a.connected() {
		return opError(op, ConnectionFailure, "not connected")
	}
	if err := a.transport.Send(command, params...); err != nil {
		return &OperationError{Op: op, Kind: ConnectionFailure, Message: "could not send " + command, Err: err}
	}
	return nil
}

func (a *Adapter) connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == AwaitingHandshake || a.state == Ready
}

// ServerRooms returns the channel names collected from LIST replies.
func (a *Adapter) ServerRooms() []string {
	a.listMu.Lock()
	defer a.listMu.Unlock()
	out := make([]string, len(a.serverRooms))
	copy(out, a.serverRooms)
	return out
}

func (a *Adapter) addServerRoom(name string) {
	a.listMu.Lock()
	defer a.listMu.Unlock()
	for _, r := range a.serverRooms {
		if sameName(r, name) {
			return
		}
	}
	a.serverRooms = append(a.serverRooms, name)
}

// State returns the connection lifecycle state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Nick returns the local nickname as last confirmed by the server.
func (a *Adapter) Nick() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nick
}

// SystemRoom returns the name of the room that collects server chatter.
func (a *Adapter) SystemRoom() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.system.Name
}

// RoomSnapshot is a copy of a room's state at one point in time.
type RoomSnapshot struct {
	Name    string
	Joined  bool
	Private bool
	System  bool
	Topic   string
	Modes   string
	Key     string
	Limit   string
	Bans    []string
	Members []Member
}

func snapshot(r *ChatRoom) RoomSnapshot {
	return RoomSnapshot{
		Name:    r.Name,
		Joined:  r.Joined,
		Private: r.Private,
		System:  r.System,
		Topic:   r.Topic,
		Modes:   r.Modes.flagString(),
		Key:     r.Modes.Key,
		Limit:   r.Modes.Limit,
		Bans:    append([]string(nil), r.Modes.Bans...),
		Members: r.Members(),
	}
}

// Room returns a snapshot of a channel, private conversation or the system
// room.
func (a *Adapter) Room(name string) (RoomSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sameName(name, a.system.Name) {
		return snapshot(a.system), true
	}
	if r := a.rooms.resolve(name); r != nil {
		return snapshot(r), true
	}
	if r := a.rooms.findPrivate(name); r != nil {
		return snapshot(r), true
	}
	return RoomSnapshot{}, false
}

// JoinedRooms returns the names of all joined channels.
func (a *Adapter) JoinedRooms() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, r := range a.rooms.joined() {
		out = append(out, r.Name)
	}
	return out
}
