package irc

import (
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/ergochat/irc-go/ircutils"
)

// SendCommand sends a line typed into room. Text without a leading slash is
// a plain message; known slash commands map onto adapter operations and
// anything else is sent to the server verbatim.
func (a *Adapter) SendCommand(room, line string) error {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return a.SendMessage(room, line)
	}

	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := strings.TrimSpace(line[len(fields[0]):])
	first, remainder := splitWord(args)

	switch {
	case cmd == "/me":
		return a.SendAction(room, args)
	case cmd == "/notice":
		return a.sendText("notice", room, "NOTICE", args)
	case cmd == "/msg":
		return a.cmdMsg(first, remainder)
	case cmd == "/query":
		return a.cmdQuery(first)
	case cmd == "/whois":
		if first == "" {
			return opError("whois", InvalidArgument, "a nickname is required")
		}
		return a.Whois(first)
	case cmd == "/names":
		target := room
		if first != "" {
			target = first
		}
		return a.sendConnected("names", "NAMES", target)
	case cmd == "/topic":
		return a.SetSubject(room, args)
	case cmd == "/nick":
		return a.SetUserNickname(first)
	case cmd == "/join":
		return a.JoinWithKey(first, remainder)
	case cmd == "/part" || cmd == "/leave":
		target := room
		if first != "" {
			target = first
		}
		return a.Leave(target)
	case cmd == "/kick":
		return a.KickParticipant(room, first, remainder)
	case cmd == "/ban":
		return a.BanParticipant(room, first, remainder)
	case cmd == "/list":
		return a.ListServerRooms()
	}
	return a.cmdRaw(line[1:])
}

// SendMessage sends text to a joined channel or an open private
// conversation.
func (a *Adapter) SendMessage(room, text string) error {
	return a.sendText("send_message", room, "PRIVMSG", text)
}

// SendAction sends a CTCP ACTION ("/me") to room.
func (a *Adapter) SendAction(room, text string) error {
	const op = "send_action"
	text = ircutils.SanitizeText(text, maxMessageBytes-len("\x01ACTION \x01"))
	if text == "" {
		return opError(op, InvalidArgument, "empty message")
	}
	return a.sendText(op, room, "PRIVMSG", "\x01ACTION "+text+"\x01")
}

func (a *Adapter) sendText(op, room, command, text string) error {
	if !a.canSendTo(room) {
		return opError(op, RoomNotJoined, "not joined to "+room)
	}
	text = ircutils.SanitizeText(text, maxMessageBytes)
	if text == "" {
		return opError(op, InvalidArgument, "empty message")
	}
	if err := a.transport.Send(command, room, text); err != nil {
		return &OperationError{Op: op, Kind: ConnectionFailure, Message: "could not send " + command, Err: err}
	}
	return nil
}

func (a *Adapter) canSendTo(room string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Ready && a.state != AwaitingHandshake {
		return false
	}
	if IsChannel(room) {
		r := a.rooms.resolve(room)
		return r != nil && r.Joined
	}
	return a.rooms.findPrivate(room) != nil
}

// cmdMsg sends to any channel or nickname, joined or not.
func (a *Adapter) cmdMsg(target, text string) error {
	const op = "msg"
	if target == "" {
		return opError(op, InvalidArgument, "a target is required")
	}
	text = ircutils.SanitizeText(text, maxMessageBytes)
	if text == "" {
		return opError(op, InvalidArgument, "empty message")
	}
	return a.sendConnected(op, "PRIVMSG", target, text)
}

// cmdQuery opens a private conversation with nick.
func (a *Adapter) cmdQuery(nick string) error {
	const op = "query"
	if nick == "" || IsChannel(nick) {
		return opError(op, InvalidArgument, "a nickname is required")
	}
	if !a.connected() {
		return opError(op, ConnectionFailure, "not connected")
	}
	a.withLock(func(out *outbox) {
		room, created := a.rooms.privateRoom(nick)
		if !created {
			return
		}
		out.emit(MessageReceived{
			Room:   room.Name,
			Sender: Member{Nick: a.nick, Role: RoleGuest},
			Text:   "Private conversation initiated.",
			Time:   time.Now(),
			Kind:   SystemMessage,
		})
	})
	return nil
}

// cmdRaw sends an arbitrary protocol line such as "MODE #go +m".
func (a *Adapter) cmdRaw(raw string) error {
	const op = "raw"
	msg, err := ircmsg.ParseLine(raw)
	if err != nil {
		return &OperationError{Op: op, Kind: InvalidArgument, Message: "malformed command", Err: err}
	}
	return a.sendConnected(op, strings.ToUpper(msg.Command), msg.Params...)
}

func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
