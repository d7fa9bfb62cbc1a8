package irc

import (
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircfmt"
)

/*
Handler Summary:

Every handler runs with the adapter lock held and reports through the outbox.

Connection Events:
- 001 (onWelcome): registration accepted
  - Records the nickname the server assigned
  - Releases the blocked Connect
- 376/422 (completeHandshake): End of MOTD / MOTD missing
  - Moves to Ready
  - Replays joins queued while awaiting the handshake
- 433/436/432/465 during registration: fail Connect
- ERROR (onError): server is closing the link

Membership:
- JOIN (onJoin): our own confirms a pending join; others join the roster
- PART (onPart), KICK (onKick), QUIT (onQuit)
- 353/366 (onEndOfNames): NAMES replies replace the roster
  - A pending join is confirmed by the end of NAMES as well
- NICK (onNick): renames across rooms, confirms SetUserNickname
- MODE (onMode): prefix modes change roles, the rest change room properties

Messages:
- PRIVMSG / CTCP ACTION (onMessage): channel or private conversation
- NOTICE (onNotice): room or system room

Replies:
- 311-319 WHOIS family: aggregated, summary sent to the system room at 318
- 322 LIST: collected for ServerRooms
- 331/332: room subject
- Error numerics (onErrorReply): pending operation, then pending join,
  then the system room
*/

func (a *Adapter) dispatch(ev Event, out *outbox) {
	switch ev := ev.(type) {
	case MessageEvent:
		a.onMessage(ev.Source, ev.Target, ev.Text, ConversationMessage, out)
	case ActionEvent:
		a.onMessage(ev.Source, ev.Target, ev.Text, ActionMessage, out)
	case NoticeEvent:
		a.onNotice(ev, out)
	case TopicEvent:
		a.onTopic(ev, out)
	case JoinEvent:
		a.onJoin(ev, out)
	case PartEvent:
		a.onPart(ev, out)
	case KickEvent:
		a.onKick(ev, out)
	case QuitEvent:
		a.onQuit(ev, out)
	case NickEvent:
		a.onNick(ev, out)
	case ModeEvent:
		a.onMode(ev, out)
	case InviteEvent:
		out.emit(InvitationReceived{Room: ev.Channel, Inviter: ev.Source.Nick})
	case NumericEvent:
		a.onNumeric(ev, out)
	case ErrorEvent:
		a.onError(ev, out)
	case UnknownEvent:
		a.log.Trace().Str("command", ev.Command).Strs("params", ev.Params).Msg("unhandled line")
	default:
		a.log.Warn().Str("kind", kindOf(ev)).Msg("event type has no handler")
	}
}

func (a *Adapter) isMe(nick string) bool {
	return nick != "" && sameName(nick, a.nick)
}

func fromServer(src Source) bool {
	return src.User == "" && src.Host == ""
}

// sender is the member a line came from, for rooms where that member is not
// on the roster.
func (a *Adapter) sender(src Source) Member {
	nick := src.Nick
	if nick == "" {
		nick = a.server
	}
	return Member{Nick: nick, Login: src.User, Hostname: src.Host, Role: RoleGuest}
}

func (a *Adapter) onMessage(src Source, target, text string, kind MessageKind, out *outbox) {
	if !IsChannel(target) && a.isMe(target) && !fromServer(src) {
		a.onPrivateMessage(src, text, kind, out)
		return
	}

	room := a.system
	if IsChannel(target) {
		if r := a.rooms.resolve(target); r != nil {
			room = r
		}
	}
	if !room.Joined {
		return
	}

	var from Member
	if m := room.Member(src.Nick); m != nil {
		from = *m
	} else if room.System {
		from = a.sender(src)
	} else {
		a.log.Debug().Str("room", room.Name).Str("nick", src.Nick).Msg("message from outside the roster dropped")
		return
	}

	out.emit(MessageReceived{Room: room.Name, Sender: from, Text: text, Time: time.Now(), Kind: kind})
}

func (a *Adapter) onPrivateMessage(src Source, text string, kind MessageKind, out *outbox) {
	room, created := a.rooms.privateRoom(src.Nick)
	if created {
		a.log.Debug().Str("nick", src.Nick).Msg("private conversation opened")
	}
	m := room.Member(src.Nick)
	if m == nil {
		m = &Member{Nick: src.Nick, Login: src.User, Hostname: src.Host, Role: RoleGuest}
		room.addMember(m)
		out.emit(MemberPresence{
			Room:   room.Name,
			Member: *m,
			Kind:   MemberJoined,
			Reason: "A message received from unknown member.",
		})
	}
	out.emit(MessageReceived{Room: room.Name, Sender: *m, Text: text, Time: time.Now(), Kind: kind})
}

func (a *Adapter) onNotice(ev NoticeEvent, out *outbox) {
	room := a.system
	if IsChannel(ev.Target) {
		if r := a.rooms.resolve(ev.Target); r != nil && r.Joined {
			room = r
		}
	}
	if !room.Joined {
		return
	}
	from := a.sender(ev.Source)
	if m := room.Member(ev.Source.Nick); m != nil {
		from = *m
	}
	out.emit(MessageReceived{Room: room.Name, Sender: from, Text: ev.Text, Time: time.Now(), Kind: SystemMessage})
}

func (a *Adapter) systemMessage(text string, out *outbox) {
	if !a.system.Joined || text == "" {
		return
	}
	out.emit(MessageReceived{
		Room:   a.system.Name,
		Sender: Member{Nick: a.server, Role: RoleGuest},
		Text:   text,
		Time:   time.Now(),
		Kind:   SystemMessage,
	})
}

func (a *Adapter) onTopic(ev TopicEvent, out *outbox) {
	if a.isMe(ev.Source.Nick) {
		a.pending.confirm(opTopic, ev.Channel)
	}
	room := a.rooms.resolve(ev.Channel)
	if room == nil || !room.Joined {
		return
	}
	a.setTopic(room, ev.Topic, ev.Source.Nick, out)
}

func (a *Adapter) setTopic(room *ChatRoom, topic, actor string, out *outbox) {
	old := room.Topic
	room.Topic = topic
	out.emit(RoomPropertyChange{Room: room.Name, Property: PropertySubject, Old: old, New: topic, Actor: actor})
}

// markJoined emits LocalUserJoined on the false to true transition only.
func (a *Adapter) markJoined(room *ChatRoom, out *outbox) {
	if room.Joined {
		return
	}
	room.Joined = true
	a.log.Info().Str("room", room.Name).Msg("joined")
	out.emit(LocalUserPresence{Room: room.Name, Kind: LocalUserJoined})
}

func (a *Adapter) onJoin(ev JoinEvent, out *outbox) {
	if a.isMe(ev.Source.Nick) {
		room := a.rooms.create(ev.Channel)
		a.joins.cancel(room.Name)
		a.markJoined(room, out)
		return
	}

	room := a.rooms.resolve(ev.Channel)
	if room == nil || !room.Joined {
		return
	}
	m := &Member{Nick: ev.Source.Nick, Login: ev.Source.User, Hostname: ev.Source.Host, Role: RoleGuest}
	room.addMember(m)
	out.emit(MemberPresence{Room: room.Name, Member: *m, Kind: MemberJoined})
}

func (a *Adapter) onPart(ev PartEvent, out *outbox) {
	room := a.rooms.resolve(ev.Channel)
	if room == nil || !room.Joined {
		return
	}
	if a.isMe(ev.Source.Nick) {
		room.markLeft()
		a.log.Info().Str("room", room.Name).Msg("left")
		out.emit(LocalUserPresence{Room: room.Name, Kind: LocalUserLeft, Reason: ev.Reason})
		return
	}
	m := room.removeMember(ev.Source.Nick)
	if m == nil {
		return
	}
	out.emit(MemberPresence{Room: room.Name, Member: *m, Kind: MemberLeft, Reason: ev.Reason})
}

func (a *Adapter) onKick(ev KickEvent, out *outbox) {
	if a.isMe(ev.Source.Nick) {
		a.pending.confirm(opKick, ev.Channel)
	}
	room := a.rooms.resolve(ev.Channel)
	if room == nil || !room.Joined {
		return
	}

	actor := a.sender(ev.Source)
	if m := room.Member(ev.Source.Nick); m != nil {
		actor = *m
	}

	if a.isMe(ev.Target) {
		room.markLeft()
		a.log.Warn().Str("room", room.Name).Str("by", actor.Nick).Str("reason", ev.Reason).Msg("kicked")
		out.emit(LocalUserPresence{Room: room.Name, Kind: LocalUserKicked, Reason: ev.Reason})
		return
	}
	m := room.removeMember(ev.Target)
	if m == nil {
		return
	}
	out.emit(MemberPresence{Room: room.Name, Member: *m, Actor: &actor, Kind: MemberKicked, Reason: ev.Reason})
}

func (a *Adapter) onQuit(ev QuitEvent, out *outbox) {
	if a.isMe(ev.Source.Nick) {
		for _, room := range a.rooms.joined() {
			room.markLeft()
			out.emit(LocalUserPresence{Room: room.Name, Kind: LocalUserDropped, Reason: ev.Reason})
		}
		return
	}
	for _, room := range a.rooms.joined() {
		m := room.removeMember(ev.Source.Nick)
		if m == nil {
			continue
		}
		out.emit(MemberPresence{Room: room.Name, Member: *m, Kind: MemberQuit, Reason: ev.Reason})
	}
}

func (a *Adapter) onNick(ev NickEvent, out *outbox) {
	oldNick := ev.Source.Nick
	if a.isMe(oldNick) {
		a.nick = ev.NewNick
		a.pending.confirm(opNick, ev.NewNick)
		a.log.Info().Str("old", oldNick).Str("new", ev.NewNick).Msg("nickname changed")
	}
	a.rooms.renamePrivate(oldNick, ev.NewNick)
	for _, room := range a.rooms.joined() {
		m := room.renameMember(oldNick, ev.NewNick)
		if m == nil {
			continue
		}
		out.emit(MemberPropertyChange{Room: room.Name, Member: *m, Property: "nickname", Old: oldNick, New: ev.NewNick})
	}
}

func (a *Adapter) onMode(ev ModeEvent, out *outbox) {
	if !IsChannel(ev.Target) {
		a.log.Debug().Str("target", ev.Target).Int("changes", len(ev.Changes)).Msg("user mode change")
		return
	}
	room := a.rooms.resolve(ev.Target)
	if room == nil || !room.Joined {
		return
	}

	for _, c := range ev.Changes {
		if isPrefixMode(c.Mode) {
			role := roleForMode(c)
			m, old := room.setRole(c.Arg, role)
			if m == nil {
				continue
			}
			out.emit(MemberRoleChange{Room: room.Name, Member: *m, OldRole: old, NewRole: role})
			continue
		}

		if c.Mode == 'b' && c.Add && a.isMe(ev.Source.Nick) {
			a.pending.confirm(opBan, room.Name)
		}
		property, oldValue, newValue, ok := room.Modes.apply(c)
		if !ok {
			a.log.Trace().Str("room", room.Name).Str("mode", c.String()).Msg("mode not tracked")
			continue
		}
		out.emit(RoomPropertyChange{Room: room.Name, Property: property, Old: oldValue, New: newValue, Actor: ev.Source.Nick})
	}
}

func (a *Adapter) onError(ev ErrorEvent, out *outbox) {
	a.log.Warn().Str("reason", ev.Reason).Msg("server error")
	a.signalWelcome(opError("connect", ConnectionFailure, ev.Reason))
	a.systemMessage(ev.Reason, out)
}

func (a *Adapter) onNumeric(ev NumericEvent, out *outbox) {
	code, params := ev.Code, ev.Params
	var rest []string
	if len(params) > 0 {
		rest = params[1:]
	}
	text := param(params, len(params)-1)

	if a.welcome != nil && a.registrationReply(code, text) {
		return
	}

	switch {
	case code == RPL_WELCOME:
		a.onWelcome(params)
	case code == RPL_ENDOFMOTD || code == ERR_NOMOTD:
		a.completeHandshake(out)
	case code == RPL_NAMREPLY:
		// <me> <symbol> <channel> :<names>
		if len(params) >= 4 {
			key := foldName(params[2])
			a.names[key] = append(a.names[key], strings.Fields(params[3])...)
		}
	case code == RPL_ENDOFNAMES:
		a.onEndOfNames(param(params, 1), out)
	case code == RPL_TOPIC || code == RPL_NOTOPIC:
		// <me> <channel> :<topic>
		room := a.rooms.resolve(param(params, 1))
		if room == nil || (!room.Joined && !a.joins.pending(room.Name)) {
			return
		}
		topic := ""
		if code == RPL_TOPIC {
			topic = param(params, 2)
		}
		a.setTopic(room, topic, "", out)
	case code == RPL_LIST:
		// <me> <channel> <visible> :<topic>
		if ch := param(params, 1); ch != "" {
			a.addServerRoom(ch)
		}
	case isWhoisReply(code):
		if info := a.whois.update(code, rest); info != nil {
			a.systemMessage(info.Summary(), out)
		}
	case operationErrors[code]:
		a.onErrorReply(code, params, text, out)
	case silentReplies[code]:
	default:
		a.systemMessage(numericText(params), out)
	}
}

// registrationReply handles replies that decide a blocked Connect and
// reports whether it consumed the reply.
func (a *Adapter) registrationReply(code, text string) bool {
	switch code {
	case ERR_NICKNAMEINUSE, ERR_NICKCOLLISION:
		if a.autoNick {
			a.log.Info().Str("code", code).Msg("nickname taken, trying an alternative")
			return true
		}
		a.signalWelcome(&OperationError{Op: "connect", Kind: NicknameConflict, Code: code, Message: text})
		return true
	case ERR_ERRONEUSNICKNAME:
		a.signalWelcome(&OperationError{Op: "connect", Kind: InvalidArgument, Code: code, Message: text})
		return true
	case ERR_YOUREBANNEDCREEP:
		a.signalWelcome(&OperationError{Op: "connect", Kind: ConnectionFailure, Code: code, Message: text})
		return true
	}
	return false
}

func (a *Adapter) onWelcome(params []string) {
	if nick := param(params, 0); nick != "" {
		a.nick = nick
	}
	if a.state == Disconnected || a.state == Connecting {
		a.state = AwaitingHandshake
	}
	a.system.Joined = true
	a.signalWelcome(nil)
}

func (a *Adapter) completeHandshake(out *outbox) {
	if a.state != AwaitingHandshake {
		return
	}
	a.state = Ready
	queued := a.queue
	a.queue = nil
	a.log.Info().Int("queued_joins", len(queued)).Msg("handshake complete")

	if len(queued) == 0 {
		return
	}
	out.then(func() {
		for _, req := range queued {
			var err error
			a.withLock(func(out *outbox) {
				err = a.requestJoin(req.room, req.key, out)
			})
			if err != nil {
				a.log.Warn().Err(err).Str("room", req.room).Msg("queued join dropped")
			}
		}
	})
}

// onEndOfNames applies the buffered NAMES listing. A listing counts for a
// room we are joined to, one with a join in flight, or one that lists us.
func (a *Adapter) onEndOfNames(channel string, out *outbox) {
	key := foldName(channel)
	entries := a.names[key]
	delete(a.names, key)

	room := a.rooms.resolve(channel)
	if room == nil {
		return
	}
	inFlight := a.joins.pending(room.Name)
	listed := false
	for _, e := range entries {
		if _, nick := splitNamesEntry(e); a.isMe(nick) {
			listed = true
			break
		}
	}
	if !room.Joined && !inFlight && !listed {
		return
	}

	a.joins.cancel(room.Name)
	a.markJoined(room, out)
	for _, m := range room.applyNames(entries) {
		out.emit(MemberPresence{Room: room.Name, Member: *m, Kind: MemberJoined})
	}
}

// onErrorReply routes an error numeric to the oldest matching operation,
// then to a pending join, and finally to the system room.
func (a *Adapter) onErrorReply(code string, params []string, text string, out *outbox) {
	var rest []string
	if len(params) > 0 {
		rest = params[1:]
	}
	a.log.Debug().Str("code", code).Strs("params", rest).Msg("error reply")

	if op := a.pending.fail(code, rest, text); op != nil {
		a.log.Debug().Str("op", op.kind.String()).Str("request_id", op.id.String()).Msg("operation failed")
		return
	}

	if reason, ok := joinErrors[code]; ok && len(rest) > 0 {
		ch := rest[0]
		if room := a.rooms.resolve(ch); room != nil && a.joins.cancel(room.Name) > 0 {
			if text == "" || text == ch {
				text = reason
			}
			out.emit(LocalUserPresence{
				Room:   room.Name,
				Kind:   LocalUserJoinFailed,
				Reason: "Failed to join the " + room.Name + " chat room: " + text,
			})
			return
		}
	}

	a.systemMessage(numericText(params), out)
}

// numericText renders a reply for the system room without the leading
// nickname and with formatting codes removed.
func numericText(params []string) string {
	if len(params) > 1 {
		params = params[1:]
	}
	return ircfmt.Strip(strings.Join(params, " "))
}
