package irc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyTo answers the first command sent with the given lines.
func (h *harness) replyTo(command string, lines ...string) {
	h.tr.setOnSend(func(cmd string, params []string) {
		if cmd == command {
			h.feed(lines...)
		}
	})
}

func TestOperationErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		call  func(a *Adapter) error
		cmd   string
		reply string
		want  ErrorKind
	}{
		{
			name:  "kick without privileges",
			call:  func(a *Adapter) error { return a.KickParticipant("#test", "bob", "") },
			cmd:   "KICK",
			reply: ":irc.test 482 me #test :You're not channel operator",
			want:  InsufficientPrivileges,
		},
		{
			name:  "kick unknown member",
			call:  func(a *Adapter) error { return a.KickParticipant("#test", "zed", "bye") },
			cmd:   "KICK",
			reply: ":irc.test 441 me zed #test :They aren't on that channel",
			want:  NotFound,
		},
		{
			name:  "kick unknown nick",
			call:  func(a *Adapter) error { return a.KickParticipant("#test", "zed", "") },
			cmd:   "KICK",
			reply: ":irc.test 401 me zed :No such nick/channel",
			want:  NotFound,
		},
		{
			name:  "ban without privileges",
			call:  func(a *Adapter) error { return a.BanParticipant("#test", "*!*@bad.host", "spam") },
			cmd:   "MODE",
			reply: ":irc.test 482 me #test :You're not channel operator",
			want:  InsufficientPrivileges,
		},
		{
			name:  "topic without privileges",
			call:  func(a *Adapter) error { return a.SetSubject("#test", "new") },
			cmd:   "TOPIC",
			reply: ":irc.test 482 me #test :You're not channel operator",
			want:  InsufficientPrivileges,
		},
		{
			name:  "topic needs more params",
			call:  func(a *Adapter) error { return a.SetSubject("#test", "new") },
			cmd:   "TOPIC",
			reply: ":irc.test 461 me TOPIC :Not enough parameters",
			want:  ProtocolError,
		},
		{
			name:  "nickname in use",
			call:  func(a *Adapter) error { return a.SetUserNickname("taken") },
			cmd:   "NICK",
			reply: ":irc.test 433 me taken :Nickname is already in use",
			want:  NicknameConflict,
		},
		{
			name:  "nickname collision",
			call:  func(a *Adapter) error { return a.SetUserNickname("taken") },
			cmd:   "NICK",
			reply: ":irc.test 436 me taken :Nickname collision KILL",
			want:  NicknameConflict,
		},
		{
			name:  "topic when not on channel",
			call:  func(a *Adapter) error { return a.SetSubject("#test", "new") },
			cmd:   "TOPIC",
			reply: ":irc.test 442 me #test :You're not on that channel",
			want:  RoomNotJoined,
		},
		{
			name:  "kick when not on channel",
			call:  func(a *Adapter) error { return a.KickParticipant("#test", "bob", "") },
			cmd:   "KICK",
			reply: ":irc.test 442 me #test :You're not on that channel",
			want:  RoomNotJoined,
		},
		{
			name:  "ban when not on channel",
			call:  func(a *Adapter) error { return a.BanParticipant("#test", "*!*@bad.host", "") },
			cmd:   "MODE",
			reply: ":irc.test 442 me #test :You're not on that channel",
			want:  RoomNotJoined,
		},
		{
			name:  "ban with unknown mode flag",
			call:  func(a *Adapter) error { return a.BanParticipant("#test", "*!*@bad.host", "") },
			cmd:   "MODE",
			reply: ":irc.test 501 me :Unknown MODE flag",
			want:  ProtocolError,
		},
		{
			name:  "erroneous nickname",
			call:  func(a *Adapter) error { return a.SetUserNickname("1bad") },
			cmd:   "NICK",
			reply: ":irc.test 432 me 1bad :Erroneous nickname",
			want:  InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.ready()
			h.joined("#test", "@me bob")
			h.replyTo(tt.cmd, tt.reply)

			start := time.Now()
			err := tt.call(h.a)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Less(t, time.Since(start), 100*time.Millisecond, "a correlated reply ends the wait")

			var opErr *OperationError
			require.ErrorAs(t, err, &opErr)
			assert.NotEmpty(t, opErr.Code)
			assert.Empty(t, h.rec.messages(), "correlated replies do not reach the system room")
		})
	}
}

func TestOperationConfirmedByEcho(t *testing.T) {
	h := newHarness(t)
	h.ready()
	h.joined("#test", "@me bob")

	h.replyTo("KICK", ":me!u@host KICK #test bob :bye")
	start := time.Now()
	require.NoError(t, h.a.KickParticipant("#test", "bob", "bye"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Contains(t, h.tr.lines(), "KICK #test bob bye")

	h.replyTo("MODE", ":me!u@host MODE #test +b *!*@bad.host")
	require.NoError(t, h.a.BanParticipant("#test", "*!*@bad.host", ""))
	room, _ := h.a.Room("#test")
	assert.Equal(t, []string{"*!*@bad.host"}, room.Bans)

	h.replyTo("TOPIC", ":me!u@host TOPIC #test :fresh")
	require.NoError(t, h.a.SetSubject("#test", "fresh"))

	h.replyTo("NICK", ":me!u@host NICK newme")
	require.NoError(t, h.a.SetUserNickname("newme"))
	assert.Equal(t, "newme", h.a.Nick())
}

func TestOperationTimeoutIsSuccess(t *testing.T) {
	h := newHarness(t)
	h.ready()
	h.joined("#test", "@me bob")

	start := time.Now()
	assert.NoError(t, h.a.SetSubject("#test", "quiet server"))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 0, h.a.pending.len())
}

func TestOperationRequiresJoinedRoom(t *testing.T) {
	h := newHarness(t)
	h.ready()

	assert.ErrorIs(t, h.a.KickParticipant("#elsewhere", "bob", ""), RoomNotJoined)
	assert.ErrorIs(t, h.a.SetSubject("#elsewhere", "x"), RoomNotJoined)
	assert.ErrorIs(t, h.a.SetUserNickname(""), InvalidArgument)
	assert.Empty(t, h.tr.lines())
}

func TestOperationRequiresConnection(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.a.SetUserNickname("x"), ConnectionFailure)
	assert.ErrorIs(t, h.a.Whois("x"), ConnectionFailure)
}

func TestConcurrentOperationsAreIsolated(t *testing.T) {
	h := newHarness(t)
	h.ready()
	h.joined("#a", "@me bob")
	h.joined("#b", "@me bob")

	h.tr.setOnSend(func(cmd string, params []string) {
		if cmd != "KICK" {
			return
		}
		switch params[0] {
		case "#a":
			h.feed(":irc.test 482 me #a :You're not channel operator")
		case "#b":
			h.feed(":me!u@host KICK #b bob :bye")
		}
	})

	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(2)
	go func() {
		defer wg.Done()
		errA = h.a.KickParticipant("#a", "bob", "bye")
	}()
	go func() {
		defer wg.Done()
		errB = h.a.KickParticipant("#b", "bob", "bye")
	}()
	wg.Wait()

	assert.ErrorIs(t, errA, InsufficientPrivileges)
	assert.NoError(t, errB)
}

func TestDisconnectReleasesPendingOperation(t *testing.T) {
	h := newHarness(t)
	h.ready()
	h.joined("#test", "@me bob")

	h.tr.setOnSend(func(cmd string, params []string) {
		if cmd == "KICK" {
			go h.a.HandleDisconnect()
		}
	})

	err := h.a.KickParticipant("#test", "bob", "")
	assert.ErrorIs(t, err, ConnectionFailure)
	assert.Equal(t, Disconnected, h.a.State())
}

func TestUncorrelatedErrorGoesToSystemRoom(t *testing.T) {
	h := newHarness(t)
	h.ready()

	h.feed(":irc.test 401 me ghost :No such nick/channel")
	msgs := h.rec.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ghost No such nick/channel", msgs[0].Text)
}

func TestSendCommand(t *testing.T) {
	h := newHarness(t)
	h.ready()
	h.joined("#test", "@me bob")

	tests := []struct {
		line string
		want string
	}{
		{"hello there", "PRIVMSG #test hello there"},
		{"/me waves", "PRIVMSG #test \x01ACTION waves\x01"},
		{"/notice heads up", "NOTICE #test heads up"},
		{"/msg bob hi there", "PRIVMSG bob hi there"},
		{"/whois bob", "WHOIS bob"},
		{"/names", "NAMES #test"},
		{"/list", "LIST"},
		{"/mode #test +m", "MODE #test +m"},
		{"/away gone fishing", "AWAY gone fishing"},
	}

	for _, tt := range tests {
		require.NoError(t, h.a.SendCommand("#test", tt.line), tt.line)
		lines := h.tr.lines()
		assert.Equal(t, tt.want, lines[len(lines)-1], tt.line)
	}

	assert.ErrorIs(t, h.a.SendCommand("#other", "hello"), RoomNotJoined)
	assert.ErrorIs(t, h.a.SendCommand("#test", "/msg"), InvalidArgument)
	assert.ErrorIs(t, h.a.SendCommand("#test", "/"), InvalidArgument)
}

func TestSendCommandQuery(t *testing.T) {
	h := newHarness(t)
	h.ready()

	require.NoError(t, h.a.SendCommand("irc.test", "/query dave"))
	room, ok := h.a.Room("dave")
	require.True(t, ok)
	assert.True(t, room.Private)

	msgs := h.rec.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Private conversation initiated.", msgs[0].Text)

	require.NoError(t, h.a.SendMessage("dave", "hi"))
	assert.Equal(t, []string{"PRIVMSG dave hi"}, h.tr.lines())

	require.NoError(t, h.a.Leave("dave"))
	_, ok = h.a.Room("dave")
	assert.False(t, ok)
}

func TestSendMessageSanitizes(t *testing.T) {
	h := newHarness(t)
	h.ready()
	h.joined("#test", "me")

	require.NoError(t, h.a.SendMessage("#test", "one\r\ntwo"))
	lines := h.tr.lines()
	assert.Equal(t, "PRIVMSG #test one  two", lines[len(lines)-1])
	assert.ErrorIs(t, h.a.SendMessage("#test", ""), InvalidArgument)
}
