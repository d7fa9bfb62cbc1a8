package irc

import (
	"testing"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalnet/ircmuc/internal/config"
)

func newTestClient(t *testing.T) (*Client, *recorder) {
	t.Helper()
	cfg := config.Default()
	cfg.Nick = "ircmuc"
	cfg.Username = "ircmuc"
	cfg.ConnectTimeout = 15 * time.Second
	rec := &recorder{}
	return NewClient(&cfg, zerolog.Nop(), nil, rec), rec
}

// deliver hands lines to the ircevent connection as if read from the socket.
func deliver(t *testing.T, c *Client, lines ...string) {
	t.Helper()
	for _, line := range lines {
		msg, err := ircmsg.ParseLine(line)
		require.NoError(t, err, line)
		c.conn.HandleMessage(msg)
	}
}

func TestClientConfiguresConnection(t *testing.T) {
	c, _ := newTestClient(t)

	assert.True(t, c.conn.EnableCTCP)
	assert.Contains(t, c.conn.Version, Version)
	assert.Equal(t, 15*time.Second, c.conn.Timeout)
	assert.Equal(t, "ircmuc", c.conn.Nick)
}

func TestClientRoutesLinesToAdapter(t *testing.T) {
	c, rec := newTestClient(t)
	a := c.Adapter()

	deliver(t, c, ":irc.example 001 ircmuc :Welcome to the example network")
	assert.Equal(t, AwaitingHandshake, a.State())
	assert.Equal(t, "ircmuc", a.Nick())

	deliver(t, c, ":irc.example 376 ircmuc :End of /MOTD command.")
	assert.Equal(t, Ready, a.State())

	deliver(t, c,
		":ircmuc!u@h JOIN #test",
		":irc.example 353 ircmuc = #test :@ircmuc alice",
		":irc.example 366 ircmuc #test :End of /NAMES list.",
	)
	assert.Equal(t, []string{"#test"}, a.JoinedRooms())
	require.Len(t, rec.local(LocalUserJoined), 1)
	joined := rec.presence(MemberJoined)
	require.Len(t, joined, 2)

	room, ok := a.Room("#test")
	require.True(t, ok)
	assert.Len(t, room.Members, 2)

	rec.reset()
	deliver(t, c,
		":alice!a@h PRIVMSG #test :hello",
		":alice!a@h PRIVMSG #test :\x01ACTION waves\x01",
	)
	msgs := rec.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, ConversationMessage, msgs[0].Kind)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, ActionMessage, msgs[1].Kind)
	assert.Equal(t, "waves", msgs[1].Text)
	assert.Equal(t, "alice", msgs[1].Sender.Nick)

	rec.reset()
	deliver(t, c, ":irc.example 999 ircmuc :Something unusual")
	msgs = rec.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, SystemMessage, msgs[0].Kind)
	assert.Equal(t, "Something unusual", msgs[0].Text)

	deliver(t, c, ":alice!a@h PART #test :later")
	assert.Len(t, rec.presence(MemberLeft), 1)
}
