package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"github.com/rs/zerolog"

	"github.com/dalnet/ircmuc/internal/config"
	"github.com/dalnet/ircmuc/internal/metrics"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// adapterCommands are the named commands Decode understands. ircevent
// dispatches on exact command names, so each is registered on its own.
var adapterCommands = []string{
	"PRIVMSG", "CTCP_ACTION", "NOTICE", "TOPIC", "JOIN", "PART",
	"KICK", "QUIT", "NICK", "MODE", "INVITE", "ERROR",
}

// Client runs an Adapter over a live ircevent connection.
type Client struct {
	conn    *ircevent.Connection
	cfg     *config.Config
	log     zerolog.Logger
	adapter *Adapter
}

// NewClient creates a client for cfg. Notifications go to l.
func NewClient(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics, l Listener) *Client {
	conn := &ircevent.Connection{
		Nick:        cfg.Nick,
		User:        cfg.Username,
		RealName:    cfg.IRCName,
		QuitMessage: "Shutting down",
		Version:     versionString(),
		Timeout:     cfg.ConnectTimeout,
		EnableCTCP:  true,
		Debug:       false,
		UseTLS:      cfg.UseTLS,
		TLSConfig:   &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
	}
	// ircevent refuses a keepalive shorter than its timeout
	if keepAlive := 4 * time.Minute; cfg.ConnectTimeout > keepAlive {
		conn.KeepAlive = cfg.ConnectTimeout
	}

	c := &Client{
		conn: conn,
		cfg:  cfg,
		log:  log,
	}
	adapterLog := log.With().Str("component", "adapter").Logger()
	c.adapter = New(eventTransport{conn}, Options{
		Nick:             cfg.Nick,
		JoinTimeout:      cfg.JoinTimeout,
		OperationTimeout: cfg.OperationTimeout,
		Listener:         l,
		Logger:           &adapterLog,
		Metrics:          m,
	})

	c.registerHandlers()
	return c
}

func (c *Client) registerHandlers() {
	// Every line the adapter decodes goes through its own dispatcher
	for _, cmd := range adapterCommands {
		c.conn.AddCallback(cmd, c.adapter.HandleMessage)
	}

	// All numerics, so replies without a handler still reach the system room
	for i := 1; i < 1000; i++ {
		c.conn.AddCallback(fmt.Sprintf("%03d", i), c.adapter.HandleMessage)
	}

	c.conn.AddDisconnectCallback(func(ircmsg.Message) {
		c.adapter.HandleDisconnect()
	})

	// CTCP VERSION, PING and TIME are answered by ircevent using conn.Version
}

// Adapter returns the chat adapter driven by this client.
func (c *Client) Adapter() *Adapter {
	return c.adapter
}

// Run connects, joins the configured channels and blocks until ctx ends or
// the connection is closed for good.
func (c *Client) Run(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	err := c.adapter.Connect(connectCtx, c.cfg.Server, c.cfg.Port, c.cfg.ServerPass, c.cfg.AutoNickChange)
	cancel()
	if err != nil {
		return err
	}

	for _, ch := range c.cfg.Channels {
		if err := c.adapter.JoinWithKey(ch.Name, ch.Key); err != nil {
			c.log.Warn().Err(err).Str("room", ch.Name).Msg("could not join")
		}
	}

	go func() {
		<-ctx.Done()
		c.log.Info().Msg("shutting down")
		c.adapter.Disconnect("Shutting down")
	}()

	c.conn.Loop()
	return nil
}

func versionString() string {
	return fmt.Sprintf("ircmuc %s (built %s, commit %s)", Version, BuildDate, GitCommit)
}

// eventTransport is the Transport over an ircevent connection.
type eventTransport struct {
	conn *ircevent.Connection
}

func (t eventTransport) Connect(server, password string) error {
	t.conn.Server = server
	t.conn.Password = password
	return t.conn.Connect()
}

func (t eventTransport) Send(command string, params ...string) error {
	return t.conn.Send(command, params...)
}

func (t eventTransport) Quit(reason string) {
	if reason != "" {
		t.conn.QuitMessage = reason
	}
	t.conn.Quit()
}
